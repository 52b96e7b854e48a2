// Package naming decodes acquisition metadata embedded in microscopy
// filenames. The decoding rules are injected into the frame assembly logic
// as a Convention, so that alternate microscope naming schemes can be
// supported without touching the assembly code itself.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Convention decodes the structured tokens embedded in a microscope
// output filename.
type Convention interface {
	// SliceIndex extracts the z-slice number from a filename.
	// Filenames without a slice marker decode to 0; this is an ordinary
	// case (single-slice or pre-merged files), not an error.
	SliceIndex(filename string) int

	// ChannelCode extracts the acquisition channel token from a filename.
	// Returns an error for filenames that do not follow the convention.
	ChannelCode(filename string) (string, error)

	// CompartmentToken extracts the segmentation compartment token from
	// a label filename.
	CompartmentToken(filename string) string
}

// ZeissLSM implements the filename convention observed in ZEISS LSM 880
// with Airyscan microscope output:
//
//	<prefix>_<channelCode>[_ZS<digits>_]<suffix>.tif
//
// The z-slice number is a zero-padded integer following the "_ZS" marker,
// and the channel code is the second underscore-delimited token.
type ZeissLSM struct{}

var zSlicePattern = regexp.MustCompile(`_ZS(\d+)_`)

// SliceIndex returns the integer from the first "_ZS<digits>_" marker in
// the filename, with leading zeros ignored. Returns 0 if no well-formed
// marker is present.
func (ZeissLSM) SliceIndex(filename string) int {
	match := zSlicePattern.FindStringSubmatch(filename)
	if match == nil {
		return 0
	}
	index, err := strconv.Atoi(match[1])
	if err != nil {
		// \d+ always parses unless it overflows int; treat as unmarked
		return 0
	}
	return index
}

// ChannelCode returns the second underscore-delimited token of the
// filename. Filenames with fewer than two tokens do not follow the
// convention and yield an error; callers should pre-filter such names.
func (ZeissLSM) ChannelCode(filename string) (string, error) {
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return "", fmt.Errorf("filename %q has no channel code token", filename)
	}
	return parts[1], nil
}

// CompartmentToken returns the first underscore-delimited token of a label
// filename with any file extension trimmed, e.g. "nucleus_mask.tiff" and
// "nucleus.tiff" both yield "nucleus".
func (ZeissLSM) CompartmentToken(filename string) string {
	token := strings.Split(filename, "_")[0]
	if dot := strings.Index(token, "."); dot >= 0 {
		token = token[:dot]
	}
	return token
}
