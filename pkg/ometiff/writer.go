// Package ometiff writes the combined channel and label volumes into a
// single OME-TIFF: one multi-page BigTIFF file holding a (C, Z, Y, X)
// uint16 array page by page, with an OME-XML description block embedded in
// the first page. BigTIFF framing (64-bit offsets) keeps the format safe
// for volumes beyond the classic 4 GiB limit; no Go imaging library writes
// multi-page BigTIFF, so the directory structures are emitted here.
package ometiff

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"stackstoome/internal/models"
	"stackstoome/pkg/assembly"
)

// ErrOutputExists is returned when the output path already exists and
// overwriting was not requested.
var ErrOutputExists = errors.New("output path already exists")

// labelSuffix disambiguates segmentation compartments from true channels.
const labelSuffix = " (labels)"

// Tags and data types written into each image directory.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagDescription     = 270
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279

	typeASCII = 2
	typeShort = 3
	typeLong  = 4
	typeLong8 = 16
)

// Combined is the 4D (C, Z, Y, X) array written to one OME-TIFF, formed by
// concatenating all image volumes and then all label volumes along a new
// leading channel axis
type Combined struct {
	// Data holds the samples in C-major, then Z, Y, X order
	Data []uint16

	// SizeC, SizeZ, SizeY, SizeX are the array extents
	SizeC int
	SizeZ int
	SizeY int
	SizeX int

	// ChannelNames holds one name per channel in concatenation order,
	// label names carrying the " (labels)" suffix
	ChannelNames []string
}

// Combine stacks the assembled channels and labels into one combined
// volume. Every volume must share the same (Z, Y, X) extents.
func Combine(result *assembly.Result) (*Combined, error) {
	if len(result.Channels) == 0 {
		return nil, fmt.Errorf("no channels to combine")
	}

	first := result.Channels[0].Volume
	combined := &Combined{
		SizeZ: first.Depth,
		SizeY: first.Height,
		SizeX: first.Width,
	}

	appendVolume := func(name string, volume *models.Volume) error {
		if volume.Depth != combined.SizeZ || volume.Height != combined.SizeY || volume.Width != combined.SizeX {
			return fmt.Errorf("channel %s is %dx%dx%d, expected %dx%dx%d like the first channel",
				name, volume.Width, volume.Height, volume.Depth,
				combined.SizeX, combined.SizeY, combined.SizeZ)
		}
		combined.Data = append(combined.Data, volume.Data...)
		combined.ChannelNames = append(combined.ChannelNames, name)
		combined.SizeC++
		return nil
	}

	for _, channel := range result.Channels {
		if err := appendVolume(channel.Name, channel.Volume); err != nil {
			return nil, err
		}
	}
	for _, label := range result.Labels {
		if err := appendVolume(label.Name+labelSuffix, label.Volume); err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// Write serializes the combined volume into a new OME-TIFF at outputPath
// and returns that path. The file must not already exist unless overwrite
// is set. After writing, the artifact is re-opened and validated; a
// validation failure is surfaced as an error.
func Write(outputPath string, combined *Combined, scaling models.Scaling, overwrite bool) (string, error) {
	if _, err := os.Stat(outputPath); err == nil {
		if !overwrite {
			return "", fmt.Errorf("%w: %s (remove it or request overwrite)", ErrOutputExists, outputPath)
		}
		if err := os.RemoveAll(outputPath); err != nil {
			return "", fmt.Errorf("failed to remove previous output: %w", err)
		}
	}

	description, err := GenerateXML(Metadata{
		SizeC:        combined.SizeC,
		SizeZ:        combined.SizeZ,
		SizeY:        combined.SizeY,
		SizeX:        combined.SizeX,
		Scaling:      scaling,
		ChannelNames: combined.ChannelNames,
	})
	if err != nil {
		return "", err
	}

	if err := writeBigTIFF(outputPath, combined, description); err != nil {
		return "", err
	}
	if err := Validate(outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// writeBigTIFF emits the file in one pass: header, page pixel data, the
// description block, then one IFD per page
func writeBigTIFF(outputPath string, combined *Combined, description string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	le := binary.LittleEndian
	w := bufio.NewWriter(f)

	pageSamples := combined.SizeY * combined.SizeX
	pageSize := uint64(pageSamples * 2)
	pages := combined.SizeC * combined.SizeZ

	// NUL-terminated description, padded to even length
	desc := append([]byte(description), 0)
	descLen := uint64(len(desc))
	if descLen%2 == 1 {
		desc = append(desc, 0)
	}

	// Offsets are laid out up front: 16-byte header, then pixel data,
	// then the description, then the IFD chain. The first IFD carries
	// one extra entry for the description.
	const headerSize = 16
	dataStart := uint64(headerSize)
	descOffset := dataStart + uint64(pages)*pageSize
	ifdStart := descOffset + uint64(len(desc))
	firstIFDSize := uint64(8 + 10*20 + 8)
	otherIFDSize := uint64(8 + 9*20 + 8)
	ifdOffset := func(page int) uint64 {
		if page == 0 {
			return ifdStart
		}
		return ifdStart + firstIFDSize + uint64(page-1)*otherIFDSize
	}

	// Header: byte order, BigTIFF magic, offset size, first IFD offset
	w.WriteString("II")
	binary.Write(w, le, uint16(43))
	binary.Write(w, le, uint16(8))
	binary.Write(w, le, uint16(0))
	binary.Write(w, le, ifdStart)

	// Pixel data, one uncompressed strip per page
	sample := make([]byte, 2)
	for _, value := range combined.Data {
		le.PutUint16(sample, value)
		w.Write(sample)
	}

	w.Write(desc)

	writeEntry := func(tag, datatype uint16, count, value uint64) {
		binary.Write(w, le, tag)
		binary.Write(w, le, datatype)
		binary.Write(w, le, count)
		binary.Write(w, le, value)
	}
	for page := 0; page < pages; page++ {
		entries := uint64(9)
		if page == 0 {
			entries = 10
		}
		binary.Write(w, le, entries)
		writeEntry(tagImageWidth, typeLong, 1, uint64(combined.SizeX))
		writeEntry(tagImageLength, typeLong, 1, uint64(combined.SizeY))
		writeEntry(tagBitsPerSample, typeShort, 1, 16)
		writeEntry(tagCompression, typeShort, 1, 1)
		writeEntry(tagPhotometric, typeShort, 1, 1) // min-is-black
		if page == 0 {
			writeEntry(tagDescription, typeASCII, descLen, descOffset)
		}
		writeEntry(tagStripOffsets, typeLong8, 1, dataStart+uint64(page)*pageSize)
		writeEntry(tagSamplesPerPixel, typeShort, 1, 1)
		writeEntry(tagRowsPerStrip, typeLong, 1, uint64(combined.SizeY))
		writeEntry(tagStripByteCounts, typeLong8, 1, pageSize)

		var next uint64
		if page < pages-1 {
			next = ifdOffset(page + 1)
		}
		binary.Write(w, le, next)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}
