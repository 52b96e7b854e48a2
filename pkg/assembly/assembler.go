// Package assembly reconstructs per-channel 3D volumes from a flat
// directory of individually numbered 2D TIFF slices, plus optional
// already-assembled segmentation mask volumes.
package assembly

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stackstoome/internal/models"
	"stackstoome/internal/tiffio"
	"stackstoome/pkg/naming"
)

// ErrUnknownChannel is returned in strict mode when a discovered channel
// code has no entry in the channel map.
var ErrUnknownChannel = errors.New("channel code not present in channel map")

// mergeCode marks pre-combined preview files which are not raw slices and
// must be excluded from stacking.
const mergeCode = "Merge"

// Params holds the frame assembly configuration
type Params struct {
	// ImageDir is the directory containing the raw 2D slice TIFF files
	ImageDir string

	// LabelDir optionally points at a directory of segmentation mask
	// volumes, one multi-page TIFF per compartment. Empty means no labels.
	LabelDir string

	// ChannelMap translates filename channel codes into display names
	ChannelMap map[string]string

	// Strict controls the missing-mapping policy: when true, a channel
	// code absent from ChannelMap is an error; when false, a placeholder
	// name "Unknown_<code>" is synthesized and assembly continues
	Strict bool

	// Convention decodes slice indices and channel tokens from filenames.
	// Nil selects the ZEISS LSM naming convention.
	Convention naming.Convention
}

// Channel is one assembled acquisition channel
type Channel struct {
	// Code is the raw filename token identifying the channel
	Code string

	// Name is the resolved display name
	Name string

	// Files lists the member slices in stacking order
	Files []models.SliceFile

	// Volume is the assembled (Z, Y, X) stack
	Volume *models.Volume
}

// Label is one assembled segmentation compartment
type Label struct {
	// Name is the compartment token from the label filename
	Name string

	// File is the path of the mask volume that was loaded
	File string

	// Volume is the loaded (Z, Y, X) mask
	Volume *models.Volume
}

// Result holds the output of one assembly run. Channels are ordered by
// channel code and labels by compartment name, so repeated runs over the
// same inputs produce identical ordering.
type Result struct {
	Channels []Channel
	Labels   []Label
}

// Assembler groups, orders and loads slice files into per-channel volumes
type Assembler struct {
	params     *Params
	convention naming.Convention
}

// NewAssembler creates an assembler with the provided parameters
func NewAssembler(params *Params) *Assembler {
	convention := params.Convention
	if convention == nil {
		convention = naming.ZeissLSM{}
	}
	return &Assembler{params: params, convention: convention}
}

// Assemble discovers and loads all channels and labels. The entire result
// set is held in memory; peak memory scales with the total voxel count.
func (a *Assembler) Assemble() (*Result, error) {
	groups, err := a.discoverImages()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, group := range groups {
		volume, err := a.loadChannel(group)
		if err != nil {
			return nil, err
		}
		result.Channels = append(result.Channels, Channel{
			Code:   group.Code,
			Name:   group.Name,
			Files:  group.Files,
			Volume: volume,
		})
	}

	if a.params.LabelDir != "" {
		labels, err := a.discoverLabels()
		if err != nil {
			return nil, err
		}
		for _, label := range labels {
			volume, err := tiffio.ReadVolume(label.File)
			if err != nil {
				return nil, fmt.Errorf("failed to load label %s: %w", label.Name, err)
			}
			label.Volume = volume
			result.Labels = append(result.Labels, label)
		}
	}

	return result, nil
}

// discoverImages lists the image directory and groups the slice files by
// channel code, each group sorted ascending by slice index
func (a *Assembler) discoverImages() ([]models.ChannelGroup, error) {
	entries, err := os.ReadDir(a.params.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("image directory %s is not a directory: %w", a.params.ImageDir, err)
	}

	byCode := make(map[string][]models.SliceFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		code, err := a.convention.ChannelCode(name)
		if err != nil {
			return nil, fmt.Errorf("unexpected file in image directory: %w", err)
		}
		if code == mergeCode {
			continue
		}
		byCode[code] = append(byCode[code], models.SliceFile{
			Path:        filepath.Join(a.params.ImageDir, name),
			Name:        name,
			ChannelCode: code,
			SliceIndex:  a.convention.SliceIndex(name),
		})
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	groups := make([]models.ChannelGroup, 0, len(codes))
	for _, code := range codes {
		name, err := a.channelName(code)
		if err != nil {
			return nil, err
		}
		files := byCode[code]
		// Stable on the directory listing's lexicographic order, so
		// duplicate indices keep a deterministic stacking order.
		sort.SliceStable(files, func(i, j int) bool {
			return files[i].SliceIndex < files[j].SliceIndex
		})
		groups = append(groups, models.ChannelGroup{Code: code, Name: name, Files: files})
	}
	return groups, nil
}

// channelName resolves a channel code through the channel map according
// to the configured missing-mapping policy
func (a *Assembler) channelName(code string) (string, error) {
	if name, ok := a.params.ChannelMap[code]; ok {
		return name, nil
	}
	if a.params.Strict {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, code)
	}
	return "Unknown_" + code, nil
}

// loadChannel reads every slice of a group and stacks them along a new
// leading Z axis in sorted order
func (a *Assembler) loadChannel(group models.ChannelGroup) (*models.Volume, error) {
	volume := &models.Volume{}
	for _, file := range group.Files {
		data, width, height, err := tiffio.ReadSlice(file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load channel %s: %w", group.Name, err)
		}
		if volume.Depth == 0 {
			volume.Width = width
			volume.Height = height
		} else if width != volume.Width || height != volume.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d like the rest of channel %s",
				file.Name, width, height, volume.Width, volume.Height, group.Name)
		}
		volume.Data = append(volume.Data, data...)
		volume.Depth++
	}
	return volume, nil
}

// discoverLabels lists the label directory and picks one mask volume per
// compartment token. Entries are sorted lexicographically first, so when
// several files share a token the first one in name order wins; the rest
// are ignored.
func (a *Assembler) discoverLabels() ([]Label, error) {
	entries, err := os.ReadDir(a.params.LabelDir)
	if err != nil {
		return nil, fmt.Errorf("label directory %s is not a directory: %w", a.params.LabelDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var labels []Label
	seen := make(map[string]bool)
	for _, name := range names {
		token := a.convention.CompartmentToken(name)
		if seen[token] {
			fmt.Printf("Warning: ignoring extra label file %s for compartment %s\n", name, token)
			continue
		}
		seen[token] = true
		labels = append(labels, Label{
			Name: token,
			File: filepath.Join(a.params.LabelDir, name),
		})
	}
	return labels, nil
}
