// Package convert exposes the stable conversion entry points: assemble a
// directory of microscopy TIFF slices (plus optional segmentation masks
// and a ScanInfo.xml sidecar) and serialize the result to OME-Zarr or
// OME-TIFF.
package convert

import (
	"fmt"

	"stackstoome/internal/models"
	"stackstoome/pkg/assembly"
	"stackstoome/pkg/naming"
	"stackstoome/pkg/ometiff"
	"stackstoome/pkg/omezarr"
	"stackstoome/pkg/scaninfo"
	"stackstoome/pkg/stats"
)

// Params holds the conversion configuration
type Params struct {
	// ImageDir is the directory containing the raw 2D slice TIFF files
	ImageDir string

	// LabelDir optionally points at a directory of segmentation mask
	// volumes; empty means no labels
	LabelDir string

	// ScanInfoPath optionally points at the ScanInfo.xml sidecar from
	// which physical scaling is read; empty means no sidecar
	ScanInfoPath string

	// OutputPath is where the converted artifact is written
	OutputPath string

	// ChannelMap translates filename channel codes into display names
	ChannelMap map[string]string

	// Scaling overrides the physical voxel scaling. Components left nil
	// are filled from the ScanInfo sidecar when one is given.
	Scaling models.Scaling

	// Overwrite allows replacing an existing output artifact
	Overwrite bool

	// Strict makes an unmapped channel code a fatal error instead of
	// synthesizing a placeholder name
	Strict bool

	// Verbose enables progress output during conversion
	Verbose bool

	// Convention decodes filenames; nil selects the ZEISS LSM convention
	Convention naming.Convention
}

// ChannelReport summarizes one converted channel for display
type ChannelReport struct {
	// Name is the channel or compartment display name
	Name string

	// Files is the number of slice files stacked (0 for mask volumes)
	Files int

	// Width, Height, Depth are the volume extents
	Width, Height, Depth int

	// Stats holds the intensity statistics of the volume
	Stats stats.ChannelStats
}

// Converter runs the conversion pipeline:
// 1. Reading physical scaling from the ScanInfo sidecar
// 2. Grouping and ordering the slice files by channel
// 3. Loading slices and masks into per-channel volumes
// 4. Serializing the volumes to the selected target format
//
// All volumes are held in memory between assembly and serialization, so
// peak memory scales with the total voxel count across channels and
// labels.
type Converter struct {
	// params stores the conversion configuration
	params *Params

	// scaling is the resolved physical voxel scaling
	scaling models.Scaling

	// result holds the assembled volumes between assembly and
	// serialization
	result *assembly.Result

	// reports holds the per-channel summaries built during assembly
	reports []ChannelReport
}

// NewConverter creates a converter instance with the provided parameters
func NewConverter(params *Params) *Converter {
	return &Converter{params: params}
}

// ToZarr runs the pipeline and writes an OME-Zarr store, returning the
// output path
func (c *Converter) ToZarr() (string, error) {
	if err := c.prepare(); err != nil {
		return "", err
	}

	c.logf("Writing OME-Zarr store to %s...\n", c.params.OutputPath)
	path, err := omezarr.Write(c.params.OutputPath, c.result, c.scaling, c.params.Overwrite)
	if err != nil {
		return "", err
	}
	c.logf("OME-Zarr written to %s\n", path)
	return path, nil
}

// ToOMETIFF runs the pipeline and writes a single OME-TIFF file,
// returning the output path
func (c *Converter) ToOMETIFF() (string, error) {
	if err := c.prepare(); err != nil {
		return "", err
	}

	c.logf("Combining %d channels and %d labels...\n", len(c.result.Channels), len(c.result.Labels))
	combined, err := ometiff.Combine(c.result)
	if err != nil {
		return "", err
	}

	c.logf("Writing OME-TIFF to %s...\n", c.params.OutputPath)
	path, err := ometiff.Write(c.params.OutputPath, combined, c.scaling, c.params.Overwrite)
	if err != nil {
		return "", err
	}
	c.logf("OME-TIFF written to %s\n", path)
	return path, nil
}

// Reports returns the per-channel summaries collected during the last
// conversion
func (c *Converter) Reports() []ChannelReport {
	return c.reports
}

// Scaling returns the resolved physical voxel scaling of the last
// conversion
func (c *Converter) Scaling() models.Scaling {
	return c.scaling
}

// prepare resolves scaling and assembles all volumes into memory
func (c *Converter) prepare() error {
	if err := c.resolveScaling(); err != nil {
		return err
	}

	c.logf("Assembling slice stacks from %s...\n", c.params.ImageDir)
	assembler := assembly.NewAssembler(&assembly.Params{
		ImageDir:   c.params.ImageDir,
		LabelDir:   c.params.LabelDir,
		ChannelMap: c.params.ChannelMap,
		Strict:     c.params.Strict,
		Convention: c.params.Convention,
	})
	result, err := assembler.Assemble()
	if err != nil {
		return err
	}
	c.result = result

	c.reports = c.reports[:0]
	for _, channel := range result.Channels {
		c.reports = append(c.reports, ChannelReport{
			Name:   channel.Name,
			Files:  len(channel.Files),
			Width:  channel.Volume.Width,
			Height: channel.Volume.Height,
			Depth:  channel.Volume.Depth,
			Stats:  stats.Compute(channel.Volume),
		})
		c.logf("Channel: %s, Files: %d, Stack shape: (%d, %d, %d)\n",
			channel.Name, len(channel.Files),
			channel.Volume.Depth, channel.Volume.Height, channel.Volume.Width)
	}
	for _, label := range result.Labels {
		c.reports = append(c.reports, ChannelReport{
			Name:   label.Name + " (labels)",
			Width:  label.Volume.Width,
			Height: label.Volume.Height,
			Depth:  label.Volume.Depth,
			Stats:  stats.Compute(label.Volume),
		})
		c.logf("Label: %s, Volume shape: (%d, %d, %d)\n",
			label.Name, label.Volume.Depth, label.Volume.Height, label.Volume.Width)
	}
	return nil
}

// resolveScaling merges the explicit scaling override with the ScanInfo
// sidecar: explicit components win, sidecar fills the rest
func (c *Converter) resolveScaling() error {
	c.scaling = c.params.Scaling
	if c.params.ScanInfoPath == "" {
		return nil
	}

	c.logf("Reading scan metadata from %s...\n", c.params.ScanInfoPath)
	fromFile, err := scaninfo.Read(c.params.ScanInfoPath)
	if err != nil {
		return err
	}
	if c.scaling.Z == nil {
		c.scaling.Z = fromFile.Z
	}
	if c.scaling.Y == nil {
		c.scaling.Y = fromFile.Y
	}
	if c.scaling.X == nil {
		c.scaling.X = fromFile.X
	}
	return nil
}

// logf prints progress output when verbose mode is enabled
func (c *Converter) logf(format string, args ...interface{}) {
	if c.params.Verbose {
		fmt.Printf(format, args...)
	}
}
