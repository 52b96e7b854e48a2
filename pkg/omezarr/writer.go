// Package omezarr writes assembled channel volumes into an OME-Zarr
// hierarchical store: a directory-backed Zarr V2 group tree with "images"
// and "labels" top-level groups, one child group per channel, and a single
// full-resolution dataset "0" per child. No downsampling pyramid is
// generated and chunks are stored uncompressed.
package omezarr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stackstoome/internal/models"
	"stackstoome/pkg/assembly"
	"stackstoome/pkg/stats"
)

// ErrOutputExists is returned when the output path already exists and
// overwriting was not requested.
var ErrOutputExists = errors.New("output path already exists")

// labelSuffix disambiguates segmentation compartments from true channels.
const labelSuffix = " (labels)"

// Write serializes the assembly result into a new OME-Zarr store at
// outputPath and returns that path. The store must not already exist
// unless overwrite is set, in which case any prior artifact is removed
// first. The store is fully written before Write returns.
func Write(outputPath string, result *assembly.Result, scaling models.Scaling, overwrite bool) (string, error) {
	if _, err := os.Stat(outputPath); err == nil {
		if !overwrite {
			return "", fmt.Errorf("%w: %s (remove it or request overwrite)", ErrOutputExists, outputPath)
		}
		if err := os.RemoveAll(outputPath); err != nil {
			return "", fmt.Errorf("failed to remove previous output: %w", err)
		}
	}

	if err := writeGroup(outputPath); err != nil {
		return "", err
	}

	imagesDir := filepath.Join(outputPath, "images")
	if err := writeGroup(imagesDir); err != nil {
		return "", err
	}
	for _, channel := range result.Channels {
		if err := writeChannel(filepath.Join(imagesDir, channel.Name), channel.Name, channel.Volume, scaling); err != nil {
			return "", err
		}
	}

	if len(result.Labels) > 0 {
		labelsDir := filepath.Join(outputPath, "labels")
		if err := writeGroup(labelsDir); err != nil {
			return "", err
		}
		for _, label := range result.Labels {
			name := label.Name + labelSuffix
			if err := writeChannel(filepath.Join(labelsDir, name), name, label.Volume, scaling); err != nil {
				return "", err
			}
		}
	}

	return outputPath, nil
}

// writeGroup creates a directory carrying Zarr group metadata
func writeGroup(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create group %s: %w", dir, err)
	}
	return writeJSON(filepath.Join(dir, ".zgroup"), GroupMeta{ZarrFormat: 2})
}

// writeChannel writes one channel group: group metadata, scale and
// rendering attributes, and the raw dataset at path "0"
func writeChannel(dir, name string, volume *models.Volume, scaling models.Scaling) error {
	if err := writeGroup(dir); err != nil {
		return err
	}

	channelStats := stats.Compute(volume)
	zyx := scaling.ZYX()
	attrs := GroupAttrs{
		Units: "micrometers",
		Multiscales: []Multiscale{{
			Datasets: []Dataset{{
				Path: "0",
				CoordinateTransformations: []CoordinateTransform{{
					Type:  "scale",
					Scale: zyx[:],
				}},
			}},
			Axes: spatialAxes(),
		}},
		Omero: &Omero{
			Channels: []OmeroChannel{{
				Label: name,
				Window: Window{
					Min:   float64(channelStats.Min),
					Max:   float64(channelStats.Max),
					Start: float64(channelStats.Min),
					End:   float64(channelStats.Max),
				},
			}},
		},
	}
	if err := writeJSON(filepath.Join(dir, ".zattrs"), attrs); err != nil {
		return err
	}

	return writeDataset(filepath.Join(dir, "0"), volume)
}

// writeDataset writes the full-resolution array: .zarray metadata plus one
// whole-volume chunk
func writeDataset(dir string, volume *models.Volume) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", dir, err)
	}

	shape := []int{volume.Depth, volume.Height, volume.Width}
	meta := ArrayMeta{
		Chunks:     shape,
		Compressor: nil,
		DType:      "<u2",
		FillValue:  0,
		Filters:    nil,
		Order:      "C",
		Shape:      shape,
		ZarrFormat: 2,
	}
	if err := writeJSON(filepath.Join(dir, ".zarray"), meta); err != nil {
		return err
	}

	// Single whole-volume chunk, little-endian to match "<u2".
	chunk := make([]byte, len(volume.Data)*2)
	for i, value := range volume.Data {
		chunk[i*2] = byte(value)
		chunk[i*2+1] = byte(value >> 8)
	}
	chunkPath := filepath.Join(dir, "0.0.0")
	if err := os.WriteFile(chunkPath, chunk, 0644); err != nil {
		return fmt.Errorf("failed to write chunk %s: %w", chunkPath, err)
	}
	return nil
}

// writeJSON marshals a metadata value into an indented JSON file
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
