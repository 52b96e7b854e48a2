package convert

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	xtiff "golang.org/x/image/tiff"

	"stackstoome/internal/models"
	"stackstoome/internal/tiffio"
	"stackstoome/pkg/omezarr"
)

// writeSlice writes a single 16-bit grayscale TIFF slice filled with one
// constant value
func writeSlice(t *testing.T, dir, name string, width, height int, value uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to create slice %s: %v", name, err)
	}
	defer f.Close()
	if err := xtiff.Encode(f, img, nil); err != nil {
		t.Fatalf("Failed to encode slice %s: %v", name, err)
	}
}

func scalingOf(z, y, x float64) models.Scaling {
	return models.Scaling{Z: &z, Y: &y, X: &x}
}

// readChunk loads a whole-volume zarr chunk back into uint16 samples
func readChunk(t *testing.T, path string) []uint16 {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read chunk %s: %v", path, err)
	}
	samples := make([]uint16, len(raw)/2)
	for i := range samples {
		samples[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
	}
	return samples
}

// TestToZarrRoundTrip serializes two constant slices and reads the store
// back through its raw files
func TestToZarrRoundTrip(t *testing.T) {
	imageDir := t.TempDir()
	writeSlice(t, imageDir, "A_111_ZS000_.tif", 2, 2, 10)
	writeSlice(t, imageDir, "A_111_ZS001_.tif", 2, 2, 20)
	outputPath := filepath.Join(t.TempDir(), "output.zarr")

	converter := NewConverter(&Params{
		ImageDir:   imageDir,
		OutputPath: outputPath,
		ChannelMap: map[string]string{"111": "Channel A"},
		Scaling:    scalingOf(1.0, 0.1, 0.1),
		Strict:     true,
	})
	path, err := converter.ToZarr()
	if err != nil {
		t.Fatalf("ToZarr failed: %v", err)
	}
	if path != outputPath {
		t.Errorf("ToZarr returned %q, expected %q", path, outputPath)
	}

	datasetDir := filepath.Join(outputPath, "images", "Channel A", "0")
	raw, err := os.ReadFile(filepath.Join(datasetDir, ".zarray"))
	if err != nil {
		t.Fatalf("Failed to read .zarray: %v", err)
	}
	var meta omezarr.ArrayMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("Failed to parse .zarray: %v", err)
	}
	if meta.Shape[0] != 2 || meta.Shape[1] != 2 || meta.Shape[2] != 2 {
		t.Errorf("shape = %v, expected [2 2 2]", meta.Shape)
	}

	samples := readChunk(t, filepath.Join(datasetDir, "0.0.0"))
	for i := 0; i < 4; i++ {
		if samples[i] != 10 {
			t.Errorf("z=0 sample %d = %d, expected 10", i, samples[i])
		}
		if samples[4+i] != 20 {
			t.Errorf("z=1 sample %d = %d, expected 20", i, samples[4+i])
		}
	}

	reports := converter.Reports()
	if len(reports) != 1 || reports[0].Files != 2 || reports[0].Stats.Max != 20 {
		t.Errorf("reports = %+v, expected one channel of 2 files with max 20", reports)
	}
}

// TestToZarrManySlices checks that a longer synthetic stack keeps its
// acquisition order after assembly and serialization
func TestToZarrManySlices(t *testing.T) {
	imageDir := t.TempDir()
	const n = 12
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("A_111_ZS%03d_.tif", i)
		writeSlice(t, imageDir, name, 3, 2, uint16(100+i))
	}
	outputPath := filepath.Join(t.TempDir(), "output.zarr")

	converter := NewConverter(&Params{
		ImageDir:   imageDir,
		OutputPath: outputPath,
		ChannelMap: map[string]string{"111": "Channel A"},
		Scaling:    scalingOf(1.0, 0.1, 0.1),
		Strict:     true,
	})
	if _, err := converter.ToZarr(); err != nil {
		t.Fatalf("ToZarr failed: %v", err)
	}

	samples := readChunk(t, filepath.Join(outputPath, "images", "Channel A", "0", "0.0.0"))
	if len(samples) != n*3*2 {
		t.Fatalf("chunk has %d samples, expected %d", len(samples), n*3*2)
	}
	for z := 0; z < n; z++ {
		if got := samples[z*6]; got != uint16(100+z) {
			t.Errorf("z=%d sample = %d, expected %d", z, got, 100+z)
		}
	}
}

// TestToZarrScanInfoResolution checks that scaling falls back to the
// ScanInfo sidecar when no explicit override is given
func TestToZarrScanInfoResolution(t *testing.T) {
	imageDir := t.TempDir()
	writeSlice(t, imageDir, "A_111_ZS000_.tif", 2, 2, 10)

	scanInfoPath := filepath.Join(t.TempDir(), "ScanInfo.xml")
	content := `<ScanInfo>
		<Setting Parameter="ZStackSpacingMicrons">2.5</Setting>
		<Setting Parameter="MicronsPerPixelY">0.25</Setting>
		<Setting Parameter="MicronsPerPixelX">0.25</Setting>
	</ScanInfo>`
	if err := os.WriteFile(scanInfoPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ScanInfo.xml: %v", err)
	}
	outputPath := filepath.Join(t.TempDir(), "output.zarr")

	converter := NewConverter(&Params{
		ImageDir:     imageDir,
		ScanInfoPath: scanInfoPath,
		OutputPath:   outputPath,
		ChannelMap:   map[string]string{"111": "Channel A"},
		Strict:       true,
	})
	if _, err := converter.ToZarr(); err != nil {
		t.Fatalf("ToZarr failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputPath, "images", "Channel A", ".zattrs"))
	if err != nil {
		t.Fatalf("Failed to read .zattrs: %v", err)
	}
	var attrs omezarr.GroupAttrs
	if err := json.Unmarshal(raw, &attrs); err != nil {
		t.Fatalf("Failed to parse .zattrs: %v", err)
	}
	scale := attrs.Multiscales[0].Datasets[0].CoordinateTransformations[0].Scale
	if scale[0] != 2.5 || scale[1] != 0.25 || scale[2] != 0.25 {
		t.Errorf("scale = %v, expected [2.5 0.25 0.25] from ScanInfo", scale)
	}
}

func TestToOMETIFF(t *testing.T) {
	imageDir := t.TempDir()
	writeSlice(t, imageDir, "A_111_ZS000_.tif", 2, 2, 10)
	writeSlice(t, imageDir, "A_111_ZS001_.tif", 2, 2, 20)
	writeSlice(t, imageDir, "A_222_ZS000_.tif", 2, 2, 30)
	writeSlice(t, imageDir, "A_222_ZS001_.tif", 2, 2, 40)
	outputPath := filepath.Join(t.TempDir(), "output.ome.tiff")

	converter := NewConverter(&Params{
		ImageDir:   imageDir,
		OutputPath: outputPath,
		ChannelMap: map[string]string{"111": "Channel A", "222": "Channel B"},
		Scaling:    scalingOf(1.0, 0.1, 0.1),
		Strict:     true,
	})
	path, err := converter.ToOMETIFF()
	if err != nil {
		t.Fatalf("ToOMETIFF failed: %v", err)
	}

	info, err := tiffio.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !info.BigTIFF || info.Pages != 4 {
		t.Errorf("output: bigtiff=%v pages=%d, expected BigTIFF with 4 pages", info.BigTIFF, info.Pages)
	}

	volume, err := tiffio.ReadVolume(path)
	if err != nil {
		t.Fatalf("ReadVolume failed: %v", err)
	}
	expected := []uint16{10, 20, 30, 40}
	for page, value := range expected {
		if got := volume.Page(page)[0]; got != value {
			t.Errorf("page %d sample = %d, expected %d", page, got, value)
		}
	}
}

func TestToZarrMissingImageDir(t *testing.T) {
	converter := NewConverter(&Params{
		ImageDir:   filepath.Join(t.TempDir(), "missing"),
		OutputPath: filepath.Join(t.TempDir(), "output.zarr"),
		ChannelMap: map[string]string{},
	})
	if _, err := converter.ToZarr(); err == nil {
		t.Error("ToZarr should fail for a missing image directory")
	}
}
