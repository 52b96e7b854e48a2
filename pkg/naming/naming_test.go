package naming

import "testing"

// TestSliceIndex verifies slice number decoding against filenames observed
// in real ZEISS LSM 880 output
func TestSliceIndex(t *testing.T) {
	tests := []struct {
		filename string
		expected int
	}{
		{"C10-1_405_ZS034_FOV-1.tif", 34},
		{"C10-1_405_ZS018_FOV-1.tif", 18},
		{"C10-1_405_ZS039_FOV-1.tif", 39},
		{"C10-1_405_ZS043_FOV-1.tif", 43},
		{"C10-1_405_ZS033_FOV-1.tif", 33},
		{"C10-1_405_ZS027_FOV-1.tif", 27},
		{"C10-1_405_ZS006_FOV-1.tif", 6},
		// No ZS pattern
		{"C10-1_405_FOV-1.tif", 0},
		// Incomplete ZS pattern
		{"C10-1_405_ZS_FOV-1.tif", 0},
	}

	convention := ZeissLSM{}
	for _, tt := range tests {
		if got := convention.SliceIndex(tt.filename); got != tt.expected {
			t.Errorf("SliceIndex(%q) = %d, expected %d", tt.filename, got, tt.expected)
		}
	}
}

// TestChannelCode verifies channel token extraction and the error for
// non-conforming names
func TestChannelCode(t *testing.T) {
	convention := ZeissLSM{}

	tests := []struct {
		filename string
		expected string
	}{
		{"C10-1_405_ZS034_FOV-1.tif", "405"},
		{"C10-1_TRANS_ZS001_FOV-1.tif", "TRANS"},
		{"C10-1_Merge_FOV-1.tif", "Merge"},
	}
	for _, tt := range tests {
		got, err := convention.ChannelCode(tt.filename)
		if err != nil {
			t.Errorf("ChannelCode(%q) returned unexpected error: %v", tt.filename, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ChannelCode(%q) = %q, expected %q", tt.filename, got, tt.expected)
		}
	}

	if _, err := convention.ChannelCode("noseparators.tif"); err == nil {
		t.Error("ChannelCode should fail for a filename without underscore tokens")
	}
}

// TestCompartmentToken verifies label compartment extraction
func TestCompartmentToken(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"nucleus_mask.tiff", "nucleus"},
		{"cell_C10-1_mask.tiff", "cell"},
		{"compartment.tiff", "compartment"},
	}

	convention := ZeissLSM{}
	for _, tt := range tests {
		if got := convention.CompartmentToken(tt.filename); got != tt.expected {
			t.Errorf("CompartmentToken(%q) = %q, expected %q", tt.filename, got, tt.expected)
		}
	}
}
