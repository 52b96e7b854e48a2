package ometiff

import (
	"fmt"
	"strings"

	"stackstoome/internal/tiffio"
)

// Validate re-opens a written file and confirms it is recognized as a
// tagged image file whose first page carries the OME metadata schema
// marker. A file that cannot be parsed, has no pages, or lacks the OME
// description is rejected.
func Validate(path string) error {
	info, err := tiffio.Inspect(path)
	if err != nil {
		return fmt.Errorf("OME-TIFF validation failed: %w", err)
	}
	if info.Pages == 0 {
		return fmt.Errorf("OME-TIFF validation failed: %s contains no pages", path)
	}
	if !strings.Contains(info.Description, "openmicroscopy.org/Schemas/OME") {
		return fmt.Errorf("OME-TIFF validation failed: %s carries no OME metadata block", path)
	}
	return nil
}
