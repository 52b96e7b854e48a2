// Package scaninfo reads physical scaling constants from the ScanInfo.xml
// sidecar file included in ZEISS LSM 880 with Airyscan microscope output
// (and possibly other vendors using the same schema).
package scaninfo

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"stackstoome/internal/models"
)

// Parameter attribute values recognized inside Setting elements.
const (
	paramMicronsPerPixelY     = "MicronsPerPixelY"
	paramMicronsPerPixelX     = "MicronsPerPixelX"
	paramZStackSpacingMicrons = "ZStackSpacingMicrons"
)

// element is a generic XML node used to walk the document for Setting
// elements at any nesting depth.
type element struct {
	XMLName   xml.Name
	Parameter string    `xml:"Parameter,attr"`
	Text      string    `xml:",chardata"`
	Children  []element `xml:",any"`
}

// Read parses the XML file at path and returns the physical scaling it
// declares. Any of the three values whose Setting element is absent from
// the document remains nil in the result. Malformed XML or unparsable
// numeric text is an error.
func Read(path string) (models.Scaling, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Scaling{}, fmt.Errorf("failed to open scan info file: %w", err)
	}
	defer f.Close()

	scaling, err := Parse(f)
	if err != nil {
		return models.Scaling{}, fmt.Errorf("failed to parse scan info file %s: %w", path, err)
	}
	return scaling, nil
}

// Parse reads a ScanInfo XML document from r and extracts the values of
// ZStackSpacingMicrons, MicronsPerPixelY and MicronsPerPixelX from the
// Setting elements found anywhere in the tree.
func Parse(r io.Reader) (models.Scaling, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return models.Scaling{}, fmt.Errorf("invalid XML: %w", err)
	}

	var scaling models.Scaling
	if err := collectSettings(&root, &scaling); err != nil {
		return models.Scaling{}, err
	}
	return scaling, nil
}

// collectSettings walks the element tree depth-first and fills in scaling
// values from every Setting element it encounters
func collectSettings(node *element, scaling *models.Scaling) error {
	if node.XMLName.Local == "Setting" {
		switch node.Parameter {
		case paramZStackSpacingMicrons:
			value, err := parseSetting(node)
			if err != nil {
				return err
			}
			scaling.Z = value
		case paramMicronsPerPixelY:
			value, err := parseSetting(node)
			if err != nil {
				return err
			}
			scaling.Y = value
		case paramMicronsPerPixelX:
			value, err := parseSetting(node)
			if err != nil {
				return err
			}
			scaling.X = value
		}
	}

	for i := range node.Children {
		if err := collectSettings(&node.Children[i], scaling); err != nil {
			return err
		}
	}
	return nil
}

// parseSetting parses the text content of a Setting element as a float
func parseSetting(node *element) (*float64, error) {
	text := strings.TrimSpace(node.Text)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("setting %s has non-numeric value %q: %w",
			node.Parameter, text, err)
	}
	return &value, nil
}
