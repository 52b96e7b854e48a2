package ometiff

import (
	"encoding/xml"
	"fmt"

	"stackstoome/internal/models"
)

// omeNamespace is the OME schema the embedded metadata block declares;
// validation looks for this marker when re-opening a written file.
const omeNamespace = "http://www.openmicroscopy.org/Schemas/OME/2016-06"

// Metadata describes the combined 4D volume for the embedded OME-XML block
type Metadata struct {
	// SizeC, SizeZ, SizeY, SizeX are the extents of the (C, Z, Y, X) array
	SizeC int
	SizeZ int
	SizeY int
	SizeX int

	// Scaling is the physical voxel scaling; absent components are
	// omitted from the XML rather than invented
	Scaling models.Scaling

	// ChannelNames holds one display name per channel, images first and
	// labels last with their " (labels)" suffix already applied
	ChannelNames []string
}

type omeDocument struct {
	XMLName xml.Name `xml:"OME"`
	Xmlns   string   `xml:"xmlns,attr"`
	Image   omeImage `xml:"Image"`
}

type omeImage struct {
	ID     string    `xml:"ID,attr"`
	Pixels omePixels `xml:"Pixels"`
}

type omePixels struct {
	ID             string       `xml:"ID,attr"`
	DimensionOrder string       `xml:"DimensionOrder,attr"`
	Type           string       `xml:"Type,attr"`
	SizeC          int          `xml:"SizeC,attr"`
	SizeT          int          `xml:"SizeT,attr"`
	SizeZ          int          `xml:"SizeZ,attr"`
	SizeY          int          `xml:"SizeY,attr"`
	SizeX          int          `xml:"SizeX,attr"`
	PhysicalSizeX  *float64     `xml:"PhysicalSizeX,attr,omitempty"`
	PhysicalSizeXU string       `xml:"PhysicalSizeXUnit,attr,omitempty"`
	PhysicalSizeY  *float64     `xml:"PhysicalSizeY,attr,omitempty"`
	PhysicalSizeYU string       `xml:"PhysicalSizeYUnit,attr,omitempty"`
	PhysicalSizeZ  *float64     `xml:"PhysicalSizeZ,attr,omitempty"`
	PhysicalSizeZU string       `xml:"PhysicalSizeZUnit,attr,omitempty"`
	Channels       []omeChannel `xml:"Channel"`
	TiffData       struct{}     `xml:"TiffData"`
}

type omeChannel struct {
	ID              string `xml:"ID,attr"`
	Name            string `xml:"Name,attr"`
	SamplesPerPixel int    `xml:"SamplesPerPixel,attr"`
}

// GenerateXML renders the OME-XML description block embedded in the first
// page of a written OME-TIFF. Physical sizes use the 7-bit ASCII unit
// spelling "um" for compatibility with strict readers.
func GenerateXML(m Metadata) (string, error) {
	pixels := omePixels{
		ID:             "Pixels:0",
		DimensionOrder: "XYZCT",
		Type:           "uint16",
		SizeC:          m.SizeC,
		SizeT:          1,
		SizeZ:          m.SizeZ,
		SizeY:          m.SizeY,
		SizeX:          m.SizeX,
	}
	if m.Scaling.X != nil {
		pixels.PhysicalSizeX = m.Scaling.X
		pixels.PhysicalSizeXU = "um"
	}
	if m.Scaling.Y != nil {
		pixels.PhysicalSizeY = m.Scaling.Y
		pixels.PhysicalSizeYU = "um"
	}
	if m.Scaling.Z != nil {
		pixels.PhysicalSizeZ = m.Scaling.Z
		pixels.PhysicalSizeZU = "um"
	}
	for i, name := range m.ChannelNames {
		pixels.Channels = append(pixels.Channels, omeChannel{
			ID:              fmt.Sprintf("Channel:0:%d", i),
			Name:            name,
			SamplesPerPixel: 1,
		})
	}

	doc := omeDocument{
		Xmlns: omeNamespace,
		Image: omeImage{ID: "Image:0", Pixels: pixels},
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate OME-XML: %w", err)
	}
	return xml.Header + string(body), nil
}
