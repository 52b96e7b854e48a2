package omezarr

// ArrayMeta represents the Zarr V2 .zarray metadata.
type ArrayMeta struct {
	Chunks     []int             `json:"chunks"`
	Compressor *CompressorConfig `json:"compressor"`
	DType      string            `json:"dtype"`
	FillValue  int               `json:"fill_value"`
	Filters    []string          `json:"filters"`
	Order      string            `json:"order"`
	Shape      []int             `json:"shape"`
	ZarrFormat int               `json:"zarr_format"`
}

// CompressorConfig represents the compression configuration. Stores are
// written with a nil compressor: chunks stay raw for maximal read
// compatibility with downstream viewers.
type CompressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// GroupMeta represents the Zarr V2 .zgroup metadata.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// GroupAttrs holds the .zattrs block attached to each channel group.
type GroupAttrs struct {
	Units       string       `json:"units"`
	Multiscales []Multiscale `json:"multiscales"`
	Omero       *Omero       `json:"omero,omitempty"`
}

// Multiscale describes one multiscales metadata entry: the dataset paths
// within the group and the named axes they span.
type Multiscale struct {
	Datasets []Dataset `json:"datasets"`
	Axes     []Axis    `json:"axes"`
}

// Dataset points at one resolution level within a group.
type Dataset struct {
	Path                      string               `json:"path"`
	CoordinateTransformations []CoordinateTransform `json:"coordinateTransformations"`
}

// CoordinateTransform maps array indices to physical coordinates.
type CoordinateTransform struct {
	Type  string    `json:"type"`
	Scale []float64 `json:"scale"`
}

// Axis names one dimension of a dataset.
type Axis struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
	Type string `json:"type"`
}

// Omero carries rendering hints for OME-NGFF viewers.
type Omero struct {
	Channels []OmeroChannel `json:"channels"`
}

// OmeroChannel describes the rendering of one channel.
type OmeroChannel struct {
	Label  string `json:"label"`
	Window Window `json:"window"`
}

// Window is the contrast window of one channel, derived from the observed
// intensity range.
type Window struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// spatialAxes returns the z/y/x axis definitions shared by every group
func spatialAxes() []Axis {
	return []Axis{
		{Name: "z", Unit: "micrometer", Type: "space"},
		{Name: "y", Unit: "micrometer", Type: "space"},
		{Name: "x", Unit: "micrometer", Type: "space"},
	}
}
