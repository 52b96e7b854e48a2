package models

// SliceFile represents a single discovered 2D slice file with metadata
// decoded from its name
type SliceFile struct {
	// Path is the full filesystem path of the slice file
	Path string

	// Name is the base name of the file
	Name string

	// ChannelCode is the acquisition channel token decoded from the
	// filename (e.g. an emission wavelength such as "405", or "TRANS")
	ChannelCode string

	// SliceIndex is the z-slice position decoded from the filename.
	// Files without a slice marker carry index 0.
	SliceIndex int
}

// ChannelGroup is an ordered sequence of slice files sharing one channel
// code, sorted ascending by slice index
type ChannelGroup struct {
	// Code is the raw channel token shared by all files in the group
	Code string

	// Name is the human-readable channel name resolved from the channel map
	Name string

	// Files holds the member slice files in stacking order
	Files []SliceFile
}

// Volume represents a 3D image volume assembled from 2D slices
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major (Z, Y, X) order
	Data []uint16

	// Width is the width of the volume in voxels (X)
	Width int

	// Height is the height of the volume in voxels (Y)
	Height int

	// Depth is the depth of the volume in voxels (Z)
	Depth int
}

// NewVolume allocates a zero-filled volume with the given dimensions
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]uint16, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At returns the voxel value at the given (z, y, x) coordinate
func (v *Volume) At(z, y, x int) uint16 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set stores a voxel value at the given (z, y, x) coordinate
func (v *Volume) Set(z, y, x int, value uint16) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Page returns the 2D plane at depth z as a subslice of the volume data
func (v *Volume) Page(z int) []uint16 {
	stride := v.Width * v.Height
	return v.Data[z*stride : (z+1)*stride]
}

// Scaling holds the physical voxel scaling of an acquisition in micrometers.
// Each component is independently optional: a nil field means the scan
// metadata did not provide that value.
type Scaling struct {
	// Z is the spacing between consecutive z-slices
	Z *float64

	// Y is the physical size of one pixel along the y axis
	Y *float64

	// X is the physical size of one pixel along the x axis
	X *float64
}

// ZYX returns the scaling values in (Z, Y, X) order, substituting 1.0 for
// any component the scan metadata did not provide
func (s Scaling) ZYX() [3]float64 {
	zyx := [3]float64{1.0, 1.0, 1.0}
	if s.Z != nil {
		zyx[0] = *s.Z
	}
	if s.Y != nil {
		zyx[1] = *s.Y
	}
	if s.X != nil {
		zyx[2] = *s.X
	}
	return zyx
}
