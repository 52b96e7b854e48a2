package tiffio

// A TIFF file contains one or more images, each described by an Image File
// Directory (IFD). An IFD entry consists of a tag, the data type and count
// of the entry, and the data itself or a pointer to it if it does not fit
// inline.

const (
	leHeader = "II" // Little-endian byte order marker.
	beHeader = "MM" // Big-endian byte order marker.

	magicClassic = 42 // Classic TIFF magic number.
	magicBig     = 43 // BigTIFF magic number.
)

// Data types (p. 14-16 of the TIFF specification, plus BigTIFF LONG8).
const (
	dtByte     = 1
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
	dtLong8    = 16
	dtIFD8     = 18
)

// typeSizes holds the length in bytes of one instance of each data type.
var typeSizes = map[uint16]uint64{
	dtByte:     1,
	dtASCII:    1,
	dtShort:    2,
	dtLong:     4,
	dtRational: 8,
	dtLong8:    8,
	dtIFD8:     8,
}

// Tags (see p. 28-41 of the TIFF specification).
const (
	tImageWidth                = 256
	tImageLength               = 257
	tBitsPerSample             = 258
	tCompression               = 259
	tPhotometricInterpretation = 262
	tImageDescription          = 270
	tStripOffsets              = 273
	tSamplesPerPixel           = 277
	tRowsPerStrip              = 278
	tStripByteCounts           = 279
)

// Compression values.
const (
	cNone = 1
)
