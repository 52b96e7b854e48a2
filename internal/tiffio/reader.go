// Package tiffio reads the grayscale TIFF files produced by confocal
// microscopes and segmentation pipelines. Single 2D slices are decoded
// through golang.org/x/image/tiff; multi-page volumes (segmentation masks,
// OME-TIFF output) are walked directory-by-directory here, since the
// ecosystem decoder only exposes the first image of a file. Both classic
// TIFF and BigTIFF framing are supported, restricted to the uncompressed
// 8/16-bit single-sample images these pipelines actually produce.
package tiffio

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	xtiff "golang.org/x/image/tiff"

	"stackstoome/internal/models"
)

// ReadSlice decodes a single 2D grayscale slice and returns its samples in
// row-major order together with the image dimensions. Samples narrower
// than 16 bits are widened by plain cast, mirroring an unsigned integer
// conversion of the pixel values.
func ReadSlice(path string) ([]uint16, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open slice %s: %w", path, err)
	}
	defer f.Close()

	img, err := xtiff.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode slice %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]uint16, width*height)

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+width*2]
			for x := 0; x < width; x++ {
				data[y*width+x] = uint16(row[x*2])<<8 | uint16(row[x*2+1])
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+width]
			for x := 0; x < width; x++ {
				data[y*width+x] = uint16(row[x])
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				data[y*width+x] = g.Y
			}
		}
	}

	return data, width, height, nil
}

// ReadVolume decodes every page of a multi-page TIFF file into a single 3D
// volume with the pages stacked along the leading (Z) axis. All pages must
// share the same dimensions.
func ReadVolume(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume %s: %w", path, err)
	}
	defer f.Close()

	p, firstIFD, err := newParser(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume %s: %w", path, err)
	}

	var volume *models.Volume
	pages := 0
	for offset := firstIFD; offset != 0; {
		ifd, next, err := p.readIFD(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read volume %s: %w", path, err)
		}

		page, width, height, err := p.decodePage(ifd)
		if err != nil {
			return nil, fmt.Errorf("failed to read volume %s page %d: %w", path, pages, err)
		}

		if volume == nil {
			volume = &models.Volume{Width: width, Height: height}
		} else if width != volume.Width || height != volume.Height {
			return nil, fmt.Errorf("volume %s page %d is %dx%d, expected %dx%d",
				path, pages, width, height, volume.Width, volume.Height)
		}
		volume.Data = append(volume.Data, page...)
		pages++
		offset = next
	}

	if volume == nil {
		return nil, fmt.Errorf("volume %s contains no pages", path)
	}
	volume.Depth = pages
	return volume, nil
}

// FileInfo summarizes the framing of a TIFF file for validation purposes
type FileInfo struct {
	// BigTIFF reports whether the file uses 64-bit BigTIFF framing
	BigTIFF bool

	// Pages is the number of image directories in the file
	Pages int

	// Description is the ImageDescription text of the first directory,
	// empty if the tag is absent
	Description string
}

// Inspect reads the framing metadata of a TIFF file without decoding any
// pixel data.
func Inspect(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	p, firstIFD, err := newParser(f)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	info := &FileInfo{BigTIFF: p.big}
	for offset := firstIFD; offset != 0; {
		ifd, next, err := p.readIFD(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
		}
		if info.Pages == 0 {
			if e, ok := ifd[tImageDescription]; ok {
				text, err := p.ascii(e)
				if err != nil {
					return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
				}
				info.Description = text
			}
		}
		info.Pages++
		offset = next
	}
	return info, nil
}

// parser walks the IFD chain of one open TIFF file
type parser struct {
	r   io.ReaderAt
	bo  binary.ByteOrder
	big bool
}

// ifdEntry is one directory entry with its inline value bytes; values too
// large to fit inline are fetched on demand via the stored offset
type ifdEntry struct {
	datatype uint16
	count    uint64
	inline   []byte
}

// newParser reads the file header and returns a parser positioned at the
// first IFD
func newParser(r io.ReaderAt) (*parser, uint64, error) {
	header := make([]byte, 16)
	if _, err := r.ReadAt(header[:8], 0); err != nil {
		return nil, 0, fmt.Errorf("short TIFF header: %w", err)
	}

	p := &parser{r: r}
	switch string(header[0:2]) {
	case leHeader:
		p.bo = binary.LittleEndian
	case beHeader:
		p.bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("not a TIFF file: bad byte order mark %q", header[0:2])
	}

	switch p.bo.Uint16(header[2:4]) {
	case magicClassic:
		return p, uint64(p.bo.Uint32(header[4:8])), nil
	case magicBig:
		if _, err := r.ReadAt(header[8:16], 8); err != nil {
			return nil, 0, fmt.Errorf("short BigTIFF header: %w", err)
		}
		if p.bo.Uint16(header[4:6]) != 8 || p.bo.Uint16(header[6:8]) != 0 {
			return nil, 0, fmt.Errorf("unsupported BigTIFF offset size")
		}
		p.big = true
		return p, p.bo.Uint64(header[8:16]), nil
	default:
		return nil, 0, fmt.Errorf("not a TIFF file: bad magic number")
	}
}

// readIFD reads the directory at the given offset and returns its entries
// keyed by tag, plus the offset of the next directory (0 at end of chain)
func (p *parser) readIFD(offset uint64) (map[uint16]ifdEntry, uint64, error) {
	// Entry layouts: classic is tag(2) type(2) count(4) value(4), BigTIFF
	// is tag(2) type(2) count(8) value(8).
	countSize, entrySize, offsetSize := 2, 12, 4
	if p.big {
		countSize, entrySize, offsetSize = 8, 20, 8
	}

	head := make([]byte, countSize)
	if _, err := p.r.ReadAt(head, int64(offset)); err != nil {
		return nil, 0, fmt.Errorf("short IFD at offset %d: %w", offset, err)
	}
	var count uint64
	if p.big {
		count = p.bo.Uint64(head)
	} else {
		count = uint64(p.bo.Uint16(head))
	}
	if count > 1<<16 {
		return nil, 0, fmt.Errorf("implausible IFD entry count %d", count)
	}

	body := make([]byte, int(count)*entrySize+offsetSize)
	if _, err := p.r.ReadAt(body, int64(offset)+int64(countSize)); err != nil {
		return nil, 0, fmt.Errorf("short IFD body at offset %d: %w", offset, err)
	}

	entries := make(map[uint16]ifdEntry, count)
	for i := 0; i < int(count); i++ {
		raw := body[i*entrySize : (i+1)*entrySize]
		e := ifdEntry{datatype: p.bo.Uint16(raw[2:4])}
		if p.big {
			e.count = p.bo.Uint64(raw[4:12])
			e.inline = raw[12:20]
		} else {
			e.count = uint64(p.bo.Uint32(raw[4:8]))
			e.inline = raw[8:12]
		}
		entries[p.bo.Uint16(raw[0:2])] = e
	}

	tail := body[int(count)*entrySize:]
	var next uint64
	if p.big {
		next = p.bo.Uint64(tail)
	} else {
		next = uint64(p.bo.Uint32(tail))
	}
	return entries, next, nil
}

// valueBytes returns the raw bytes of an entry's value, following the
// offset indirection when the value does not fit inline
func (p *parser) valueBytes(e ifdEntry) ([]byte, error) {
	size, ok := typeSizes[e.datatype]
	if !ok {
		return nil, fmt.Errorf("unsupported IFD data type %d", e.datatype)
	}
	total := size * e.count
	if total <= uint64(len(e.inline)) {
		return e.inline[:total], nil
	}

	var offset uint64
	if p.big {
		offset = p.bo.Uint64(e.inline)
	} else {
		offset = uint64(p.bo.Uint32(e.inline))
	}
	buf := make([]byte, total)
	if _, err := p.r.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("short IFD value at offset %d: %w", offset, err)
	}
	return buf, nil
}

// uints decodes an entry's value as a slice of unsigned integers
func (p *parser) uints(e ifdEntry) ([]uint64, error) {
	raw, err := p.valueBytes(e)
	if err != nil {
		return nil, err
	}
	values := make([]uint64, e.count)
	for i := range values {
		switch e.datatype {
		case dtByte:
			values[i] = uint64(raw[i])
		case dtShort:
			values[i] = uint64(p.bo.Uint16(raw[i*2:]))
		case dtLong:
			values[i] = uint64(p.bo.Uint32(raw[i*4:]))
		case dtLong8, dtIFD8:
			values[i] = p.bo.Uint64(raw[i*8:])
		default:
			return nil, fmt.Errorf("unexpected integer data type %d", e.datatype)
		}
	}
	return values, nil
}

// firstUint decodes an entry's first value as an unsigned integer,
// returning def when the entry is absent
func (p *parser) firstUint(entries map[uint16]ifdEntry, tag uint16, def uint64) (uint64, error) {
	e, ok := entries[tag]
	if !ok {
		return def, nil
	}
	values, err := p.uints(e)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return def, nil
	}
	return values[0], nil
}

// ascii decodes an entry's value as NUL-terminated text
func (p *parser) ascii(e ifdEntry) (string, error) {
	raw, err := p.valueBytes(e)
	if err != nil {
		return "", err
	}
	for len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return string(raw), nil
}

// decodePage reads the pixel data of one IFD into a row-major uint16 slice
func (p *parser) decodePage(entries map[uint16]ifdEntry) ([]uint16, int, int, error) {
	width, err := p.firstUint(entries, tImageWidth, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	height, err := p.firstUint(entries, tImageLength, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	if width == 0 || height == 0 {
		return nil, 0, 0, fmt.Errorf("page has no dimensions")
	}

	compression, err := p.firstUint(entries, tCompression, cNone)
	if err != nil {
		return nil, 0, 0, err
	}
	if compression != cNone {
		return nil, 0, 0, fmt.Errorf("unsupported compression scheme %d", compression)
	}

	samples, err := p.firstUint(entries, tSamplesPerPixel, 1)
	if err != nil {
		return nil, 0, 0, err
	}
	if samples != 1 {
		return nil, 0, 0, fmt.Errorf("unsupported samples per pixel %d, expected grayscale", samples)
	}

	bits, err := p.firstUint(entries, tBitsPerSample, 1)
	if err != nil {
		return nil, 0, 0, err
	}
	if bits != 8 && bits != 16 {
		return nil, 0, 0, fmt.Errorf("unsupported bit depth %d", bits)
	}

	offsetsEntry, ok := entries[tStripOffsets]
	if !ok {
		return nil, 0, 0, fmt.Errorf("page has no strip offsets")
	}
	offsets, err := p.uints(offsetsEntry)
	if err != nil {
		return nil, 0, 0, err
	}
	countsEntry, ok := entries[tStripByteCounts]
	if !ok {
		return nil, 0, 0, fmt.Errorf("page has no strip byte counts")
	}
	counts, err := p.uints(countsEntry)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(offsets) != len(counts) {
		return nil, 0, 0, fmt.Errorf("strip offsets and byte counts disagree")
	}

	expected := width * height * bits / 8
	raw := make([]byte, 0, expected)
	for i := range offsets {
		strip := make([]byte, counts[i])
		if _, err := p.r.ReadAt(strip, int64(offsets[i])); err != nil {
			return nil, 0, 0, fmt.Errorf("short strip at offset %d: %w", offsets[i], err)
		}
		raw = append(raw, strip...)
	}
	if uint64(len(raw)) < expected {
		return nil, 0, 0, fmt.Errorf("page has %d pixel bytes, expected %d", len(raw), expected)
	}

	page := make([]uint16, width*height)
	if bits == 16 {
		for i := range page {
			page[i] = p.bo.Uint16(raw[i*2:])
		}
	} else {
		for i := range page {
			page[i] = uint16(raw[i])
		}
	}
	return page, int(width), int(height), nil
}
