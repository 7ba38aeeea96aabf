package converter

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const defaultDPI = 96.0

// imageDPI returns the horizontal resolution recorded in the file, falling
// back to 96 when nothing usable is stored. JPEG/TIFF resolution comes from
// EXIF, PNG from the pHYs chunk.
func imageDPI(path string) float64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultDPI
	}
	if dpi, ok := pngPhysDPI(data); ok {
		return dpi
	}
	if dpi, ok := exifDPI(data); ok {
		return dpi
	}
	return defaultDPI
}

func exifDPI(data []byte) (float64, bool) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 0, false
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 0, false
	}
	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 0, false
	}

	dpi := 0.0
	if tag, err := index.RootIfd.FindTagWithName("XResolution"); err == nil && len(tag) > 0 {
		if val, err := tag[0].Value(); err == nil {
			if rats, ok := val.([]exifcommon.Rational); ok && len(rats) > 0 && rats[0].Denominator != 0 {
				dpi = float64(rats[0].Numerator) / float64(rats[0].Denominator)
			}
		}
	}
	if dpi <= 0 {
		return 0, false
	}

	if tag, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil && len(tag) > 0 {
		if val, err := tag[0].Value(); err == nil {
			if units, ok := val.([]uint16); ok && len(units) > 0 && units[0] == 3 {
				dpi *= 2.54 // stored per centimeter
			}
		}
	}
	return dpi, true
}

// pngPhysDPI walks PNG chunks looking for pHYs. Returns false for non-PNG
// data or when no density is recorded.
func pngPhysDPI(data []byte) (float64, bool) {
	var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if !bytes.HasPrefix(data, pngMagic) {
		return 0, false
	}
	buf := bytes.NewReader(data[len(pngMagic):])

	for {
		var length uint32
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			break
		}
		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(buf, chunkType); err != nil {
			break
		}
		if string(chunkType) != "pHYs" {
			// skip chunk data + CRC
			if _, err := buf.Seek(int64(length)+4, io.SeekCurrent); err != nil {
				break
			}
			continue
		}

		var pxPerUnitX, pxPerUnitY uint32
		var unit byte
		if err := binary.Read(buf, binary.BigEndian, &pxPerUnitX); err != nil {
			return 0, false
		}
		if err := binary.Read(buf, binary.BigEndian, &pxPerUnitY); err != nil {
			return 0, false
		}
		if err := binary.Read(buf, binary.BigEndian, &unit); err != nil {
			return 0, false
		}
		if unit == 1 { // pixels per meter
			return float64(pxPerUnitX) * 0.0254, true
		}
		break // unit 0: aspect ratio only
	}
	return 0, false
}

// exifOrientation reads the EXIF Orientation tag (1..8). Absent or malformed
// metadata is reported as 1, never as a failure.
func exifOrientation(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 1
	}
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return 1
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return 1
	}
	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return 1
	}

	tag, err := index.RootIfd.FindTagWithName("Orientation")
	if err != nil || len(tag) == 0 {
		return 1
	}
	val, err := tag[0].Value()
	if err != nil {
		return 1
	}
	if values, ok := val.([]uint16); ok && len(values) > 0 && values[0] >= 1 && values[0] <= 8 {
		return int(values[0])
	}
	return 1
}

// orientImage applies the pixel transform implied by an EXIF orientation.
func orientImage(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
