package sai

import (
	"encoding/binary"
	"fmt"
	"image"

	"media-previewer/internal/canvas"
	"media-previewer/internal/formats"
)

// ThumbnailEntry is the well-known name of the stored preview raster.
const ThumbnailEntry = "thumbnail"

// thumbnailMagic tags the pixel encoding of the stored preview.
var thumbnailMagic = [4]byte{'B', 'M', '3', '2'}

const thumbnailHeaderSize = 12 // width, height, magic

// Thumbnail reads the stored preview: a small fixed header (width, height,
// encoding tag) followed by BGRA pixels, converted to standard RGBA.
// Documents saved without a preview return ErrEntryNotFound; the caller
// falls back to full compositing.
func (fs *FS) Thumbnail() (*image.NRGBA, error) {
	entry, err := fs.FindEntry(ThumbnailEntry)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	if len(data) < thumbnailHeaderSize {
		return nil, fmt.Errorf("%w: thumbnail entry is %d bytes", formats.ErrCorrupt, len(data))
	}

	width := binary.LittleEndian.Uint32(data[0:])
	height := binary.LittleEndian.Uint32(data[4:])
	if [4]byte(data[8:12]) != thumbnailMagic {
		return nil, fmt.Errorf("%w: thumbnail pixel tag %q", formats.ErrUnsupportedEncoding, data[8:12])
	}

	img, err := canvas.New(int(width), int(height))
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail dimensions %dx%d", formats.ErrCorrupt, width, height)
	}
	need := int(width) * int(height) * 4
	pixels := data[thumbnailHeaderSize:]
	if len(pixels) < need {
		return nil, fmt.Errorf("%w: thumbnail has %d pixel bytes, want %d", formats.ErrCorrupt, len(pixels), need)
	}

	copy(img.Pix, pixels[:need])
	canvas.SwapBGRA(img.Pix)
	return img, nil
}
