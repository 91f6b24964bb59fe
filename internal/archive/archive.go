// Package archive extracts the stored preview from zip-packaged raster
// documents. These editors write a full-canvas merged render (or at least
// a thumbnail) into the archive alongside the layer data, so a preview
// never requires decoding the layers themselves.
package archive

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

// previewNames are the well-known archive members holding a rendered
// preview, in order of preference: the merged full-resolution render
// first, small thumbnails last.
var previewNames = []string{
	"mergedimage.png",
	"preview.png",
	"Thumbnails/thumbnail.png",
}

// maxPreviewBytes bounds a single decompressed preview member.
const maxPreviewBytes = 64 << 20

// Preview returns the PNG bytes of the best stored preview in the archive
// at path. A document saved without any preview member returns
// ErrEntryNotFound.
func Preview(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", formats.ErrCorrupt, err)
	}
	defer zr.Close()
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	for _, name := range previewNames {
		f, err := zr.Open(name)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, maxPreviewBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", formats.ErrCorrupt, name, err)
		}
		if len(data) > maxPreviewBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", formats.ErrCorrupt, name, maxPreviewBytes)
		}
		logging.Debug("archive preview %s: %d bytes", name, len(data))
		return data, nil
	}
	return nil, fmt.Errorf("%w: archive has no preview member", formats.ErrEntryNotFound)
}
