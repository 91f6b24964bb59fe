// Package mdp reads tiled raster project files: a small binary header, an
// XML document describing canvas extents and the layer stack, then per-layer
// tile blobs holding zlib-compressed BGRA tiles. Rendering goes through the
// shared canvas compositor.
package mdp

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"media-previewer/internal/canvas"
	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

// Magic identifies a tiled project file.
var Magic = []byte("MDPK")

const headerSize = 12 // magic, version, xml length

// TileSize is the edge length of a layer tile.
const TileSize = canvas.DefaultTileSize

// Tile codecs.
const codecZlib = 0

const tileRecordSize = 9 // col, row, codec, compressed length

// Document mirrors the XML metadata block.
type Document struct {
	XMLName xml.Name `xml:"document"`
	Width   int      `xml:"width,attr"`
	Height  int      `xml:"height,attr"`
	// Layers are declared top-to-bottom, matching the editor's panel.
	Layers []LayerMeta `xml:"layer"`
}

// LayerMeta describes one layer and points at its tile blob.
type LayerMeta struct {
	Name    string `xml:"name,attr"`
	X       int    `xml:"x,attr"`
	Y       int    `xml:"y,attr"`
	Width   int    `xml:"width,attr"`
	Height  int    `xml:"height,attr"`
	Opacity uint8  `xml:"opacity,attr"`
	Visible int    `xml:"visible,attr"`
	// Offset and Size locate the tile blob in the file; zero for layers
	// saved without raster data.
	Offset int64 `xml:"offset,attr"`
	Size   int64 `xml:"size,attr"`
}

// Project is a parsed file ready for compositing.
type Project struct {
	Doc  Document
	data []byte
}

// Parse validates the header and decodes the XML metadata.
func Parse(data []byte) (*Project, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], Magic) {
		return nil, fmt.Errorf("%w: not a tiled project file", formats.ErrCorrupt)
	}
	xmlLen := binary.LittleEndian.Uint32(data[8:])
	if uint64(headerSize)+uint64(xmlLen) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d byte metadata block overruns the file", formats.ErrCorrupt, xmlLen)
	}
	p := &Project{data: data}
	if err := xml.Unmarshal(data[headerSize:headerSize+int(xmlLen)], &p.Doc); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", formats.ErrCorrupt, err)
	}
	if p.Doc.Width <= 0 || p.Doc.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", formats.ErrCorrupt, p.Doc.Width, p.Doc.Height)
	}
	return p, nil
}

// Open reads and parses the project file at path.
func Open(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Composite renders the document bottom-to-top onto a transparent canvas.
func (p *Project) Composite() (*image.NRGBA, error) {
	dst, err := canvas.New(p.Doc.Width, p.Doc.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: canvas %dx%d", formats.ErrCorrupt, p.Doc.Width, p.Doc.Height)
	}
	for i := len(p.Doc.Layers) - 1; i >= 0; i-- {
		if err := p.compositeLayer(dst, p.Doc.Layers[i]); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (p *Project) compositeLayer(dst *image.NRGBA, meta LayerMeta) error {
	if meta.Visible == 0 || meta.Width <= 0 || meta.Height <= 0 {
		return nil
	}
	if meta.Size == 0 {
		// Layers saved without raster data keep a metadata entry.
		logging.Debug("layer %q has no tile blob, skipping", meta.Name)
		return nil
	}
	if meta.Offset < 0 || meta.Offset+meta.Size > int64(len(p.data)) {
		return fmt.Errorf("%w: layer %q blob overruns the file", formats.ErrCorrupt, meta.Name)
	}
	tiles, err := parseTileBlob(p.data[meta.Offset:meta.Offset+meta.Size], meta)
	if err != nil {
		return err
	}

	cols := (meta.Width + TileSize - 1) / TileSize
	return canvas.ComposeLayer(dst, canvas.Layer{
		OffsetX:  meta.X,
		OffsetY:  meta.Y,
		Width:    meta.Width,
		Height:   meta.Height,
		Opacity:  meta.Opacity,
		TileSize: TileSize,
	}, func(col, row int) (*canvas.Tile, error) {
		raw := tiles[row*cols+col]
		if raw == nil {
			return nil, nil
		}
		pix, err := inflateTile(raw)
		if err != nil {
			return nil, fmt.Errorf("layer %q tile (%d,%d): %w", meta.Name, col, row, err)
		}
		if pix == nil {
			return nil, nil
		}
		return canvas.TileFromBGRA(pix, TileSize, TileSize), nil
	})
}

// parseTileBlob indexes the blob's tile records by grid cell. Records keep
// their codec byte so decoding stays lazy.
func parseTileBlob(blob []byte, meta LayerMeta) ([][]byte, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("%w: layer %q blob is %d bytes", formats.ErrCorrupt, meta.Name, len(blob))
	}
	cols := (meta.Width + TileSize - 1) / TileSize
	rows := (meta.Height + TileSize - 1) / TileSize
	tiles := make([][]byte, cols*rows)

	count := binary.LittleEndian.Uint32(blob)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+tileRecordSize > len(blob) {
			return nil, fmt.Errorf("%w: layer %q tile %d header truncated", formats.ErrCorrupt, meta.Name, i)
		}
		col := int(binary.LittleEndian.Uint16(blob[pos:]))
		row := int(binary.LittleEndian.Uint16(blob[pos+2:]))
		compLen := int(binary.LittleEndian.Uint32(blob[pos+5:]))
		if pos+tileRecordSize+compLen > len(blob) {
			return nil, fmt.Errorf("%w: layer %q tile %d payload truncated", formats.ErrCorrupt, meta.Name, i)
		}
		if col >= cols || row >= rows {
			return nil, fmt.Errorf("%w: layer %q tile (%d,%d) outside its %dx%d grid", formats.ErrCorrupt, meta.Name, col, row, cols, rows)
		}
		tiles[row*cols+col] = blob[pos+4 : pos+tileRecordSize+compLen]
		pos += tileRecordSize + compLen
	}
	return tiles, nil
}

// inflateTile decodes one tile record (codec byte, length, payload) into
// dense BGRA pixels. Unsupported codecs yield nil so the compositor skips
// the tile.
func inflateTile(record []byte) ([]byte, error) {
	codec := record[0]
	payload := record[5:]
	if codec != codecZlib {
		logging.Debug("unsupported tile codec %d, skipping tile", codec)
		return nil, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", formats.ErrCorrupt, err)
	}
	defer zr.Close()
	pix := make([]byte, TileSize*TileSize*4)
	if _, err := io.ReadFull(zr, pix); err != nil {
		return nil, fmt.Errorf("%w: tile inflates short: %v", formats.ErrCorrupt, err)
	}
	return pix, nil
}
