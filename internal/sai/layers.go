package sai

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"media-previewer/internal/canvas"
	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/rle"
)

// CanvasEntry is the well-known name of the canvas metadata file: extents
// plus the layer order, declared top-to-bottom.
const CanvasEntry = "canvas"

// layerDir is the folder holding one file per layer, named by layer id.
const layerDir = "layers"

// TileSize is the edge length of a layer tile.
const TileSize = canvas.DefaultTileSize

// Layer pixel modes.
const (
	modeRGBA  = 0 // full-color tiles, stored BGRA
	modeMask8 = 1 // 8-bit alpha mask against the layer color
	modeMask1 = 2 // 1-bit mask against the layer color
)

// Tile codecs.
const (
	codecRaw = 0
	codecRLE = 1
)

const layerHeaderSize = 32
const layerKindRaster = 1

// layerRecord is the parsed header of one layer file.
type layerRecord struct {
	kind    uint32
	id      uint32
	x, y    int32
	w, h    uint32
	opacity uint8
	visible bool
	mode    uint8
	r, g, b uint8

	tiles [][]byte // per grid cell: codec byte + payload, nil when absent
}

// canvasMeta is the parsed canvas metadata entry.
type canvasMeta struct {
	width, height uint32
	order         []uint32 // layer ids, top-to-bottom
}

// Composite renders the document by decompressing every visible layer's
// tile grid and alpha-compositing bottom-to-top onto a transparent canvas.
// This is the slow path, used when the container holds no stored
// thumbnail.
func (fs *FS) Composite() (*image.NRGBA, error) {
	meta, err := fs.readCanvasMeta()
	if err != nil {
		return nil, err
	}
	dst, err := canvas.New(int(meta.width), int(meta.height))
	if err != nil {
		return nil, fmt.Errorf("%w: canvas %dx%d", formats.ErrCorrupt, meta.width, meta.height)
	}

	// Layer order is declared top-to-bottom; composite bottom-to-top.
	for i := len(meta.order) - 1; i >= 0; i-- {
		id := meta.order[i]
		if err := fs.compositeLayer(dst, id); err != nil {
			if errors.Is(err, formats.ErrEntryNotFound) {
				logging.Debug("layer %08x has no data block, skipping", id)
				continue
			}
			return nil, err
		}
	}
	return dst, nil
}

func (fs *FS) compositeLayer(dst *image.NRGBA, id uint32) error {
	entry, err := fs.FindEntry(fmt.Sprintf("%s/%08x", layerDir, id))
	if err != nil {
		return err
	}
	if entry.Length == 0 {
		// Zero-sized layer blocks appear in documents with deleted
		// layers still listed; treat as empty, not corrupt.
		return nil
	}
	data, err := fs.ReadFile(entry)
	if err != nil {
		return err
	}
	layer, err := parseLayer(data)
	if err != nil {
		return err
	}
	if layer.kind != layerKindRaster || !layer.visible || layer.w == 0 || layer.h == 0 {
		return nil
	}

	return canvas.ComposeLayer(dst, canvas.Layer{
		OffsetX:  int(layer.x),
		OffsetY:  int(layer.y),
		Width:    int(layer.w),
		Height:   int(layer.h),
		Opacity:  layer.opacity,
		TileSize: TileSize,
	}, layer.produceTile)
}

func (fs *FS) readCanvasMeta() (*canvasMeta, error) {
	entry, err := fs.FindEntry(CanvasEntry)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: canvas metadata is %d bytes", formats.ErrCorrupt, len(data))
	}
	meta := &canvasMeta{
		width:  binary.LittleEndian.Uint32(data[0:]),
		height: binary.LittleEndian.Uint32(data[4:]),
	}
	count := binary.LittleEndian.Uint32(data[8:])
	if uint32(len(data)-12)/4 < count {
		return nil, fmt.Errorf("%w: canvas lists %d layers in %d bytes", formats.ErrCorrupt, count, len(data))
	}
	for i := uint32(0); i < count; i++ {
		meta.order = append(meta.order, binary.LittleEndian.Uint32(data[12+i*4:]))
	}
	return meta, nil
}

// parseLayer reads the fixed header and indexes the tile stream by grid
// position. Tile payloads are decoded lazily during compositing.
func parseLayer(data []byte) (*layerRecord, error) {
	if len(data) < layerHeaderSize {
		return nil, fmt.Errorf("%w: layer block is %d bytes", formats.ErrCorrupt, len(data))
	}
	l := &layerRecord{
		kind:    binary.LittleEndian.Uint32(data[0:]),
		id:      binary.LittleEndian.Uint32(data[4:]),
		x:       int32(binary.LittleEndian.Uint32(data[8:])),
		y:       int32(binary.LittleEndian.Uint32(data[12:])),
		w:       binary.LittleEndian.Uint32(data[16:]),
		h:       binary.LittleEndian.Uint32(data[20:]),
		opacity: data[24],
		visible: data[25] != 0,
		mode:    data[26],
		r:       data[28],
		g:       data[29],
		b:       data[30],
	}
	if l.kind != layerKindRaster || l.w == 0 || l.h == 0 {
		return l, nil
	}
	if l.w > 1<<16 || l.h > 1<<16 {
		return nil, fmt.Errorf("%w: layer extent %dx%d", formats.ErrCorrupt, l.w, l.h)
	}

	cols := (int(l.w) + TileSize - 1) / TileSize
	rows := (int(l.h) + TileSize - 1) / TileSize
	bitmapLen := cols * rows
	if len(data) < layerHeaderSize+bitmapLen {
		return nil, fmt.Errorf("%w: layer tile bitmap truncated", formats.ErrCorrupt)
	}
	bitmap := data[layerHeaderSize : layerHeaderSize+bitmapLen]
	l.tiles = make([][]byte, bitmapLen)

	pos := layerHeaderSize + bitmapLen
	for i := 0; i < bitmapLen; i++ {
		if bitmap[i] == 0 {
			continue
		}
		if pos+5 > len(data) {
			return nil, fmt.Errorf("%w: tile %d header truncated", formats.ErrCorrupt, i)
		}
		size := int(binary.LittleEndian.Uint32(data[pos+1:]))
		if pos+5+size > len(data) {
			return nil, fmt.Errorf("%w: tile %d payload truncated", formats.ErrCorrupt, i)
		}
		l.tiles[i] = data[pos : pos+5+size]
		pos += 5 + size
	}
	return l, nil
}

// produceTile decodes the tile at (col, row). Absent tiles and unsupported
// codecs yield a nil tile, which the compositor skips.
func (l *layerRecord) produceTile(col, row int) (*canvas.Tile, error) {
	cols := (int(l.w) + TileSize - 1) / TileSize
	raw := l.tiles[row*cols+col]
	if raw == nil {
		return nil, nil
	}
	codec, payload := raw[0], raw[5:]

	var expect int
	switch l.mode {
	case modeRGBA:
		expect = TileSize * TileSize * 4
	case modeMask8:
		expect = TileSize * TileSize
	case modeMask1:
		expect = TileSize / 8 * TileSize
	default:
		logging.Debug("layer %08x: unknown pixel mode %d, skipping tile", l.id, l.mode)
		return nil, nil
	}

	var pix []byte
	switch codec {
	case codecRaw:
		if len(payload) != expect {
			return nil, fmt.Errorf("%w: raw tile has %d bytes, want %d", formats.ErrCorrupt, len(payload), expect)
		}
		pix = append([]byte(nil), payload...)
	case codecRLE:
		var err error
		pix, err = rle.Unpack(payload, expect)
		if err != nil {
			return nil, fmt.Errorf("%w: tile (%d,%d): %v", formats.ErrCorrupt, col, row, err)
		}
	default:
		logging.Debug("layer %08x: unsupported tile codec %d at (%d,%d), skipping", l.id, codec, col, row)
		return nil, nil
	}

	switch l.mode {
	case modeRGBA:
		return canvas.TileFromBGRA(pix, TileSize, TileSize), nil
	case modeMask8:
		return canvas.TileFromMask(pix, TileSize, TileSize, l.r, l.g, l.b), nil
	default:
		return canvas.TileFromBitmask(pix, TileSize, TileSize, l.r, l.g, l.b), nil
	}
}
