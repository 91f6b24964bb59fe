package canvas

import (
	"fmt"
	"image"
)

// DefaultTileSize is the tile edge length used by every supported tiled
// format.
const DefaultTileSize = 64

// MaxPixels caps canvas allocation. A 16k x 16k RGBA canvas is already 1GB;
// anything larger is treated as corrupt metadata rather than honored.
const MaxPixels = 64_000_000

// New allocates a transparent canvas. Width and height must be positive and
// within MaxPixels.
func New(width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid dimensions %dx%d", width, height)
	}
	if width*height > MaxPixels {
		return nil, fmt.Errorf("canvas: %dx%d exceeds pixel budget", width, height)
	}
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}

// Tile is one decoded tile: dense non-premultiplied RGBA, W*H*4 bytes.
type Tile struct {
	W, H int
	Pix  []byte
}

// Layer describes where and how a layer's tile grid lands on the canvas.
type Layer struct {
	// OffsetX, OffsetY position the layer's top-left corner on the canvas.
	// May be negative; blits are clipped.
	OffsetX, OffsetY int
	// Width, Height are the layer's pixel extents.
	Width, Height int
	// Opacity 0-255 is premultiplied into every source pixel's alpha.
	Opacity uint8
	// TileSize is the tile edge length; zero means DefaultTileSize.
	TileSize int
}

// TileProducer returns the decoded tile at (col, row) of a layer's grid.
// Returning (nil, nil) skips the tile (absent tile, or an unsupported
// per-tile codec the caller chose to tolerate). A non-nil error aborts the
// layer.
type TileProducer func(col, row int) (*Tile, error)

// ComposeLayer walks the layer's tile grid and src-over blends each decoded
// tile onto dst at its grid position plus the layer offset.
func ComposeLayer(dst *image.NRGBA, layer Layer, produce TileProducer) error {
	if layer.Width <= 0 || layer.Height <= 0 || layer.Opacity == 0 {
		return nil
	}
	ts := layer.TileSize
	if ts <= 0 {
		ts = DefaultTileSize
	}
	cols := (layer.Width + ts - 1) / ts
	rows := (layer.Height + ts - 1) / ts

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			tile, err := produce(col, row)
			if err != nil {
				return err
			}
			if tile == nil {
				continue
			}
			if len(tile.Pix) != tile.W*tile.H*4 {
				return fmt.Errorf("canvas: tile (%d,%d) has %d bytes, want %d", col, row, len(tile.Pix), tile.W*tile.H*4)
			}
			Blit(dst, tile, layer.OffsetX+col*ts, layer.OffsetY+row*ts, layer.Opacity)
		}
	}
	return nil
}

// Blit src-over composites a tile onto dst with its top-left corner at
// (x, y), clipping against the canvas bounds. Opacity scales the source
// alpha per pixel.
func Blit(dst *image.NRGBA, tile *Tile, x, y int, opacity uint8) {
	b := dst.Bounds()
	x0, y0 := max(x, b.Min.X), max(y, b.Min.Y)
	x1, y1 := min(x+tile.W, b.Max.X), min(y+tile.H, b.Max.Y)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	for dy := y0; dy < y1; dy++ {
		srcRow := (dy - y) * tile.W * 4
		dstRow := dst.PixOffset(x0, dy)
		for dx := x0; dx < x1; dx++ {
			s := tile.Pix[srcRow+(dx-x)*4 : srcRow+(dx-x)*4+4]
			d := dst.Pix[dstRow : dstRow+4]
			blendPixel(d, s, opacity)
			dstRow += 4
		}
	}
}

// blendPixel applies the standard src-over formula on non-premultiplied
// RGBA, with the layer opacity folded into the source alpha.
func blendPixel(d, s []byte, opacity uint8) {
	sa := uint32(s[3]) * uint32(opacity) / 255
	if sa == 0 {
		return
	}
	da := uint32(d[3])
	if sa == 255 || da == 0 {
		d[0], d[1], d[2] = s[0], s[1], s[2]
		d[3] = uint8(sa)
		return
	}
	ra := sa + da*(255-sa)/255
	for c := 0; c < 3; c++ {
		num := uint32(s[c])*sa*255 + uint32(d[c])*da*(255-sa)
		d[c] = uint8((num + ra*255/2) / (ra * 255))
	}
	d[3] = uint8(ra)
}

// TileFromRGBA wraps dense RGBA bytes as a tile.
func TileFromRGBA(pix []byte, w, h int) *Tile {
	return &Tile{W: w, H: h, Pix: pix}
}

// TileFromBGRA converts dense BGRA bytes (the channel order several
// containers store) to a tile, fixing up the channel order in place.
func TileFromBGRA(pix []byte, w, h int) *Tile {
	SwapBGRA(pix)
	return &Tile{W: w, H: h, Pix: pix}
}

// TileFromMask expands an 8-bit alpha mask against a single layer color.
func TileFromMask(mask []byte, w, h int, r, g, b uint8) *Tile {
	pix := make([]byte, w*h*4)
	for i, a := range mask[:w*h] {
		pix[i*4+0] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = a
	}
	return &Tile{W: w, H: h, Pix: pix}
}

// TileFromBitmask expands a 1-bit mask (MSB first, rows padded to whole
// bytes) against a single layer color.
func TileFromBitmask(bits []byte, w, h int, r, g, b uint8) *Tile {
	pix := make([]byte, w*h*4)
	stride := (w + 7) / 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var a uint8
			if bits[y*stride+x/8]&(0x80>>(x%8)) != 0 {
				a = 255
			}
			i := (y*w + x) * 4
			pix[i+0] = r
			pix[i+1] = g
			pix[i+2] = b
			pix[i+3] = a
		}
	}
	return &Tile{W: w, H: h, Pix: pix}
}

// SwapBGRA converts BGRA pixel data to RGBA in place.
func SwapBGRA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
