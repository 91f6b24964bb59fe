package canvas

import (
	"bytes"
	"errors"
	"testing"
)

// solidTile builds a w x h tile filled with one RGBA value.
func solidTile(w, h int, r, g, b, a uint8) *Tile {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return &Tile{W: w, H: h, Pix: pix}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"Valid", 128, 128, false},
		{"Zero width", 0, 10, true},
		{"Negative height", 10, -1, true},
		{"Pixel budget exceeded", 100_000, 100_000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.w, tt.h)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			// Canvas must start fully transparent.
			for _, p := range c.Pix {
				if p != 0 {
					t.Fatal("new canvas is not zero-initialized")
				}
			}
		})
	}
}

func TestOpaqueLayerCoversCanvasExactly(t *testing.T) {
	c, err := New(128, 128)
	if err != nil {
		t.Fatal(err)
	}

	layer := Layer{Width: 128, Height: 128, Opacity: 255}
	err = ComposeLayer(c, layer, func(col, row int) (*Tile, error) {
		// Vary color by grid position so the copy check is not trivial.
		return solidTile(64, 64, uint8(10+col*100), uint8(20+row*100), 30, 255), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			i := c.PixOffset(col*64+5, row*64+5)
			want := []byte{uint8(10 + col*100), uint8(20 + row*100), 30, 255}
			if !bytes.Equal(c.Pix[i:i+4], want) {
				t.Errorf("tile (%d,%d): pixel = %v, want %v", col, row, c.Pix[i:i+4], want)
			}
		}
	}
}

func TestTransparentLayerLeavesCanvasUnchanged(t *testing.T) {
	c, err := New(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	base := Layer{Width: 64, Height: 64, Opacity: 255}
	if err := ComposeLayer(c, base, func(int, int) (*Tile, error) {
		return solidTile(64, 64, 200, 100, 50, 255), nil
	}); err != nil {
		t.Fatal(err)
	}

	before := make([]byte, len(c.Pix))
	copy(before, c.Pix)

	top := Layer{Width: 64, Height: 64, Opacity: 255}
	if err := ComposeLayer(c, top, func(int, int) (*Tile, error) {
		return solidTile(64, 64, 1, 2, 3, 0), nil
	}); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(before, c.Pix) {
		t.Error("fully transparent layer modified the canvas")
	}
}

func TestPartialCoverageLeavesRestTransparent(t *testing.T) {
	c, err := New(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	layer := Layer{Width: 64, Height: 64, Opacity: 255}
	if err := ComposeLayer(c, layer, func(int, int) (*Tile, error) {
		return solidTile(64, 64, 9, 8, 7, 255), nil
	}); err != nil {
		t.Fatal(err)
	}

	in := c.PixOffset(10, 10)
	if !bytes.Equal(c.Pix[in:in+4], []byte{9, 8, 7, 255}) {
		t.Errorf("covered pixel = %v", c.Pix[in:in+4])
	}
	out := c.PixOffset(100, 100)
	if !bytes.Equal(c.Pix[out:out+4], []byte{0, 0, 0, 0}) {
		t.Errorf("uncovered pixel = %v, want transparent", c.Pix[out:out+4])
	}
}

func TestBlitClipsOutOfBoundsTiles(t *testing.T) {
	c, err := New(32, 32)
	if err != nil {
		t.Fatal(err)
	}

	// Offsets that land tiles partially or fully off-canvas must not panic
	// and must only touch in-bounds pixels.
	offsets := [][2]int{{-48, -48}, {-10, 5}, {28, 28}, {100, 100}}
	for _, off := range offsets {
		Blit(c, solidTile(64, 64, 255, 0, 0, 255), off[0], off[1], 255)
	}

	i := c.PixOffset(30, 30)
	if !bytes.Equal(c.Pix[i:i+4], []byte{255, 0, 0, 255}) {
		t.Errorf("clipped blit missed in-bounds pixel: %v", c.Pix[i:i+4])
	}
}

func TestHalfOpacityBlendOverOpaqueBase(t *testing.T) {
	c, err := New(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	Blit(c, solidTile(1, 1, 0, 0, 0, 255), 0, 0, 255)
	Blit(c, solidTile(1, 1, 255, 255, 255, 255), 0, 0, 128)

	// 50% white over black: roughly mid grey, alpha stays opaque.
	r, a := c.Pix[0], c.Pix[3]
	if r < 126 || r > 130 {
		t.Errorf("blended value = %d, want ~128", r)
	}
	if a != 255 {
		t.Errorf("alpha = %d, want 255", a)
	}
}

func TestComposeLayerSkipsAndErrors(t *testing.T) {
	c, err := New(128, 64)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Nil tile is skipped", func(t *testing.T) {
		layer := Layer{Width: 128, Height: 64, Opacity: 255}
		err := ComposeLayer(c, layer, func(col, row int) (*Tile, error) {
			if col == 0 {
				return nil, nil
			}
			return solidTile(64, 64, 1, 1, 1, 255), nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if c.Pix[c.PixOffset(5, 5)+3] != 0 {
			t.Error("skipped tile region was written")
		}
		if c.Pix[c.PixOffset(70, 5)+3] != 255 {
			t.Error("produced tile region was not written")
		}
	})

	t.Run("Producer error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		layer := Layer{Width: 128, Height: 64, Opacity: 255}
		err := ComposeLayer(c, layer, func(int, int) (*Tile, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want boom", err)
		}
	})

	t.Run("Zero-extent layer is a no-op", func(t *testing.T) {
		called := false
		err := ComposeLayer(c, Layer{Width: 0, Height: 0, Opacity: 255}, func(int, int) (*Tile, error) {
			called = true
			return nil, nil
		})
		if err != nil || called {
			t.Errorf("zero-extent layer: err=%v called=%v", err, called)
		}
	})
}

func TestMaskTiles(t *testing.T) {
	t.Run("Alpha mask", func(t *testing.T) {
		mask := []byte{0, 128, 255, 64}
		tile := TileFromMask(mask, 2, 2, 10, 20, 30)
		if tile.Pix[3] != 0 || tile.Pix[7] != 128 || tile.Pix[11] != 255 {
			t.Errorf("mask alphas = %v %v %v", tile.Pix[3], tile.Pix[7], tile.Pix[11])
		}
		if tile.Pix[4] != 10 || tile.Pix[5] != 20 || tile.Pix[6] != 30 {
			t.Errorf("mask color = %v", tile.Pix[4:7])
		}
	})

	t.Run("One-bit mask", func(t *testing.T) {
		// 8x2: first row 10100000, second row 11111111.
		bits := []byte{0xA0, 0xFF}
		tile := TileFromBitmask(bits, 8, 2, 1, 2, 3)
		if tile.Pix[3] != 255 || tile.Pix[7] != 0 || tile.Pix[11] != 255 {
			t.Errorf("bit row 0 alphas wrong: %v %v %v", tile.Pix[3], tile.Pix[7], tile.Pix[11])
		}
		for x := 0; x < 8; x++ {
			if tile.Pix[(8+x)*4+3] != 255 {
				t.Errorf("bit row 1 col %d not set", x)
			}
		}
	})
}

func TestSwapBGRA(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapBGRA(pix)
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	if !bytes.Equal(pix, want) {
		t.Errorf("SwapBGRA = %v, want %v", pix, want)
	}
}
