package rle

import (
	"bytes"
	"testing"
)

func TestUnpack(t *testing.T) {
	tests := []struct {
		name    string
		src     []byte
		size    int
		want    []byte
		wantErr bool
	}{
		{
			name: "Literal run",
			src:  []byte{0x02, 'a', 'b', 'c'},
			size: 3,
			want: []byte("abc"),
		},
		{
			name: "Repeat run",
			src:  []byte{0xFE, 0x7F}, // 257-254 = 3 repeats
			size: 3,
			want: []byte{0x7F, 0x7F, 0x7F},
		},
		{
			name: "Mixed with no-op",
			src:  []byte{0x80, 0x01, 'x', 'y', 0xFF, 'z'},
			size: 4,
			want: []byte("xyzz"),
		},
		{
			name:    "Truncated stream",
			src:     []byte{0x05, 'a'},
			size:    6,
			wantErr: true,
		},
		{
			name:    "Repeat overruns output",
			src:     []byte{0x81, 0xAA}, // 128 repeats
			size:    4,
			wantErr: true,
		},
		{
			name:    "Missing repeat value",
			src:     []byte{0xFE},
			size:    3,
			wantErr: true,
		},
		{
			name: "Empty output",
			src:  nil,
			size: 0,
			want: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unpack(tt.src, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unpack() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !bytes.Equal(got, tt.want) {
				t.Errorf("Unpack() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackUnpack(t *testing.T) {
	inputs := [][]byte{
		[]byte("hello world"),
		bytes.Repeat([]byte{0x00}, 4096),
		bytes.Repeat([]byte("ab"), 300),
		append(bytes.Repeat([]byte{0xFF}, 200), []byte("tail")...),
		{0x42},
	}
	for _, in := range inputs {
		packed := Pack(in)
		got, err := Unpack(packed, len(in))
		if err != nil {
			t.Fatalf("Unpack(Pack(%d bytes)) error: %v", len(in), err)
		}
		if !bytes.Equal(got, in) {
			t.Errorf("round trip mismatch for %d-byte input", len(in))
		}
	}
}

func TestPackCompressesRuns(t *testing.T) {
	in := bytes.Repeat([]byte{0x11}, 4096)
	packed := Pack(in)
	if len(packed) >= len(in)/8 {
		t.Errorf("Pack of uniform input produced %d bytes, expected strong compression", len(packed))
	}
}
