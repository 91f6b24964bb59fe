package clip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"media-previewer/internal/formats"
)

// Magic identifies a chunk-list container.
var Magic = []byte("CSFCHUNK")

const (
	headerSize     = 16 // magic, version, chunk count
	descriptorSize = 16 // tag, payload size

	// Chunk tags. Tags are 8 bytes, space-padded.
	TagThumbnail = "PRVWLIST"
	TagDatabase  = "SQLITEDB"
)

// Chunk is one descriptor from the prefix list with its resolved absolute
// payload offset.
type Chunk struct {
	Tag    string
	Size   uint64
	Offset uint64
}

// Container is a parsed chunk-list file.
type Container struct {
	r      io.ReaderAt
	size   int64
	chunks []Chunk
	closer io.Closer
}

// Parse validates the header and descriptor list. Every declared payload
// must fit inside the backing store before any payload is read; a chunk
// count or size overrunning the data is corruption, not a partial parse.
func Parse(r io.ReaderAt, size int64) (*Container, error) {
	header := make([]byte, headerSize)
	if size < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the container header", formats.ErrCorrupt, size)
	}
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("read container header: %w", err)
	}
	if !bytes.Equal(header[:8], Magic) {
		return nil, fmt.Errorf("%w: bad container magic %q", formats.ErrCorrupt, header[:8])
	}
	count := binary.LittleEndian.Uint32(header[12:])

	listLen := int64(count) * descriptorSize
	if headerSize+listLen > size {
		return nil, fmt.Errorf("%w: %d descriptors do not fit in %d bytes", formats.ErrCorrupt, count, size)
	}
	list := make([]byte, listLen)
	if _, err := r.ReadAt(list, headerSize); err != nil {
		return nil, fmt.Errorf("read descriptor list: %w", err)
	}

	c := &Container{r: r, size: size}
	offset := uint64(headerSize) + uint64(listLen)
	for i := uint32(0); i < count; i++ {
		d := list[i*descriptorSize:]
		chunk := Chunk{
			Tag:    string(d[:8]),
			Size:   binary.LittleEndian.Uint64(d[8:]),
			Offset: offset,
		}
		if chunk.Size > uint64(size) || chunk.Offset+chunk.Size > uint64(size) {
			return nil, fmt.Errorf("%w: chunk %d (%q) of %d bytes at offset %d overruns the container", formats.ErrCorrupt, i, chunk.Tag, chunk.Size, chunk.Offset)
		}
		c.chunks = append(c.chunks, chunk)
		offset += chunk.Size
	}
	return c, nil
}

// Open opens the container file at path.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	c, err := Parse(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// Close releases the backing file, if the container owns one.
func (c *Container) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Chunks returns every descriptor in declaration order.
func (c *Container) Chunks() []Chunk { return c.chunks }

// FindChunks returns the chunks carrying the given tag, in declaration
// order. Large documents repeat data-bearing tags.
func (c *Container) FindChunks(tag string) []Chunk {
	var out []Chunk
	for _, ch := range c.chunks {
		if ch.Tag == tag {
			out = append(out, ch)
		}
	}
	return out
}

// Payload reads a chunk's payload into memory.
func (c *Container) Payload(ch Chunk) ([]byte, error) {
	buf := make([]byte, ch.Size)
	if _, err := c.r.ReadAt(buf, int64(ch.Offset)); err != nil {
		return nil, fmt.Errorf("read chunk %q: %w", ch.Tag, err)
	}
	return buf, nil
}

// PayloadReader returns a streaming view of a chunk's payload, used for
// payloads too large to hold in memory comfortably.
func (c *Container) PayloadReader(ch Chunk) *io.SectionReader {
	return io.NewSectionReader(c.r, int64(ch.Offset), int64(ch.Size))
}

// SubEntry is one typed record inside a structured chunk payload. Offsets
// are relative to the payload start.
type SubEntry struct {
	Subtype uint32
	Size    uint32
	Offset  uint32
}

const subEntrySize = 12

// SubEntries parses a structured payload: a count followed by fixed-size
// typed records pointing into the rest of the payload.
func SubEntries(payload []byte) ([]SubEntry, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: structured payload is %d bytes", formats.ErrCorrupt, len(payload))
	}
	count := binary.LittleEndian.Uint32(payload)
	if uint32(len(payload)-4)/subEntrySize < count {
		return nil, fmt.Errorf("%w: %d sub-entries do not fit in %d bytes", formats.ErrCorrupt, count, len(payload))
	}
	var out []SubEntry
	for i := uint32(0); i < count; i++ {
		rec := payload[4+i*subEntrySize:]
		e := SubEntry{
			Subtype: binary.LittleEndian.Uint32(rec[0:]),
			Size:    binary.LittleEndian.Uint32(rec[4:]),
			Offset:  binary.LittleEndian.Uint32(rec[8:]),
		}
		if uint64(e.Offset)+uint64(e.Size) > uint64(len(payload)) {
			return nil, fmt.Errorf("%w: sub-entry %d overruns its payload", formats.ErrCorrupt, i)
		}
		out = append(out, e)
	}
	return out, nil
}
