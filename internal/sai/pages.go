package sai

import (
	"encoding/binary"
	"fmt"
	"io"

	"media-previewer/internal/formats"
)

// TableStride is the distance between table pages: page 0, 512, 1024, ...
// are table pages; everything between them is data.
const TableStride = 512

// PageReader decrypts and verifies pages on demand from any random-access
// backing store (an open file, an mmap, or an in-memory buffer). Decryption
// logic never touches I/O directly, so backing stores are interchangeable.
type PageReader struct {
	r     io.ReaderAt
	pages uint32

	// Decrypted table pages, keyed by page index. A container holds one
	// table page per 511 data pages, so the cache stays tiny.
	tables map[uint32][]byte
}

// NewPageReader validates the container size and wraps the backing store.
func NewPageReader(r io.ReaderAt, size int64) (*PageReader, error) {
	if size <= 0 || size%PageSize != 0 {
		return nil, fmt.Errorf("%w: container size %d is not page-aligned", formats.ErrCorrupt, size)
	}
	pages := size / PageSize
	if pages < 3 {
		return nil, fmt.Errorf("%w: container has only %d pages", formats.ErrCorrupt, pages)
	}
	return &PageReader{
		r:      r,
		pages:  uint32(pages),
		tables: make(map[uint32][]byte),
	}, nil
}

// Pages returns the number of pages in the container.
func (pr *PageReader) Pages() uint32 { return pr.pages }

// readRaw reads one encrypted page from the backing store.
func (pr *PageReader) readRaw(index uint32) ([]byte, error) {
	if index >= pr.pages {
		return nil, fmt.Errorf("%w: page %d out of range (%d pages)", formats.ErrCorrupt, index, pr.pages)
	}
	buf := make([]byte, PageSize)
	if _, err := pr.r.ReadAt(buf, int64(index)*PageSize); err != nil {
		return nil, fmt.Errorf("read page %d: %w", index, err)
	}
	return buf, nil
}

// tablePage returns the decrypted, verified table page at index, caching
// the result. A table page is decrypted with its own index as vector and
// stores its own checksum in entry slot 0.
func (pr *PageReader) tablePage(index uint32) ([]byte, error) {
	if index%TableStride != 0 {
		return nil, fmt.Errorf("%w: page %d is not a table page", formats.ErrCorrupt, index)
	}
	if page, ok := pr.tables[index]; ok {
		return page, nil
	}
	page, err := pr.readRaw(index)
	if err != nil {
		return nil, err
	}
	DecryptPage(page, index)
	stored := binary.LittleEndian.Uint32(page[0:])
	if stored != tableChecksum(page) {
		return nil, fmt.Errorf("%w: table page %d checksum mismatch", formats.ErrCorrupt, index)
	}
	pr.tables[index] = page
	return page, nil
}

// tableEntry returns the (checksum, next-page) pair recorded for the given
// data page.
func (pr *PageReader) tableEntry(page uint32) (checksum, next uint32, err error) {
	table := page &^ (TableStride - 1)
	tp, err := pr.tablePage(table)
	if err != nil {
		return 0, 0, err
	}
	slot := page - table
	checksum = binary.LittleEndian.Uint32(tp[slot*8:])
	next = binary.LittleEndian.Uint32(tp[slot*8+4:])
	return checksum, next, nil
}

// DataPage returns the decrypted, checksum-verified data page at index.
// An unallocated slot or a checksum mismatch is fatal corruption.
func (pr *PageReader) DataPage(index uint32) ([]byte, error) {
	if index%TableStride == 0 {
		return nil, fmt.Errorf("%w: page %d is a table page, not data", formats.ErrCorrupt, index)
	}
	sum, _, err := pr.tableEntry(index)
	if err != nil {
		return nil, err
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: data page %d is unallocated", formats.ErrCorrupt, index)
	}
	page, err := pr.readRaw(index)
	if err != nil {
		return nil, err
	}
	DecryptPage(page, sum)
	if got := Checksum(page); got != sum {
		return nil, fmt.Errorf("%w: data page %d checksum mismatch (got %08x, table %08x)", formats.ErrCorrupt, index, got, sum)
	}
	return page, nil
}

// NextPage returns the table-recorded successor of a data page; zero marks
// the end of a chain.
func (pr *PageReader) NextPage(index uint32) (uint32, error) {
	_, next, err := pr.tableEntry(index)
	return next, err
}
