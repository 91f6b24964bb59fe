package sai

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"media-previewer/internal/formats"
)

// RootPage is the first directory page of the container.
const RootPage = 2

const (
	dirEntrySize   = 64
	entriesPerPage = PageSize / dirEntrySize
)

// EntryKind distinguishes files from folders in the directory.
type EntryKind uint8

const (
	// KindFile is a regular named byte stream.
	KindFile EntryKind = 1
	// KindFolder is a directory whose start page is another directory
	// page.
	KindFolder EntryKind = 2
)

// DirEntry is one occupied FAT-style directory slot.
type DirEntry struct {
	Name      string
	Kind      EntryKind
	StartPage uint32
	// Length is the byte length for files; zero for folders.
	Length uint32
}

// FS navigates the container's virtual filesystem.
type FS struct {
	pr     *PageReader
	closer io.Closer
}

// New wraps a random-access backing store of the given size.
func New(r io.ReaderAt, size int64) (*FS, error) {
	pr, err := NewPageReader(r, size)
	if err != nil {
		return nil, err
	}
	return &FS{pr: pr}, nil
}

// Open opens the container file at path.
func Open(path string) (*FS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	fs, err := New(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	fs.closer = f
	return fs, nil
}

// Close releases the backing file, if the FS owns one.
func (fs *FS) Close() error {
	if fs.closer != nil {
		return fs.closer.Close()
	}
	return nil
}

// ReadDir lists the occupied entries of the directory starting at the
// given page, following the page chain for directories spanning multiple
// pages.
func (fs *FS) ReadDir(startPage uint32) ([]DirEntry, error) {
	var entries []DirEntry
	page := startPage
	for pages := 0; page != 0; pages++ {
		if pages > int(fs.pr.Pages()) {
			return nil, fmt.Errorf("%w: directory chain loops", formats.ErrCorrupt)
		}
		data, err := fs.pr.DataPage(page)
		if err != nil {
			return nil, err
		}
		for i := 0; i < entriesPerPage; i++ {
			e, ok := parseDirEntry(data[i*dirEntrySize:])
			if ok {
				entries = append(entries, e)
			}
		}
		page, err = fs.nextChainPage(page)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func parseDirEntry(raw []byte) (DirEntry, bool) {
	flags := binary.LittleEndian.Uint32(raw[0:])
	if flags == 0 {
		return DirEntry{}, false
	}
	name := raw[4:36]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return DirEntry{
		Name:      string(name),
		Kind:      EntryKind(raw[36]),
		StartPage: binary.LittleEndian.Uint32(raw[40:]),
		Length:    binary.LittleEndian.Uint32(raw[44:]),
	}, true
}

// FindEntry resolves a slash-separated path from the root directory.
// Returns ErrEntryNotFound when any component is absent.
func (fs *FS) FindEntry(path string) (*DirEntry, error) {
	dirPage := uint32(RootPage)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		entries, err := fs.ReadDir(dirPage)
		if err != nil {
			return nil, err
		}
		found := false
		for _, e := range entries {
			if e.Name != part {
				continue
			}
			if i == len(parts)-1 {
				entry := e
				return &entry, nil
			}
			if e.Kind != KindFolder {
				return nil, fmt.Errorf("%w: %q is not a folder", formats.ErrEntryNotFound, part)
			}
			dirPage = e.StartPage
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", formats.ErrEntryNotFound, path)
		}
	}
	return nil, fmt.Errorf("%w: %q", formats.ErrEntryNotFound, path)
}

// ReadChain reads length bytes starting at the given data page, following
// the table-recorded next pointers.
func (fs *FS) ReadChain(startPage, length uint32) ([]byte, error) {
	out := make([]byte, 0, length)
	page := startPage
	for uint32(len(out)) < length {
		if page == 0 {
			return nil, fmt.Errorf("%w: chain ended after %d of %d bytes", formats.ErrCorrupt, len(out), length)
		}
		data, err := fs.pr.DataPage(page)
		if err != nil {
			return nil, err
		}
		remaining := length - uint32(len(out))
		if remaining < PageSize {
			data = data[:remaining]
		}
		out = append(out, data...)
		page, err = fs.nextChainPage(page)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadFile reads a whole file entry.
func (fs *FS) ReadFile(e *DirEntry) ([]byte, error) {
	if e.Kind != KindFile {
		return nil, fmt.Errorf("%w: %q is not a file", formats.ErrEntryNotFound, e.Name)
	}
	return fs.ReadChain(e.StartPage, e.Length)
}

// nextChainPage follows a data page's next pointer, transparently skipping
// a table page sitting in the middle of a sequentially laid out chain.
func (fs *FS) nextChainPage(page uint32) (uint32, error) {
	next, err := fs.pr.NextPage(page)
	if err != nil {
		return 0, err
	}
	if next != 0 && next%TableStride == 0 {
		next++
	}
	return next, nil
}
