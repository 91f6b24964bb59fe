package clip

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

const (
	previewTable  = "CanvasPreview"
	previewColumn = "ImageData"
)

// DatabasePreview extracts the full-resolution canvas preview from the
// embedded SQLite chunk. The chunk is a complete database file, so it is
// materialized to a uniquely named scratch file for the driver and removed
// again on every path out of this function. Returns the stored image bytes
// (a PNG in every document observed so far).
func (c *Container) DatabasePreview() ([]byte, error) {
	chunks := c.FindChunks(TagDatabase)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: container has no database chunk", formats.ErrEntryNotFound)
	}

	tmp, err := os.CreateTemp("", "clip-db-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("create scratch database: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, c.PayloadReader(chunks[0]))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("materialize database chunk: %w", err)
	}
	return queryPreview(tmp.Name())
}

func queryPreview(path string) ([]byte, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open embedded database: %w", err)
	}
	defer db.Close()

	var data []byte
	row := db.QueryRow(fmt.Sprintf("SELECT %s FROM %s LIMIT 1", previewColumn, previewTable))
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s table is empty", formats.ErrEntryNotFound, previewTable)
		}
		// The driver reports a missing table as a generic query error.
		return nil, fmt.Errorf("%w: query %s: %v", formats.ErrEntryNotFound, previewTable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s row holds no image", formats.ErrEntryNotFound, previewTable)
	}
	logging.Debug("embedded database yielded a %d byte canvas preview", len(data))
	return data, nil
}
