package clip

import (
	"encoding/binary"
	"fmt"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

// Thumbnail sub-encoding ids.
const (
	subtypeJPEG     = 1 // small dimension header followed by a JPEG stream
	subtypeLossless = 2 // proprietary lossless variant, not implemented
)

const jpegSubHeaderSize = 8 // width, height

// Thumbnail returns the stored preview as a JPEG stream. Thumbnail chunks
// list alternative encodings of the same preview; the first one in a
// supported encoding wins, unsupported variants are skipped in favor of
// the next candidate.
func (c *Container) Thumbnail() ([]byte, error) {
	chunks := c.FindChunks(TagThumbnail)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: container has no thumbnail chunk", formats.ErrEntryNotFound)
	}

	sawUnsupported := false
	for _, ch := range chunks {
		payload, err := c.Payload(ch)
		if err != nil {
			return nil, err
		}
		entries, err := SubEntries(payload)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			data := payload[e.Offset : e.Offset+e.Size]
			switch e.Subtype {
			case subtypeJPEG:
				if len(data) <= jpegSubHeaderSize {
					return nil, fmt.Errorf("%w: thumbnail record is %d bytes", formats.ErrCorrupt, len(data))
				}
				w := binary.LittleEndian.Uint32(data[0:])
				h := binary.LittleEndian.Uint32(data[4:])
				logging.Debug("thumbnail chunk carries a %dx%d jpeg preview", w, h)
				return data[jpegSubHeaderSize:], nil
			case subtypeLossless:
				sawUnsupported = true
				logging.Debug("skipping lossless thumbnail variant (%d bytes)", e.Size)
			default:
				logging.Debug("skipping unknown thumbnail subtype %d", e.Subtype)
			}
		}
	}
	if sawUnsupported {
		return nil, fmt.Errorf("%w: only lossless thumbnail variants present", formats.ErrUnsupportedEncoding)
	}
	return nil, fmt.Errorf("%w: thumbnail chunk lists no usable encoding", formats.ErrEntryNotFound)
}
