package formats

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Strategy selects how a preview is produced for a format.
type Strategy string

const (
	// StrategyNative decodes the file directly with the built-in raster
	// decoders (jpeg, png, gif, webp, bmp, tiff).
	StrategyNative Strategy = "native"
	// StrategyExternal hands the file to the external decoder collaborator
	// (videos, HEIF/AVIF and other codecs without a native decoder).
	StrategyExternal Strategy = "external"
	// StrategyBrowser marks formats the GUI shell renders itself; the file
	// bytes are returned untouched.
	StrategyBrowser Strategy = "browser"
	// StrategyArchive extracts the merged preview from a zip-packaged
	// raster document.
	StrategyArchive Strategy = "archive"
	// StrategyExtractor runs a format-specific binary extractor.
	StrategyExtractor Strategy = "extractor"
	// StrategyIcon means no preview can be produced; the caller shows a
	// generic file icon.
	StrategyIcon Strategy = "icon"
	// StrategyNone disables previews for the format entirely.
	StrategyNone Strategy = "none"
)

// Category is the broad media class of a format.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryVideo   Category = "video"
	CategoryRaw     Category = "raw"
	CategoryProject Category = "project"
	CategoryVector  Category = "vector"
)

// SniffWindow is the number of leading bytes the resolver reads for
// signature matching. Files shorter than this are sniffed with whatever is
// available.
const SniffWindow = 1024

// Descriptor is the immutable description of one known format.
type Descriptor struct {
	// Name is a short lowercase identifier, e.g. "jpeg", "sai".
	Name string
	// Extensions lists the lowercase extensions (with dot) for this format.
	Extensions []string
	// MIME is the canonical MIME type reported for extracted bytes.
	MIME string
	// Category is the broad media class.
	Category Category
	// Strategy selects the preview pipeline.
	Strategy Strategy
}

// signature is one magic-byte pattern; all parts must match for the
// signature to hit.
type signature struct {
	desc  *Descriptor
	parts []sigPart
}

type sigPart struct {
	offset  int
	pattern []byte
}

var descriptors = []*Descriptor{
	{Name: "jpeg", Extensions: []string{".jpg", ".jpeg", ".jpe"}, MIME: "image/jpeg", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "png", Extensions: []string{".png"}, MIME: "image/png", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "gif", Extensions: []string{".gif"}, MIME: "image/gif", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "webp", Extensions: []string{".webp"}, MIME: "image/webp", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "bmp", Extensions: []string{".bmp"}, MIME: "image/bmp", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "tiff", Extensions: []string{".tif", ".tiff"}, MIME: "image/tiff", Category: CategoryImage, Strategy: StrategyNative},
	{Name: "svg", Extensions: []string{".svg"}, MIME: "image/svg+xml", Category: CategoryVector, Strategy: StrategyBrowser},
	{Name: "ico", Extensions: []string{".ico"}, MIME: "image/x-icon", Category: CategoryImage, Strategy: StrategyIcon},

	{Name: "heif", Extensions: []string{".heic", ".heif"}, MIME: "image/heic", Category: CategoryImage, Strategy: StrategyExternal},
	{Name: "avif", Extensions: []string{".avif"}, MIME: "image/avif", Category: CategoryImage, Strategy: StrategyExternal},
	{Name: "jxl", Extensions: []string{".jxl"}, MIME: "image/jxl", Category: CategoryImage, Strategy: StrategyExternal},

	{Name: "mp4", Extensions: []string{".mp4", ".m4v", ".mov"}, MIME: "video/mp4", Category: CategoryVideo, Strategy: StrategyExternal},
	{Name: "matroska", Extensions: []string{".mkv", ".webm"}, MIME: "video/x-matroska", Category: CategoryVideo, Strategy: StrategyExternal},
	{Name: "avi", Extensions: []string{".avi"}, MIME: "video/x-msvideo", Category: CategoryVideo, Strategy: StrategyExternal},
	{Name: "mpeg", Extensions: []string{".mpg", ".mpeg", ".ts"}, MIME: "video/mpeg", Category: CategoryVideo, Strategy: StrategyExternal},

	{Name: "sai", Extensions: []string{".sai"}, MIME: "application/x-sai", Category: CategoryProject, Strategy: StrategyExtractor},
	{Name: "clip", Extensions: []string{".clip"}, MIME: "application/x-clip", Category: CategoryProject, Strategy: StrategyExtractor},
	{Name: "mdp", Extensions: []string{".mdp"}, MIME: "application/x-mdp", Category: CategoryProject, Strategy: StrategyExtractor},
	{Name: "psd", Extensions: []string{".psd", ".psb"}, MIME: "image/vnd.adobe.photoshop", Category: CategoryProject, Strategy: StrategyExtractor},

	{Name: "krita", Extensions: []string{".kra"}, MIME: "application/x-krita", Category: CategoryProject, Strategy: StrategyArchive},
	{Name: "openraster", Extensions: []string{".ora"}, MIME: "image/openraster", Category: CategoryProject, Strategy: StrategyArchive},

	{Name: "canon-raw", Extensions: []string{".cr2", ".cr3", ".crw"}, MIME: "image/x-canon-cr2", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "nikon-raw", Extensions: []string{".nef", ".nrw"}, MIME: "image/x-nikon-nef", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "sony-raw", Extensions: []string{".arw", ".sr2"}, MIME: "image/x-sony-arw", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "dng", Extensions: []string{".dng"}, MIME: "image/x-adobe-dng", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "fuji-raw", Extensions: []string{".raf"}, MIME: "image/x-fuji-raf", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "olympus-raw", Extensions: []string{".orf"}, MIME: "image/x-olympus-orf", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "panasonic-raw", Extensions: []string{".rw2"}, MIME: "image/x-panasonic-rw2", Category: CategoryRaw, Strategy: StrategyExtractor},
	{Name: "sigma-raw", Extensions: []string{".x3f"}, MIME: "image/x-sigma-x3f", Category: CategoryRaw, Strategy: StrategyExtractor},
}

// signatures is checked in order; the first full match wins. Formats whose
// on-disk bytes are encrypted or generic (zip) are resolved by extension
// only.
var signatures = []signature{}

var byExtension = map[string]*Descriptor{}

func init() {
	for _, d := range descriptors {
		for _, ext := range d.Extensions {
			byExtension[ext] = d
		}
	}

	add := func(name string, parts ...sigPart) {
		d := byName(name)
		signatures = append(signatures, signature{desc: d, parts: parts})
	}

	add("jpeg", sigPart{0, []byte{0xFF, 0xD8, 0xFF}})
	add("png", sigPart{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}})
	add("gif", sigPart{0, []byte("GIF8")})
	add("webp", sigPart{0, []byte("RIFF")}, sigPart{8, []byte("WEBP")})
	add("bmp", sigPart{0, []byte("BM")})
	add("psd", sigPart{0, []byte("8BPS")})
	add("clip", sigPart{0, []byte("CSFCHUNK")})
	add("mdp", sigPart{0, []byte("MDPK")})
	add("sigma-raw", sigPart{0, []byte("FOVb")})
	add("fuji-raw", sigPart{0, []byte("FUJIFILMCCD-RAW")})
	add("canon-raw", sigPart{0, []byte{'I', 'I', 0x2A, 0x00}}, sigPart{8, []byte("CR")})
	add("panasonic-raw", sigPart{0, []byte{'I', 'I', 0x55, 0x00}})
	// Plain TIFF must come after the TIFF-based RAW signatures.
	add("tiff", sigPart{0, []byte{'I', 'I', 0x2A, 0x00}})
	add("tiff", sigPart{0, []byte{'M', 'M', 0x00, 0x2A}})
	add("matroska", sigPart{0, []byte{0x1A, 0x45, 0xDF, 0xA3}})
	add("avi", sigPart{0, []byte("RIFF")}, sigPart{8, []byte("AVI ")})
	add("jxl", sigPart{0, []byte{0xFF, 0x0A}})
	add("heif", sigPart{4, []byte("ftypheic")})
	add("heif", sigPart{4, []byte("ftypmif1")})
	add("avif", sigPart{4, []byte("ftypavif")})
	add("mp4", sigPart{4, []byte("ftyp")})
}

func byName(name string) *Descriptor {
	for _, d := range descriptors {
		if d.Name == name {
			return d
		}
	}
	panic("formats: unknown descriptor " + name)
}

// Sniff matches the given header window against the signature table.
// Returns nil when no signature hits. Safe on arbitrarily short input.
func Sniff(header []byte) *Descriptor {
	for _, sig := range signatures {
		if sig.matches(header) {
			return sig.desc
		}
	}
	return nil
}

func (s signature) matches(header []byte) bool {
	for _, p := range s.parts {
		end := p.offset + len(p.pattern)
		if end > len(header) {
			return false
		}
		if !bytes.Equal(header[p.offset:end], p.pattern) {
			return false
		}
	}
	return true
}

// ByExtension looks up a descriptor by file extension. The extension is
// matched case-insensitively and may be given with or without the dot.
func ByExtension(ext string) *Descriptor {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return byExtension[ext]
}

// Resolve classifies the file at path. It reads at most SniffWindow bytes,
// tries the signature table, then falls back to the extension. A nil result
// with a nil error means the format is unknown and the caller should show an
// icon.
func Resolve(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, SniffWindow)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return ResolveBytes(header[:n], filepath.Ext(path)), nil
}

// ResolveBytes classifies a file from its header window and extension
// without touching the filesystem.
func ResolveBytes(header []byte, ext string) *Descriptor {
	if d := Sniff(header); d != nil {
		return d
	}
	return ByExtension(ext)
}

// All returns the full descriptor table. The returned slice must not be
// modified.
func All() []*Descriptor {
	return descriptors
}
