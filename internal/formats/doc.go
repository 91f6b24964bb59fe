// Package formats maintains the static table of known file formats and maps
// an arbitrary file to a preview strategy.
//
// Resolution is a two-step lookup: a signature sniff over a small header
// window, then a case-insensitive extension match for formats without a
// usable plaintext signature (encrypted containers, zip-packaged documents).
// The table is flat and immutable; it is built once at package init and is
// safe for concurrent readers.
//
// The package also defines the error taxonomy shared by every container
// parser in the engine.
package formats
