// Package canvas implements the format-agnostic half of tile-based layer
// compositing: a zero-initialized RGBA canvas, clipped tile blits, and
// src-over alpha blending with per-layer opacity.
//
// Container formats differ in how tiles are stored and decompressed but
// share identical blend math, so each format supplies a TileProducer
// callback and this package drives the grid walk and the pixel work.
// Layers must be composited strictly bottom-to-top; callers holding a
// top-to-bottom layer list (the usual declaration order) reverse it first.
package canvas
