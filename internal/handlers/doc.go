// Package handlers implements the HTTP surface of the preview server:
// on-demand thumbnails, full previews, strategy inspection and health.
package handlers
