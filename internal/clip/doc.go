// Package clip reads chunk-list illustration containers. The file starts
// with a fixed header and a flat list of (tag, size) descriptors; chunk
// payloads follow the list back to back, so absolute offsets are the
// accumulated sizes. There is no random-access index.
//
// Two chunks matter for previews: a thumbnail chunk holding alternative
// sub-encodings of a small stored preview, and a database chunk that is a
// complete embedded SQLite file carrying a full-resolution canvas preview.
package clip
