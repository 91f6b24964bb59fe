// Package sai reads an encrypted, paged painting-project container.
//
// The entire byte stream is organized in fixed 4096-byte pages and
// encrypted with a table-driven stream cipher (a 256-entry static key table
// combined with a rotating vector). Every 512th page is a table page
// holding a (checksum, next-page) pair per following data page; a data page
// is decrypted using its table-recorded checksum as the initial vector and
// then verified by recomputing a rolling checksum over the decrypted words.
// A checksum mismatch is fatal corruption, never silently patched.
//
// Page 2 is the root of a FAT-style directory whose entries name files and
// folders inside the container. The two consumers are the thumbnail reader
// (a small BGRA raster stored under a well-known name) and the full layer
// compositor, used as fallback when the stored thumbnail is absent.
package sai
