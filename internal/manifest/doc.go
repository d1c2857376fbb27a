// Package manifest defines the recording, supervision, cut, and feature
// reference records exchanged between preparation stages, and their on-disk
// encoding as gzip-compressed JSON Lines.
//
// Records are plain values. Collections are ordered by id and indexed so
// lookups by recording id stay cheap while iteration order stays stable.
package manifest
