// Package cache stores prepared manifests under string keys and decides
// whether previously committed results can be reused.
//
// Two backends exist: a directory of files committed by atomic rename, and a
// SQLite blob table. Both guarantee that a key is either fully present or
// absent; a reader never observes a half-written entry.
package cache
