// Package snapshot captures a filesystem tree into a store that can be
// searched later without touching the disk.
package snapshot

import (
	"io/fs"
	"time"
)

// Entry is one captured filesystem object. It is the subject type the find
// predicates evaluate.
type Entry struct {
	// ID is the entry's position in path order, starting at 1.
	ID int64
	// Path is the root as given to Scan joined with the relative path.
	Path string
	// Name is the final path element.
	Name string
	// Dir is the parent of Path.
	Dir string
	// Size is the size in bytes reported by lstat (stat when following links).
	Size int64
	// Mode holds the type and permission bits.
	Mode fs.FileMode
	// ModTime is the last modification time.
	ModTime time.Time
	// IsDir reports whether the entry is a directory.
	IsDir bool
	// Depth is 0 for the root and grows by one per directory level.
	Depth int
}

// TypeChar returns the find-style type letter: f, d, l, p, s, c, b or ?.
func (e *Entry) TypeChar() byte {
	switch t := e.Mode.Type(); {
	case e.IsDir || t&fs.ModeDir != 0:
		return 'd'
	case t == 0:
		return 'f'
	case t&fs.ModeSymlink != 0:
		return 'l'
	case t&fs.ModeNamedPipe != 0:
		return 'p'
	case t&fs.ModeSocket != 0:
		return 's'
	case t&fs.ModeCharDevice != 0:
		return 'c'
	case t&fs.ModeDevice != 0:
		return 'b'
	}
	return '?'
}
