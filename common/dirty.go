package common

import "sync/atomic"

// DirtyFlag records whether an observed object has changed since the flag was last cleared.
// It is embedded by transform-carrying types (camera, light) so that observers can detect
// changes without snapshotting and diffing the full transform.
//
// The zero value is clean.
type DirtyFlag struct {
	changed atomic.Bool
}

// MarkChanged raises the flag.
func (d *DirtyFlag) MarkChanged() {
	d.changed.Store(true)
}

// Changed reports whether the flag has been raised since the last ClearChanged.
//
// Returns:
//   - bool: true if a change was recorded
func (d *DirtyFlag) Changed() bool {
	return d.changed.Load()
}

// ClearChanged lowers the flag.
func (d *DirtyFlag) ClearChanged() {
	d.changed.Store(false)
}
