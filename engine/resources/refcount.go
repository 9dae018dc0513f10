package resources

import "github.com/spaghettifunk/umbra/engine/core"

// RefCount is embedded by every shared resource. Counts are plain ints: all
// resources are owned by the render thread.
type RefCount struct {
	count int
}

// NewRefCount starts owned by the creator.
func NewRefCount() RefCount {
	return RefCount{count: 1}
}

func (r *RefCount) Retain() {
	r.count++
}

func (r *RefCount) RetainCount() int {
	return r.count
}

// Drop gives up one reference and reports whether it was the last one.
func (r *RefCount) Drop() bool {
	if r.count <= 0 {
		core.LogWarn("attempted to release a resource that was already freed")
		return false
	}
	r.count--
	return r.count == 0
}
