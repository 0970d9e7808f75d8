// Package pool provides object pooling to reduce GC pressure
package pool

import (
	"strings"
	"sync"
)

// BuilderPool pools string builders for text rendering
var BuilderPool = sync.Pool{
	New: func() interface{} {
		return new(strings.Builder)
	},
}

// IDSetPool pools map[int64]bool sets used to track visited rows
var IDSetPool = sync.Pool{
	New: func() interface{} {
		return make(map[int64]bool, 64)
	},
}

// maxBuilderCap keeps very large renders from pinning memory in the pool
const maxBuilderCap = 1 << 20

// GetBuilder gets an empty builder from pool
func GetBuilder() *strings.Builder {
	b := BuilderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to pool
func PutBuilder(b *strings.Builder) {
	if b.Cap() > maxBuilderCap {
		return
	}
	BuilderPool.Put(b)
}

// GetIDSet gets an empty id set from pool
func GetIDSet() map[int64]bool {
	m := IDSetPool.Get().(map[int64]bool)
	clear(m)
	return m
}

// PutIDSet returns an id set to pool
func PutIDSet(m map[int64]bool) {
	IDSetPool.Put(m)
}
