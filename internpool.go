package ubjson

import "github.com/puzpuzpuz/xsync/v3"

// internPool deduplicates object-key strings decoded within a single call to
// Decode/DecodeFromBytes/DecodeFromStream, backing DecodeConfig.InternObjectKeys
// (§8's key-interning property: repeated keys across sibling and ancestor
// objects in one document share a single backing string). It is built on the
// teacher's xsync.Map, the same lock-free concurrent map fixed.go uses to
// cache reflection metadata; a decode never shares one across goroutines, but
// reusing the library that already anchors the module's map-heavy code paths
// keeps the interner's behavior (and its performance characteristics under
// contention, should a caller intern across concurrent decodes some day)
// consistent with the rest of the codebase.
type internPool struct {
	seen *xsync.MapOf[string, string]
}

func newInternPool() *internPool {
	return &internPool{seen: xsync.NewMapOf[string, string]()}
}

// intern returns the pool's canonical copy of s, storing s the first time it
// is seen.
func (p *internPool) intern(s string) string {
	if v, ok := p.seen.Load(s); ok {
		return v
	}
	actual, _ := p.seen.LoadOrStore(s, s)
	return actual
}
