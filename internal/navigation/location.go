package navigation

import "sync"

// Location is the browser's address as the reconciler sees it.
type Location interface {
	// Hash returns the current fragment, "#" included.
	Hash() string

	// ReplaceHash overwrites the fragment without adding a history entry.
	// It must not raise a hashchange back into the reconciler.
	ReplaceHash(fragment string)
}

// MemoryLocation is an in-process Location. It records every replacement.
//
// Thread Safety: All methods are safe for concurrent use.
type MemoryLocation struct {
	mu           sync.Mutex
	hash         string
	replacements []string
}

// NewMemoryLocation creates a location showing fragment.
func NewMemoryLocation(fragment string) *MemoryLocation {
	return &MemoryLocation{hash: fragment}
}

// Hash implements Location.
func (l *MemoryLocation) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// ReplaceHash implements Location.
func (l *MemoryLocation) ReplaceHash(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hash = fragment
	l.replacements = append(l.replacements, fragment)
}

// Navigate sets the fragment as a user typing it would, without recording
// a replacement. The caller is responsible for delivering the hashchange.
func (l *MemoryLocation) Navigate(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hash = fragment
}

// Replacements returns the fragments written through ReplaceHash, oldest first.
func (l *MemoryLocation) Replacements() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.replacements...)
}
