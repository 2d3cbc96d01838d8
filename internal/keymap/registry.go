package keymap

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Registry holds the active keymap in memory. Readers never see a partially
// replaced keymap.
type Registry struct {
	mu         sync.RWMutex
	bindings   []Binding
	byButton   map[string]Binding
	byCode     map[int]Binding
	source     string
	lastReload time.Time
}

// NewRegistry creates a registry preloaded with the default keymap
func NewRegistry() *Registry {
	r := &Registry{}
	r.Update(Default(), "default")
	return r
}

// Update replaces all bindings
func (r *Registry) Update(bindings []Binding, source string) {
	byButton := make(map[string]Binding, len(bindings))
	byCode := make(map[int]Binding, len(bindings))
	for _, b := range bindings {
		byButton[strings.ToLower(b.Button)] = b
		if b.Code != 0 {
			byCode[b.Code] = b
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings = append([]Binding(nil), bindings...)
	r.byButton = byButton
	r.byCode = byCode
	r.source = source
	r.lastReload = time.Now()
}

// Lookup resolves a button name, a decimal code or a 0x-prefixed hex code
func (r *Registry) Lookup(key string) (Binding, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return Binding{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.byButton[key]; ok {
		return b, true
	}

	code, err := strconv.ParseInt(key, 0, 64)
	if err != nil || code == 0 {
		return Binding{}, false
	}
	b, ok := r.byCode[int(code)]
	return b, ok
}

// All returns the bindings in file order
func (r *Registry) All() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Binding(nil), r.bindings...)
}

// Count returns the number of bindings
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings)
}

// Source returns where the active keymap came from
func (r *Registry) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.source
}

// LastReload returns the timestamp of the last update
func (r *Registry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastReload
}
