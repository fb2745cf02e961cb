package chat

import (
	"sort"
	"sync"
)

// Document is an in-memory set of element ids standing in for the rendered
// UI. The zero value is empty and ready to use.
type Document struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewDocument creates a document containing ids.
func NewDocument(ids ...string) *Document {
	d := &Document{}
	d.Add(ids...)
	return d
}

// Add marks ids as present.
func (d *Document) Add(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ids == nil {
		d.ids = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		d.ids[id] = struct{}{}
	}
}

// Remove marks ids as absent.
func (d *Document) Remove(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.ids, id)
	}
}

func (d *Document) HasElement(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok
}

// IDs returns the present ids in sorted order.
func (d *Document) IDs() []string {
	d.mu.RLock()
	ids := make([]string, 0, len(d.ids))
	for id := range d.ids {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
