package heap

import (
	"errors"
	"fmt"

	"github.com/tidwall/btree"
)

// ErrNoObject reports a lookup of an id that was never allocated.
var ErrNoObject = errors.New("no such object")

// Heap maps object ids to objects. Ids are allocated in increasing order
// starting at 0 and never reused.
type Heap struct {
	objects *btree.Map[int64, *Object]
	next    int64
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{objects: new(btree.Map[int64, *Object])}
}

// Allocate stores o under a fresh id and returns the id.
func (h *Heap) Allocate(o *Object) int64 {
	id := h.next
	h.next++
	h.objects.Set(id, o.withID(id))
	return id
}

// Lookup returns the object with the given id.
func (h *Heap) Lookup(id int64) (*Object, bool) {
	return h.objects.Get(id)
}

// Store replaces the object with the given id.
func (h *Heap) Store(id int64, o *Object) error {
	if _, ok := h.objects.Get(id); !ok {
		return fmt.Errorf("%w: %d", ErrNoObject, id)
	}
	h.objects.Set(id, o.withID(id))
	return nil
}

// Scan calls fn for every object in ascending id order until fn returns
// false.
func (h *Heap) Scan(fn func(id int64, o *Object) bool) {
	h.objects.Scan(fn)
}

// Len returns the number of objects.
func (h *Heap) Len() int { return h.objects.Len() }

// NextID returns the id the next allocation will get.
func (h *Heap) NextID() int64 { return h.next }

// Clone returns a snapshot of h. Later changes to either heap are not
// visible in the other.
func (h *Heap) Clone() *Heap {
	return &Heap{objects: h.objects.Copy(), next: h.next}
}

// StaticArea maps class names to their static storage.
type StaticArea struct {
	klasses *btree.Map[string, *Object]
}

// NewStaticArea returns an empty static area.
func NewStaticArea() *StaticArea {
	return &StaticArea{klasses: new(btree.Map[string, *Object])}
}

// Get returns the static storage of class.
func (a *StaticArea) Get(class string) (*Object, bool) {
	return a.klasses.Get(class)
}

// Set stores the static storage of class.
func (a *StaticArea) Set(class string, k *Object) {
	a.klasses.Set(class, k)
}

// Scan calls fn for every class in name order until fn returns false.
func (a *StaticArea) Scan(fn func(class string, k *Object) bool) {
	a.klasses.Scan(fn)
}

// Len returns the number of initialized classes.
func (a *StaticArea) Len() int { return a.klasses.Len() }

// Clone returns a snapshot of a.
func (a *StaticArea) Clone() *StaticArea {
	return &StaticArea{klasses: a.klasses.Copy()}
}
