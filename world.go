package stepper

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Entity identifies a thing in the World. The zero value is NoEntity.
type Entity uint64

// NoEntity is the target of untargeted triggers.
const NoEntity Entity = 0

// World stores entities and their typed components.
// It is safe for concurrent use; component values are shared pointers, so
// component types guard their own fields when systems touch them in parallel.
type World struct {
	mu         sync.RWMutex
	next       Entity
	alive      map[Entity]struct{}
	components map[reflect.Type]map[Entity]any
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		alive:      make(map[Entity]struct{}),
		components: make(map[reflect.Type]map[Entity]any),
	}
}

// Spawn creates a new entity.
func (w *World) Spawn() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	w.alive[w.next] = struct{}{}
	return w.next
}

// Despawn removes an entity and all of its components.
func (w *World) Despawn(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.alive[e]; !ok {
		return false
	}
	delete(w.alive, e)
	for _, store := range w.components {
		delete(store, e)
	}
	return true
}

// Alive reports whether e exists.
func (w *World) Alive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.alive[e]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.alive)
}

// Insert attaches component c to e, replacing a previous component of the
// same type.
func Insert[C any](w *World, e Entity, c *C) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.alive[e]; !ok {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, e)
	}
	key := reflect.TypeFor[C]()
	store, ok := w.components[key]
	if !ok {
		store = make(map[Entity]any)
		w.components[key] = store
	}
	store[e] = c
	return nil
}

// Get returns e's component of type C.
func Get[C any](w *World, e Entity) (*C, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.components[reflect.TypeFor[C]()][e]
	if !ok {
		return nil, false
	}
	return v.(*C), true
}

// Remove detaches e's component of type C.
func Remove[C any](w *World, e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	store := w.components[reflect.TypeFor[C]()]
	if _, ok := store[e]; !ok {
		return false
	}
	delete(store, e)
	return true
}

// Each calls fn for every entity carrying a C, in ascending entity order.
// fn runs without the world lock held, so it may insert or despawn.
func Each[C any](w *World, fn func(Entity, *C)) {
	w.mu.RLock()
	store := w.components[reflect.TypeFor[C]()]
	entities := make([]Entity, 0, len(store))
	values := make(map[Entity]*C, len(store))
	for e, v := range store {
		entities = append(entities, e)
		values[e] = v.(*C)
	}
	w.mu.RUnlock()

	slices.Sort(entities)
	for _, e := range entities {
		fn(e, values[e])
	}
}
