package stepper

import (
	"reflect"
	"sync"
)

// resources holds at most one value per Go type.
type resources struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

func newResources() *resources {
	return &resources{values: make(map[reflect.Type]any)}
}

// InsertResource stores value as the app's resource of type T, replacing any
// previous one.
func InsertResource[T any](app *App, value *T) {
	app.resources.mu.Lock()
	defer app.resources.mu.Unlock()
	app.resources.values[reflect.TypeFor[T]()] = value
}

// GetResource returns the app's resource of type T.
func GetResource[T any](app *App) (*T, bool) {
	app.resources.mu.RLock()
	defer app.resources.mu.RUnlock()
	v, ok := app.resources.values[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// InitResource returns the resource of type T, inserting init() first if it
// is missing. The second result reports whether the value was inserted.
func InitResource[T any](app *App, init func() *T) (*T, bool) {
	app.resources.mu.Lock()
	defer app.resources.mu.Unlock()
	key := reflect.TypeFor[T]()
	if v, ok := app.resources.values[key]; ok {
		return v.(*T), false
	}
	v := init()
	app.resources.values[key] = v
	return v, true
}

// RemoveResource deletes the resource of type T and reports whether it existed.
func RemoveResource[T any](app *App) bool {
	app.resources.mu.Lock()
	defer app.resources.mu.Unlock()
	key := reflect.TypeFor[T]()
	_, ok := app.resources.values[key]
	delete(app.resources.values, key)
	return ok
}

// TypeName returns a readable name for T, used to label tag types in logs,
// events and metrics.
func TypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
