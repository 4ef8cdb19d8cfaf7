package sdk

import (
	"context"
)

// ObjectStore is the object surface shared by Service and UserService.
type ObjectStore interface {
	Load(ctx context.Context, opts *RequestOptions, keys ...string) (*LoadResponse, error)
	Search(ctx context.Context, query string, opts *RequestOptions) (*LoadResponse, error)
	Save(ctx context.Context, objs ...*Object) (*ObjectModificationResponse, error)
	Delete(ctx context.Context, keys ...string) (*ObjectModificationResponse, error)
	Types() *TypeRegistry
}

var (
	_ ObjectStore = (*Service)(nil)
	_ ObjectStore = (*UserService)(nil)
)

// Typed provides a type-safe view of one object class. Values are
// converted with the codec registered for T in the store's TypeRegistry,
// which removes manual Object handling from application code.
//
// Example:
//
//	type Player struct {
//	    Name  string `json:"name"`
//	    Level int    `json:"level"`
//	}
//
//	types := sdk.NewTypeRegistry()
//	_ = sdk.RegisterJSON[Player](types, "Player")
//	svc, _ := sdk.NewService(config.WithTypes(types))
//
//	players := sdk.NewTyped[Player](svc, "Player")
//	_, err := players.Save(ctx, "player-1", Player{Name: "Alice", Level: 7})
//
//	loaded, _, err := players.Load(ctx, "player-1")
//	fmt.Println(loaded["player-1"].Level) // 7
type Typed[T any] struct {
	store ObjectStore
	class string
}

// NewTyped creates a typed view of class on store.
func NewTyped[T any](store ObjectStore, class string) *Typed[T] {
	return &Typed[T]{store: store, class: class}
}

// Class returns the object class of this view.
func (t *Typed[T]) Class() string {
	return t.class
}

// Save encodes value and stores it under key.
func (t *Typed[T]) Save(ctx context.Context, key string, value T) (*ObjectModificationResponse, error) {
	obj, err := t.store.Types().EncodeObject(key, value)
	if err != nil {
		return nil, err
	}
	return t.store.Save(ctx, obj)
}

// SaveAll encodes and stores every entry of values in one request.
func (t *Typed[T]) SaveAll(ctx context.Context, values map[string]T) (*ObjectModificationResponse, error) {
	objs := make([]*Object, 0, len(values))
	for key, v := range values {
		obj, err := t.store.Types().EncodeObject(key, v)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return t.store.Save(ctx, objs...)
}

// Load fetches keys and decodes the objects of this class. Objects of
// another class are skipped; they stay reachable through the response.
func (t *Typed[T]) Load(ctx context.Context, keys ...string) (map[string]T, *LoadResponse, error) {
	resp, err := t.store.Load(ctx, nil, keys...)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[string]T, len(resp.successKeys))
	for _, obj := range resp.Objects() {
		if obj.Class() != t.class {
			continue
		}
		v, err := DecodeAs[T](t.store.Types(), obj)
		if err != nil {
			return nil, resp, err
		}
		out[obj.Key()] = v
	}
	return out, resp, nil
}

// Search runs query and decodes matching objects of this class in
// response order.
func (t *Typed[T]) Search(ctx context.Context, query string, opts *RequestOptions) ([]T, *LoadResponse, error) {
	resp, err := t.store.Search(ctx, query, opts)
	if err != nil {
		return nil, nil, err
	}
	var out []T
	for _, obj := range resp.Objects() {
		if obj.Class() != t.class {
			continue
		}
		v, err := DecodeAs[T](t.store.Types(), obj)
		if err != nil {
			return nil, resp, err
		}
		out = append(out, v)
	}
	return out, resp, nil
}

// Delete removes keys.
func (t *Typed[T]) Delete(ctx context.Context, keys ...string) (*ObjectModificationResponse, error) {
	return t.store.Delete(ctx, keys...)
}
