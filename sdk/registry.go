package sdk

import (
	"encoding/json"
	"reflect"
	"sort"
	"sync"
)

// Codec converts one application type to and from objects of a class.
type Codec struct {
	Class  string
	Encode func(key string, v any) (*Object, error)
	Decode func(*Object) (any, error)

	goType reflect.Type
}

// TypeRegistry maps object classes to codecs. There is no global
// registry; install one with Config.WithTypes.
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
//	config := sdk.DefaultConfig().WithTypes(types)
type TypeRegistry struct {
	mu      sync.RWMutex
	byClass map[string]*Codec
	byType  map[reflect.Type]*Codec
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byClass: make(map[string]*Codec),
		byType:  make(map[reflect.Type]*Codec),
	}
}

// RegisterCodec binds T to class with explicit conversion functions. The
// class tag is stamped on encoded objects.
func RegisterCodec[T any](r *TypeRegistry, class string, encode func(T) (map[string]any, error), decode func(*Object) (T, error)) error {
	if class == "" {
		return validationError(ErrInvalidOption, "codec class is required")
	}
	if encode == nil || decode == nil {
		return validationError(ErrInvalidOption, "codec %q needs both encode and decode", class)
	}
	codec := &Codec{
		Class:  class,
		goType: reflect.TypeOf((*T)(nil)).Elem(),
		Encode: func(key string, v any) (*Object, error) {
			typed, ok := v.(T)
			if !ok {
				return nil, conversionError(class, "cannot encode %T", v)
			}
			contents, err := encode(typed)
			if err != nil {
				return nil, &ConversionError{Source: class, Err: err}
			}
			obj, err := NewObject(key, contents)
			if err != nil {
				return nil, err
			}
			obj.SetClass(class)
			return obj, nil
		},
		Decode: func(obj *Object) (any, error) {
			v, err := decode(obj)
			if err != nil {
				return nil, &ConversionError{Source: class, Err: err}
			}
			return v, nil
		},
	}
	return r.add(codec)
}

// RegisterJSON binds T to class using its encoding/json representation.
func RegisterJSON[T any](r *TypeRegistry, class string) error {
	encode := func(v T) (map[string]any, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		delete(m, ClassKey)
		return m, nil
	}
	decode := func(obj *Object) (T, error) {
		var v T
		err := json.Unmarshal([]byte(obj.JSON()), &v)
		return v, err
	}
	return RegisterCodec(r, class, encode, decode)
}

func (r *TypeRegistry) add(c *Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byClass[c.Class]; dup {
		return validationError(ErrInvalidOption, "class %q already registered", c.Class)
	}
	r.byClass[c.Class] = c
	r.byType[c.goType] = c
	return nil
}

// Lookup returns the codec for class.
func (r *TypeRegistry) Lookup(class string) (*Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byClass[class]
	return c, ok
}

// Classes lists the registered classes in sorted order.
func (r *TypeRegistry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byClass))
	for c := range r.byClass {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Decode converts obj using the codec named by its __class__.
func (r *TypeRegistry) Decode(obj *Object) (any, error) {
	class := obj.Class()
	if class == "" {
		return nil, conversionError(obj.Key(), "object has no %s", ClassKey)
	}
	c, ok := r.Lookup(class)
	if !ok {
		return nil, conversionError(obj.Key(), "no codec for class %q", class)
	}
	return c.Decode(obj)
}

// EncodeObject converts v with the codec registered for its type.
func (r *TypeRegistry) EncodeObject(key string, v any) (*Object, error) {
	r.mu.RLock()
	c, ok := r.byType[reflect.TypeOf(v)]
	r.mu.RUnlock()
	if !ok {
		return nil, conversionError(key, "no codec for %T", v)
	}
	return c.Encode(key, v)
}

// DecodeAs converts obj into T.
func DecodeAs[T any](r *TypeRegistry, obj *Object) (T, error) {
	var zero T
	v, err := r.Decode(obj)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, conversionError(obj.Key(), "class %q decodes to %T, not %T", obj.Class(), v, zero)
	}
	return typed, nil
}

// Decode converts every loaded object through r, keyed by object key.
// Objects without a registered class are reported as conversion errors.
func (r *LoadResponse) Decode(types *TypeRegistry) (map[string]any, error) {
	out := make(map[string]any, len(r.successKeys))
	for _, obj := range r.Objects() {
		v, err := types.Decode(obj)
		if err != nil {
			return nil, err
		}
		out[obj.Key()] = v
	}
	return out, nil
}
