package sdk

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Reserved content keys.
const (
	ClassKey = "__class__"
	IDKey    = "__id__"
	TypeKey  = "__type__"

	geoPointType = "geopoint"
	datetimeType = "datetime"
)

// Object is a schemaless domain object: a single top-level key plus ordered
// contents. Nested *Object values serialize as their own JSON. An Object is
// safe for concurrent use.
//
// Example:
//
//	player, _ := sdk.NewObject("player-1", map[string]any{"name": "Bob", "level": 3})
//	_ = player.SetGeoPoint("home", sdk.NewGeoPoint(10.75, 59.91))
//	fmt.Println(player.KeyedJSON())
//	// "player-1":{"level":3,"name":"Bob","home":{"__type__":"geopoint","longitude":10.75,"latitude":59.91}}
type Object struct {
	mu          sync.RWMutex
	key         string
	placeholder bool
	keys        []string
	values      map[string]any
	store       StoreIdentifier
}

func newEmptyObject(key string) *Object {
	o := &Object{values: make(map[string]any)}
	if key == "" {
		o.key = uuid.NewString()
		o.placeholder = true
	} else {
		o.key = key
	}
	return o
}

// NewObject builds an object from a key and contents. Map keys are inserted
// in sorted order. An empty key gets a generated placeholder.
func NewObject(key string, contents map[string]any) (*Object, error) {
	o := newEmptyObject(key)
	names := make([]string, 0, len(contents))
	for k := range contents {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := o.Add(k, contents[k]); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewKeyedObject builds an object from a document holding exactly one
// top-level key whose value is the contents.
func NewKeyedObject(doc map[string]any) (*Object, error) {
	if len(doc) != 1 {
		return nil, conversionError("keyed object", "expected exactly one top-level key, got %d", len(doc))
	}
	for key, value := range doc {
		switch v := value.(type) {
		case map[string]any:
			return NewObject(key, v)
		case *Object:
			clone := v.Clone()
			clone.mu.Lock()
			clone.key, clone.placeholder = key, false
			clone.mu.Unlock()
			return clone, nil
		default:
			return nil, conversionError("keyed object", "value of %q is not an object", key)
		}
	}
	return nil, nil
}

// NewKeyedObjectFromJSON parses `{"key": {...}}`.
func NewKeyedObjectFromJSON(raw string) (*Object, error) {
	if !gjson.Valid(raw) {
		return nil, conversionError("keyed object", "malformed JSON")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, conversionError("keyed object", "top level is not an object")
	}
	var (
		count int
		key   string
		body  gjson.Result
	)
	doc.ForEach(func(k, v gjson.Result) bool {
		count++
		key, body = k.String(), v
		return true
	})
	if count != 1 {
		return nil, conversionError("keyed object", "expected exactly one top-level key, got %d", count)
	}
	if !body.IsObject() {
		return nil, conversionError("keyed object", "value of %q is not an object", key)
	}
	return objectFromResult(key, body), nil
}

// NewObjectFromJSON parses unkeyed contents `{...}`. The key is taken from
// __id__ when present, otherwise a placeholder is generated.
func NewObjectFromJSON(raw string) (*Object, error) {
	if !gjson.Valid(raw) {
		return nil, conversionError("object", "malformed JSON")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, conversionError("object", "top level is not an object")
	}
	return objectFromResult(doc.Get(IDKey).String(), doc), nil
}

func objectFromResult(key string, r gjson.Result) *Object {
	o := newEmptyObject(key)
	r.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if _, dup := o.values[name]; !dup {
			o.keys = append(o.keys, name)
		}
		o.values[name] = valueFromResult(name, v)
		return true
	})
	return o
}

func valueFromResult(key string, v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	}
	if v.IsObject() {
		return objectFromResult(key, v)
	}
	var out []any
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, valueFromResult("", item))
		return true
	})
	if out == nil {
		out = []any{}
	}
	return out
}

// normalizeValue converts maps, points and times to nested objects and
// clones nested objects through their serialized form.
func normalizeValue(key string, value any) (any, error) {
	switch v := value.(type) {
	case *Object:
		if v == nil {
			return nil, nil
		}
		clone, err := NewObjectFromJSON(v.JSON())
		if err != nil {
			return nil, err
		}
		clone.key, clone.placeholder = v.Key(), v.HasPlaceholderKey()
		return clone, nil
	case map[string]any:
		return NewObject(key, v)
	case GeoPoint:
		return geoPointObject(key, v), nil
	case time.Time:
		return datetimeObject(key, v), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			n, err := normalizeValue("", item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	if _, err := json.Marshal(value); err != nil {
		return nil, &ConversionError{Source: "value of " + strconv.Quote(key), Err: err}
	}
	return value, nil
}

func geoPointObject(key string, p GeoPoint) *Object {
	o := newEmptyObject(key)
	o.set(TypeKey, geoPointType)
	o.set("longitude", p.Longitude)
	o.set("latitude", p.Latitude)
	return o
}

func datetimeObject(key string, t time.Time) *Object {
	o := newEmptyObject(key)
	o.set(TypeKey, datetimeType)
	o.set("timestamp", t.UnixMilli())
	return o
}

// set stores a value without normalization. Callers hold the lock or own o.
func (o *Object) set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Add stores value under key, replacing any previous value in place.
// Nested objects are stored as copies.
func (o *Object) Add(key string, value any) error {
	if key == "" {
		return validationError(ErrInvalidOption, "object key cannot be empty")
	}
	v, err := normalizeValue(key, value)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[string]any)
	}
	o.set(key, v)
	return nil
}

// Remove deletes key and reports whether it was present.
func (o *Object) Remove(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Key returns the top-level key.
func (o *Object) Key() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.key
}

// HasPlaceholderKey reports whether the key was generated locally.
func (o *Object) HasPlaceholderKey() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.placeholder
}

// Keys returns content keys in insertion order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.keys...)
}

// Len returns the number of content keys.
func (o *Object) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.keys)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.values[key]
	return ok
}

// Get returns the raw value under key.
func (o *Object) Get(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// GetString returns a string value.
func (o *Object) GetString(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetFloat returns a numeric value as float64.
func (o *Object) GetFloat(key string) (float64, bool) {
	v, ok := o.Get(key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// GetInt returns a numeric value as int64. Fractional values are truncated.
func (o *Object) GetInt(key string) (int64, bool) {
	v, ok := o.Get(key)
	if !ok {
		return 0, false
	}
	if n, isNum := v.(json.Number); isNum {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	return int64(f), ok
}

// GetBool returns a boolean value.
func (o *Object) GetBool(key string) (bool, bool) {
	v, ok := o.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetObject returns a nested object.
func (o *Object) GetObject(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	n, ok := v.(*Object)
	return n, ok && n != nil
}

// GetTime reads a datetime stored by SetTime. Timestamps are epoch
// milliseconds; RFC 3339 strings are accepted too.
func (o *Object) GetTime(key string) (time.Time, bool) {
	n, ok := o.GetObject(key)
	if !ok {
		return time.Time{}, false
	}
	if typ, _ := n.GetString(TypeKey); typ != datetimeType {
		return time.Time{}, false
	}
	if s, ok := n.GetString("timestamp"); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		return t, err == nil
	}
	ms, ok := n.GetInt("timestamp")
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// SetTime stores t as a datetime object.
func (o *Object) SetTime(key string, t time.Time) error {
	return o.Add(key, t)
}

// GetGeoPoint reads a nested point stored under key.
func (o *Object) GetGeoPoint(key string) (GeoPoint, bool) {
	n, ok := o.GetObject(key)
	if !ok {
		return GeoPoint{}, false
	}
	return n.GeoPoint()
}

// SetGeoPoint stores p as a geopoint object.
func (o *Object) SetGeoPoint(key string, p GeoPoint) error {
	return o.Add(key, p)
}

// GeoPoint reads this object's own coordinates. Each coordinate is looked up
// under its aliases in order and the first numeric value wins.
func (o *Object) GeoPoint() (GeoPoint, bool) {
	lat, latOK := o.firstNumber(latitudeAliases)
	lon, lonOK := o.firstNumber(longitudeAliases)
	if !latOK || !lonOK {
		return GeoPoint{}, false
	}
	return GeoPoint{Longitude: lon, Latitude: lat}, true
}

func (o *Object) firstNumber(aliases []string) (float64, bool) {
	for _, alias := range aliases {
		if f, ok := o.GetFloat(alias); ok {
			return f, true
		}
	}
	return 0, false
}

// Class returns the __class__ tag.
func (o *Object) Class() string {
	s, _ := o.GetString(ClassKey)
	return s
}

// SetClass sets the __class__ tag used by TypeRegistry.
func (o *Object) SetClass(class string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[string]any)
	}
	o.set(ClassKey, class)
}

// StoreIdentifier returns the object's store, unset until assigned.
func (o *Object) StoreIdentifier() StoreIdentifier {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store
}

// SetStoreIdentifier assigns the store once. Assigning the same identifier
// again is a no-op; assigning a different one fails.
func (o *Object) SetStoreIdentifier(id StoreIdentifier) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.store.IsSet() {
		o.store = id
		return nil
	}
	if o.store.Equal(id) {
		return nil
	}
	return validationError(ErrStoreIdentifierSet, "object %q already belongs to the %s store", o.key, o.store.Level())
}

// Clone returns a deep copy with the same key. The store identifier is not
// copied.
func (o *Object) Clone() *Object {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c := &Object{
		key:         o.key,
		placeholder: o.placeholder,
		keys:        append([]string(nil), o.keys...),
		values:      make(map[string]any, len(o.values)),
	}
	for k, v := range o.values {
		c.values[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON renders the contents in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, &ConversionError{Source: "value of " + strconv.Quote(k), Err: err}
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the contents with the decoded object. The key is
// taken from __id__ or generated.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := NewObjectFromJSON(string(data))
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.key, o.placeholder = parsed.key, parsed.placeholder
	o.keys, o.values = parsed.keys, parsed.values
	return nil
}

// JSON renders the contents. Values were validated on Add, so rendering
// cannot fail.
func (o *Object) JSON() string {
	b, err := o.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

// KeyedJSON renders `"key":{...}` for embedding in an envelope.
func (o *Object) KeyedJSON() string {
	key, _ := json.Marshal(o.Key())
	return string(key) + ":" + o.JSON()
}

// String implements fmt.Stringer.
func (o *Object) String() string {
	return "{" + o.KeyedJSON() + "}"
}

// EncodeObjects renders objects as one keyed JSON document, the request body
// for saves and updates.
func EncodeObjects(objs ...*Object) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(obj.KeyedJSON())
		n++
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
