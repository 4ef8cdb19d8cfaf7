package sdk

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ResponseValue is the per-key outcome of a save, update or delete.
type ResponseValue int

const (
	Missing ResponseValue = iota
	Created
	Updated
	Deleted
)

func (v ResponseValue) String() string {
	switch v {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "missing"
	}
}

// ParseResponseValue maps a success-map string to its outcome. Matching is
// case-insensitive and anything unrecognized is Missing.
func ParseResponseValue(s string) ResponseValue {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created":
		return Created
	case "updated":
		return Updated
	case "deleted":
		return Deleted
	default:
		return Missing
	}
}

// ObjectModificationResponse classifies each key of a save, update or
// delete.
type ObjectModificationResponse struct {
	*Envelope
}

// NewObjectModificationResponse parses resp.
func NewObjectModificationResponse(resp *Response) *ObjectModificationResponse {
	return &ObjectModificationResponse{Envelope: NewEnvelope(resp)}
}

// KeyResponse returns the outcome for key, Missing when absent.
func (r *ObjectModificationResponse) KeyResponse(key string) ResponseValue {
	s, ok := r.SuccessString(key)
	if !ok {
		return Missing
	}
	return ParseResponseValue(s)
}

// WasCreated reports whether key was created.
func (r *ObjectModificationResponse) WasCreated(key string) bool {
	return r.KeyResponse(key) == Created
}

// WasUpdated reports whether key was updated.
func (r *ObjectModificationResponse) WasUpdated(key string) bool {
	return r.KeyResponse(key) == Updated
}

// WasDeleted reports whether key was deleted.
func (r *ObjectModificationResponse) WasDeleted(key string) bool {
	return r.KeyResponse(key) == Deleted
}

// WasModified reports any outcome other than Missing.
func (r *ObjectModificationResponse) WasModified(key string) bool {
	return r.KeyResponse(key) != Missing
}

func (r *ObjectModificationResponse) keysWith(v ResponseValue) []string {
	var keys []string
	for _, k := range r.successKeys {
		if r.KeyResponse(k) == v {
			keys = append(keys, k)
		}
	}
	return keys
}

// CreatedKeys lists keys that were created.
func (r *ObjectModificationResponse) CreatedKeys() []string { return r.keysWith(Created) }

// UpdatedKeys lists keys that were updated.
func (r *ObjectModificationResponse) UpdatedKeys() []string { return r.keysWith(Updated) }

// DeletedKeys lists keys that were deleted.
func (r *ObjectModificationResponse) DeletedKeys() []string { return r.keysWith(Deleted) }

// CreationResponse describes a newly created entity (an object or a user).
type CreationResponse struct {
	*Envelope
}

// NewCreationResponse parses resp.
func NewCreationResponse(resp *Response) *CreationResponse {
	return &CreationResponse{Envelope: NewEnvelope(resp)}
}

// ObjectID returns the generated identifier: a top-level __id__, else the
// first success key.
func (r *CreationResponse) ObjectID() string {
	if id := r.field(IDKey); id.Exists() {
		return id.String()
	}
	if len(r.successKeys) > 0 {
		return r.successKeys[0]
	}
	return ""
}

// TypeTag returns the inferred type: a top-level __type__, else the
// __class__ of the first success entry.
func (r *CreationResponse) TypeTag() string {
	if t := r.field(TypeKey); t.Exists() {
		return t.String()
	}
	if len(r.successKeys) > 0 {
		raw := r.success[r.successKeys[0]]
		if c := gjson.GetBytes(raw, ClassKey); c.Exists() {
			return c.String()
		}
	}
	return ""
}

// LoginResponse carries the session created by a login.
type LoginResponse struct {
	*Envelope
}

// NewLoginResponse parses resp.
func NewLoginResponse(resp *Response) *LoginResponse {
	return &LoginResponse{Envelope: NewEnvelope(resp)}
}

// SessionToken returns the session, or FailedSession unless the call
// succeeded and carried a token.
func (r *LoginResponse) SessionToken() SessionToken {
	if !r.WasSuccess() {
		return FailedSession
	}
	token := r.lookup("session_token").String()
	if token == "" {
		return FailedSession
	}
	return NewSessionToken(token, parseExpiry(r.lookup("expires")))
}

// UserID returns the account identifier when the backend sends one.
func (r *LoginResponse) UserID() string {
	return r.lookup("user_id").String()
}

// lookup prefers the success map, then the top level.
func (r *LoginResponse) lookup(name string) gjson.Result {
	if raw, ok := r.success[name]; ok {
		return gjson.ParseBytes(raw)
	}
	return r.field(name)
}

// parseExpiry accepts RFC 1123, RFC 3339 or epoch milliseconds.
func parseExpiry(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC()
	case gjson.String:
		for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC3339Nano} {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// FileResponse carries downloaded file content. JSON bodies are parsed as an
// envelope so failed downloads expose their errors; Bytes always returns the
// raw body of a successful download.
type FileResponse struct {
	*Envelope
	key string
}

// NewFileResponse wraps the download of key.
func NewFileResponse(key string, resp *Response) *FileResponse {
	return &FileResponse{Envelope: NewEnvelope(resp), key: key}
}

// Key returns the file key.
func (r *FileResponse) Key() string {
	return r.key
}

// Bytes returns the file content, nil when the download failed.
func (r *FileResponse) Bytes() []byte {
	if !r.WasSuccess() {
		return nil
	}
	return r.Body()
}

// ContentType returns the declared MIME type.
func (r *FileResponse) ContentType() string {
	return r.resp.ContentType()
}

// LoadResponse returns objects from a load or search.
type LoadResponse struct {
	*Envelope
}

// NewLoadResponse parses resp.
func NewLoadResponse(resp *Response) *LoadResponse {
	return &LoadResponse{Envelope: NewEnvelope(resp)}
}

// Objects returns the success entries that are JSON objects, in response
// order.
func (r *LoadResponse) Objects() []*Object {
	objs := make([]*Object, 0, len(r.successKeys))
	for _, k := range r.successKeys {
		if obj, ok := r.Object(k); ok {
			objs = append(objs, obj)
		}
	}
	return objs
}

// Object returns the entry stored under key.
func (r *LoadResponse) Object(key string) (*Object, bool) {
	raw, ok := r.success[key]
	if !ok {
		return nil, false
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return nil, false
	}
	return objectFromResult(key, res), true
}

// FunctionResponse is the outcome of a server-side snippet.
type FunctionResponse struct {
	*Envelope
}

// NewFunctionResponse parses resp.
func NewFunctionResponse(resp *Response) *FunctionResponse {
	return &FunctionResponse{Envelope: NewEnvelope(resp)}
}

// Result returns the snippet result: success["result"], else the whole
// success map.
func (r *FunctionResponse) Result() json.RawMessage {
	if raw, ok := r.success["result"]; ok {
		return raw
	}
	if res := r.field("result"); res.Exists() {
		return json.RawMessage(res.Raw)
	}
	if !r.HasSuccess() {
		return nil
	}
	b, err := json.Marshal(r.success)
	if err != nil {
		return nil
	}
	return b
}
