package sdk

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/birbparty/roost/internal/telemetry"
)

// Envelope fields.
const (
	envelopeSuccess = "success"
	envelopeErrors  = "errors"
	envelopeCount   = "count"
)

// Envelope is the parsed form of every backend response: status code plus
// the "success" and "errors" maps. Parsing never fails; a missing,
// non-JSON or rejected response yields empty maps. Envelope is immutable.
//
// Example:
//
//	env := sdk.NewEnvelope(resp)
//	if !env.WasSuccess() {
//	    for _, key := range env.ErrorKeys() {
//	        log.Printf("%s: %s", key, env.ErrorMessage(key))
//	    }
//	}
type Envelope struct {
	resp        *Response
	parsed      bool
	root        gjson.Result
	successKeys []string
	success     map[string]json.RawMessage
	errorKeys   []string
	errs        map[string]json.RawMessage
	messages    []string
}

// NewEnvelope parses resp. A nil resp is allowed.
func NewEnvelope(resp *Response) *Envelope {
	e := &Envelope{
		resp:    resp,
		success: map[string]json.RawMessage{},
		errs:    map[string]json.RawMessage{},
	}
	if resp == nil || len(resp.Body) == 0 {
		return e
	}
	if ct := resp.ContentType(); ct != "" && !strings.Contains(strings.ToLower(ct), "json") {
		return e
	}
	if !gjson.ValidBytes(resp.Body) {
		telemetry.L().WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"bytes":  len(resp.Body),
		}).Debug("Ignoring malformed response body")
		return e
	}
	root := gjson.ParseBytes(resp.Body)
	if !root.IsObject() {
		return e
	}
	e.parsed = true
	e.root = root

	// Rejected calls carry no success data; their error details are kept.
	if resp.StatusCode <= http.StatusAccepted {
		e.successKeys = collect(root.Get(envelopeSuccess), e.success)
	}
	errs := root.Get(envelopeErrors)
	if errs.IsArray() {
		errs.ForEach(func(_, v gjson.Result) bool {
			e.messages = append(e.messages, v.String())
			return true
		})
	} else {
		e.errorKeys = collect(errs, e.errs)
	}
	return e
}

// collect copies the members of an object result into dst, returning keys
// in document order. Non-objects are ignored.
func collect(r gjson.Result, dst map[string]json.RawMessage) []string {
	if !r.IsObject() {
		return nil
	}
	var keys []string
	r.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if _, dup := dst[name]; !dup {
			keys = append(keys, name)
		}
		dst[name] = json.RawMessage(v.Raw)
		return true
	})
	return keys
}

// StatusCode returns the HTTP status, 0 when there was no response.
func (e *Envelope) StatusCode() int {
	if e.resp == nil {
		return 0
	}
	return e.resp.StatusCode
}

// WasSuccess reports a 2xx status. It does not depend on the maps.
func (e *Envelope) WasSuccess() bool {
	s := e.StatusCode()
	return s >= 200 && s < 300
}

// HasSuccess reports a non-empty success map.
func (e *Envelope) HasSuccess() bool {
	return len(e.success) > 0
}

// HasError reports a non-empty error map.
func (e *Envelope) HasError() bool {
	return len(e.errs) > 0
}

// SuccessKeys returns success keys in response order.
func (e *Envelope) SuccessKeys() []string {
	return append([]string(nil), e.successKeys...)
}

// ErrorKeys returns error keys in response order.
func (e *Envelope) ErrorKeys() []string {
	return append([]string(nil), e.errorKeys...)
}

// SuccessRaw returns the raw JSON stored under key in the success map.
func (e *Envelope) SuccessRaw(key string) (json.RawMessage, bool) {
	v, ok := e.success[key]
	return v, ok
}

// ErrorRaw returns the raw JSON stored under key in the error map.
func (e *Envelope) ErrorRaw(key string) (json.RawMessage, bool) {
	v, ok := e.errs[key]
	return v, ok
}

// Success returns a copy of the success map.
func (e *Envelope) Success() map[string]json.RawMessage {
	return copyRaw(e.success)
}

// Errors returns a copy of the error map.
func (e *Envelope) Errors() map[string]json.RawMessage {
	return copyRaw(e.errs)
}

func copyRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SuccessString returns a string success value.
func (e *Envelope) SuccessString(key string) (string, bool) {
	raw, ok := e.success[key]
	if !ok {
		return "", false
	}
	r := gjson.ParseBytes(raw)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

// ErrorMessage returns the error under key as text.
func (e *Envelope) ErrorMessage(key string) string {
	raw, ok := e.errs[key]
	if !ok {
		return ""
	}
	return gjson.ParseBytes(raw).String()
}

// ErrorMessages returns messages from an "errors" array, used by the
// account endpoints.
func (e *Envelope) ErrorMessages() []string {
	return append([]string(nil), e.messages...)
}

// Count returns the top-level "count", or -1 when absent.
func (e *Envelope) Count() int {
	if !e.parsed {
		return -1
	}
	c := e.root.Get(envelopeCount)
	if !c.Exists() {
		return -1
	}
	return int(c.Int())
}

// field reads a top-level body member.
func (e *Envelope) field(path string) gjson.Result {
	if !e.parsed {
		return gjson.Result{}
	}
	return e.root.Get(path)
}

// Header returns the response headers.
func (e *Envelope) Header() http.Header {
	if e.resp == nil {
		return http.Header{}
	}
	return e.resp.Header
}

// Body returns the raw response body.
func (e *Envelope) Body() []byte {
	if e.resp == nil {
		return nil
	}
	return e.resp.Body
}

// RequestID returns the X-Request-Id response header.
func (e *Envelope) RequestID() string {
	return e.resp.RequestID()
}

// Response returns the transport response, nil if there was none.
func (e *Envelope) Response() *Response {
	return e.resp
}
