package sdk

import (
	"strings"
)

// queryParam is one key=value pair rendered in insertion order.
type queryParam struct {
	key   string
	value string
}

// Endpoint is an immutable request URL: a base, an ordered chain of action
// segments and ordered query parameters. Every mutator returns a new
// Endpoint and leaves the receiver untouched, so a shared base endpoint can
// be specialized concurrently.
//
// Example:
//
//	base, _ := sdk.NewEndpoint("https://api.roost.dev/v1/app/42/text")
//	ep := base.AddAction("player-1").AddQuery("count", "true")
//	fmt.Println(ep) // https://api.roost.dev/v1/app/42/text/player-1?count=true
type Endpoint struct {
	base      string
	actions   []string
	params    []queryParam
	fragments []string
}

// NewEndpoint creates an endpoint rooted at base. Trailing separators on the
// base are dropped. An empty base is a construction error.
func NewEndpoint(base string) (Endpoint, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return Endpoint{}, validationError(ErrMissingBaseURL, "endpoint base %q", base)
	}
	return Endpoint{base: trimmed}, nil
}

// MustEndpoint is like NewEndpoint but panics on error.
func MustEndpoint(base string) Endpoint {
	ep, err := NewEndpoint(base)
	if err != nil {
		panic(err)
	}
	return ep
}

// normalizeSegment returns segment with exactly one leading separator, no
// trailing separator and no repeated separators. Empty input yields "".
func normalizeSegment(segment string) string {
	parts := strings.Split(segment, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "/" + strings.Join(kept, "/")
}

func (e Endpoint) clone() Endpoint {
	return Endpoint{
		base:      e.base,
		actions:   append([]string(nil), e.actions...),
		params:    append([]queryParam(nil), e.params...),
		fragments: append([]string(nil), e.fragments...),
	}
}

// AddAction appends a path segment. Empty segments are ignored.
func (e Endpoint) AddAction(segment string) Endpoint {
	norm := normalizeSegment(segment)
	if norm == "" {
		return e
	}
	next := e.clone()
	next.actions = append(next.actions, norm)
	return next
}

// RemoveAction drops the last occurrence of segment. It is used to undo a
// default route before specializing an endpoint.
func (e Endpoint) RemoveAction(segment string) Endpoint {
	norm := normalizeSegment(segment)
	if norm == "" {
		return e
	}
	for i := len(e.actions) - 1; i >= 0; i-- {
		if e.actions[i] == norm {
			next := e.clone()
			next.actions = append(next.actions[:i], next.actions[i+1:]...)
			return next
		}
	}
	return e
}

// AddQuery appends key=value. Values are rendered as given; callers escape.
func (e Endpoint) AddQuery(key, value string) Endpoint {
	if key == "" {
		return e
	}
	next := e.clone()
	next.params = append(next.params, queryParam{key: key, value: value})
	return next
}

// AddFragment appends a pre-rendered "a=b&c=d" fragment such as the output
// of RequestOptions. Leading and trailing '&' are stripped.
func (e Endpoint) AddFragment(fragment string) Endpoint {
	fragment = strings.Trim(fragment, "&")
	if fragment == "" {
		return e
	}
	next := e.clone()
	next.fragments = append(next.fragments, fragment)
	return next
}

// Actions returns a copy of the normalized path segments.
func (e Endpoint) Actions() []string {
	return append([]string(nil), e.actions...)
}

// Base returns the endpoint base URL.
func (e Endpoint) Base() string {
	return e.base
}

// Render returns the full URL.
func (e Endpoint) Render() string {
	var b strings.Builder
	b.WriteString(e.base)
	for _, a := range e.actions {
		b.WriteString(a)
	}

	sep := byte('?')
	for _, p := range e.params {
		b.WriteByte(sep)
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
		sep = '&'
	}
	for _, f := range e.fragments {
		b.WriteByte(sep)
		b.WriteString(f)
		sep = '&'
	}
	return b.String()
}

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	return e.Render()
}

// Equal compares endpoints by their rendered URL.
func (e Endpoint) Equal(other Endpoint) bool {
	return e.Render() == other.Render()
}

// IsZero reports whether the endpoint was never constructed.
func (e Endpoint) IsZero() bool {
	return e.base == ""
}
