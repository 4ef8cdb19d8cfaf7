package sdk

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// QueryFragment renders to a URL query fragment ("a=b&c=d") or "" when absent.
type QueryFragment interface {
	Fragment() string
}

// PagingOptions limits and offsets a load or search. The zero value renders
// nothing and leaves paging to the backend.
type PagingOptions struct {
	limit        int
	skip         int
	includeCount bool
	set          bool
}

// NoPaging is the absent paging option.
var NoPaging = PagingOptions{}

// NewPagingOptions validates and returns paging options. A limit of -1 asks
// for the backend default page size.
func NewPagingOptions(limit, skip int, includeCount bool) (PagingOptions, error) {
	if limit < -1 {
		return NoPaging, validationError(ErrInvalidOption, "paging limit %d", limit)
	}
	if skip < 0 {
		return NoPaging, validationError(ErrInvalidOption, "paging skip %d", skip)
	}
	return PagingOptions{limit: limit, skip: skip, includeCount: includeCount, set: true}, nil
}

// Fragment renders limit=<int>&skip=<int>&count=<bool>.
func (p PagingOptions) Fragment() string {
	if !p.set {
		return ""
	}
	return fmt.Sprintf("limit=%d&skip=%d&count=%t", p.limit, p.skip, p.includeCount)
}

// SortDirection orders sorted results.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortOptions sorts results by a single field.
type SortOptions struct {
	field     string
	direction SortDirection
}

// NoSort is the absent sort option.
var NoSort = SortOptions{}

// NewSortOptions sorts by field in the given direction.
func NewSortOptions(field string, direction SortDirection) (SortOptions, error) {
	if strings.TrimSpace(field) == "" {
		return NoSort, validationError(ErrInvalidOption, "sort field cannot be empty")
	}
	return SortOptions{field: field, direction: direction}, nil
}

// Fragment renders sort=<field>:<asc|desc>.
func (s SortOptions) Fragment() string {
	if s.field == "" {
		return ""
	}
	return "sort=" + s.field + ":" + s.direction.String()
}

// ServerFunction invokes a server-hosted snippet alongside a request.
type ServerFunction struct {
	name        string
	resultsOnly bool
	async       *bool
	params      map[string]any
}

// NoFunction is the absent server function option.
var NoFunction = ServerFunction{}

// FunctionOption configures a ServerFunction.
type FunctionOption func(*ServerFunction)

// WithResultsOnly returns only the snippet result instead of the objects.
func WithResultsOnly(resultsOnly bool) FunctionOption {
	return func(f *ServerFunction) {
		f.resultsOnly = resultsOnly
	}
}

// WithAsync runs the snippet without waiting for its result.
func WithAsync(async bool) FunctionOption {
	return func(f *ServerFunction) {
		f.async = &async
	}
}

// WithFunctionParams passes extra parameters to the snippet as JSON.
func WithFunctionParams(params map[string]any) FunctionOption {
	return func(f *ServerFunction) {
		if len(params) == 0 {
			return
		}
		if f.params == nil {
			f.params = make(map[string]any, len(params))
		}
		for k, v := range params {
			f.params[k] = v
		}
	}
}

// NewServerFunction names a snippet to run. An empty name fails fast.
//
// Example:
//
//	fn, err := sdk.NewServerFunction("score/rank",
//	    sdk.WithResultsOnly(true),
//	    sdk.WithFunctionParams(map[string]any{"season": 3}))
func NewServerFunction(name string, opts ...FunctionOption) (ServerFunction, error) {
	if strings.TrimSpace(name) == "" {
		return NoFunction, validationError(ErrEmptyFunctionName, "server function")
	}
	f := ServerFunction{name: name}
	for _, opt := range opts {
		opt(&f)
	}
	if len(f.params) > 0 {
		if _, err := json.Marshal(f.params); err != nil {
			return NoFunction, conversionError("function params", "%w", err)
		}
	}
	return f, nil
}

// Name returns the snippet name.
func (f ServerFunction) Name() string {
	return f.name
}

// Fragment renders f=<name>&result_only=<bool>[&async=<bool>][&params=<json>].
func (f ServerFunction) Fragment() string {
	if f.name == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("f=")
	b.WriteString(url.QueryEscape(f.name))
	b.WriteString("&result_only=")
	b.WriteString(strconv.FormatBool(f.resultsOnly))
	if f.async != nil {
		b.WriteString("&async=")
		b.WriteString(strconv.FormatBool(*f.async))
	}
	if len(f.params) > 0 {
		// encoding/json sorts map keys, so the rendering is stable.
		raw, err := json.Marshal(f.params)
		if err == nil {
			b.WriteString("&params=")
			b.WriteString(url.QueryEscape(string(raw)))
		}
	}
	return b.String()
}

// SharedDataOptions includes data shared by other users in results.
type SharedDataOptions struct {
	shared     bool
	sharedOnly bool
	set        bool
}

// NoShared is the absent shared-data option.
var NoShared = SharedDataOptions{}

// NewSharedDataOptions builds a shared-data option. sharedOnly implies shared.
func NewSharedDataOptions(shared, sharedOnly bool) SharedDataOptions {
	return SharedDataOptions{shared: shared || sharedOnly, sharedOnly: sharedOnly, set: true}
}

// Fragment renders shared=<bool>[&shared_only=true].
func (s SharedDataOptions) Fragment() string {
	if !s.set {
		return ""
	}
	if s.sharedOnly {
		return "shared=true&shared_only=true"
	}
	return "shared=" + strconv.FormatBool(s.shared)
}

// RequestOptions composes paging, function, sort and shared-data options
// into one query string. It is immutable; the rendered fragment is computed
// at most once.
type RequestOptions struct {
	paging   PagingOptions
	function ServerFunction
	sort     SortOptions
	shared   SharedDataOptions
	raw      string

	once     sync.Once
	rendered string
}

// NoOptions is the empty option set.
var NoOptions = &RequestOptions{}

// NewRequestOptions collects option parts. Later parts of the same kind win;
// unknown fragments are appended after the known ones.
func NewRequestOptions(parts ...QueryFragment) *RequestOptions {
	o := &RequestOptions{}
	var extra []string
	for _, part := range parts {
		switch p := part.(type) {
		case PagingOptions:
			o.paging = p
		case ServerFunction:
			o.function = p
		case SortOptions:
			o.sort = p
		case SharedDataOptions:
			o.shared = p
		case nil:
		default:
			if f := strings.Trim(p.Fragment(), "&"); f != "" {
				extra = append(extra, f)
			}
		}
	}
	o.raw = strings.Join(extra, "&")
	return o
}

// OptionsFromRaw wraps a pre-rendered fragment without validation, for
// options the SDK does not model yet.
func OptionsFromRaw(fragment string) *RequestOptions {
	return &RequestOptions{raw: strings.Trim(fragment, "&")}
}

func (o *RequestOptions) copy() *RequestOptions {
	if o == nil {
		return &RequestOptions{}
	}
	return &RequestOptions{
		paging:   o.paging,
		function: o.function,
		sort:     o.sort,
		shared:   o.shared,
		raw:      o.raw,
	}
}

// WithPaging returns a copy with paging replaced.
func (o *RequestOptions) WithPaging(p PagingOptions) *RequestOptions {
	next := o.copy()
	next.paging = p
	return next
}

// WithFunction returns a copy with the server function replaced.
func (o *RequestOptions) WithFunction(f ServerFunction) *RequestOptions {
	next := o.copy()
	next.function = f
	return next
}

// WithSort returns a copy with sorting replaced.
func (o *RequestOptions) WithSort(s SortOptions) *RequestOptions {
	next := o.copy()
	next.sort = s
	return next
}

// WithShared returns a copy with the shared-data option replaced.
func (o *RequestOptions) WithShared(s SharedDataOptions) *RequestOptions {
	next := o.copy()
	next.shared = s
	return next
}

// Paging returns the paging part.
func (o *RequestOptions) Paging() PagingOptions {
	if o == nil {
		return NoPaging
	}
	return o.paging
}

// Function returns the server function part.
func (o *RequestOptions) Function() ServerFunction {
	if o == nil {
		return NoFunction
	}
	return o.function
}

// Fragment joins the non-empty parts with '&' in the order paging, function,
// sort, shared, then any raw fragment.
func (o *RequestOptions) Fragment() string {
	if o == nil {
		return ""
	}
	o.once.Do(func() {
		parts := make([]string, 0, 5)
		for _, f := range []string{
			o.paging.Fragment(),
			o.function.Fragment(),
			o.sort.Fragment(),
			o.shared.Fragment(),
			o.raw,
		} {
			if f != "" {
				parts = append(parts, f)
			}
		}
		o.rendered = strings.Join(parts, "&")
	})
	return o.rendered
}

// String implements fmt.Stringer.
func (o *RequestOptions) String() string {
	return o.Fragment()
}
