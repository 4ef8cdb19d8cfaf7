package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

func (s *storeScope) loadRequest(opts *RequestOptions, keys []string) pending[*LoadResponse] {
	ep := s.endpoint(scopeText)
	if len(keys) > 0 {
		seg, err := keySegment(keys)
		if err != nil {
			return failed[*LoadResponse](err)
		}
		ep = ep.AddAction(seg)
	}
	ep = ep.AddFragment(opts.Fragment())
	return jsonRequest(s, http.MethodGet, ep, nil, NewLoadResponse)
}

// Load fetches the objects with the given keys, or every object in scope
// when no key is given. opts may be nil.
//
// Example:
//
//	paging, _ := sdk.NewPagingOptions(20, 0, true)
//	resp, err := svc.Load(ctx, sdk.NewRequestOptions(paging), "player-1", "player-2")
//	if err != nil {
//	    return err
//	}
//	for _, obj := range resp.Objects() {
//	    name, _ := obj.GetString("name")
//	    fmt.Println(obj.Key(), name)
//	}
func (s *storeScope) Load(ctx context.Context, opts *RequestOptions, keys ...string) (*LoadResponse, error) {
	return s.loadRequest(opts, keys).wait(ctx)
}

// LoadAsync is the callback form of Load.
func (s *storeScope) LoadAsync(ctx context.Context, opts *RequestOptions, keys []string, onSuccess func(*LoadResponse), onFailure FailureFunc) error {
	return s.loadRequest(opts, keys).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) searchRequest(query string, opts *RequestOptions) pending[*LoadResponse] {
	if strings.TrimSpace(query) == "" {
		return failed[*LoadResponse](validationError(ErrInvalidOption, "search query cannot be empty"))
	}
	ep := s.root.AddAction(scopeSearch)
	if s.store.Level() == UserLevel {
		ep = ep.AddAction(userSegment)
	}
	ep = ep.AddQuery("q", url.QueryEscape(query)).AddFragment(opts.Fragment())
	return jsonRequest(s, http.MethodGet, ep, nil, NewLoadResponse)
}

// Search runs a filter expression built with Filter or SubObject.
//
// Example:
//
//	query := sdk.Filter("level").GreaterThan(10).And("name").Equal("Bob").SearchQuery()
//	resp, err := svc.Search(ctx, query, nil)
func (s *storeScope) Search(ctx context.Context, query string, opts *RequestOptions) (*LoadResponse, error) {
	return s.searchRequest(query, opts).wait(ctx)
}

// SearchAsync is the callback form of Search.
func (s *storeScope) SearchAsync(ctx context.Context, query string, opts *RequestOptions, onSuccess func(*LoadResponse), onFailure FailureFunc) error {
	return s.searchRequest(query, opts).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) writeRequest(method string, objs []*Object) pending[*ObjectModificationResponse] {
	if err := s.checkRoute(objs); err != nil {
		return failed[*ObjectModificationResponse](err)
	}
	p := jsonRequest(s, method, s.endpoint(scopeText), EncodeObjects(objs...), NewObjectModificationResponse)
	if p.err != nil {
		return p
	}
	if err := s.bind(objs); err != nil {
		return failed[*ObjectModificationResponse](err)
	}
	return p
}

// Save replaces the stored objects with objs. Objects without a store
// identifier are bound to this scope; objects bound to another scope are
// rejected before anything is sent.
func (s *storeScope) Save(ctx context.Context, objs ...*Object) (*ObjectModificationResponse, error) {
	return s.writeRequest(http.MethodPut, objs).wait(ctx)
}

// SaveAsync is the callback form of Save.
func (s *storeScope) SaveAsync(ctx context.Context, objs []*Object, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.writeRequest(http.MethodPut, objs).async(ctx, onSuccess, onFailure)
}

// Update merges the properties of objs into the stored objects.
func (s *storeScope) Update(ctx context.Context, objs ...*Object) (*ObjectModificationResponse, error) {
	return s.writeRequest(http.MethodPost, objs).wait(ctx)
}

// UpdateAsync is the callback form of Update.
func (s *storeScope) UpdateAsync(ctx context.Context, objs []*Object, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.writeRequest(http.MethodPost, objs).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) deleteRequest(keys []string, all bool) pending[*ObjectModificationResponse] {
	ep := s.endpoint(scopeText)
	if !all {
		if len(keys) == 0 {
			return failed[*ObjectModificationResponse](validationError(ErrInvalidOption, "delete needs at least one key"))
		}
		seg, err := keySegment(keys)
		if err != nil {
			return failed[*ObjectModificationResponse](err)
		}
		ep = ep.AddAction(seg)
	}
	return jsonRequest(s, http.MethodDelete, ep, nil, NewObjectModificationResponse)
}

// Delete removes the objects with the given keys.
func (s *storeScope) Delete(ctx context.Context, keys ...string) (*ObjectModificationResponse, error) {
	return s.deleteRequest(keys, false).wait(ctx)
}

// DeleteAsync is the callback form of Delete.
func (s *storeScope) DeleteAsync(ctx context.Context, keys []string, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.deleteRequest(keys, false).async(ctx, onSuccess, onFailure)
}

// DeleteAll removes every object in scope.
func (s *storeScope) DeleteAll(ctx context.Context) (*ObjectModificationResponse, error) {
	return s.deleteRequest(nil, true).wait(ctx)
}

// DeleteAllAsync is the callback form of DeleteAll.
func (s *storeScope) DeleteAllAsync(ctx context.Context, onSuccess func(*ObjectModificationResponse), onFailure FailureFunc) error {
	return s.deleteRequest(nil, true).async(ctx, onSuccess, onFailure)
}

func (s *storeScope) snippetRequest(fn ServerFunction, opts *RequestOptions) pending[*FunctionResponse] {
	if fn.Name() == "" {
		return failed[*FunctionResponse](validationError(ErrEmptyFunctionName, "snippet name is required"))
	}
	ep := s.endpoint(scopeText).AddFragment(opts.WithFunction(fn).Fragment())
	return jsonRequest(s, http.MethodGet, ep, nil, NewFunctionResponse)
}

// RunSnippet invokes a server-side snippet. Any function already present
// in opts is replaced by fn.
//
// Example:
//
//	fn, _ := sdk.NewServerFunction("leaderboard",
//	    sdk.WithResultsOnly(true),
//	    sdk.WithFunctionParams(map[string]any{"top": 10}))
//	resp, err := svc.RunSnippet(ctx, fn, nil)
//	if err == nil && resp.WasSuccess() {
//	    fmt.Println(string(resp.Result()))
//	}
func (s *storeScope) RunSnippet(ctx context.Context, fn ServerFunction, opts *RequestOptions) (*FunctionResponse, error) {
	return s.snippetRequest(fn, opts).wait(ctx)
}

// RunSnippetAsync is the callback form of RunSnippet.
func (s *storeScope) RunSnippetAsync(ctx context.Context, fn ServerFunction, opts *RequestOptions, onSuccess func(*FunctionResponse), onFailure FailureFunc) error {
	return s.snippetRequest(fn, opts).async(ctx, onSuccess, onFailure)
}
