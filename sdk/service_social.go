package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const socialSegment = "social"

// SocialRequest is proxied by the backend to a social network API using
// the credentials linked to the session's account.
type SocialRequest struct {
	// Network is the provider, e.g. "facebook".
	Network string
	// Method defaults to GET.
	Method string
	// Path is the provider API path, e.g. "me/friends".
	Path  string
	Query url.Values
	// Body is sent as JSON when set.
	Body any
}

func (u *UserService) socialRequest(r SocialRequest) pending[*Envelope] {
	network := strings.TrimSpace(r.Network)
	if network == "" {
		return failed[*Envelope](validationError(ErrInvalidOption, "social network is required"))
	}
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	ep := u.root.AddAction(scopeAccount).
		AddAction(userSegment).
		AddAction(socialSegment).
		AddAction(url.PathEscape(network)).
		AddAction(r.Path)
	if len(r.Query) > 0 {
		ep = ep.AddFragment(r.Query.Encode())
	}
	return jsonRequest(u.storeScope, method, ep, r.Body, NewEnvelope)
}

// Social forwards r to the social network linked to this session. The
// provider's answer is returned in the success map.
//
// Example:
//
//	resp, err := user.Social(ctx, sdk.SocialRequest{
//	    Network: "facebook",
//	    Path:    "me/friends",
//	    Query:   url.Values{"limit": {"25"}},
//	})
func (u *UserService) Social(ctx context.Context, r SocialRequest) (*Envelope, error) {
	return u.socialRequest(r).wait(ctx)
}

// SocialAsync is the callback form of Social.
func (u *UserService) SocialAsync(ctx context.Context, r SocialRequest, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return u.socialRequest(r).async(ctx, onSuccess, onFailure)
}
