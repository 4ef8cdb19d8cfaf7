package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/roost/internal/telemetry"
)

// Backend scopes, the path segment after the application id.
const (
	scopeText    = "text"
	scopeBinary  = "binary"
	scopeAccount = "account"
	scopeSearch  = "search"
	scopePush    = "push"

	userSegment = "user"
)

// client is the state shared by a Service and every UserService derived
// from it.
type client struct {
	cfg       *Config
	transport Transport
	logger    *logrus.Logger
	root      Endpoint
	deviceID  string
	types     *TypeRegistry
	timings   timingSamples
}

// newRequest builds a request carrying the standard headers. A valid
// session adds the session header.
func (c *client) newRequest(method string, ep Endpoint, session SessionToken, body []byte, contentType string) *Request {
	h := make(http.Header, len(c.cfg.Headers)+6)
	for k, v := range c.cfg.Headers {
		h.Set(k, v)
	}
	h.Set(HeaderAPIKey, c.cfg.APIKey)
	h.Set(HeaderAgent, c.cfg.Agent)
	h.Set("Accept", "application/json")
	if c.deviceID != "" {
		h.Set(HeaderDeviceID, c.deviceID)
	}
	if !session.IsFailed() {
		h.Set(HeaderSession, session.Token())
	}
	if body != nil {
		h.Set("Content-Type", contentType)
	}
	if samples := c.timings.drain(); samples != "" {
		h.Set(HeaderTiming, samples)
	}
	return &Request{Method: method, URL: ep.Render(), Header: h, Body: body}
}

// execute dispatches req and records the response time sample.
func (c *client) execute(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc) {
	c.transport.Execute(ctx, req, func(resp *Response) {
		c.timings.record(resp.RequestID(), resp.Duration)
		onSuccess(resp)
	}, onFailure)
}

// pending is a request built and validated but not yet sent, together
// with the constructor of its typed response.
type pending[R any] struct {
	c     *client
	req   *Request
	build func(*Response) R
	err   error
	after func(*Response)
}

func failed[R any](err error) pending[R] {
	return pending[R]{err: err}
}

// wait sends the request and blocks until its callback ran.
func (p pending[R]) wait(ctx context.Context) (R, error) {
	var (
		result R
		err    error
	)
	if p.err != nil {
		return result, p.err
	}
	done := make(chan struct{})
	p.c.execute(ctx, p.req, func(resp *Response) {
		if p.after != nil {
			p.after(resp)
		}
		result = p.build(resp)
		close(done)
	}, func(e error) {
		err = e
		close(done)
	})
	<-done
	return result, err
}

// async sends the request and returns immediately unless validation
// failed. With the direct transport the callback still runs before async
// returns.
func (p pending[R]) async(ctx context.Context, onSuccess func(R), onFailure FailureFunc) error {
	if p.err != nil {
		return p.err
	}
	if onSuccess == nil {
		onSuccess = func(R) {}
	}
	if onFailure == nil {
		onFailure = func(error) {}
	}
	p.c.execute(ctx, p.req, func(resp *Response) {
		if p.after != nil {
			p.after(resp)
		}
		onSuccess(p.build(resp))
	}, onFailure)
	return nil
}

// storeScope implements the operations available to both application and
// user scopes. Object and file URLs of a user scope gain a "/user"
// segment after the scope name.
type storeScope struct {
	*client
	store   StoreIdentifier
	session SessionToken
}

func (s *storeScope) endpoint(scope string) Endpoint {
	ep := s.root.AddAction(scope)
	if s.store.Level() == UserLevel {
		ep = ep.AddAction(userSegment)
	}
	return ep
}

func (s *storeScope) request(method string, ep Endpoint, body []byte, contentType string) (*Request, error) {
	if s.store.Level() == UserLevel && !s.session.IsValid() {
		return nil, validationError(ErrInvalidSession, "session %s is no longer valid", s.session)
	}
	return s.newRequest(method, ep, s.session, body, contentType), nil
}

func jsonRequest[R any](s *storeScope, method string, ep Endpoint, body any, build func(*Response) R) pending[R] {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		raw = b
	default:
		var err error
		if raw, err = json.Marshal(b); err != nil {
			return failed[R](&ConversionError{Source: "request body", Err: err})
		}
	}
	req, err := s.request(method, ep, raw, "application/json")
	if err != nil {
		return failed[R](err)
	}
	return pending[R]{c: s.client, req: req, build: build}
}

// checkRoute rejects nil objects and objects bound to another store.
// Nothing is bound yet.
func (s *storeScope) checkRoute(objs []*Object) error {
	if len(objs) == 0 {
		return validationError(ErrInvalidOption, "no objects given")
	}
	for _, obj := range objs {
		if obj == nil {
			return validationError(ErrInvalidOption, "nil object")
		}
		if id := obj.StoreIdentifier(); id.IsSet() && !id.Equal(s.store) {
			return s.mismatch(obj)
		}
	}
	return nil
}

// bind assigns the scope's store to objects that have none. Call it only
// once the request is ready to be sent.
func (s *storeScope) bind(objs []*Object) error {
	for _, obj := range objs {
		if err := obj.SetStoreIdentifier(s.store); err != nil {
			return s.mismatch(obj)
		}
	}
	return nil
}

func (s *storeScope) mismatch(obj *Object) error {
	return validationError(ErrScopeMismatch, "object %q belongs to the %s store, not %s",
		obj.Key(), obj.StoreIdentifier().Level(), s.store.Level())
}

// Types returns the type registry of this service.
func (s *storeScope) Types() *TypeRegistry {
	return s.types
}

// Store returns the identifier objects saved through this scope receive.
func (s *storeScope) Store() StoreIdentifier {
	return s.store
}

// keySegment joins path-escaped keys with commas.
func keySegment(keys []string) (string, error) {
	escaped := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return "", validationError(ErrInvalidOption, "object key cannot be empty")
		}
		escaped = append(escaped, url.PathEscape(k))
	}
	return strings.Join(escaped, ","), nil
}

// Service is the application-scoped entry point. Derive user-scoped
// services with ForSession.
//
// Example:
//
//	svc, err := sdk.NewService(sdk.DefaultConfig().
//	    WithHost("https://api.roost.example").
//	    WithApp("my-app", "secret-key"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	login, err := svc.Login(ctx, "bob@example.com", "hunter2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	user, err := svc.ForSession(login.SessionToken())
type Service struct {
	*storeScope
	sessions *sessionCache
}

// UserService performs operations on behalf of one session.
type UserService struct {
	*storeScope
	parent *Service
}

// NewService validates cfg and builds the transport, device identifier and
// session cache.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		return nil, validationError(ErrInvalidConfig, "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := NewEndpoint(cfg.baseURL())
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.L()
	}
	types := cfg.Types
	if types == nil {
		types = NewTypeRegistry()
	}

	var deviceID string
	if cfg.DeviceStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		deviceID, err = DeviceID(ctx, cfg.DeviceStore)
		cancel()
		if err != nil {
			// The header is optional; requests still work without it.
			logger.WithError(err).Warn("Failed to load device id")
		}
	}

	sessions, err := newSessionCache(cfg.SessionCacheSize, cfg.SessionCacheTTL, cfg.Observer)
	if err != nil {
		return nil, validationError(ErrInvalidConfig, "session cache: %v", err)
	}

	transport, err := NewTransport(cfg)
	if err != nil {
		sessions.close()
		return nil, err
	}

	c := &client{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		root:      root,
		deviceID:  deviceID,
		types:     types,
	}
	logger.WithFields(logrus.Fields{
		"host":      cfg.Host,
		"app":       cfg.AppID,
		"transport": cfg.TransportMode,
	}).Debug("Roost service created")

	return &Service{
		storeScope: &storeScope{client: c, store: ApplicationStore, session: FailedSession},
		sessions:   sessions,
	}, nil
}

// ForSession returns the user-scoped service for token. Services are
// cached per token until they expire from the cache or the session logs
// out.
func (s *Service) ForSession(token SessionToken) (*UserService, error) {
	store, err := NewStoreIdentifier(UserLevel, token)
	if err != nil {
		return nil, err
	}
	return s.sessions.getOrCreate(token.Token(), func() *UserService {
		return &UserService{
			storeScope: &storeScope{client: s.client, store: store, session: token},
			parent:     s,
		}
	}), nil
}

// DeviceID returns the identifier sent as X-Roost-DeviceId, "" when no
// device store is configured.
func (s *Service) DeviceID() string {
	return s.deviceID
}

// Transport returns the transport the service dispatches through.
func (s *Service) Transport() Transport {
	return s.transport
}

// Close releases the transport and the session cache.
func (s *Service) Close() error {
	s.sessions.close()
	return s.transport.Close()
}

// Session returns the session this service acts for.
func (u *UserService) Session() SessionToken {
	return u.session
}
