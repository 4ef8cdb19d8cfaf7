package sdk

import (
	"context"
	"net/http"
	"strings"
)

// Account routes below the account scope.
const (
	accountLogin    = "login"
	accountLogout   = "logout"
	accountPassword = "password"
	accountReset    = "reset"
)

type credentials struct {
	Email       string         `json:"email"`
	Password    string         `json:"password,omitempty"`
	NewPassword string         `json:"new_password,omitempty"`
	Profile     map[string]any `json:"profile,omitempty"`
}

func requireEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return validationError(ErrInvalidOption, "email is required")
	}
	return nil
}

func (s *Service) accountRequest(method string, action string, body credentials, build func(*Response) *Envelope) pending[*Envelope] {
	if err := requireEmail(body.Email); err != nil {
		return failed[*Envelope](err)
	}
	return jsonRequest(s.storeScope, method, s.root.AddAction(scopeAccount).AddAction(action), body, build)
}

func (s *Service) createUserRequest(email, password string, profile map[string]any) pending[*CreationResponse] {
	if err := requireEmail(email); err != nil {
		return failed[*CreationResponse](err)
	}
	if password == "" {
		return failed[*CreationResponse](validationError(ErrInvalidOption, "password is required"))
	}
	body := credentials{Email: email, Password: password, Profile: profile}
	return jsonRequest(s.storeScope, http.MethodPost, s.root.AddAction(scopeAccount), body, NewCreationResponse)
}

// CreateUser registers a new account. profile holds optional extra
// properties stored with the user.
func (s *Service) CreateUser(ctx context.Context, email, password string, profile map[string]any) (*CreationResponse, error) {
	return s.createUserRequest(email, password, profile).wait(ctx)
}

// CreateUserAsync is the callback form of CreateUser.
func (s *Service) CreateUserAsync(ctx context.Context, email, password string, profile map[string]any, onSuccess func(*CreationResponse), onFailure FailureFunc) error {
	return s.createUserRequest(email, password, profile).async(ctx, onSuccess, onFailure)
}

func (s *Service) loginRequest(email, password string) pending[*LoginResponse] {
	if err := requireEmail(email); err != nil {
		return failed[*LoginResponse](err)
	}
	body := credentials{Email: email, Password: password}
	return jsonRequest(s.storeScope, http.MethodPost, s.root.AddAction(scopeAccount).AddAction(accountLogin), body, NewLoginResponse)
}

// Login authenticates a user. A rejected login is not an error: the
// returned response's SessionToken is FailedSession.
//
// Example:
//
//	resp, err := svc.Login(ctx, "bob@example.com", "hunter2")
//	if err != nil {
//	    return err // no response from the backend
//	}
//	token := resp.SessionToken()
//	if !token.IsValid() {
//	    return fmt.Errorf("login rejected: %v", resp.ErrorMessages())
//	}
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	return s.loginRequest(email, password).wait(ctx)
}

// LoginAsync is the callback form of Login.
func (s *Service) LoginAsync(ctx context.Context, email, password string, onSuccess func(*LoginResponse), onFailure FailureFunc) error {
	return s.loginRequest(email, password).async(ctx, onSuccess, onFailure)
}

func (s *Service) logoutRequest(token SessionToken) pending[*Envelope] {
	if token.IsFailed() {
		return failed[*Envelope](validationError(ErrInvalidSession, "logout needs a session"))
	}
	ep := s.root.AddAction(scopeAccount).AddAction(accountLogout)
	req := s.newRequest(http.MethodPost, ep, token, nil, "")
	p := pending[*Envelope]{c: s.client, req: req, build: NewEnvelope}
	// The cached user service is dropped once the backend answered,
	// whatever the outcome.
	p.after = func(*Response) { s.sessions.invalidate(token.Token()) }
	return p
}

// Logout ends token's session and drops its cached UserService.
func (s *Service) Logout(ctx context.Context, token SessionToken) (*Envelope, error) {
	return s.logoutRequest(token).wait(ctx)
}

// LogoutAsync is the callback form of Logout.
func (s *Service) LogoutAsync(ctx context.Context, token SessionToken, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return s.logoutRequest(token).async(ctx, onSuccess, onFailure)
}

func (s *Service) changePasswordRequest(email, oldPassword, newPassword string) pending[*Envelope] {
	if newPassword == "" {
		return failed[*Envelope](validationError(ErrInvalidOption, "new password is required"))
	}
	body := credentials{Email: email, Password: oldPassword, NewPassword: newPassword}
	return s.accountRequest(http.MethodPost, accountPassword, body, NewEnvelope)
}

// ChangePassword replaces the password of email.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (*Envelope, error) {
	return s.changePasswordRequest(email, oldPassword, newPassword).wait(ctx)
}

// ChangePasswordAsync is the callback form of ChangePassword.
func (s *Service) ChangePasswordAsync(ctx context.Context, email, oldPassword, newPassword string, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return s.changePasswordRequest(email, oldPassword, newPassword).async(ctx, onSuccess, onFailure)
}

// ResetPassword asks the backend to send a reset mail to email.
func (s *Service) ResetPassword(ctx context.Context, email string) (*Envelope, error) {
	return s.accountRequest(http.MethodPost, accountReset, credentials{Email: email}, NewEnvelope).wait(ctx)
}

// ResetPasswordAsync is the callback form of ResetPassword.
func (s *Service) ResetPasswordAsync(ctx context.Context, email string, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return s.accountRequest(http.MethodPost, accountReset, credentials{Email: email}, NewEnvelope).async(ctx, onSuccess, onFailure)
}
