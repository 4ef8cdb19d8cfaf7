package sdk

import (
	"context"
	"net/http"
	"strings"
)

const pushDevice = "device"

// Notification is a push message. Without Channels or Users it is sent to
// every registered device of the application.
type Notification struct {
	Message  string         `json:"message"`
	Badge    *int           `json:"badge,omitempty"`
	Sound    string         `json:"sound,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Channels []string       `json:"channels,omitempty"`
	Users    []string       `json:"users,omitempty"`
}

// DevicePlatform names the push service a device token belongs to.
type DevicePlatform string

const (
	PlatformIOS     DevicePlatform = "ios"
	PlatformAndroid DevicePlatform = "android"
	PlatformWeb     DevicePlatform = "web"
)

type deviceRegistration struct {
	Token    string         `json:"token"`
	Platform DevicePlatform `json:"platform"`
	DeviceID string         `json:"device_id,omitempty"`
}

func (s *Service) pushRequest(n Notification) pending[*Envelope] {
	if strings.TrimSpace(n.Message) == "" {
		return failed[*Envelope](validationError(ErrInvalidOption, "push message cannot be empty"))
	}
	return jsonRequest(s.storeScope, http.MethodPost, s.root.AddAction(scopePush), n, NewEnvelope)
}

// SendPush delivers a notification.
//
// Example:
//
//	badge := 3
//	_, err := svc.SendPush(ctx, sdk.Notification{
//	    Message:  "Your turn!",
//	    Badge:    &badge,
//	    Channels: []string{"match-42"},
//	})
func (s *Service) SendPush(ctx context.Context, n Notification) (*Envelope, error) {
	return s.pushRequest(n).wait(ctx)
}

// SendPushAsync is the callback form of SendPush.
func (s *Service) SendPushAsync(ctx context.Context, n Notification, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return s.pushRequest(n).async(ctx, onSuccess, onFailure)
}

func (u *UserService) deviceEndpoint() Endpoint {
	return u.endpoint(scopePush).AddAction(pushDevice)
}

func (u *UserService) registerRequest(deviceToken string, platform DevicePlatform) pending[*Envelope] {
	if strings.TrimSpace(deviceToken) == "" {
		return failed[*Envelope](validationError(ErrInvalidOption, "device token is required"))
	}
	if platform == "" {
		return failed[*Envelope](validationError(ErrInvalidOption, "device platform is required"))
	}
	body := deviceRegistration{Token: deviceToken, Platform: platform, DeviceID: u.deviceID}
	return jsonRequest(u.storeScope, http.MethodPut, u.deviceEndpoint(), body, NewEnvelope)
}

// RegisterDevice subscribes the session's user to push notifications on
// the device identified by deviceToken.
func (u *UserService) RegisterDevice(ctx context.Context, deviceToken string, platform DevicePlatform) (*Envelope, error) {
	return u.registerRequest(deviceToken, platform).wait(ctx)
}

// RegisterDeviceAsync is the callback form of RegisterDevice.
func (u *UserService) RegisterDeviceAsync(ctx context.Context, deviceToken string, platform DevicePlatform, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return u.registerRequest(deviceToken, platform).async(ctx, onSuccess, onFailure)
}

// UnregisterDevice removes this device's push registration.
func (u *UserService) UnregisterDevice(ctx context.Context) (*Envelope, error) {
	return jsonRequest(u.storeScope, http.MethodDelete, u.deviceEndpoint(), nil, NewEnvelope).wait(ctx)
}

// UnregisterDeviceAsync is the callback form of UnregisterDevice.
func (u *UserService) UnregisterDeviceAsync(ctx context.Context, onSuccess func(*Envelope), onFailure FailureFunc) error {
	return jsonRequest(u.storeScope, http.MethodDelete, u.deviceEndpoint(), nil, NewEnvelope).async(ctx, onSuccess, onFailure)
}
