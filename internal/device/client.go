package device

import (
	"context"
	"strings"

	"github.com/veriprint/veriprint/internal/upstream"
)

// SDKCode is the device SDK's status code. The SDK is loose about types and
// returns it as either a bare number or a string; "0" means success.
type SDKCode string

// UnmarshalJSON accepts both the numeric and the quoted form.
func (c *SDKCode) UnmarshalJSON(b []byte) error {
	*c = SDKCode(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

// OK reports whether the code signals success.
func (c SDKCode) OK() bool {
	return c == "0"
}

// SDKStatus is the status envelope every SDK response carries.
type SDKStatus struct {
	Code        SDKCode `json:"ErrorCode"`
	Description string  `json:"ErrorDescription"`
}

// CaptureData is the outcome of a capture call.
type CaptureData struct {
	Status   SDKStatus
	ImageB64 string
}

// SDK is the capture device capability behind request/response calls.
type SDK interface {
	ConnectedDevices(ctx context.Context) ([]string, error)
	Init(ctx context.Context, deviceName, clientKey string) (SDKStatus, error)
	Capture(ctx context.Context, quality, timeoutSec int) (CaptureData, error)
}

// Client talks to the device SDK service over JSON/HTTP.
type Client struct {
	base   string
	caller *upstream.Caller
}

// NewClient builds a device SDK client against the given base URL. Deadlines
// come from the per-call context, since init and capture carry very
// different bounds.
func NewClient(base string, caller *upstream.Caller) *Client {
	return &Client{base: base, caller: caller}
}

// ConnectedDevices lists the device names the SDK currently sees. The SDK
// smuggles the list into its description text ("...: name1, name2").
func (c *Client) ConnectedDevices(ctx context.Context) ([]string, error) {
	var status SDKStatus
	if err := c.caller.PostJSON(ctx, c.base+"/connecteddevicelist", nil, &status); err != nil {
		return nil, err
	}

	_, listText, found := strings.Cut(status.Description, ":")
	if !found {
		return nil, nil
	}
	var names []string
	for _, part := range strings.Split(listText, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Init asks the SDK to initialize the named device.
func (c *Client) Init(ctx context.Context, deviceName, clientKey string) (SDKStatus, error) {
	req := struct {
		ConnectedDvc string `json:"ConnectedDvc"`
		ClientKey    string `json:"ClientKey"`
	}{ConnectedDvc: deviceName, ClientKey: clientKey}

	var status SDKStatus
	if err := c.caller.PostJSON(ctx, c.base+"/initdevice", req, &status); err != nil {
		return SDKStatus{}, err
	}
	return status, nil
}

// Capture asks the SDK for one finger image.
func (c *Client) Capture(ctx context.Context, quality, timeoutSec int) (CaptureData, error) {
	req := struct {
		Quality int `json:"Quality"`
		TimeOut int `json:"TimeOut"`
	}{Quality: quality, TimeOut: timeoutSec}

	var resp struct {
		SDKStatus
		BitmapData string `json:"BitmapData"`
	}
	if err := c.caller.PostJSON(ctx, c.base+"/capture", req, &resp); err != nil {
		return CaptureData{}, err
	}
	return CaptureData{Status: resp.SDKStatus, ImageB64: resp.BitmapData}, nil
}
