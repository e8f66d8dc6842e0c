// Package device manages the capture hardware: discovering connected
// scanners, initializing one, and gating capture behind a successful init.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MinQuality and MaxQuality bound the capture quality parameter.
const (
	MinQuality = 1
	MaxQuality = 100
)

var (
	// ErrNotInitialized rejects capture before a successful device init.
	ErrNotInitialized = errors.New("device not initialized")
	// ErrInvalidArgument flags out-of-range capture parameters.
	ErrInvalidArgument = errors.New("invalid capture argument")
)

// Options tunes device selection and call deadlines.
type Options struct {
	// PreferredDevice, when present in the connected list, is initialized
	// instead of the first entry.
	PreferredDevice string
	ClientKey       string
	CallTimeout     time.Duration
	InitTimeout     time.Duration
}

// InitOutcome reports how a connect-and-init attempt ended. A false Ready
// with an empty Device means no scanner was connected; that is a diagnostic
// outcome, not an error.
type InitOutcome struct {
	Ready  bool
	Device string
	Code   string
	Detail string
}

// CaptureInput carries the caller-supplied capture parameters.
type CaptureInput struct {
	Quality    int
	TimeoutSec int
}

// Service owns the init gate and drives the SDK.
type Service struct {
	sdk    SDK
	gate   *Gate
	opts   Options
	logger *slog.Logger
}

// NewService builds a device service around the given SDK and gate.
func NewService(sdk SDK, gate *Gate, opts Options, logger *slog.Logger) *Service {
	return &Service{sdk: sdk, gate: gate, opts: opts, logger: logger}
}

// Ready reports the current gate state.
func (s *Service) Ready() bool {
	return s.gate.Ready()
}

// ConnectAndInit discovers connected scanners and initializes one. Any
// failure along the way, including an SDK init that returns a non-zero code,
// leaves the gate NotReady. Re-running after a success re-evaluates the gate
// from scratch.
func (s *Service) ConnectAndInit(ctx context.Context) (InitOutcome, error) {
	listCtx, cancel := s.deadline(ctx, s.opts.CallTimeout)
	devices, err := s.sdk.ConnectedDevices(listCtx)
	cancel()
	if err != nil {
		s.gate.set(false)
		return InitOutcome{}, fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		s.gate.set(false)
		s.logger.Warn("no capture devices connected")
		return InitOutcome{Detail: "no capture devices connected"}, nil
	}

	name := devices[0]
	for _, d := range devices {
		if d == s.opts.PreferredDevice {
			name = d
			break
		}
	}

	initCtx, cancel := s.deadline(ctx, s.opts.InitTimeout)
	status, err := s.sdk.Init(initCtx, name, s.opts.ClientKey)
	cancel()
	if err != nil {
		s.gate.set(false)
		return InitOutcome{}, fmt.Errorf("init device %s: %w", name, err)
	}

	ready := status.Code.OK()
	s.gate.set(ready)
	if ready {
		s.logger.Info("capture device initialized", "device", name)
	} else {
		s.logger.Warn("device init refused", "device", name, "code", string(status.Code), "detail", status.Description)
	}
	return InitOutcome{Ready: ready, Device: name, Code: string(status.Code), Detail: status.Description}, nil
}

// Capture acquires one finger image. It fails fast on a NotReady gate
// without touching the SDK, and validates parameters before the call.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (CaptureData, error) {
	if !s.gate.Ready() {
		return CaptureData{}, ErrNotInitialized
	}
	if in.Quality < MinQuality || in.Quality > MaxQuality {
		return CaptureData{}, fmt.Errorf("%w: quality %d outside [%d,%d]", ErrInvalidArgument, in.Quality, MinQuality, MaxQuality)
	}
	if in.TimeoutSec < 0 {
		return CaptureData{}, fmt.Errorf("%w: negative timeout %d", ErrInvalidArgument, in.TimeoutSec)
	}

	// The device blocks waiting for a finger, so the HTTP deadline extends
	// past the device-side capture window.
	captureCtx, cancel := s.deadline(ctx, s.opts.CallTimeout+time.Duration(in.TimeoutSec)*time.Second)
	defer cancel()
	data, err := s.sdk.Capture(captureCtx, in.Quality, in.TimeoutSec)
	if err != nil {
		return CaptureData{}, fmt.Errorf("capture: %w", err)
	}
	return data, nil
}

func (s *Service) deadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
