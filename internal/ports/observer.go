package ports

import (
	"context"
	"telldus-bridge/internal/domain/model"
)

// StateListener is notified after successful refreshes and optimistic
// device patches. Calls are made in order from a single background
// goroutine, outside any cache lock, so an implementation may block without
// delaying reads or commands.
type StateListener interface {
	DevicesRefreshed(ctx context.Context, devices []model.Device)
	SensorsRefreshed(ctx context.Context, sensors []model.Sensor)
	DeviceChanged(ctx context.Context, device model.Device)
}

type Metrics interface {
	CacheRead(collection string, source model.Source)
	CommandIssued(command string, err error)
	CachePatched(field string)
}

// Logger is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CacheRead(string, model.Source) {}
func (NopMetrics) CommandIssued(string, error)    {}
func (NopMetrics) CachePatched(string)            {}
