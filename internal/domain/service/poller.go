package service

import (
	"context"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"
)

// Poller keeps both collections warm so state listeners see every refresh
// even when no client is reading.
type Poller struct {
	refresher *Refresher
	interval  time.Duration
	logger    ports.Logger
}

func NewPoller(r *Refresher, interval time.Duration, logger ports.Logger) *Poller {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Poller{refresher: r, interval: interval, logger: logger}
}

// PollOnce reads both collections through the cache.
func (p *Poller) PollOnce(ctx context.Context) (devices, sensors model.Source) {
	devs, devices := p.refresher.Devices(ctx)
	sens, sensors := p.refresher.Sensors(ctx)
	p.logger.Debug("poll complete",
		"devices", len(devs), "devices_source", devices,
		"sensors", len(sens), "sensors_source", sensors,
	)
	return devices, sensors
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}
