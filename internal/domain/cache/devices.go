package cache

import (
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"
)

// Devices is the device collection plus the optimistic state patches
// applied after control commands. Patches only touch memory; the next
// successful refresh overwrites them.
type Devices struct {
	*Collection[model.Device]
	logger ports.Logger
}

func NewDevices(ttl time.Duration, logger ports.Logger) *Devices {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Devices{
		Collection: NewCollection[model.Device](model.CollectionDevices, ttl),
		logger:     logger,
	}
}

// PatchState sets the cached state of a device. A dimmed device stays
// "dim" when turned on.
func (d *Devices) PatchState(id model.ID, state model.Command) (model.Device, bool) {
	var before model.Command
	dev, ok := d.Update(id, func(dev *model.Device) {
		before = dev.State
		if state == model.CommandOn && dev.State == model.CommandDim {
			return
		}
		dev.State = state
	})
	if !ok {
		d.logger.Warn("device not in cache, state patch skipped", "id", id, "state", state.String())
		return dev, false
	}
	d.logger.Debug("device state patched", "id", id, "requested", state.String(), "before", before.String(), "after", dev.State.String())
	return dev, true
}

// PatchStateValue overwrites the cached state value of a device.
func (d *Devices) PatchStateValue(id model.ID, value float64) (model.Device, bool) {
	dev, ok := d.Update(id, func(dev *model.Device) {
		dev.StateValue = model.NewNumber(value)
	})
	if !ok {
		d.logger.Warn("device not in cache, state value patch skipped", "id", id, "value", value)
		return dev, false
	}
	d.logger.Debug("device state value patched", "id", id, "value", value)
	return dev, true
}
