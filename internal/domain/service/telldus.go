package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"telldus-bridge/internal/domain/cache"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"
)

// maxDimLevel is the top of the Telldus dim range.
const maxDimLevel = 255

// Service is the command façade over one Telldus transport. Reads go
// through the Refresher; state-changing commands patch the device cache
// before the remote call and leave the patch in place if the call fails.
type Service struct {
	transport ports.Transport
	refresher *Refresher
	devices   *cache.Devices

	metrics ports.Metrics
	logger  ports.Logger
}

var _ ports.TelldusPort = (*Service)(nil)

func NewService(transport ports.Transport, store ports.SnapshotStore, opts Options) *Service {
	opts = opts.withDefaults()
	r := NewRefresher(transport, store, opts)
	return &Service{
		transport: transport,
		refresher: r,
		devices:   r.DeviceCache(),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

func (s *Service) Refresher() *Refresher { return s.refresher }

// Close waits for queued listener events to be delivered.
func (s *Service) Close() { s.refresher.Close() }

func (s *Service) GetProfile(ctx context.Context) (json.RawMessage, error) {
	return s.request(ctx, "profile", "/user/profile", nil)
}

func (s *Service) ListClients(ctx context.Context) (json.RawMessage, error) {
	return s.request(ctx, "listClients", "/clients/list", nil)
}

func (s *Service) ListEvents(ctx context.Context) (json.RawMessage, error) {
	return s.request(ctx, "listEvents", "/events/list", nil)
}

// Sensors

func (s *Service) ListSensors(ctx context.Context) []model.Sensor {
	sensors, _ := s.refresher.Sensors(ctx)
	return sensors
}

func (s *Service) GetSensorInfo(ctx context.Context, id model.ID) (model.Sensor, error) {
	sensors, _ := s.refresher.Sensors(ctx)
	sensor, ok := cache.Find(sensors, id)
	if !ok {
		return model.Sensor{}, fmt.Errorf("%w: %s", model.ErrSensorNotFound, id)
	}
	return sensor, nil
}

func (s *Service) SetSensorName(ctx context.Context, id model.ID, name string) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("name", name)
	return s.request(ctx, "setSensorName", "/sensor/setName", q)
}

func (s *Service) SetSensorIgnore(ctx context.Context, id model.ID, ignore bool) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("ignore", boolParam(ignore))
	return s.request(ctx, "setSensorIgnore", "/sensor/setIgnore", q)
}

// Devices

func (s *Service) ListDevices(ctx context.Context) []model.Device {
	devices, _ := s.refresher.Devices(ctx)
	return devices
}

func (s *Service) GetDeviceInfo(ctx context.Context, id model.ID) (model.Device, error) {
	devices, _ := s.refresher.Devices(ctx)
	device, ok := cache.Find(devices, id)
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %s", model.ErrDeviceNotFound, id)
	}
	return device, nil
}

func (s *Service) SetDeviceName(ctx context.Context, id model.ID, name string) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("name", name)
	return s.request(ctx, "setName", "/device/setName", q)
}

func (s *Service) SetDeviceModel(ctx context.Context, id model.ID, deviceModel string) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("model", deviceModel)
	return s.request(ctx, "setModel", "/device/setModel", q)
}

func (s *Service) SetDeviceProtocol(ctx context.Context, id model.ID, protocol string) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("protocol", protocol)
	return s.request(ctx, "setProtocol", "/device/setProtocol", q)
}

func (s *Service) SetDeviceParameter(ctx context.Context, id model.ID, parameter, value string) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("parameter", parameter)
	q.Set("value", value)
	return s.request(ctx, "setParameter", "/device/setParameter", q)
}

func (s *Service) DeviceLearn(ctx context.Context, id model.ID) (json.RawMessage, error) {
	return s.request(ctx, "learn", "/device/learn", idQuery(id))
}

func (s *Service) RemoveDevice(ctx context.Context, id model.ID) (json.RawMessage, error) {
	return s.request(ctx, "remove", "/device/remove", idQuery(id))
}

func (s *Service) BellDevice(ctx context.Context, id model.ID) (json.RawMessage, error) {
	return s.request(ctx, "bell", "/device/bell", idQuery(id))
}

// DimDevice records level as the device's state value, then sends the dim
// command. Levels outside 0-255 are rejected with ErrInvalidDimLevel before
// the cache is patched or anything is sent.
func (s *Service) DimDevice(ctx context.Context, id model.ID, level int) (json.RawMessage, error) {
	if level < 0 || level > maxDimLevel {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidDimLevel, level)
	}
	s.logger.Info("dim device", "id", id, "level", level)

	if dev, ok := s.devices.PatchStateValue(id, float64(level)); ok {
		s.patched(ctx, "stateValue", dev)
	}

	q := idQuery(id)
	q.Set("level", strconv.Itoa(level))
	return s.request(ctx, "dim", "/device/dim", q)
}

func (s *Service) OnOffDevice(ctx context.Context, id model.ID, on bool) (json.RawMessage, error) {
	s.logger.Info("on/off device", "id", id, "on", on)

	state, path := model.CommandOff, "/device/turnOff"
	if on {
		state, path = model.CommandOn, "/device/turnOn"
	}
	s.patchState(ctx, id, state)
	return s.request(ctx, state.String(), path, idQuery(id))
}

func (s *Service) TurnOn(ctx context.Context, id model.ID) (json.RawMessage, error) {
	return s.OnOffDevice(ctx, id, true)
}

func (s *Service) TurnOff(ctx context.Context, id model.ID) (json.RawMessage, error) {
	return s.OnOffDevice(ctx, id, false)
}

func (s *Service) UpDownDevice(ctx context.Context, id model.ID, up bool) (json.RawMessage, error) {
	state, path := model.CommandDown, "/device/down"
	if up {
		state, path = model.CommandUp, "/device/up"
	}
	s.patchState(ctx, id, state)
	return s.request(ctx, state.String(), path, idQuery(id))
}

func (s *Service) StopDevice(ctx context.Context, id model.ID) (json.RawMessage, error) {
	s.patchState(ctx, id, model.CommandStop)
	return s.request(ctx, model.CommandStop.String(), "/device/stop", idQuery(id))
}

// CommandDevice sends any known command by name. The remote expects the
// numeric method bit rather than the name, so the name is resolved first;
// unknown names fail with ErrInvalidCommand without touching the network.
// value is only sent when non-empty. The cache is not patched.
func (s *Service) CommandDevice(ctx context.Context, id model.ID, command, value string) (json.RawMessage, error) {
	method, err := model.ParseCommand(command)
	if err != nil {
		return nil, err
	}
	q := idQuery(id)
	q.Set("method", strconv.Itoa(int(method)))
	if value != "" {
		q.Set("value", value)
	}
	return s.request(ctx, "command", "/device/command", q)
}

// DeviceHistory returns the device's event history between from and to.
func (s *Service) DeviceHistory(ctx context.Context, id model.ID, from, to time.Time) (json.RawMessage, error) {
	q := idQuery(id)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))
	return s.request(ctx, "history", "/device/history", q)
}

func (s *Service) patchState(ctx context.Context, id model.ID, state model.Command) {
	if dev, ok := s.devices.PatchState(id, state); ok {
		s.patched(ctx, "state", dev)
	}
}

func (s *Service) patched(ctx context.Context, field string, dev model.Device) {
	s.metrics.CachePatched(field)
	s.refresher.notifier.notify(ctx, "device changed", func(ctx context.Context, l ports.StateListener) {
		l.DeviceChanged(ctx, dev)
	})
}

func (s *Service) request(ctx context.Context, command, path string, q url.Values) (json.RawMessage, error) {
	raw, err := s.transport.Request(ctx, ports.Request{Method: methodGet, Path: path, Query: q})
	s.metrics.CommandIssued(command, err)
	if err != nil {
		s.logger.Warn("telldus request failed", "command", command, "path", path, "error", err)
		return nil, err
	}
	return raw, nil
}

func idQuery(id model.ID) url.Values {
	return url.Values{"id": {id.String()}}
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
