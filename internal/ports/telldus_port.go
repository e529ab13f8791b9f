package ports

import (
	"context"
	"encoding/json"
	"telldus-bridge/internal/domain/model"
	"time"
)

// TelldusPort is the command façade as seen by inbound adapters.
type TelldusPort interface {
	ListDevices(ctx context.Context) []model.Device
	GetDeviceInfo(ctx context.Context, id model.ID) (model.Device, error)
	ListSensors(ctx context.Context) []model.Sensor
	GetSensorInfo(ctx context.Context, id model.ID) (model.Sensor, error)

	OnOffDevice(ctx context.Context, id model.ID, on bool) (json.RawMessage, error)
	UpDownDevice(ctx context.Context, id model.ID, up bool) (json.RawMessage, error)
	StopDevice(ctx context.Context, id model.ID) (json.RawMessage, error)
	DimDevice(ctx context.Context, id model.ID, level int) (json.RawMessage, error)
	BellDevice(ctx context.Context, id model.ID) (json.RawMessage, error)
	DeviceLearn(ctx context.Context, id model.ID) (json.RawMessage, error)
	CommandDevice(ctx context.Context, id model.ID, command, value string) (json.RawMessage, error)
	SetDeviceName(ctx context.Context, id model.ID, name string) (json.RawMessage, error)
	SetDeviceModel(ctx context.Context, id model.ID, deviceModel string) (json.RawMessage, error)
	SetDeviceProtocol(ctx context.Context, id model.ID, protocol string) (json.RawMessage, error)
	SetDeviceParameter(ctx context.Context, id model.ID, parameter, value string) (json.RawMessage, error)
	RemoveDevice(ctx context.Context, id model.ID) (json.RawMessage, error)
	DeviceHistory(ctx context.Context, id model.ID, from, to time.Time) (json.RawMessage, error)

	SetSensorName(ctx context.Context, id model.ID, name string) (json.RawMessage, error)
	SetSensorIgnore(ctx context.Context, id model.ID, ignore bool) (json.RawMessage, error)

	GetProfile(ctx context.Context) (json.RawMessage, error)
	ListClients(ctx context.Context) (json.RawMessage, error)
	ListEvents(ctx context.Context) (json.RawMessage, error)
}
