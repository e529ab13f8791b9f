package model

// Device is an actuator known to the Telldus service. State holds the last
// known command bit and StateValue the auxiliary value (dim level) that is
// only meaningful for some states.
type Device struct {
	ID             ID                `json:"id"`
	ClientDeviceID ID                `json:"clientDeviceId,omitempty"`
	Name           string            `json:"name"`
	State          Command           `json:"state"`
	StateValue     Number            `json:"stateValue"`
	Methods        int               `json:"methods,omitempty"`
	Type           string            `json:"type,omitempty"`
	DeviceType     string            `json:"devicetype,omitempty"`
	Model          string            `json:"model,omitempty"`
	Protocol       string            `json:"protocol,omitempty"`
	Online         Flag              `json:"online"`
	Parameters     map[string]string `json:"parameters,omitempty"`
}

// Key returns the canonical id used for cache lookups.
func (d Device) Key() ID { return d.ID.Canonical() }

// Clone returns a copy that shares no maps with d.
func (d Device) Clone() Device {
	if d.Parameters != nil {
		params := make(map[string]string, len(d.Parameters))
		for k, v := range d.Parameters {
			params[k] = v
		}
		d.Parameters = params
	}
	return d
}

// Sensor is a read-only telemetry source.
type Sensor struct {
	ID          ID            `json:"id"`
	Name        string        `json:"name"`
	LastUpdated int64         `json:"lastUpdated,omitempty"`
	Ignored     Flag          `json:"ignored"`
	Model       string        `json:"model,omitempty"`
	Protocol    string        `json:"protocol,omitempty"`
	SensorID    ID            `json:"sensorId,omitempty"`
	Battery     int           `json:"battery,omitempty"`
	Data        []SensorValue `json:"data"`
}

// Key returns the canonical id used for cache lookups.
func (s Sensor) Key() ID { return s.ID.Canonical() }

// Clone returns a copy that shares no slices with s.
func (s Sensor) Clone() Sensor {
	if s.Data != nil {
		s.Data = append([]SensorValue(nil), s.Data...)
	}
	return s
}

// SensorValue is one reading reported by a sensor.
type SensorValue struct {
	Name  string `json:"name"`
	Value Number `json:"value"`
	Scale Number `json:"scale"`
	Unit  string `json:"unit,omitempty"`
}

// DeviceList is the remote envelope for the device collection, also the
// on-disk snapshot shape.
type DeviceList struct {
	Device []Device `json:"device"`
	Error  string   `json:"error,omitempty"`
}

// SensorList is the remote envelope for the sensor collection, also the
// on-disk snapshot shape.
type SensorList struct {
	Sensor []Sensor `json:"sensor"`
	Error  string   `json:"error,omitempty"`
}

// Collection names; they double as snapshot file names.
const (
	CollectionDevices = "devices"
	CollectionSensors = "sensors"
)

// Source reports where a collection read was served from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceSnapshot Source = "snapshot"
	SourceEmpty    Source = "empty"
)
