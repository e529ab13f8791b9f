// Package influxdb records sensor readings and device state changes as
// InfluxDB points through the non-blocking write API.
package influxdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	defaultPingTimeout = 5 * time.Second

	measurementSensor = "sensor_value"
	measurementDevice = "device_state"
)

var ErrConnectionFailed = errors.New("influxdb: connection failed")

// pointWriter is the part of api.WriteAPI the writer uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Writer is a ports.StateListener. Refreshed devices are not written; only
// sensor data and device changes produce points.
type Writer struct {
	writeAPI pointWriter
	closer   func()
	now      func() time.Time
}

var _ ports.StateListener = (*Writer)(nil)

// Connect pings the server and returns a Writer on its async write API.
// Write errors are reported to logger as they arrive.
func Connect(cfg model.InfluxDBConfig, logger ports.Logger) (*Writer, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("influxdb write failed", "error", err)
		}
	}()

	w := NewWriter(writeAPI)
	w.closer = client.Close
	return w, nil
}

func NewWriter(w pointWriter) *Writer {
	return &Writer{writeAPI: w, now: time.Now}
}

func (w *Writer) DevicesRefreshed(context.Context, []model.Device) {}

func (w *Writer) DeviceChanged(_ context.Context, d model.Device) {
	fields := map[string]interface{}{
		"state":      int64(d.State),
		"state_name": d.State.String(),
	}
	if d.StateValue.Valid {
		fields["state_value"] = d.StateValue.Value
	}
	w.writeAPI.WritePoint(write.NewPoint(
		measurementDevice,
		map[string]string{"device_id": d.ID.String(), "name": d.Name},
		fields,
		w.now(),
	))
}

func (w *Writer) SensorsRefreshed(_ context.Context, sensors []model.Sensor) {
	for _, s := range sensors {
		ts := w.now()
		if s.LastUpdated > 0 {
			ts = time.Unix(s.LastUpdated, 0)
		}
		for _, v := range s.Data {
			if !v.Value.Valid {
				continue
			}
			tags := map[string]string{
				"sensor_id": s.ID.String(),
				"sensor":    s.Name,
				"name":      v.Name,
			}
			if v.Scale.Valid {
				tags["scale"] = strconv.FormatFloat(v.Scale.Value, 'f', -1, 64)
			}
			w.writeAPI.WritePoint(write.NewPoint(
				measurementSensor,
				tags,
				map[string]interface{}{"value": v.Value.Value},
				ts,
			))
		}
	}
}

// Close flushes pending points and closes the client.
func (w *Writer) Close() {
	w.writeAPI.Flush()
	if w.closer != nil {
		w.closer()
	}
}
