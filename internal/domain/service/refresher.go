package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"telldus-bridge/internal/domain/cache"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultDeviceTTL = 5 * time.Second
	DefaultSensorTTL = 60 * time.Second

	methodGet = "GET"
)

var errMissingCollection = errors.New("response has no collection")

// Options configures a Refresher or Service. Zero values select defaults.
type Options struct {
	DeviceTTL time.Duration
	SensorTTL time.Duration
	Logger    ports.Logger
	Metrics   ports.Metrics
	Listeners []ports.StateListener
	Now       func() time.Time

	// NotifyQueue bounds the listener queue; zero selects DefaultNotifyQueue.
	NotifyQueue int
}

func (o Options) withDefaults() Options {
	if o.DeviceTTL <= 0 {
		o.DeviceTTL = DefaultDeviceTTL
	}
	if o.SensorTTL <= 0 {
		o.SensorTTL = DefaultSensorTTL
	}
	if o.Logger == nil {
		o.Logger = ports.NopLogger{}
	}
	if o.Metrics == nil {
		o.Metrics = ports.NopMetrics{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Refresher serves collection reads: from memory while fresh, otherwise
// from the transport, falling back to the on-disk snapshot and finally to
// an empty collection. Reads never fail.
type Refresher struct {
	transport ports.Transport
	store     ports.SnapshotStore
	devices   *cache.Devices
	sensors   *cache.Collection[model.Sensor]

	notifier *notifier
	metrics  ports.Metrics
	logger   ports.Logger
	now      func() time.Time

	group singleflight.Group
}

func NewRefresher(transport ports.Transport, store ports.SnapshotStore, opts Options) *Refresher {
	opts = opts.withDefaults()
	return &Refresher{
		transport: transport,
		store:     store,
		devices:   cache.NewDevices(opts.DeviceTTL, opts.Logger),
		sensors:   cache.NewCollection[model.Sensor](model.CollectionSensors, opts.SensorTTL),
		notifier:  newNotifier(opts.Listeners, opts.NotifyQueue, opts.Logger),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Close waits for queued listener events to be delivered. Events raised
// after Close are discarded.
func (r *Refresher) Close() { r.notifier.close() }

// DeviceCache exposes the device collection for optimistic patching.
func (r *Refresher) DeviceCache() *cache.Devices { return r.devices }

// SensorCache exposes the sensor collection.
func (r *Refresher) SensorCache() *cache.Collection[model.Sensor] { return r.sensors }

// Devices returns the device collection and where it came from.
func (r *Refresher) Devices(ctx context.Context) ([]model.Device, model.Source) {
	return load(ctx, r, collectionSource[model.Device]{
		cache: r.devices.Collection,
		request: ports.Request{
			Method: methodGet,
			Path:   "/devices/list",
			Query: url.Values{
				"supportedMethods": {strconv.Itoa(model.SupportedMethods())},
				"extras":           {"devicetype"},
			},
		},
		decode: decodeDevices,
		notify: func(ctx context.Context, l ports.StateListener, items []model.Device) {
			l.DevicesRefreshed(ctx, items)
		},
	})
}

// Sensors returns the sensor collection and where it came from.
func (r *Refresher) Sensors(ctx context.Context) ([]model.Sensor, model.Source) {
	return load(ctx, r, collectionSource[model.Sensor]{
		cache: r.sensors,
		request: ports.Request{
			Method: methodGet,
			Path:   "/sensors/list",
			Query: url.Values{
				"includeValues": {"1"},
				"includeScale":  {"1"},
			},
		},
		decode: decodeSensors,
		notify: func(ctx context.Context, l ports.StateListener, items []model.Sensor) {
			l.SensorsRefreshed(ctx, items)
		},
	})
}

type collectionSource[T cache.Item] struct {
	cache   *cache.Collection[T]
	request ports.Request
	decode  func([]byte) ([]T, error)
	notify  func(context.Context, ports.StateListener, []T)
}

type loadResult[T cache.Item] struct {
	items  []T
	source model.Source
}

func load[T cache.Item](ctx context.Context, r *Refresher, src collectionSource[T]) ([]T, model.Source) {
	name := src.cache.Name()
	if !src.cache.NeedsRefresh(r.now()) {
		r.metrics.CacheRead(name, model.SourceCache)
		return src.cache.All(), model.SourceCache
	}

	// Callers that arrive while a refresh is in flight share its result. The
	// refresh runs detached from any one caller, so a caller that gives up
	// only stops waiting for itself.
	ch := r.group.DoChan(name, func() (any, error) {
		return fetch(context.WithoutCancel(ctx), r, src), nil
	})

	var (
		res   loadResult[T]
		items []T
	)
	select {
	case v := <-ch:
		res = v.Val.(loadResult[T])
		items = res.items
		if v.Shared {
			items = append([]T(nil), res.items...)
			if items == nil {
				items = []T{}
			}
		}
	case <-ctx.Done():
		res = fallback(ctx, r, src, ctx.Err())
		items = res.items
	}
	r.metrics.CacheRead(name, res.source)
	return items, res.source
}

func fetch[T cache.Item](ctx context.Context, r *Refresher, src collectionSource[T]) loadResult[T] {
	name := src.cache.Name()

	items, raw, err := fetchRemote(ctx, r, src)
	if err == nil {
		src.cache.Replace(items, r.now())
		// The remote body is stored as-is so the file keeps the API envelope.
		if werr := r.store.Write(ctx, name, raw); werr != nil {
			r.logger.Warn("snapshot write failed", "collection", name, "error", werr)
		}
		notified := append([]T(nil), items...)
		r.notifier.notify(ctx, name+" refreshed", func(ctx context.Context, l ports.StateListener) {
			src.notify(ctx, l, notified)
		})
		r.logger.Debug("collection refreshed", "collection", name, "count", len(items))
		return loadResult[T]{items: items, source: model.SourceRemote}
	}
	return fallback(ctx, r, src, err)
}

// fallback serves the stored snapshot, or an empty collection when there is
// none. Nothing is installed in memory.
func fallback[T cache.Item](ctx context.Context, r *Refresher, src collectionSource[T], err error) loadResult[T] {
	name := src.cache.Name()
	r.logger.Warn("collection refresh failed, using snapshot", "collection", name, "error", err)

	var stored json.RawMessage
	if r.store.Read(ctx, name, &stored) {
		items, derr := src.decode(stored)
		if derr == nil {
			return loadResult[T]{items: items, source: model.SourceSnapshot}
		}
		r.logger.Warn("snapshot unusable", "collection", name, "error", derr)
	}
	return loadResult[T]{items: []T{}, source: model.SourceEmpty}
}

func fetchRemote[T cache.Item](ctx context.Context, r *Refresher, src collectionSource[T]) ([]T, json.RawMessage, error) {
	raw, err := r.transport.Request(ctx, src.request)
	if err != nil {
		return nil, nil, err
	}
	items, err := src.decode(raw)
	if err != nil {
		return nil, nil, &ports.TransportError{Method: src.request.Method, Path: src.request.Path, Err: err}
	}
	return items, raw, nil
}

func decodeDevices(raw []byte) ([]model.Device, error) {
	var env model.DeviceList
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding devices: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("remote error: %s", env.Error)
	}
	if env.Device == nil {
		return nil, errMissingCollection
	}
	return env.Device, nil
}

func decodeSensors(raw []byte) ([]model.Sensor, error) {
	var env model.SensorList
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding sensors: %w", err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("remote error: %s", env.Error)
	}
	if env.Sensor == nil {
		return nil, errMissingCollection
	}
	return env.Sensor, nil
}
