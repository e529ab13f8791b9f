package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errOffline = &ports.TransportError{Method: "GET", Path: "/devices/list", Err: errors.New("connection refused")}

func TestRefresher_CachesWithinTTL(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, path("/devices/list")).
		Return(json.RawMessage(`{"device":[{"id":"1","name":"Hall","state":1}]}`), nil).Once()
	clock := newFakeClock()

	r := NewRefresher(tr, newMemStore(), Options{Now: clock.Now})

	first, src := r.Devices(context.Background())
	assert.Equal(t, model.SourceRemote, src)
	require.Len(t, first, 1)

	clock.Advance(4 * time.Second)
	second, src := r.Devices(context.Background())
	assert.Equal(t, model.SourceCache, src)
	assert.Equal(t, first, second)

	tr.AssertNumberOfCalls(t, "Request", 1)
}

func TestRefresher_DeviceQuery(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Method == "GET" &&
			r.Path == "/devices/list" &&
			r.Query.Get("supportedMethods") == "4095" &&
			r.Query.Get("extras") == "devicetype"
	})).Return(json.RawMessage(`{"device":[]}`), nil).Once()
	tr.On("Request", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Path == "/sensors/list" &&
			r.Query.Get("includeValues") == "1" &&
			r.Query.Get("includeScale") == "1"
	})).Return(json.RawMessage(`{"sensor":[]}`), nil).Once()

	r := NewRefresher(tr, newMemStore(), Options{})
	r.Devices(context.Background())
	r.Sensors(context.Background())

	tr.AssertExpectations(t)
}

func TestRefresher_FallbackColdStoreReturnsEmpty(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).Return(nil, errOffline)

	r := NewRefresher(tr, newMemStore(), Options{})
	devices, src := r.Devices(context.Background())

	assert.Equal(t, model.SourceEmpty, src)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestRefresher_FallbackReturnsStoredSnapshot(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Write(context.Background(), model.CollectionDevices, model.DeviceList{
		Device: []model.Device{{ID: "2", Name: "Porch"}, {ID: "1", Name: "Hall"}},
	}))

	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).Return(nil, errOffline)

	r := NewRefresher(tr, store, Options{})
	devices, src := r.Devices(context.Background())

	assert.Equal(t, model.SourceSnapshot, src)
	require.Len(t, devices, 2)
	assert.Equal(t, "Porch", devices[0].Name)
	assert.Equal(t, "Hall", devices[1].Name)

	// Fallback data is not installed in memory; the next read retries.
	assert.True(t, r.DeviceCache().NeedsRefresh(time.Now()))
	r.Devices(context.Background())
	tr.AssertNumberOfCalls(t, "Request", 2)
}

func TestRefresher_FallbackIgnoresTTL(t *testing.T) {
	store := newMemStore()
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, path("/sensors/list")).
		Return(json.RawMessage(`{"sensor":[{"id":"9","name":"Attic","data":[{"name":"temp","value":"4.5","scale":"0"}]}]}`), nil).Once()
	tr.On("Request", mock.Anything, path("/sensors/list")).Return(nil, errOffline)
	clock := newFakeClock()

	r := NewRefresher(tr, store, Options{Now: clock.Now})
	_, src := r.Sensors(context.Background())
	require.Equal(t, model.SourceRemote, src)

	clock.Advance(24 * time.Hour)
	sensors, src := r.Sensors(context.Background())
	assert.Equal(t, model.SourceSnapshot, src)
	require.Len(t, sensors, 1)
	assert.Equal(t, model.NewNumber(4.5), sensors[0].Data[0].Value)
}

func TestRefresher_MalformedResponseFallsBack(t *testing.T) {
	for name, body := range map[string]string{
		"remote error":    `{"error":"The request token is invalid"}`,
		"no collection":   `{"foo":[]}`,
		"wrong shape":     `{"device":{"id":1}}`,
		"null collection": `{"device":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			tr := new(MockTransport)
			tr.On("Request", mock.Anything, mock.Anything).Return(json.RawMessage(body), nil)

			r := NewRefresher(tr, store, Options{})
			devices, src := r.Devices(context.Background())

			assert.Equal(t, model.SourceEmpty, src)
			assert.Empty(t, devices)
			assert.True(t, r.DeviceCache().NeedsRefresh(time.Now()))
			assert.Empty(t, store.files)
		})
	}
}

func TestRefresher_WriteThroughKeepsEnvelope(t *testing.T) {
	store := newMemStore()
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"device":[{"id":5,"name":"Lamp","state":16,"statevalue":"120","client":"42"}]}`), nil)

	r := NewRefresher(tr, store, Options{})
	r.Devices(context.Background())

	var env map[string][]map[string]any
	require.NoError(t, json.Unmarshal(store.files[model.CollectionDevices], &env))
	require.Len(t, env["device"], 1)
	assert.Equal(t, "42", env["device"][0]["client"])
}

func TestRefresher_NotifiesListenersOnRemoteOnly(t *testing.T) {
	l := new(MockListener)
	l.On("SensorsRefreshed", mock.Anything, mock.MatchedBy(func(s []model.Sensor) bool {
		return len(s) == 1 && s[0].ID == "1"
	})).Once()

	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).Return(json.RawMessage(`{"sensor":[{"id":1}]}`), nil).Once()
	tr.On("Request", mock.Anything, mock.Anything).Return(nil, errOffline)
	clock := newFakeClock()

	r := NewRefresher(tr, newMemStore(), Options{Now: clock.Now, Listeners: []ports.StateListener{l}})
	r.Sensors(context.Background())
	r.Sensors(context.Background())
	clock.Advance(2 * time.Minute)
	r.Sensors(context.Background())
	r.Close()

	l.AssertExpectations(t)
}

func TestRefresher_SensorScenario(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, path("/sensors/list")).
		Return(json.RawMessage(`{"sensor":[{"id":1,"data":[{"value":21.5}]}]}`), nil).Twice()
	clock := newFakeClock()
	svc := NewService(tr, newMemStore(), Options{Now: clock.Now})

	_, err := svc.GetSensorInfo(context.Background(), model.NewID(1))
	require.NoError(t, err)
	tr.AssertNumberOfCalls(t, "Request", 1)

	clock.Advance(30 * time.Second)
	sensor, err := svc.GetSensorInfo(context.Background(), model.NewID(1))
	require.NoError(t, err)
	assert.Equal(t, 21.5, sensor.Data[0].Value.Value)
	tr.AssertNumberOfCalls(t, "Request", 1)

	clock.Advance(31 * time.Second)
	_, err = svc.GetSensorInfo(context.Background(), "1")
	require.NoError(t, err)
	tr.AssertNumberOfCalls(t, "Request", 2)
}

func TestRefresher_ConcurrentColdReadsShareOneFetch(t *testing.T) {
	release := make(chan time.Time)
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(json.RawMessage(`{"device":[{"id":1}]}`), nil)

	r := NewRefresher(tr, newMemStore(), Options{})

	var wg sync.WaitGroup
	results := make([][]model.Device, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Devices(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, res := range results {
		assert.Len(t, res, 1)
	}
	assert.LessOrEqual(t, len(tr.Calls), 2)
}

func TestRefresher_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchCtxErr error
	tr := new(MockTransport)
	tr.On("Request", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
			fetchCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(json.RawMessage(`{"device":[{"id":1}]}`), nil).Once()

	r := NewRefresher(tr, newMemStore(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		devices []model.Device
		source  model.Source
	}
	first := make(chan result, 1)
	go func() {
		devices, src := r.Devices(ctx)
		first <- result{devices, src}
	}()
	<-started

	second := make(chan result, 1)
	go func() {
		devices, src := r.Devices(context.Background())
		second <- result{devices, src}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	got := <-first
	assert.Equal(t, model.SourceEmpty, got.source)
	assert.NotNil(t, got.devices)

	close(release)
	got = <-second
	assert.Equal(t, model.SourceRemote, got.source)
	assert.Len(t, got.devices, 1)
	assert.NoError(t, fetchCtxErr)
	assert.False(t, r.DeviceCache().NeedsRefresh(time.Now()))
	tr.AssertNumberOfCalls(t, "Request", 1)
}
