package service

import (
	"context"
	"encoding/json"
	"sync"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Request(ctx context.Context, req ports.Request) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func path(p string) interface{} {
	return mock.MatchedBy(func(r ports.Request) bool { return r.Path == p })
}

type MockListener struct {
	mock.Mock
}

func (m *MockListener) DevicesRefreshed(ctx context.Context, devices []model.Device) {
	m.Called(ctx, devices)
}

func (m *MockListener) SensorsRefreshed(ctx context.Context, sensors []model.Sensor) {
	m.Called(ctx, sensors)
}

func (m *MockListener) DeviceChanged(ctx context.Context, device model.Device) {
	m.Called(ctx, device)
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Write(_ context.Context, collection string, snapshot any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[collection] = data
	return nil
}

func (s *memStore) Read(_ context.Context, collection string, out any) bool {
	s.mu.Lock()
	data, ok := s.files[collection]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingMetrics struct {
	mu       sync.Mutex
	reads    map[model.Source]int
	commands map[string]int
	failed   int
	patches  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		reads:    make(map[model.Source]int),
		commands: make(map[string]int),
		patches:  make(map[string]int),
	}
}

func (m *countingMetrics) CacheRead(_ string, source model.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[source]++
}

func (m *countingMetrics) CommandIssued(command string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[command]++
	if err != nil {
		m.failed++
	}
}

func (m *countingMetrics) CachePatched(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches[field]++
}
