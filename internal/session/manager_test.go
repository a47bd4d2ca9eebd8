package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/irfndi/foresight-go/internal/cache"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/forecast"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/models"
	"github.com/irfndi/foresight-go/internal/period"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/irfndi/foresight-go/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, sessionID string, state *pipeline.State) error {
	return m.Called(ctx, sessionID, state).Error(0)
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*pipeline.State, bool, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*pipeline.State), args.Bool(1), args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockStore) Touch(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func newTestEngine(t *testing.T) *pipeline.Engine {
	t.Helper()
	registry, err := forecast.NewRegistry(forecast.Options{Level: 95})
	require.NoError(t, err)
	drift, err := registry.Get("drift")
	require.NoError(t, err)

	fetcher := datasource.FetcherFunc(func(_ context.Context, req datasource.FetchRequest) (models.Series, error) {
		return testutil.MonthlySeries(req.SourceID, req.Start, req.End), nil
	})
	return pipeline.NewEngine(fetcher, drift, period.NewDefaultAdapter(), pipeline.WithLogger(logging.NewDiscard()))
}

func testSelection() pipeline.Selection {
	return pipeline.Selection{
		SourceID: "FRED/DCOILWTICO",
		PeriodID: "monthly",
		Start:    time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2016, time.December, 31, 0, 0, 0, 0, time.UTC),
		Horizon:  6,
	}
}

func newTestManager(t *testing.T, cfg config.SessionConfig, opts ...ManagerOption) (*Manager, *metrics.Collector) {
	t.Helper()
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	opts = append([]ManagerOption{WithMetrics(collector), WithLogger(logging.NewDiscard())}, opts...)
	return NewManager(newTestEngine(t), cfg, opts...), collector
}

func TestManager_CreateUpdateState(t *testing.T) {
	m, collector := newTestManager(t, config.SessionConfig{TTL: "30m"})
	ctx := context.Background()

	s, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, float64(1), promtestutil.ToFloat64(collector.ActiveSessions))

	_, err = m.State(ctx, s.ID())
	assert.True(t, errors.Is(err, ErrNoState))

	state, err := m.Update(ctx, s.ID(), testSelection())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Version)
	assert.True(t, state.Merged.Ready())

	got, err := m.State(ctx, s.ID())
	require.NoError(t, err)
	assert.Same(t, state, got)
}

func TestManager_UnknownSession(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{})
	ctx := context.Background()

	_, err := m.Update(ctx, "missing", testSelection())
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = m.State(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	assert.True(t, errors.Is(m.Delete(ctx, "missing"), ErrSessionNotFound))
}

func TestManager_MaxSessions(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{MaxSessions: 2})

	_, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	require.NoError(t, err)

	s, err := m.Create()
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrTooManySessions))
	assert.Equal(t, 2, m.Len())
}

func TestManager_PublishesToStore(t *testing.T) {
	store := new(MockStore)
	m, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))
	ctx := context.Background()

	s, err := m.Create()
	require.NoError(t, err)

	store.On("Save", mock.Anything, s.ID(), mock.MatchedBy(func(st *pipeline.State) bool {
		return st.Version == 1
	})).Return(nil).Once()

	_, err = m.Update(ctx, s.ID(), testSelection())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestManager_StoreFailureDoesNotFailUpdate(t *testing.T) {
	store := new(MockStore)
	store.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	m, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))

	s, err := m.Create()
	require.NoError(t, err)

	state, err := m.Update(context.Background(), s.ID(), testSelection())
	require.NoError(t, err)
	assert.NotNil(t, state)
}

func TestManager_StateFallsBackToStore(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	store := cache.NewRedisSnapshotCache(client, time.Minute, logging.NewDiscard())

	writer, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))
	reader, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))
	ctx := context.Background()

	s, err := writer.Create()
	require.NoError(t, err)
	published, err := writer.Update(ctx, s.ID(), testSelection())
	require.NoError(t, err)

	got, err := reader.State(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, published.Version, got.Version)
	assert.Equal(t, published.Selection, got.Selection)
	assert.Len(t, got.Merged.Value, len(published.Merged.Value))

	require.NoError(t, writer.Delete(ctx, s.ID()))
	_, err = reader.State(ctx, s.ID())
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestManager_StateReadExtendsSnapshotTTL(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	store := cache.NewRedisSnapshotCache(client, time.Minute, logging.NewDiscard())

	writer, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))
	reader, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))
	ctx := context.Background()

	s, err := writer.Create()
	require.NoError(t, err)
	_, err = writer.Update(ctx, s.ID(), testSelection())
	require.NoError(t, err)

	mr.FastForward(45 * time.Second)
	_, err = reader.State(ctx, s.ID())
	require.NoError(t, err)
	mr.FastForward(45 * time.Second)

	_, err = reader.State(ctx, s.ID())
	require.NoError(t, err)
}

func TestManager_StateTouchFailureIsIgnored(t *testing.T) {
	store := new(MockStore)
	published := &pipeline.State{Version: 3}
	store.On("Load", mock.Anything, "s-1").Return(published, true, nil)
	store.On("Touch", mock.Anything, "s-1").Return(errors.New("timeout")).Once()
	m, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))

	got, err := m.State(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Version)
	store.AssertExpectations(t)
}

func TestManager_StoreLoadError(t *testing.T) {
	store := new(MockStore)
	store.On("Load", mock.Anything, "s-1").Return(nil, false, errors.New("timeout"))
	m, _ := newTestManager(t, config.SessionConfig{}, WithStore(store))

	_, err := m.State(context.Background(), "s-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionNotFound))
	assert.Contains(t, err.Error(), "failed to load session snapshot")
}

func TestManager_EvictIdle(t *testing.T) {
	m, collector := newTestManager(t, config.SessionConfig{TTL: "10m"})

	first, err := m.Create()
	require.NoError(t, err)
	second, err := m.Create()
	require.NoError(t, err)

	now := time.Now()
	assert.Equal(t, 0, m.EvictIdle(now))
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, 2, m.EvictIdle(now.Add(11*time.Minute)))
	_, ok := m.Get(first.ID())
	assert.False(t, ok)
	_, ok = m.Get(second.ID())
	assert.False(t, ok)
	assert.Equal(t, float64(0), promtestutil.ToFloat64(collector.ActiveSessions))
}

func TestManager_DeleteCancelsSession(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{})
	ctx := context.Background()

	s, err := m.Create()
	require.NoError(t, err)
	before := s.Version()

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.Greater(t, s.Version(), before)
	assert.Equal(t, 0, m.Len())
}

func TestManager_CloseAll(t *testing.T) {
	m, _ := newTestManager(t, config.SessionConfig{})
	for i := 0; i < 3; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}
	m.CloseAll()
	assert.Equal(t, 0, m.Len())
}
