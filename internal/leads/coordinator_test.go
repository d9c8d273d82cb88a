package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

const androidUserAgent = "Mozilla/5.0 (Linux; Android 13; Pixel 7) Mobile Safari/537.36"

type countingRemote struct {
	*InMemoryRepository
	mu      sync.Mutex
	inserts int
}

func (c *countingRemote) Insert(ctx context.Context, lead *Lead) error {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	return c.InMemoryRepository.Insert(ctx, lead)
}

type recordingNotifier struct {
	mu    sync.Mutex
	leads []*Lead
	err   error
}

func (n *recordingNotifier) NotifyLead(_ context.Context, lead *Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, lead)
	return n.err
}

type fixture struct {
	remote   *countingRemote
	local    *localstore.MemoryStore
	fallback *FallbackStore
	registry *session.Registry
	coord    *Coordinator
}

func newFixture(t *testing.T, notifier Notifier) *fixture {
	t.Helper()
	logger := logging.New("error")
	local := localstore.NewMemoryStore()
	f := &fixture{
		remote:   &countingRemote{InMemoryRepository: NewInMemoryRepository()},
		local:    local,
		fallback: NewFallbackStore(local, logger, nil),
		registry: session.NewRegistry(local, logger),
	}
	f.coord = NewCoordinator(CoordinatorConfig{
		Remote:        f.remote,
		Fallback:      f.fallback,
		Tracker:       f.registry,
		Notifier:      notifier,
		Logger:        logger,
		RemoteTimeout: time.Second,
		Now:           func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	return f
}

func TestSubmitRejectsInvalidWithoutIO(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.coord.Submit(context.Background(), SubmitRequest{
		SessionID: "s1",
		Phone:     "12345",
		Source:    SourceCallButton,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, f.remote.inserts)
	all, _ := f.fallback.ExportAll(context.Background())
	assert.Empty(t, all)
	assert.False(t, f.registry.Get(context.Background(), "s1").Snapshot().HasSubmitted)
}

func TestSubmitCallButtonScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	receipt, err := f.coord.Submit(ctx, SubmitRequest{
		SessionID: "s1",
		Phone:     "9876543210",
		Source:    SourceCallButton,
		PageURL:   "/regions",
		UserAgent: androidUserAgent,
	})
	require.NoError(t, err)

	lead := receipt.Lead
	assert.Equal(t, "+919876543210", lead.PhoneNumber)
	assert.Equal(t, SourceCallButton, lead.Source)
	assert.Equal(t, DeviceAndroid, lead.DeviceType)
	assert.Equal(t, "Submitted from call button on /regions page", lead.Notes)
	assert.Equal(t, DurabilityRemote, receipt.Durability)
	assert.False(t, lead.Timestamp.IsZero())
	assert.NotEmpty(t, lead.ID)

	snap := f.registry.Get(ctx, "s1").Snapshot()
	assert.True(t, snap.HasSubmitted)
	assert.Equal(t, "+919876543210", snap.LastPhoneNumber)
	assert.Equal(t, "android", snap.DeviceType)
	assert.Len(t, f.remote.All(), 1)

	device, ok, err := f.local.Get(ctx, localstore.SessionKey("s1", localstore.KeyUserDevice))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "android", device)
}

func TestSubmitNormalizesRegardlessOfPrefix(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.coord.Submit(ctx, SubmitRequest{Phone: "9876543210"})
	require.NoError(t, err)
	b, err := f.coord.Submit(ctx, SubmitRequest{Phone: "+919876543210"})
	require.NoError(t, err)
	assert.Equal(t, a.Lead.PhoneNumber, b.Lead.PhoneNumber)
	assert.Equal(t, SourceWebsite, a.Lead.Source)
}

func TestSubmitFallsBackWhenRemoteRejects(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.SetFailure(errors.New("permission denied for table web_phonenumbers"))
	ctx := context.Background()

	receipt, err := f.coord.Submit(ctx, SubmitRequest{
		SessionID: "s1",
		Phone:     "+91 70000 00000",
		Source:    SourcePeriodicPrompt,
		Notes:     "from test",
		PageURL:   "/",
		UserAgent: "Mozilla/5.0 (Macintosh)",
	})
	require.NoError(t, err)
	assert.Equal(t, DurabilityLocal, receipt.Durability)

	all, err := f.fallback.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "+917000000000", all[0].PhoneNumber)
	assert.Equal(t, SourcePeriodicPrompt, all[0].Source)
	assert.Equal(t, "from test", all[0].Notes)
	assert.Equal(t, DeviceDesktop, all[0].DeviceType)
	assert.Equal(t, "/", all[0].PageURL)
	assert.True(t, f.registry.Get(ctx, "s1").Snapshot().HasSubmitted)
}

func TestSubmitSucceedsWhenBothWritesFail(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.SetFailure(errors.New("network down"))
	f.local.FailWrites = errors.New("disk full")

	receipt, err := f.coord.Submit(context.Background(), SubmitRequest{SessionID: "s1", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, DurabilityNone, receipt.Durability)
	assert.True(t, f.registry.Get(context.Background(), "s1").Snapshot().HasSubmitted)
}

func TestSubmitFallbackSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt, err := f.coord.Submit(ctx, SubmitRequest{Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, DurabilityLocal, receipt.Durability)
}

func TestSubmitKeepsCallerDeviceType(t *testing.T) {
	f := newFixture(t, nil)
	receipt, err := f.coord.Submit(context.Background(), SubmitRequest{
		Phone:      "9876543210",
		DeviceType: DeviceTablet,
		UserAgent:  androidUserAgent,
	})
	require.NoError(t, err)
	assert.Equal(t, DeviceTablet, receipt.Lead.DeviceType)
}

func TestSubmitNotifiesBestEffort(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	f := newFixture(t, n)

	_, err := f.coord.Submit(context.Background(), SubmitRequest{Phone: "9876543210"})
	require.NoError(t, err)
	f.coord.Close()

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.leads, 1)
	assert.Equal(t, "+919876543210", n.leads[0].PhoneNumber)
}

func TestExists(t *testing.T) {
	ctx := context.Background()

	t.Run("remote hit", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.remote.Insert(ctx, &Lead{PhoneNumber: "+919876543210"}))
		assert.True(t, f.coord.Exists(ctx, "98765 43210"))
	})

	t.Run("remote miss local hit", func(t *testing.T) {
		f := newFixture(t, nil)
		require.True(t, f.fallback.Append(ctx, Lead{PhoneNumber: "+919876543210"}))
		assert.True(t, f.coord.Exists(ctx, "9876543210"))
	})

	t.Run("remote error degrades to local", func(t *testing.T) {
		f := newFixture(t, nil)
		require.True(t, f.fallback.Append(ctx, Lead{PhoneNumber: "+919876543210"}))
		f.remote.SetFailure(errors.New("timeout"))
		assert.True(t, f.coord.Exists(ctx, "+919876543210"))
		assert.False(t, f.coord.Exists(ctx, "+918888888888"))
	})

	t.Run("absent everywhere", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.False(t, f.coord.Exists(ctx, "9876543210"))
	})

	t.Run("invalid number", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.False(t, f.coord.Exists(ctx, "not a phone"))
	})
}

func TestFallbackStorePreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := NewFallbackStore(localstore.NewMemoryStore(), logging.New("error"), nil)
	for _, p := range []string{"+916000000001", "+916000000002", "+916000000003"} {
		require.True(t, store.Append(ctx, Lead{PhoneNumber: p}))
	}
	all, err := store.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "+916000000001", all[0].PhoneNumber)
	assert.Equal(t, "+916000000003", all[2].PhoneNumber)
	assert.True(t, store.Exists(ctx, "+916000000002"))
	assert.False(t, store.Exists(ctx, "6000000002"))
}

func TestFallbackStoreSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemoryStore()
	require.NoError(t, local.Append(ctx, localstore.KeyCollectedPhones, "{broken"))
	store := NewFallbackStore(local, logging.New("error"), nil)

	assert.False(t, store.Exists(ctx, "+919876543210"))
	assert.True(t, store.Append(ctx, Lead{PhoneNumber: "+919876543210"}))

	all, err := store.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "+919876543210", all[0].PhoneNumber)
	assert.True(t, store.Exists(ctx, "+919876543210"))
}

type unreadableStore struct {
	*localstore.MemoryStore
}

func (unreadableStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("io error")
}

func TestFallbackStoreReadFailure(t *testing.T) {
	ctx := context.Background()
	store := NewFallbackStore(unreadableStore{localstore.NewMemoryStore()}, logging.New("error"), nil)

	assert.True(t, store.Append(ctx, Lead{PhoneNumber: "+919876543210"}))
	assert.False(t, store.Exists(ctx, "+919876543210"))
	_, err := store.ExportAll(ctx)
	assert.Error(t, err)
}
