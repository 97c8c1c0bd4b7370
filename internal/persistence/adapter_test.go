package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
)

func testCatalog() []item.Definition {
	return []item.Definition{
		{ID: "gloves", Name: "Gloves", BaseCost: 10, CostGrowth: 1.5, Effect: item.PerClick(2)},
		{ID: "mom", Name: "Mom", BaseCost: 20, CostGrowth: 1.5, Effect: item.PerInterval(1)},
		{ID: "pin", Name: "Rolling Pin", BaseCost: 10, Effect: item.Multiplier(1.5, 1)},
	}
}

func newEngine(t *testing.T, defs []item.Definition) *engine.Engine {
	t.Helper()
	eng := engine.NewEngine(logger.Discard())
	require.NoError(t, eng.RegisterCatalog(defs))
	return eng
}

// progressedEngine owns two gloves, one mom and the rolling pin.
func progressedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := newEngine(t, testCatalog())
	eng.Restore(engine.RestoreInput{Balance: 1000})
	for _, id := range []string{"gloves", "gloves", "mom", "pin"} {
		res, err := eng.Purchase(id)
		require.NoError(t, err)
		require.True(t, res.Success, "buying %s", id)
	}
	return eng
}

func newAdapter(store storage.KVStore) (*Adapter, *metrics.Collector) {
	m := metrics.New()
	return NewAdapter(store, "", logger.Discard(), m), m
}

type ownership struct {
	Owned     int
	Purchased bool
}

func ownershipOf(s engine.Snapshot) map[string]ownership {
	out := make(map[string]ownership, len(s.Items))
	for _, v := range s.Items {
		out[v.ID] = ownership{Owned: v.Owned, Purchased: v.Purchased}
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	adapter, m := newAdapter(store)
	ctx := context.Background()

	src := progressedEngine(t)
	require.NoError(t, adapter.Save(ctx, src))

	dst := newEngine(t, testCatalog())
	outcome, err := adapter.Load(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, Restored, outcome)

	want, got := src.Snapshot(), dst.Snapshot()
	assert.Equal(t, want.State, got.State)
	assert.Equal(t, ownershipOf(want), ownershipOf(got))
	assert.Equal(t, 7.5, got.State.PerClickYield, "(1 + 2*2) * 1.5")
	assert.EqualValues(t, 1, m.LoadsRestored)
	assert.EqualValues(t, 1, m.Saves)
}

func TestSaveResetLoadRestoresProgress(t *testing.T) {
	adapter, _ := newAdapter(storage.NewMemoryStore())
	ctx := context.Background()

	eng := progressedEngine(t)
	before := eng.Snapshot()
	require.NoError(t, adapter.Save(ctx, eng))

	eng.ResetToBaseline()
	require.Equal(t, 0.0, eng.State().Balance)

	outcome, err := adapter.Load(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, Restored, outcome)
	assert.Equal(t, before.State, eng.State())
	assert.Equal(t, ownershipOf(before), ownershipOf(eng.Snapshot()))
}

func TestLoadWithoutSave(t *testing.T) {
	adapter, m := newAdapter(storage.NewMemoryStore())
	eng := newEngine(t, testCatalog())

	outcome, err := adapter.Load(context.Background(), eng)
	require.NoError(t, err)
	assert.Equal(t, NoSaveFound, outcome)
	assert.Equal(t, 1.0, eng.State().PerClickYield)
	assert.EqualValues(t, 1, m.LoadsNoSave)
}

func TestLoadCorruptedSaveResetsAndDeletesKey(t *testing.T) {
	cases := map[string]string{
		"not json":             `{"cookie": 12,`,
		"array":                `[1,2,3]`,
		"null":                 `null`,
		"shopLevels object":    `{"cookie":5,"shopLevels":{"gloves":1}}`,
		"entry without id":     `{"cookie":5,"shopLevels":[{"level":1}]}`,
		"entry with number id": `{"cookie":5,"shopLevels":[{"id":3,"level":1}]}`,
		"entry not object":     `{"cookie":5,"shopLevels":[7]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			adapter, m := newAdapter(store)
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, DefaultSaveKey, payload))

			eng := progressedEngine(t)
			seq := eng.EventLog().Len()
			outcome, err := adapter.Load(ctx, eng)
			require.NoError(t, err)
			assert.Equal(t, Corrupted, outcome)

			_, err = store.Get(ctx, DefaultSaveKey)
			assert.ErrorIs(t, err, storage.ErrNotFound, "corrupted key must be removed")

			st := eng.State()
			assert.Equal(t, 0.0, st.Balance)
			assert.Equal(t, 1.0, st.PerClickYield)
			assert.Equal(t, 0.0, st.PerIntervalYield)
			assert.Len(t, eng.EventLog().GetByType(events.EventTypeSaveCorrupted), 1)
			assert.Empty(t, eng.EventLog().GetByType(events.EventTypeGameReset), "recovery is not a player reset")
			recovery := eng.EventLog().Since(uint64(seq))
			require.Len(t, recovery, 2)
			assert.Equal(t, events.EventTypeGameRestored, recovery[0].Type)
			assert.Equal(t, engine.ActorSystem, recovery[0].ActorID)
			assert.EqualValues(t, 1, m.LoadsCorrupted)
		})
	}
}

func TestLoadCoercesValues(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		balance float64
		gloves  int
	}{
		{"numeric string balance", `{"cookie":"42.5","shopLevels":[]}`, 42.5, 0},
		{"negative balance", `{"cookie":-5}`, 0, 0},
		{"text balance", `{"cookie":"lots"}`, 0, 0},
		{"bool balance", `{"cookie":true}`, 0, 0},
		{"missing balance", `{"shopLevels":[{"id":"gloves","level":1}]}`, 0, 1},
		{"string level", `{"cookie":1,"shopLevels":[{"id":"gloves","level":"3"}]}`, 1, 3},
		{"fractional level", `{"cookie":1,"shopLevels":[{"id":"gloves","level":2.9}]}`, 1, 2},
		{"negative level", `{"cookie":1,"shopLevels":[{"id":"gloves","level":-4}]}`, 1, 0},
		{"missing level", `{"cookie":1,"shopLevels":[{"id":"gloves"}]}`, 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			adapter, _ := newAdapter(store)
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, DefaultSaveKey, tc.payload))

			eng := newEngine(t, testCatalog())
			outcome, err := adapter.Load(ctx, eng)
			require.NoError(t, err)
			require.Equal(t, Restored, outcome)

			assert.Equal(t, tc.balance, eng.State().Balance)
			assert.Equal(t, tc.gloves, ownershipOf(eng.Snapshot())["gloves"].Owned)
			assert.Equal(t, 1.0+2*float64(tc.gloves), eng.State().PerClickYield)
		})
	}
}

func TestLoadTamperedLevelsIsBounded(t *testing.T) {
	store := storage.NewMemoryStore()
	adapter, _ := newAdapter(store)
	ctx := context.Background()
	payload := `{"cookie":5,"shopLevels":[` +
		`{"id":"click1","level":1e12},{"id":"click5","level":"1e12"},` +
		`{"id":"auto1","level":1e12},{"id":"auto10","level":1e12}]}`
	require.NoError(t, store.Set(ctx, DefaultSaveKey, payload))

	eng := newEngine(t, item.DefaultCatalog())
	start := time.Now()
	outcome, err := adapter.Load(ctx, eng)
	require.NoError(t, err)
	require.Equal(t, Restored, outcome)

	eng.RecomputeDerivedStats()
	assert.Less(t, time.Since(start), 2*time.Second)

	for _, def := range item.DefaultCatalog() {
		owned := ownershipOf(eng.Snapshot())[def.ID].Owned
		assert.LessOrEqual(t, owned, item.New(def).MaxOwned(), def.ID)
	}
	assert.Equal(t, item.New(item.DefaultCatalog()[0]).MaxOwned(), ownershipOf(eng.Snapshot())["click1"].Owned)

	require.NoError(t, adapter.Save(ctx, eng), "a clamped session must still encode")
}

// gatedStore blocks Set until release is closed.
type gatedStore struct {
	*storage.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Set(ctx context.Context, key, value string) error {
	close(g.entered)
	<-g.release
	return g.MemoryStore.Set(ctx, key, value)
}

func TestClearWaitsForSaveInFlight(t *testing.T) {
	store := &gatedStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	adapter, _ := newAdapter(store)
	ctx := context.Background()
	eng := progressedEngine(t)

	saved := make(chan error, 1)
	go func() { saved <- adapter.Save(ctx, eng) }()
	<-store.entered

	cleared := make(chan error, 1)
	go func() {
		eng.ResetToBaseline()
		cleared <- adapter.Clear(ctx)
	}()
	select {
	case err := <-cleared:
		t.Fatalf("Clear returned while a save was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-saved)
	require.NoError(t, <-cleared)

	_, err := store.Get(ctx, DefaultSaveKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "the pre-reset save must not survive the reset")
}

func TestLoadIgnoresStoredYieldsAndUnknownIDs(t *testing.T) {
	store := storage.NewMemoryStore()
	adapter, _ := newAdapter(store)
	ctx := context.Background()
	payload := `{"cookie":100,"cookie_per_click":9999,"cookie_per_second":9999,` +
		`"shopLevels":[{"id":"gloves","level":1},{"id":"retired_item","level":8},{"id":"mom","level":2}]}`
	require.NoError(t, store.Set(ctx, DefaultSaveKey, payload))

	eng := newEngine(t, testCatalog())
	outcome, err := adapter.Load(ctx, eng)
	require.NoError(t, err)
	require.Equal(t, Restored, outcome)

	st := eng.State()
	assert.Equal(t, 100.0, st.Balance)
	assert.Equal(t, 3.0, st.PerClickYield)
	assert.Equal(t, 2.0, st.PerIntervalYield)
}

func TestLoadRecomputesWithRebalancedCatalog(t *testing.T) {
	adapter, _ := newAdapter(storage.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, adapter.Save(ctx, progressedEngine(t)))

	rebalanced := testCatalog()
	rebalanced[0].Effect = item.PerClick(5)
	eng := newEngine(t, rebalanced)

	_, err := adapter.Load(ctx, eng)
	require.NoError(t, err)
	assert.Equal(t, 16.5, eng.State().PerClickYield, "(1 + 2*5) * 1.5")
}

func TestSaveWritesOneTimeFlag(t *testing.T) {
	store := storage.NewMemoryStore()
	adapter, _ := newAdapter(store)
	ctx := context.Background()
	require.NoError(t, adapter.Save(ctx, progressedEngine(t)))

	payload, err := store.Get(ctx, DefaultSaveKey)
	require.NoError(t, err)
	rec, err := DecodeSaveRecord(payload)
	require.NoError(t, err)

	assert.Equal(t, 7.5, rec.CookiePerClick)
	assert.Equal(t, 1.0, rec.CookiePerSecond)
	assert.Equal(t, []LevelEntry{
		{ID: "gloves", Level: 2},
		{ID: "mom", Level: 1},
		{ID: "pin", Level: 1, Purchased: true},
	}, rec.ShopLevels)
}

func TestSaveFailureIsReportedNotFatal(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailWrites(storage.ErrQuotaExceeded)
	adapter, m := newAdapter(store)

	eng := progressedEngine(t)
	before := eng.State()

	err := adapter.Save(context.Background(), eng)
	require.Error(t, err)

	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpWriteFailed, perr.Op)
	assert.True(t, errors.Is(err, storage.ErrQuotaExceeded))

	assert.Equal(t, before, eng.State(), "session must survive a failed write")
	assert.Len(t, eng.EventLog().GetByType(events.EventTypeSaveFailed), 1)
	assert.EqualValues(t, 1, m.SaveErrors)
}

type unreachableStore struct{ storage.MemoryStore }

var errUnreachable = errors.New("connection refused")

func (*unreachableStore) Get(context.Context, string) (string, error) {
	return "", errUnreachable
}

func TestLoadReadFailureLeavesSessionUntouched(t *testing.T) {
	adapter, _ := newAdapter(&unreachableStore{})
	eng := progressedEngine(t)
	before := eng.State()

	outcome, err := adapter.Load(context.Background(), eng)
	require.Error(t, err)
	assert.Equal(t, NoSaveFound, outcome)
	assert.ErrorIs(t, err, errUnreachable)

	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpReadFailed, perr.Op)
	assert.Equal(t, before, eng.State())
}

func TestClear(t *testing.T) {
	store := storage.NewMemoryStore()
	adapter := NewAdapter(store, "custom", logger.Discard(), nil)
	ctx := context.Background()

	require.NoError(t, adapter.Save(ctx, progressedEngine(t)))
	_, err := store.Get(ctx, "custom")
	require.NoError(t, err)

	require.NoError(t, adapter.Clear(ctx))
	_, err = store.Get(ctx, "custom")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteBackedRoundTrip(t *testing.T) {
	db, err := storage.InitSQLite(storage.InMemorySQLite)
	require.NoError(t, err)
	defer db.Close()

	adapter, _ := newAdapter(storage.NewSQLiteStore(db))
	ctx := context.Background()

	src := progressedEngine(t)
	require.NoError(t, adapter.Save(ctx, src))

	dst := newEngine(t, testCatalog())
	outcome, err := adapter.Load(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, Restored, outcome)
	assert.Equal(t, src.State(), dst.State())
}
