// Package persistence saves and restores a game session through a storage.KVStore.
// A save is a single JSON record under one fixed key. Loading never fails the
// game: an unreadable record is deleted and the session starts from baseline.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
)

// DefaultSaveKey is the key used when none is configured.
const DefaultSaveKey = "cookieClickerSave_v1"

// Op names the storage operation that failed.
type Op string

const (
	OpReadFailed   Op = "read_failed"
	OpWriteFailed  Op = "write_failed"
	OpDeleteFailed Op = "delete_failed"
)

// PersistError reports a storage failure. The in-memory session is never
// affected by one.
type PersistError struct {
	Op  Op
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persistence %s for %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// LoadOutcome describes what Load found in the store.
type LoadOutcome int

const (
	NoSaveFound LoadOutcome = iota
	Corrupted
	Restored
)

func (o LoadOutcome) String() string {
	switch o {
	case NoSaveFound:
		return "no_save"
	case Corrupted:
		return "corrupted"
	case Restored:
		return "restored"
	}
	return fmt.Sprintf("LoadOutcome(%d)", int(o))
}

// Session is the part of the engine the adapter reads and writes.
type Session interface {
	Snapshot() engine.Snapshot
	Restore(in engine.RestoreInput) []string
	EventLog() *events.EventLog
}

var _ Session = (*engine.Engine)(nil)

// Adapter persists one session under one key.
// Save and Clear are serialized, so a save started before a Clear can never
// land after it.
type Adapter struct {
	mu      sync.Mutex
	store   storage.KVStore
	key     string
	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewAdapter creates an adapter (DefaultSaveKey if key is empty). m may be nil.
func NewAdapter(store storage.KVStore, key string, log *logger.Logger, m *metrics.Collector) *Adapter {
	if key == "" {
		key = DefaultSaveKey
	}
	return &Adapter{store: store, key: key, logger: log, metrics: m}
}

// Key returns the storage key the adapter writes.
func (a *Adapter) Key() string {
	return a.key
}

// Save snapshots the session and writes it. A failed write is logged,
// recorded in the event log and returned as a *PersistError.
func (a *Adapter) Save(ctx context.Context, s Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	snap := s.Snapshot()

	payload, err := NewSaveRecord(snap).Encode()
	if err == nil {
		err = a.store.Set(ctx, a.key, payload)
	}
	a.metrics.RecordSave(time.Since(start), err)
	if err == nil {
		return nil
	}

	perr := &PersistError{Op: OpWriteFailed, Key: a.key, Err: err}
	a.logger.Errorf("Failed to save game: %v", perr)
	s.EventLog().Append(events.GameEvent{
		Type:    events.EventTypeSaveFailed,
		ActorID: engine.ActorSystem,
		Payload: map[string]interface{}{"error": err.Error(), "quota": errors.Is(err, storage.ErrQuotaExceeded)},
	})
	return perr
}

// Load restores the saved session, if any.
// A missing key leaves the session untouched. A malformed record is deleted
// and the session restored to baseline by the system. The error is non-nil only when the store
// could not be read, in which case the session is untouched as well.
func (a *Adapter) Load(ctx context.Context, s Session) (LoadOutcome, error) {
	payload, err := a.store.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.logger.Info("No saved game found, starting fresh.")
			a.metrics.RecordLoad(NoSaveFound.String())
			return NoSaveFound, nil
		}
		perr := &PersistError{Op: OpReadFailed, Key: a.key, Err: err}
		a.logger.Errorf("Failed to load game: %v", perr)
		return NoSaveFound, perr
	}

	rec, err := DecodeSaveRecord(payload)
	if err != nil {
		a.recoverCorrupted(ctx, s, err)
		return Corrupted, nil
	}

	ignored := s.Restore(rec.RestoreInput())
	a.metrics.RecordLoad(Restored.String())
	a.logger.Infof("Restored saved game: %s cookies, %d entries (%d ignored)",
		logger.Amount(s.Snapshot().State.Balance), len(rec.ShopLevels), len(ignored))
	return Restored, nil
}

// Clear removes the saved record.
func (a *Adapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Delete(ctx, a.key); err != nil {
		perr := &PersistError{Op: OpDeleteFailed, Key: a.key, Err: err}
		a.logger.Errorf("Failed to clear save: %v", perr)
		return perr
	}
	return nil
}

func (a *Adapter) recoverCorrupted(ctx context.Context, s Session, cause error) {
	a.logger.Errorf("Save file corrupted, clearing data: %v", cause)
	a.metrics.RecordLoad(Corrupted.String())

	_ = a.Clear(ctx)
	s.Restore(engine.RestoreInput{})
	s.EventLog().Append(events.GameEvent{
		Type:    events.EventTypeSaveCorrupted,
		ActorID: engine.ActorSystem,
		Payload: map[string]interface{}{"error": cause.Error()},
	})
}
