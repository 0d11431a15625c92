// Package sync reconciles locally finalized workouts with the server,
// one record at a time, best-effort. A record that fails stays unsynced
// under its local identifier and is retried on the next cycle; the
// clientId idempotency key keeps those retries from duplicating records
// the server already persisted.
package sync

import (
	"context"
	"errors"
	"log/slog"
	stdsync "sync"

	"github.com/meltforce/fittrack/internal/models"
)

// ErrSyncInProgress is returned when a cycle is triggered while another
// is still running; the second trigger is dropped, not queued.
var ErrSyncInProgress = errors.New("sync cycle already in progress")

// WorkoutStore is the local persistence port the syncer reads from and
// writes back to. *local.Store satisfies it.
type WorkoutStore interface {
	GetAll(ctx context.Context) []models.Workout
	GetUnsynced(ctx context.Context) []models.Workout
	Replace(ctx context.Context, oldID string, w models.Workout) error
}

// RemoteAPI is the server boundary. *Client satisfies it.
type RemoteAPI interface {
	CreateWorkout(ctx context.Context, req models.CreateWorkoutRequest) (*models.Workout, error)
	SyncWorkouts(ctx context.Context, workouts []models.CreateWorkoutRequest) (int, error)
}

// Stats reports the outcome of one sync cycle.
type Stats struct {
	Attempted int
	Synced    int
	Failed    int

	// Workouts is the full local collection reloaded after the cycle,
	// so callers observe the refreshed state (including newly adopted
	// server identifiers) without a second read.
	Workouts []models.Workout
}

// Syncer runs sync cycles against the remote workout service.
type Syncer struct {
	store  WorkoutStore
	remote RemoteAPI
	log    *slog.Logger

	inFlight stdsync.Mutex
}

// New creates a syncer with injected dependencies.
func New(store WorkoutStore, remote RemoteAPI, log *slog.Logger) *Syncer {
	return &Syncer{store: store, remote: remote, log: log}
}

// Run executes one sync cycle: every unsynced record is projected to the
// wire shape and created remotely, strictly sequentially, most-recent
// first. One record's failure never aborts the batch. A second Run while
// one is in flight returns ErrSyncInProgress.
func (s *Syncer) Run(ctx context.Context) (*Stats, error) {
	if !s.inFlight.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Unlock()

	unsynced := s.store.GetUnsynced(ctx)
	stats := &Stats{Attempted: len(unsynced)}

	for _, w := range unsynced {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		remote, err := s.remote.CreateWorkout(ctx, models.NewCreateRequest(w))
		if err != nil {
			s.log.Warn("workout sync failed, will retry next cycle",
				"workout", w.ID, "error", err)
			stats.Failed++
			continue
		}

		localID := w.ID
		w.ID = remote.ID
		w.UserID = remote.UserID
		w.Synced = true
		if err := s.store.Replace(ctx, localID, w); err != nil {
			// The server has the record; the idempotency key makes the
			// next cycle's retry converge on it instead of duplicating.
			s.log.Warn("failed to mark workout synced",
				"workout", localID, "error", err)
			stats.Failed++
			continue
		}

		s.log.Info("workout synced", "local", localID, "remote", remote.ID)
		stats.Synced++
	}

	stats.Workouts = s.store.GetAll(ctx)
	return stats, nil
}

// RunBulk pushes all unsynced records in a single bulk request. The
// endpoint reports only a count, so records are marked synced only when
// every item was persisted; on a partial result nothing is marked and
// the per-record path of the next cycle re-derives the pending set.
func (s *Syncer) RunBulk(ctx context.Context) (*Stats, error) {
	if !s.inFlight.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Unlock()

	unsynced := s.store.GetUnsynced(ctx)
	stats := &Stats{Attempted: len(unsynced)}
	if len(unsynced) == 0 {
		stats.Workouts = s.store.GetAll(ctx)
		return stats, nil
	}

	batch := make([]models.CreateWorkoutRequest, 0, len(unsynced))
	for _, w := range unsynced {
		batch = append(batch, models.NewCreateRequest(w))
	}

	count, err := s.remote.SyncWorkouts(ctx, batch)
	if err != nil {
		stats.Failed = len(unsynced)
		stats.Workouts = s.store.GetAll(ctx)
		return stats, err
	}

	if count < len(unsynced) {
		s.log.Warn("bulk sync persisted a partial batch; records stay pending",
			"sent", len(unsynced), "synced", count)
		stats.Failed = len(unsynced) - count
		stats.Workouts = s.store.GetAll(ctx)
		return stats, nil
	}

	for _, w := range unsynced {
		w.Synced = true
		if err := s.store.Replace(ctx, w.ID, w); err != nil {
			s.log.Warn("failed to mark workout synced", "workout", w.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Synced++
	}

	stats.Workouts = s.store.GetAll(ctx)
	return stats, nil
}
