// Package builder stages the in-progress workout during a live logging
// session. One builder holds exactly one current workout; Finish hands
// the finalized record to the local store and resets for the next
// session.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fittrack/internal/models"
)

// SessionStore is the persistence port the builder writes finalized
// workouts to. *local.Store satisfies it.
type SessionStore interface {
	Save(ctx context.Context, w models.Workout) error
}

// Builder assembles the current workout in memory. It is not safe for
// concurrent use; one logging session has one writer.
type Builder struct {
	store   SessionStore
	current models.Workout
	now     func() time.Time
}

// New creates a builder with an empty current workout.
func New(store SessionStore) *Builder {
	b := &Builder{store: store, now: time.Now}
	b.Start()
	return b
}

// Start discards any staged state and begins a fresh empty workout with
// a new local identifier, today's date and the current time.
func (b *Builder) Start() {
	now := b.now()
	b.current = models.Workout{
		ID:        uuid.NewString(),
		Date:      now.Format(models.DateLayout),
		StartTime: now.Format(models.TimeLayout),
		Source:    models.SourceManual,
		Exercises: []models.WorkoutExercise{},
	}
}

// Current returns a deep copy of the staged workout.
func (b *Builder) Current() models.Workout {
	return copyWorkout(b.current)
}

// AddExercise appends an exercise referencing the given catalog entry,
// ordered after the existing ones and seeded with one empty set.
func (b *Builder) AddExercise(exercise models.Exercise) models.WorkoutExercise {
	catalog := exercise
	we := models.WorkoutExercise{
		ID:         uuid.NewString(),
		ExerciseID: exercise.ID,
		Exercise:   &catalog,
		Order:      len(b.current.Exercises),
		Sets: []models.Set{
			{ID: uuid.NewString(), SetIndex: 1, WeightKg: 0, Reps: 0, Completed: false},
		},
	}
	b.current.Exercises = append(b.current.Exercises, we)
	return we
}

// AddSet appends a set to the named exercise. The caller supplies a
// valid seed (index, weight, reps); the builder does not renumber.
// Returns false when the exercise is unknown.
func (b *Builder) AddSet(exerciseID string, seed models.Set) bool {
	ex := b.findExercise(exerciseID)
	if ex == nil {
		return false
	}
	seed.ID = uuid.NewString()
	ex.Sets = append(ex.Sets, seed)
	return true
}

// UpdateSet merges the patch into the matching set. Returns false when
// either identifier is unknown.
func (b *Builder) UpdateSet(exerciseID, setID string, patch models.SetPatch) bool {
	ex := b.findExercise(exerciseID)
	if ex == nil {
		return false
	}
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			patch.Apply(&ex.Sets[i])
			return true
		}
	}
	return false
}

// RemoveSet filters out the matching set. Remaining setIndex values are
// left untouched; indices are gap-tolerant after removal.
func (b *Builder) RemoveSet(exerciseID, setID string) bool {
	ex := b.findExercise(exerciseID)
	if ex == nil {
		return false
	}
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			ex.Sets = append(ex.Sets[:i], ex.Sets[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveExercise filters out the matching exercise and its sets. Sibling
// order values are not renumbered.
func (b *Builder) RemoveExercise(exerciseID string) bool {
	for i := range b.current.Exercises {
		if b.current.Exercises[i].ID == exerciseID {
			b.current.Exercises = append(b.current.Exercises[:i], b.current.Exercises[i+1:]...)
			return true
		}
	}
	return false
}

// Finish stamps the staged workout with its end time and duration,
// marks it unsynced, persists it to the session store and resets the
// builder. When the save fails the staged workout is retained so the
// caller can retry; nothing is half-written.
func (b *Builder) Finish(ctx context.Context, endTime string, durationSeconds int) (models.Workout, error) {
	w := copyWorkout(b.current)
	w.EndTime = endTime
	w.DurationSeconds = durationSeconds
	w.Synced = false

	if err := b.store.Save(ctx, w); err != nil {
		return models.Workout{}, fmt.Errorf("saving finished workout: %w", err)
	}

	b.Start()
	return w, nil
}

func (b *Builder) findExercise(exerciseID string) *models.WorkoutExercise {
	for i := range b.current.Exercises {
		if b.current.Exercises[i].ID == exerciseID {
			return &b.current.Exercises[i]
		}
	}
	return nil
}

func copyWorkout(w models.Workout) models.Workout {
	out := w
	out.Exercises = make([]models.WorkoutExercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		cp := ex
		if ex.Exercise != nil {
			catalog := *ex.Exercise
			cp.Exercise = &catalog
		}
		cp.Sets = make([]models.Set, len(ex.Sets))
		copy(cp.Sets, ex.Sets)
		out.Exercises[i] = cp
	}
	return out
}
