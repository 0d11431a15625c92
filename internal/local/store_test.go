package local

import (
	"context"
	"testing"
	"time"

	"github.com/meltforce/fittrack/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleWorkout(id string) models.Workout {
	return models.Workout{
		ID:        id,
		Date:      "2026-03-14",
		StartTime: "18:05:00",
		Source:    models.SourceManual,
		Exercises: []models.WorkoutExercise{
			{
				ID:         id + "-we",
				ExerciseID: "1",
				Order:      0,
				Sets:       []models.Set{{ID: id + "-s1", SetIndex: 1, Reps: 8, WeightKg: 60}},
			},
		},
	}
}

func TestSaveAndGetAllOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, sampleWorkout(id)); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
		time.Sleep(time.Millisecond) // distinct saved_at
	}

	all := s.GetAll(ctx)
	if len(all) != 3 {
		t.Fatalf("GetAll = %d records, want 3", len(all))
	}
	// Most-recently-saved first.
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("order = [%s %s %s], want [c b a]", all[0].ID, all[1].ID, all[2].ID)
	}
	if all[0].Exercises[0].Sets[0].WeightKg != 60 {
		t.Errorf("nested aggregate not round-tripped: %+v", all[0].Exercises[0])
	}
}

func TestGetUnsynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	unsynced := sampleWorkout("local-1")
	synced := sampleWorkout("remote-1")
	synced.Synced = true

	if err := s.Save(ctx, unsynced); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, synced); err != nil {
		t.Fatal(err)
	}

	got := s.GetUnsynced(ctx)
	if len(got) != 1 || got[0].ID != "local-1" {
		t.Errorf("GetUnsynced = %+v, want just local-1", got)
	}
}

// TestReplaceRewritesIdentifier covers the sync client's adoption of the
// server-assigned id: the row keyed by the local id is rewritten in place.
func TestReplaceRewritesIdentifier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	w := sampleWorkout("local-1")
	if err := s.Save(ctx, w); err != nil {
		t.Fatal(err)
	}

	w.ID = "server-9"
	w.Synced = true
	if err := s.Replace(ctx, "local-1", w); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	all := s.GetAll(ctx)
	if len(all) != 1 {
		t.Fatalf("GetAll = %d records, want 1", len(all))
	}
	if all[0].ID != "server-9" || !all[0].Synced {
		t.Errorf("record = %+v, want server id and synced", all[0])
	}
	if got := s.GetUnsynced(ctx); len(got) != 0 {
		t.Errorf("GetUnsynced = %d records after replace, want 0", len(got))
	}
}

// TestUpdateMissingIsNoOp: callers must Save before Update; an unknown id
// drops the write silently.
func TestUpdateMissingIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Update(ctx, sampleWorkout("ghost")); err != nil {
		t.Fatalf("Update on missing id should not error, got %v", err)
	}
	if got := s.GetAll(ctx); len(got) != 0 {
		t.Errorf("no-op update materialized %d records", len(got))
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleWorkout("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete on missing id should be a no-op, got %v", err)
	}
	if got := s.GetAll(ctx); len(got) != 0 {
		t.Errorf("GetAll = %d records after delete, want 0", len(got))
	}
}

// TestCorruptRowDegradesToEmpty: unreadable records must never fail a
// read, they are treated as absent.
func TestCorruptRowDegradesToEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(
		`INSERT INTO workouts (id, synced, saved_at, record) VALUES ('bad', 0, 1, 'not json{')`)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, sampleWorkout("good")); err != nil {
		t.Fatal(err)
	}

	all := s.GetAll(ctx)
	if len(all) != 1 || all[0].ID != "good" {
		t.Errorf("GetAll = %+v, want only the readable record", all)
	}
}
