package models

import "testing"

func validCreate() CreateWorkoutRequest {
	return CreateWorkoutRequest{
		ClientID:  "5f0c54f2-9e5a-4a9c-8f55-0a4f6f2f9b11",
		Date:      "2026-03-14",
		StartTime: "18:05:00",
		EndTime:   "18:45:00",
		Exercises: []CreateExerciseRequest{
			{
				ExerciseID: "1",
				Order:      0,
				Sets: []CreateSetRequest{
					{SetIndex: 1, Reps: 8, WeightKg: 60, Completed: true},
				},
			},
		},
	}
}

func TestCreateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateWorkoutRequest)
		wantErr bool
	}{
		{"valid", func(r *CreateWorkoutRequest) {}, false},
		{"no exercises is valid", func(r *CreateWorkoutRequest) { r.Exercises = nil }, false},
		{"no client id is valid", func(r *CreateWorkoutRequest) { r.ClientID = "" }, false},
		{"non-uuid client id", func(r *CreateWorkoutRequest) { r.ClientID = "local-1" }, true},
		{"bad date", func(r *CreateWorkoutRequest) { r.Date = "14/03/2026" }, true},
		{"bad start time", func(r *CreateWorkoutRequest) { r.StartTime = "6pm" }, true},
		{"bad end time", func(r *CreateWorkoutRequest) { r.EndTime = "later" }, true},
		{"negative duration", func(r *CreateWorkoutRequest) { r.DurationSeconds = -1 }, true},
		{"missing exercise id", func(r *CreateWorkoutRequest) { r.Exercises[0].ExerciseID = "" }, true},
		{"zero set index", func(r *CreateWorkoutRequest) { r.Exercises[0].Sets[0].SetIndex = 0 }, true},
		{"negative reps", func(r *CreateWorkoutRequest) { r.Exercises[0].Sets[0].Reps = -3 }, true},
		{"negative weight", func(r *CreateWorkoutRequest) { r.Exercises[0].Sets[0].WeightKg = -20 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewCreateRequest verifies the local aggregate is projected into the
// wire shape: denormalized catalog data is dropped, the local ID becomes
// the idempotency key, and all set fields survive.
func TestNewCreateRequest(t *testing.T) {
	rpe := 8
	w := Workout{
		ID:        "local-uuid",
		Date:      "2026-03-14",
		StartTime: "18:05:00",
		EndTime:   "18:45:00",
		Source:    SourceManual,
		Exercises: []WorkoutExercise{
			{
				ID:         "we-1",
				ExerciseID: "1",
				Exercise:   &Exercise{ID: "1", Name: "Barbell Bench Press"},
				Order:      0,
				Sets: []Set{
					{ID: "s-1", SetIndex: 1, WeightKg: 60, Reps: 8, Completed: true, RPE: &rpe},
					{ID: "s-2", SetIndex: 2, WeightKg: 62.5, Reps: 6},
				},
			},
		},
	}

	req := NewCreateRequest(w)

	if req.ClientID != "local-uuid" {
		t.Errorf("clientId = %q, want local workout id", req.ClientID)
	}
	if len(req.Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(req.Exercises))
	}
	ex := req.Exercises[0]
	if ex.ExerciseID != "1" || ex.Order != 0 {
		t.Errorf("exercise projection = %+v", ex)
	}
	if len(ex.Sets) != 2 {
		t.Fatalf("sets = %d, want 2", len(ex.Sets))
	}
	if ex.Sets[1].WeightKg != 62.5 || ex.Sets[1].Reps != 6 {
		t.Errorf("second set = %+v", ex.Sets[1])
	}
	if ex.Sets[0].RPE == nil || *ex.Sets[0].RPE != 8 {
		t.Errorf("rpe not carried over: %+v", ex.Sets[0])
	}
}

// TestSetPatchApply verifies merge semantics, in particular that a
// completed set can never be uncompleted.
func TestSetPatchApply(t *testing.T) {
	s := Set{SetIndex: 1, WeightKg: 60, Reps: 8, Completed: true}

	weight := 62.5
	done := false
	SetPatch{WeightKg: &weight, Completed: &done}.Apply(&s)

	if s.WeightKg != 62.5 {
		t.Errorf("weight = %v, want 62.5", s.WeightKg)
	}
	if !s.Completed {
		t.Error("completed was cleared; the transition is one-way")
	}
	if s.Reps != 8 {
		t.Errorf("reps changed to %d without a patch field", s.Reps)
	}
}
