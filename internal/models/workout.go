package models

import "time"

// Date and wall-clock layouts used on the wire and in local storage.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// SourceManual tags workouts logged by hand in the app.
const SourceManual = "manual"

// Workout is one logged exercise session, the root aggregate.
//
// On-device the ID starts as a client-generated UUID; once the record is
// acknowledged by the server the sync client rewrites it to the
// server-assigned ID and flips Synced.
type Workout struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId,omitempty"`
	Date            string            `json:"date"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime,omitempty"`
	DurationSeconds int               `json:"durationSeconds,omitempty"`
	Source          string            `json:"source,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Synced          bool              `json:"synced"`
	Exercises       []WorkoutExercise `json:"exercises"`
	CreatedAt       time.Time         `json:"createdAt,omitempty"`
}

// WorkoutExercise is one exercise instance within a workout.
// Exercise carries the denormalized catalog data on-device and in server
// responses; it is never part of the create payload.
type WorkoutExercise struct {
	ID         string    `json:"id"`
	ExerciseID string    `json:"exerciseId"`
	Exercise   *Exercise `json:"exercise,omitempty"`
	Order      int       `json:"order"`
	Sets       []Set     `json:"sets"`
}

// Set is one performed set within an exercise. Completed transitions
// false to true exactly once; there is no uncomplete.
type Set struct {
	ID          string  `json:"id"`
	SetIndex    int     `json:"setIndex"`
	WeightKg    float64 `json:"weightKg"`
	Reps        int     `json:"reps"`
	RPE         *int    `json:"rpe,omitempty"`
	RestSeconds *int    `json:"restSeconds,omitempty"`
	Completed   bool    `json:"completed"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// SetPatch is a partial update for a set. Nil fields are left untouched.
type SetPatch struct {
	SetIndex    *int
	WeightKg    *float64
	Reps        *int
	RPE         *int
	RestSeconds *int
	Completed   *bool
	Timestamp   *string
}

// Apply merges the patch into s. A true Completed is never cleared.
func (p SetPatch) Apply(s *Set) {
	if p.SetIndex != nil {
		s.SetIndex = *p.SetIndex
	}
	if p.WeightKg != nil {
		s.WeightKg = *p.WeightKg
	}
	if p.Reps != nil {
		s.Reps = *p.Reps
	}
	if p.RPE != nil {
		s.RPE = p.RPE
	}
	if p.RestSeconds != nil {
		s.RestSeconds = p.RestSeconds
	}
	if p.Completed != nil && *p.Completed {
		s.Completed = true
	}
	if p.Timestamp != nil {
		s.Timestamp = *p.Timestamp
	}
}
