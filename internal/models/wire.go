package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateWorkoutRequest is the wire shape of POST /api/v1/workouts.
// ClientID is the idempotency key: the server upserts on
// (user, clientId) so a retried create never duplicates the record.
type CreateWorkoutRequest struct {
	ClientID        string                  `json:"clientId,omitempty"`
	Date            string                  `json:"date"`
	StartTime       string                  `json:"startTime"`
	EndTime         string                  `json:"endTime,omitempty"`
	DurationSeconds int                     `json:"durationSeconds,omitempty"`
	Source          string                  `json:"source,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	Exercises       []CreateExerciseRequest `json:"exercises"`
}

// CreateExerciseRequest carries only the catalog reference, never the
// denormalized catalog data the device holds.
type CreateExerciseRequest struct {
	ExerciseID string             `json:"exerciseId"`
	Order      int                `json:"order"`
	Sets       []CreateSetRequest `json:"sets"`
}

type CreateSetRequest struct {
	SetIndex    int     `json:"setIndex"`
	Reps        int     `json:"reps"`
	WeightKg    float64 `json:"weightKg"`
	Completed   bool    `json:"completed"`
	RPE         *int    `json:"rpe,omitempty"`
	RestSeconds *int    `json:"restSeconds,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// UpdateWorkoutRequest is the wire shape of PATCH /api/v1/workouts/:id.
// Only top-level fields are patchable; nil means leave unchanged.
type UpdateWorkoutRequest struct {
	Date            *string `json:"date,omitempty"`
	StartTime       *string `json:"startTime,omitempty"`
	EndTime         *string `json:"endTime,omitempty"`
	DurationSeconds *int    `json:"durationSeconds,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// SyncWorkoutsRequest is the wire shape of POST /api/v1/workouts/sync.
type SyncWorkoutsRequest struct {
	Workouts []CreateWorkoutRequest `json:"workouts"`
}

// SyncWorkoutsResponse reports only how many items were persisted.
type SyncWorkoutsResponse struct {
	Synced int `json:"synced"`
}

// Validate checks the payload shape before any persistence happens.
func (r *CreateWorkoutRequest) Validate() error {
	if r.ClientID != "" {
		if _, err := uuid.Parse(r.ClientID); err != nil {
			return fmt.Errorf("clientId must be a UUID: %q", r.ClientID)
		}
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %q", r.Date)
	}
	if _, err := time.Parse(TimeLayout, r.StartTime); err != nil {
		return fmt.Errorf("startTime must be HH:MM:SS: %q", r.StartTime)
	}
	if r.EndTime != "" {
		if _, err := time.Parse(TimeLayout, r.EndTime); err != nil {
			return fmt.Errorf("endTime must be HH:MM:SS: %q", r.EndTime)
		}
	}
	if r.DurationSeconds < 0 {
		return errors.New("durationSeconds must not be negative")
	}
	for i, ex := range r.Exercises {
		if ex.ExerciseID == "" {
			return fmt.Errorf("exercises[%d]: exerciseId is required", i)
		}
		if ex.Order < 0 {
			return fmt.Errorf("exercises[%d]: order must not be negative", i)
		}
		for j, set := range ex.Sets {
			if set.SetIndex < 1 {
				return fmt.Errorf("exercises[%d].sets[%d]: setIndex must be >= 1", i, j)
			}
			if set.Reps < 0 {
				return fmt.Errorf("exercises[%d].sets[%d]: reps must not be negative", i, j)
			}
			if set.WeightKg < 0 {
				return fmt.Errorf("exercises[%d].sets[%d]: weightKg must not be negative", i, j)
			}
			if set.RPE != nil && *set.RPE < 0 {
				return fmt.Errorf("exercises[%d].sets[%d]: rpe must not be negative", i, j)
			}
			if set.RestSeconds != nil && *set.RestSeconds < 0 {
				return fmt.Errorf("exercises[%d].sets[%d]: restSeconds must not be negative", i, j)
			}
		}
	}
	return nil
}

// Validate rejects patches whose present fields are malformed.
func (r *UpdateWorkoutRequest) Validate() error {
	if r.Date != nil {
		if _, err := time.Parse(DateLayout, *r.Date); err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %q", *r.Date)
		}
	}
	if r.StartTime != nil {
		if _, err := time.Parse(TimeLayout, *r.StartTime); err != nil {
			return fmt.Errorf("startTime must be HH:MM:SS: %q", *r.StartTime)
		}
	}
	if r.EndTime != nil && *r.EndTime != "" {
		if _, err := time.Parse(TimeLayout, *r.EndTime); err != nil {
			return fmt.Errorf("endTime must be HH:MM:SS: %q", *r.EndTime)
		}
	}
	if r.DurationSeconds != nil && *r.DurationSeconds < 0 {
		return errors.New("durationSeconds must not be negative")
	}
	return nil
}

func (r *SyncWorkoutsRequest) Validate() error {
	if len(r.Workouts) == 0 {
		return errors.New("workouts must contain at least one item")
	}
	return nil
}

// NewCreateRequest projects a locally stored workout aggregate into the
// wire shape: embedded catalog data is dropped (only exerciseId travels)
// and the local ID becomes the idempotency key.
func NewCreateRequest(w Workout) CreateWorkoutRequest {
	req := CreateWorkoutRequest{
		ClientID:        w.ID,
		Date:            w.Date,
		StartTime:       w.StartTime,
		EndTime:         w.EndTime,
		DurationSeconds: w.DurationSeconds,
		Source:          w.Source,
		Notes:           w.Notes,
		Exercises:       make([]CreateExerciseRequest, 0, len(w.Exercises)),
	}
	for _, ex := range w.Exercises {
		wireEx := CreateExerciseRequest{
			ExerciseID: ex.ExerciseID,
			Order:      ex.Order,
			Sets:       make([]CreateSetRequest, 0, len(ex.Sets)),
		}
		for _, s := range ex.Sets {
			wireEx.Sets = append(wireEx.Sets, CreateSetRequest{
				SetIndex:    s.SetIndex,
				Reps:        s.Reps,
				WeightKg:    s.WeightKg,
				Completed:   s.Completed,
				RPE:         s.RPE,
				RestSeconds: s.RestSeconds,
				Timestamp:   s.Timestamp,
			})
		}
		req.Exercises = append(req.Exercises, wireEx)
	}
	return req
}
