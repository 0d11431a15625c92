package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ExerciseVolume aggregates training volume for one catalog exercise
// over a date range. Volume is the sum of weight x reps across
// completed sets.
type ExerciseVolume struct {
	ExerciseID  string  `json:"exerciseId"`
	Name        string  `json:"name"`
	MuscleGroup string  `json:"muscleGroup"`
	Workouts    int     `json:"workouts"`
	Sets        int     `json:"sets"`
	TotalReps   int     `json:"totalReps"`
	VolumeKg    float64 `json:"volumeKg"`
}

// TrainingVolume summarizes per-exercise volume for userID in the
// closed date interval [from, to], heaviest volume first.
func (db *DB) TrainingVolume(ctx context.Context, userID uuid.UUID, from, to string) ([]ExerciseVolume, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.id, e.name, e.muscle_group,
		        COUNT(DISTINCT w.id),
		        COUNT(s.id),
		        COALESCE(SUM(s.reps), 0),
		        COALESCE(SUM(s.weight_kg * s.reps), 0)
		 FROM workouts w
		 JOIN workout_exercises we ON we.workout_id = w.id
		 JOIN exercises e ON e.id = we.exercise_id
		 JOIN sets s ON s.workout_exercise_id = we.id AND s.completed
		 WHERE w.user_id = $1 AND w.date BETWEEN $2::date AND $3::date
		 GROUP BY e.id, e.name, e.muscle_group
		 ORDER BY 7 DESC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying training volume: %w", err)
	}
	defer rows.Close()

	var result []ExerciseVolume
	for rows.Next() {
		var v ExerciseVolume
		if err := rows.Scan(&v.ExerciseID, &v.Name, &v.MuscleGroup,
			&v.Workouts, &v.Sets, &v.TotalReps, &v.VolumeKg); err != nil {
			return nil, fmt.Errorf("scanning training volume: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
