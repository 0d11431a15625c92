package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fittrack/internal/models"
)

// ListExercises returns the full exercise catalog, name order.
// The catalog is read-only reference data seeded by migration.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, equipment, is_bodyweight,
		        COALESCE(instruction_url, ''), COALESCE(description, '')
		 FROM exercises
		 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment,
			&e.IsBodyweight, &e.InstructionURL, &e.Description); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise looks up one catalog entry by identifier.
func (db *DB) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	var e models.Exercise
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, muscle_group, equipment, is_bodyweight,
		        COALESCE(instruction_url, ''), COALESCE(description, '')
		 FROM exercises
		 WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment,
			&e.IsBodyweight, &e.InstructionURL, &e.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return &e, nil
}
