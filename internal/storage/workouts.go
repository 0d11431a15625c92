package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fittrack/internal/models"
)

const workoutColumns = `id, user_id, date::text, start_time::text,
	 COALESCE(end_time::text, ''), COALESCE(duration_sec, 0),
	 source, COALESCE(notes, ''), created_at`

// CreateWorkout persists a workout together with its exercises and sets
// in one transaction, then returns the full materialized record with
// catalog data joined in.
//
// When the payload carries a clientId the insert is idempotent on
// (user_id, client_id): a retry of an already-persisted create returns
// the original record instead of duplicating it.
func (db *DB) CreateWorkout(ctx context.Context, userID uuid.UUID, req models.CreateWorkoutRequest) (*models.Workout, error) {
	if req.ClientID != "" {
		existing, err := db.findByClientID(ctx, userID, req.ClientID)
		if err != nil {
			return nil, err
		}
		if existing != uuid.Nil {
			return db.GetWorkout(ctx, existing, userID)
		}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var workoutID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO workouts (user_id, client_id, date, start_time, end_time, duration_sec, source, notes)
		 VALUES ($1, NULLIF($2,'')::uuid, $3::date, $4::time, NULLIF($5,'')::time, $6,
		         COALESCE(NULLIF($7,''), 'manual'), $8)
		 RETURNING id`,
		userID, req.ClientID, req.Date, req.StartTime, req.EndTime,
		req.DurationSeconds, req.Source, req.Notes).Scan(&workoutID)
	if err != nil {
		// A concurrent create with the same idempotency key won the
		// race; hand back the record it persisted.
		if pgErrCode(err) == pgUniqueViolation && req.ClientID != "" {
			existing, lookupErr := db.findByClientID(ctx, userID, req.ClientID)
			if lookupErr == nil && existing != uuid.Nil {
				return db.GetWorkout(ctx, existing, userID)
			}
		}
		return nil, fmt.Errorf("inserting workout: %w", err)
	}

	for _, ex := range req.Exercises {
		var weID uuid.UUID
		err = tx.QueryRow(ctx,
			`INSERT INTO workout_exercises (workout_id, exercise_id, ord)
			 VALUES ($1, $2, $3)
			 RETURNING id`,
			workoutID, ex.ExerciseID, ex.Order).Scan(&weID)
		if err != nil {
			if pgErrCode(err) == pgForeignKeyViolation {
				return nil, fmt.Errorf("%w: %s", ErrInvalidReference, ex.ExerciseID)
			}
			return nil, fmt.Errorf("inserting workout exercise: %w", err)
		}

		if err := insertSets(ctx, tx, weID, ex.Sets); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing workout: %w", err)
	}

	return db.GetWorkout(ctx, workoutID, userID)
}

// insertSets batch-inserts the sets of one exercise with numbered placeholders.
func insertSets(ctx context.Context, tx pgx.Tx, workoutExerciseID uuid.UUID, sets []models.CreateSetRequest) error {
	if len(sets) == 0 {
		return nil
	}

	query := `INSERT INTO sets (workout_exercise_id, set_index, weight_kg, reps, rpe, rest_seconds, completed, performed_at) VALUES `
	args := make([]any, 0, len(sets)*8)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,NULLIF($%d,'')::timestamptz)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args, workoutExerciseID, s.SetIndex, s.WeightKg, s.Reps,
			s.RPE, s.RestSeconds, s.Completed, s.Timestamp)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting sets: %w", err)
	}
	return nil
}

func (db *DB) findByClientID(ctx context.Context, userID uuid.UUID, clientID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM workouts WHERE user_id = $1 AND client_id = $2::uuid`,
		userID, clientID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up client id: %w", err)
	}
	return id, nil
}

// ListWorkouts retrieves all workouts owned by userID, optionally
// restricted to the closed date interval [from, to], ordered by date
// descending then start time descending, with nested aggregates loaded.
func (db *DB) ListWorkouts(ctx context.Context, userID uuid.UUID, from, to string) ([]models.Workout, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE user_id = $1`
	args := []any{userID}
	if from != "" && to != "" {
		query += ` AND date BETWEEN $2::date AND $3::date`
		args = append(args, from, to)
	}
	query += ` ORDER BY date DESC, start_time DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var workouts []models.Workout
	var ids []uuid.UUID
	for rows.Next() {
		w, id, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.loadExercises(ctx, ids, workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// GetWorkout retrieves one workout if it belongs to userID. Ownership is
// part of the lookup predicate, so a foreign workout is ErrNotFound.
func (db *DB) GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		id, userID)

	w, wid, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	workouts := []models.Workout{w}
	if err := db.loadExercises(ctx, []uuid.UUID{wid}, workouts); err != nil {
		return nil, err
	}
	return &workouts[0], nil
}

// UpdateWorkout applies a partial update to the caller's own workout and
// returns the re-read record. ErrNotFound when (id, owner) matches nothing.
func (db *DB) UpdateWorkout(ctx context.Context, id, userID uuid.UUID, req models.UpdateWorkoutRequest) (*models.Workout, error) {
	setClause, args := buildWorkoutUpdate(req)
	if setClause == "" {
		return db.GetWorkout(ctx, id, userID)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`UPDATE workouts SET %s WHERE id = $%d AND user_id = $%d`,
		setClause, len(args)-1, len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetWorkout(ctx, id, userID)
}

// buildWorkoutUpdate renders the SET clause for the non-nil patch fields.
func buildWorkoutUpdate(req models.UpdateWorkoutRequest) (string, []any) {
	var parts []string
	var args []any

	add := func(expr string, val any) {
		args = append(args, val)
		parts = append(parts, fmt.Sprintf(expr, len(args)))
	}

	if req.Date != nil {
		add("date = $%d::date", *req.Date)
	}
	if req.StartTime != nil {
		add("start_time = $%d::time", *req.StartTime)
	}
	if req.EndTime != nil {
		add("end_time = NULLIF($%d,'')::time", *req.EndTime)
	}
	if req.DurationSeconds != nil {
		add("duration_sec = $%d", *req.DurationSeconds)
	}
	if req.Notes != nil {
		add("notes = $%d", *req.Notes)
	}

	return strings.Join(parts, ", "), args
}

// DeleteWorkout removes the caller's own workout; exercises and sets go
// with it via cascade. ErrNotFound when zero rows were affected.
func (db *DB) DeleteWorkout(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// exerciseRow is one workout_exercises row joined with its catalog entry.
type exerciseRow struct {
	weID      uuid.UUID
	workoutID uuid.UUID
	catalog   models.Exercise
	order     int
}

// setRow is one sets row keyed by its parent exercise instance.
type setRow struct {
	weID uuid.UUID
	set  models.Set
}

// loadExercises populates the Exercises of the given workouts (parallel
// to ids) with catalog data joined in and sets in index order.
func (db *DB) loadExercises(ctx context.Context, ids []uuid.UUID, workouts []models.Workout) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT we.id, we.workout_id, we.exercise_id, we.ord,
		        e.name, e.muscle_group, e.equipment, e.is_bodyweight,
		        COALESCE(e.instruction_url, ''), COALESCE(e.description, '')
		 FROM workout_exercises we
		 JOIN exercises e ON e.id = we.exercise_id
		 WHERE we.workout_id = ANY($1)
		 ORDER BY we.ord ASC`,
		ids)
	if err != nil {
		return fmt.Errorf("querying workout exercises: %w", err)
	}
	defer rows.Close()

	var exRows []exerciseRow
	for rows.Next() {
		var r exerciseRow
		if err := rows.Scan(&r.weID, &r.workoutID, &r.catalog.ID, &r.order,
			&r.catalog.Name, &r.catalog.MuscleGroup, &r.catalog.Equipment,
			&r.catalog.IsBodyweight, &r.catalog.InstructionURL,
			&r.catalog.Description); err != nil {
			return fmt.Errorf("scanning workout exercise: %w", err)
		}
		exRows = append(exRows, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	byExercise, weIDs := attachExercises(ids, workouts, exRows)
	if len(weIDs) == 0 {
		return nil
	}

	setRows, err := db.querySets(ctx, weIDs)
	if err != nil {
		return err
	}
	attachSets(byExercise, setRows)
	return nil
}

// attachExercises appends the scanned exercise rows onto their workouts
// and returns a pointer index for attaching sets. All appends happen
// before any pointer into an Exercises slice is taken, so the pointers
// stay valid while sets are written through them.
func attachExercises(ids []uuid.UUID, workouts []models.Workout, exRows []exerciseRow) (map[uuid.UUID]*models.WorkoutExercise, []uuid.UUID) {
	byWorkout := make(map[uuid.UUID]*models.Workout, len(ids))
	for i := range workouts {
		byWorkout[ids[i]] = &workouts[i]
	}

	for _, r := range exRows {
		w := byWorkout[r.workoutID]
		catalog := r.catalog
		w.Exercises = append(w.Exercises, models.WorkoutExercise{
			ID:         r.weID.String(),
			ExerciseID: r.catalog.ID,
			Exercise:   &catalog,
			Order:      r.order,
			Sets:       []models.Set{},
		})
	}

	byExercise := make(map[uuid.UUID]*models.WorkoutExercise, len(exRows))
	weIDs := make([]uuid.UUID, 0, len(exRows))
	next := make(map[uuid.UUID]int, len(ids))
	for _, r := range exRows {
		w := byWorkout[r.workoutID]
		i := next[r.workoutID]
		byExercise[r.weID] = &w.Exercises[i]
		next[r.workoutID] = i + 1
		weIDs = append(weIDs, r.weID)
	}
	return byExercise, weIDs
}

func (db *DB) querySets(ctx context.Context, weIDs []uuid.UUID) ([]setRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, workout_exercise_id, set_index, weight_kg, reps,
		        rpe, rest_seconds, completed, COALESCE(performed_at::text, '')
		 FROM sets
		 WHERE workout_exercise_id = ANY($1)
		 ORDER BY set_index ASC`,
		weIDs)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []setRow
	for rows.Next() {
		var id uuid.UUID
		var r setRow
		if err := rows.Scan(&id, &r.weID, &r.set.SetIndex, &r.set.WeightKg,
			&r.set.Reps, &r.set.RPE, &r.set.RestSeconds, &r.set.Completed,
			&r.set.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		r.set.ID = id.String()
		result = append(result, r)
	}
	return result, rows.Err()
}

func attachSets(byExercise map[uuid.UUID]*models.WorkoutExercise, setRows []setRow) {
	for _, r := range setRows {
		ex := byExercise[r.weID]
		ex.Sets = append(ex.Sets, r.set)
	}
}

type workoutScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row workoutScanner) (models.Workout, uuid.UUID, error) {
	var w models.Workout
	var id, userID uuid.UUID
	err := row.Scan(&id, &userID, &w.Date, &w.StartTime, &w.EndTime,
		&w.DurationSeconds, &w.Source, &w.Notes, &w.CreatedAt)
	if err != nil {
		return w, uuid.Nil, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.Synced = true
	w.Exercises = []models.WorkoutExercise{}
	return w, id, nil
}
