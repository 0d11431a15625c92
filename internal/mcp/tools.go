package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fittrack/internal/models"
)

// defaultDateRange returns a from/to date pair defaulting to the last
// 30 days. Dates travel as YYYY-MM-DD strings end to end.
func defaultDateRange(fromStr, toStr string) (string, string, error) {
	to := time.Now()
	if toStr != "" {
		var err error
		to, err = time.Parse(models.DateLayout, toStr)
		if err != nil {
			return "", "", err
		}
	}

	from := to.AddDate(0, 0, -30)
	if fromStr != "" {
		var err error
		from, err = time.Parse(models.DateLayout, fromStr)
		if err != nil {
			return "", "", err
		}
	}

	return from.Format(models.DateLayout), to.Format(models.DateLayout), nil
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Query logged workouts in a date range. Returns full workout records including exercises and sets."),
	mcp.WithString("from", mcp.Description("Start date (YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Fetch one workout by ID, with all exercises and sets."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID (UUID)")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise catalog: names, muscle groups, and equipment."),
)

var toolGetTrainingVolume = mcp.NewTool("get_training_volume",
	mcp.WithDescription("Per-exercise training volume over a date range: workouts, sets, total reps, and tonnage (sum of weight x reps over completed sets), heaviest first."),
	mcp.WithString("from", mcp.Description("Start date (YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date (YYYY-MM-DD). Defaults to today.")),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx, uid, from, to)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("id must be a UUID"), nil
	}

	workout, err := h.ds.GetWorkout(ctx, id, uid)
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workout)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	volume, err := h.ds.TrainingVolume(ctx, uid, from, to)
	if err != nil {
		h.log.Error("mcp get_training_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(volume)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
