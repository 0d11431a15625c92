// Package mcp exposes the workout data as an MCP server so LLM clients
// can query training history over the same authenticated HTTP surface
// the app uses.
package mcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user injected by the transport layer.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// WithUserID returns a context carrying the authenticated user.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// DataSource abstracts the data layer for MCP tools. *storage.DB
// satisfies it; tests use an in-memory fake.
type DataSource interface {
	ListWorkouts(ctx context.Context, userID uuid.UUID, from, to string) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	TrainingVolume(ctx context.Context, userID uuid.UUID, from, to string) ([]storage.ExerciseVolume, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitTrack workout data server. Query logged workouts, sets, the exercise catalog, and training volume. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetTrainingVolume, Handler: h.getTrainingVolume},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
