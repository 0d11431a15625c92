package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/fittrack/internal/auth"
	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

// Store is the persistence boundary the handlers talk to. *storage.DB
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	CreateWorkout(ctx context.Context, userID uuid.UUID, req models.CreateWorkoutRequest) (*models.Workout, error)
	ListWorkouts(ctx context.Context, userID uuid.UUID, from, to string) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error)
	UpdateWorkout(ctx context.Context, id, userID uuid.UUID, req models.UpdateWorkoutRequest) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, id, userID uuid.UUID) error

	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)

	CreateUser(ctx context.Context, email, passwordHash, displayName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, displayName string) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	tokens *auth.Manager
	log    *slog.Logger
	mcp    http.Handler
	router chi.Router
}

// New creates a new Server with all routes configured. mcpHandler may be
// nil when the MCP surface is disabled.
func New(store Store, tokens *auth.Manager, mcpHandler http.Handler, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		tokens: tokens,
		log:    log,
		mcp:    mcpHandler,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(s.tokens))

			r.Get("/workouts", s.handleListWorkouts)
			r.Post("/workouts", s.handleCreateWorkout)
			r.Post("/workouts/sync", s.handleSyncWorkouts)
			r.Get("/workouts/{id}", s.handleGetWorkout)
			r.Patch("/workouts/{id}", s.handleUpdateWorkout)
			r.Delete("/workouts/{id}", s.handleDeleteWorkout)

			r.Get("/exercises", s.handleListExercises)
			r.Get("/exercises/{id}", s.handleGetExercise)

			r.Get("/user/profile", s.handleGetProfile)
			r.Patch("/user/profile", s.handleUpdateProfile)
			r.Delete("/user/profile", s.handleDeleteProfile)
		})
	})

	if s.mcp != nil {
		s.router.Group(func(r chi.Router) {
			r.Use(BearerAuth(s.tokens))
			r.Use(MCPIdentity)
			r.Handle("/mcp", s.mcp)
			r.Handle("/mcp/*", s.mcp)
		})
	}
}
