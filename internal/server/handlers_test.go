package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fittrack/internal/auth"
	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/server"
	"github.com/meltforce/fittrack/internal/storage"
)

// fakeStore is an in-memory Store for handler tests. It mirrors the
// storage layer's behaviors the handlers depend on: sentinel errors,
// per-user ownership, and client-ID idempotency.
type fakeStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	byEmail   map[string]uuid.UUID
	workouts  map[uuid.UUID]*models.Workout
	owners    map[uuid.UUID]uuid.UUID
	byClient  map[string]uuid.UUID
	exercises []models.Exercise
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uuid.UUID]*models.User{},
		byEmail:  map[string]uuid.UUID{},
		workouts: map[uuid.UUID]*models.Workout{},
		owners:   map[uuid.UUID]uuid.UUID{},
		byClient: map[string]uuid.UUID{},
		exercises: []models.Exercise{
			{ID: "1", Name: "Barbell Bench Press", MuscleGroup: "chest", Equipment: "barbell"},
			{ID: "2", Name: "Back Squat", MuscleGroup: "legs", Equipment: "barbell"},
		},
	}
}

func (f *fakeStore) hasExercise(id string) bool {
	for _, e := range f.exercises {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeStore) CreateWorkout(ctx context.Context, userID uuid.UUID, req models.CreateWorkoutRequest) (*models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.ClientID != "" {
		if id, ok := f.byClient[userID.String()+"/"+req.ClientID]; ok {
			return f.workouts[id], nil
		}
	}
	for _, ex := range req.Exercises {
		if !f.hasExercise(ex.ExerciseID) {
			return nil, fmt.Errorf("exercise %q: %w", ex.ExerciseID, storage.ErrInvalidReference)
		}
	}

	id := uuid.New()
	w := &models.Workout{
		ID:              id.String(),
		UserID:          userID.String(),
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationSeconds: req.DurationSeconds,
		Source:          req.Source,
		Notes:           req.Notes,
		Synced:          true,
		Exercises:       []models.WorkoutExercise{},
		CreatedAt:       time.Now(),
	}
	for _, ex := range req.Exercises {
		we := models.WorkoutExercise{
			ID:         uuid.NewString(),
			ExerciseID: ex.ExerciseID,
			Order:      ex.Order,
			Sets:       []models.Set{},
		}
		for _, set := range ex.Sets {
			we.Sets = append(we.Sets, models.Set{
				ID:        uuid.NewString(),
				SetIndex:  set.SetIndex,
				WeightKg:  set.WeightKg,
				Reps:      set.Reps,
				Completed: set.Completed,
			})
		}
		w.Exercises = append(w.Exercises, we)
	}

	f.workouts[id] = w
	f.owners[id] = userID
	if req.ClientID != "" {
		f.byClient[userID.String()+"/"+req.ClientID] = id
	}
	return w, nil
}

func (f *fakeStore) ListWorkouts(ctx context.Context, userID uuid.UUID, from, to string) ([]models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Workout
	for id, w := range f.workouts {
		if f.owners[id] != userID {
			continue
		}
		if from != "" && (w.Date < from || w.Date > to) {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeStore) GetWorkout(ctx context.Context, id, userID uuid.UUID) (*models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok || f.owners[id] != userID {
		return nil, storage.ErrNotFound
	}
	return w, nil
}

func (f *fakeStore) UpdateWorkout(ctx context.Context, id, userID uuid.UUID, req models.UpdateWorkoutRequest) (*models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok || f.owners[id] != userID {
		return nil, storage.ErrNotFound
	}
	if req.Notes != nil {
		w.Notes = *req.Notes
	}
	if req.EndTime != nil {
		w.EndTime = *req.EndTime
	}
	if req.DurationSeconds != nil {
		w.DurationSeconds = *req.DurationSeconds
	}
	return w, nil
}

func (f *fakeStore) DeleteWorkout(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workouts[id]; !ok || f.owners[id] != userID {
		return storage.ErrNotFound
	}
	delete(f.workouts, id)
	delete(f.owners, id)
	return nil
}

func (f *fakeStore) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return f.exercises, nil
}

func (f *fakeStore) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	for i := range f.exercises {
		if f.exercises[i].ID == id {
			return &f.exercises[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, email, passwordHash, displayName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return nil, storage.ErrEmailTaken
	}
	id := uuid.New()
	u := &models.User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
	}
	f.users[id] = u
	f.byEmail[email] = id
	return u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return f.users[id], nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpdateUserProfile(ctx context.Context, id uuid.UUID, displayName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u.DisplayName = displayName
	return u, nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore, *auth.Manager) {
	t.Helper()
	store := newFakeStore()
	tokens := auth.NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	srv := server.New(store, tokens, nil, testLogger())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, store, tokens
}

func registerUser(t *testing.T, ts *httptest.Server, email string) (userID, accessToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"secret1","displayName":"Tester"}`, email)
	resp, err := http.Post(ts.URL+"/api/v1/auth/register", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var out struct {
		User   models.User    `json:"user"`
		Tokens auth.TokenPair `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.User.ID, out.Tokens.AccessToken
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func validWorkoutBody() models.CreateWorkoutRequest {
	return models.CreateWorkoutRequest{
		ClientID:  uuid.NewString(),
		Date:      "2026-03-14",
		StartTime: "18:05:00",
		EndTime:   "18:45:00",
		Exercises: []models.CreateExerciseRequest{
			{
				ExerciseID: "1",
				Order:      0,
				Sets: []models.CreateSetRequest{
					{SetIndex: 1, Reps: 8, WeightKg: 60, Completed: true},
				},
			},
		},
	}
}

func TestWorkoutsRequireAuth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/workouts")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts", "not-a-jwt", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestRegisterLoginRefresh(t *testing.T) {
	ts, _, _ := newTestServer(t)

	_, _ = registerUser(t, ts, "ada@example.com")

	// Duplicate email conflicts.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// Wrong password and unknown email give the same 401.
	for _, creds := range []map[string]string{
		{"email": "ada@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "secret1"},
	} {
		resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", creds)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("login %v status = %d, want 401", creds, resp.StatusCode)
		}
		if body["error"] != "invalid email or password" {
			t.Errorf("login error = %q, want uniform message", body["error"])
		}
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	})
	var login struct {
		Tokens auth.TokenPair `json:"tokens"`
	}
	json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{
		"refreshToken": login.Tokens.RefreshToken,
	})
	var refreshed map[string]string
	json.NewDecoder(resp.Body).Decode(&refreshed)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || refreshed["accessToken"] == "" {
		t.Fatalf("refresh status = %d, token %q", resp.StatusCode, refreshed["accessToken"])
	}

	// An access token is not accepted as a refresh token.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/refresh", "", map[string]string{
		"refreshToken": login.Tokens.AccessToken,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh with access token status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateWorkout(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, token := registerUser(t, ts, "ada@example.com")

	body := validWorkoutBody()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", token, body)
	var created models.Workout
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if created.ID == "" || !created.Synced {
		t.Errorf("created workout = %+v", created)
	}

	// Replaying the same clientId returns the same record, not a copy.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", token, body)
	var replayed models.Workout
	json.NewDecoder(resp.Body).Decode(&replayed)
	resp.Body.Close()
	if replayed.ID != created.ID {
		t.Errorf("replay id = %q, want %q", replayed.ID, created.ID)
	}

	// Unknown catalog reference is the client's fault.
	bad := validWorkoutBody()
	bad.Exercises[0].ExerciseID = "999"
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", token, bad)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad reference status = %d, want 400", resp.StatusCode)
	}

	// Malformed payload never reaches the store.
	invalid := validWorkoutBody()
	invalid.Date = "last tuesday"
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", token, invalid)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid date status = %d, want 400", resp.StatusCode)
	}
}

func TestWorkoutOwnership(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, adaToken := registerUser(t, ts, "ada@example.com")
	_, bobToken := registerUser(t, ts, "bob@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", adaToken, validWorkoutBody())
	var created models.Workout
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// Another user's workout looks like it does not exist.
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp = doJSON(t, method, ts.URL+"/api/v1/workouts/"+created.ID, bobToken, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s as other user status = %d, want 404", method, resp.StatusCode)
		}
	}

	notes := "stolen"
	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/workouts/"+created.ID, bobToken,
		models.UpdateWorkoutRequest{Notes: &notes})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("patch as other user status = %d, want 404", resp.StatusCode)
	}

	// The owner still sees it.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts/"+created.ID, adaToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner get status = %d, want 200", resp.StatusCode)
	}
}

func TestListWorkouts(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, token := registerUser(t, ts, "ada@example.com")

	// Empty list serializes as [], not null.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts", token, nil)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if got := string(bytes.TrimSpace(raw)); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}

	// A half-open date filter is rejected.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts?from=2026-03-01", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("from without to status = %d, want 400", resp.StatusCode)
	}

	// Malformed dates are the client's fault, never a query error.
	for _, q := range []string{
		"?from=01/03/2026&to=2026-03-31",
		"?from=2026-03-01&to=tomorrow",
	} {
		resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts"+q, token, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("filter %q status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestUpdateAndDeleteWorkout(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, token := registerUser(t, ts, "ada@example.com")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts", token, validWorkoutBody())
	var created models.Workout
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	notes := "felt strong"
	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/workouts/"+created.ID, token,
		models.UpdateWorkoutRequest{Notes: &notes})
	var updated models.Workout
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || updated.Notes != "felt strong" {
		t.Errorf("patch status = %d, notes = %q", resp.StatusCode, updated.Notes)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/workouts/"+created.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts/"+created.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/workouts/not-a-uuid", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", resp.StatusCode)
	}
}

// TestBulkSyncPartialFailure sends a batch with one bad item and expects
// the rest to land: the endpoint reports two synced and keeps them.
func TestBulkSyncPartialFailure(t *testing.T) {
	ts, store, _ := newTestServer(t)
	_, token := registerUser(t, ts, "ada@example.com")

	good1 := validWorkoutBody()
	bad := validWorkoutBody()
	bad.Exercises[0].ExerciseID = "999"
	good2 := validWorkoutBody()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts/sync", token,
		models.SyncWorkoutsRequest{Workouts: []models.CreateWorkoutRequest{good1, bad, good2}})
	var out models.SyncWorkoutsResponse
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d, want 200", resp.StatusCode)
	}
	if out.Synced != 2 {
		t.Errorf("synced = %d, want 2", out.Synced)
	}
	if len(store.workouts) != 2 {
		t.Errorf("stored workouts = %d, want 2", len(store.workouts))
	}

	// An empty batch is a client error.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/workouts/sync", token,
		models.SyncWorkoutsRequest{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", resp.StatusCode)
	}
}

func TestExercisesAndProfile(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, token := registerUser(t, ts, "ada@example.com")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/exercises", token, nil)
	var catalog []models.Exercise
	json.NewDecoder(resp.Body).Decode(&catalog)
	resp.Body.Close()
	if len(catalog) != 2 {
		t.Errorf("catalog size = %d, want 2", len(catalog))
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/exercises/999", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown exercise status = %d, want 404", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/user/profile", token,
		map[string]string{"displayName": "Ada L."})
	var profile models.User
	json.NewDecoder(resp.Body).Decode(&profile)
	resp.Body.Close()
	if profile.DisplayName != "Ada L." {
		t.Errorf("displayName = %q, want updated value", profile.DisplayName)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/user/profile", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete account status = %d, want 204", resp.StatusCode)
	}
}
