package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	stdsync "sync"
	"time"

	"github.com/meltforce/fittrack/internal/models"
)

// Credentials is the bearer token pair attached to every request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the FitTrack server over HTTP. Every call carries the
// access token; a 401 triggers exactly one transparent refresh-and-retry
// before the failure surfaces.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    stdsync.Mutex
	creds Credentials
}

// NewClient creates an HTTP client for the FitTrack server. Each request
// observes a fixed timeout; a timed-out create counts as a failure and
// the record is retried on the next cycle.
func NewClient(serverURL string, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		creds: creds,
	}
}

// CreateWorkout POSTs one workout payload and returns the canonical
// record the server persisted, including its server-assigned id.
func (c *Client) CreateWorkout(ctx context.Context, req models.CreateWorkoutRequest) (*models.Workout, error) {
	var w models.Workout
	if err := c.do(ctx, http.MethodPost, "/api/v1/workouts", req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// SyncWorkouts POSTs a batch to the bulk endpoint and returns how many
// items the server persisted. Per-item failures are not reported.
func (c *Client) SyncWorkouts(ctx context.Context, workouts []models.CreateWorkoutRequest) (int, error) {
	var resp models.SyncWorkoutsResponse
	req := models.SyncWorkoutsRequest{Workouts: workouts}
	if err := c.do(ctx, http.MethodPost, "/api/v1/workouts/sync", req, &resp); err != nil {
		return 0, err
	}
	return resp.Synced, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, c.accessToken())
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		token, err := c.refresh(ctx)
		if err != nil {
			return fmt.Errorf("refreshing access token: %w", err)
		}
		resp, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// refresh exchanges the refresh token for a new access token.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	refreshToken := c.creds.RefreshToken
	c.mu.Unlock()

	payload := map[string]string{"refreshToken": refreshToken}
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/auth/refresh", payload, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding refresh response: %w", err)
	}

	c.mu.Lock()
	c.creds.AccessToken = out.AccessToken
	c.mu.Unlock()
	return out.AccessToken, nil
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.AccessToken
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return strings.TrimSpace(string(body))
}
