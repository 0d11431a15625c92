package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fittrack/internal/models"
)

var resRecentWorkouts = mcp.NewResource(
	"fittrack://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days, with exercises and sets"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("not authenticated")
	}

	to := time.Now()
	from := to.AddDate(0, 0, -14)

	workouts, err := h.ds.ListWorkouts(ctx, uid,
		from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(workouts)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
