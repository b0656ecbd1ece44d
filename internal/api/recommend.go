package api

import (
	"context"

	"github.com/tgienger/stride/internal/models"
)

// RecommendRequest describes the user's current working context
type RecommendRequest struct {
	AvailableMinutes int      `json:"available_minutes"`
	Mode             string   `json:"mode"`
	Place            string   `json:"place"`
	Tools            []string `json:"tools"`
}

// Recommend returns ranked candidate tasks for the given context
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) ([]models.Recommendation, error) {
	if req.Tools == nil {
		req.Tools = []string{}
	}
	var resp struct {
		Recommendations []recommendationDTO `json:"recommendations"`
	}
	if err := c.Post(ctx, "/recommend/", req, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Recommendation, len(resp.Recommendations))
	for i, r := range resp.Recommendations {
		out[i] = models.Recommendation{
			Task:   r.Task.toModel(),
			Reason: r.Reason,
			Score:  r.Score,
		}
	}
	return out, nil
}
