package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/dayledger/internal/shell"
)

const (
	todayURI  = "dayledger://today"
	reviewURI = "dayledger://review"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today",
		Description: "Habits and tasks completed today plus the habits still open",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         reviewURI,
		Name:        "Weekly review",
		Description: "Last week's habit completion rates, average discipline score and goals missing an update",
		MIMEType:    "application/json",
	}, s.handleReviewResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	summary, reminders, err := shell.BuildDailySummary(ctx, s.store, s.clock.Today())
	if err != nil {
		return nil, err
	}
	return jsonResource(todayURI, map[string]any{
		"summary":     summary,
		"open_habits": reminders,
	})
}

func (s *Server) handleReviewResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	review, err := shell.BuildWeeklyReview(ctx, s.store, s.clock.Today())
	if err != nil {
		return nil, err
	}
	return jsonResource(reviewURI, review)
}
