package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/progression"
	"github.com/tmduggan/gordon/internal/progression/level"
)

type progressService interface {
	Progress(ctx context.Context, userID string) (*progression.Snapshot, error)
	Level(totalXP int64, accountCreatedAt time.Time) (level.Info, error)
}

// Handler parses tool input, calls the progression service and formats the MCP result.
type Handler struct {
	service progressService
}

func NewHandler(service progressService) *Handler {
	return &Handler{
		service: service,
	}
}

type ProgressInput struct {
	UserID string `json:"user_id" jsonschema:"User id"`
}

// GetProgressTool returns the MCP tool handler for get_progress.
func (h *Handler) GetProgressTool() func(context.Context, *mcp.CallToolRequest, ProgressInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ProgressInput) (*mcp.CallToolResult, any, error) {
		if in.UserID == "" {
			return errorResult("Missing user_id"), nil, nil
		}
		snapshot, err := h.service.Progress(ctx, in.UserID)
		if err != nil {
			return errorResult("Error fetching progress: " + err.Error()), nil, nil
		}
		return jsonResult(snapshot), nil, nil
	}
}

type LevelInput struct {
	XP               int64  `json:"xp" jsonschema:"Total XP"`
	AccountCreatedAt string `json:"account_created_at,omitempty" jsonschema:"Account creation date (YYYY-MM-DD)"`
}

// GetLevelForXPTool returns the MCP tool handler for get_level_for_xp.
func (h *Handler) GetLevelForXPTool() func(context.Context, *mcp.CallToolRequest, LevelInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in LevelInput) (*mcp.CallToolResult, any, error) {
		var createdAt time.Time
		if in.AccountCreatedAt != "" {
			t, err := time.Parse("2006-01-02", in.AccountCreatedAt)
			if err != nil {
				return errorResult("Invalid account_created_at: use YYYY-MM-DD"), nil, nil
			}
			createdAt = t
		}
		info, err := h.service.Level(in.XP, createdAt)
		if err != nil {
			return errorResult("Error computing level: " + err.Error()), nil, nil
		}
		return jsonResult(info), nil, nil
	}
}

type PersonalBestsInput struct {
	UserID     string `json:"user_id" jsonschema:"User id"`
	ExerciseID string `json:"exercise_id,omitempty" jsonschema:"Filter by exercise id"`
}

// GetPersonalBestsTool returns the MCP tool handler for get_personal_bests.
func (h *Handler) GetPersonalBestsTool() func(context.Context, *mcp.CallToolRequest, PersonalBestsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in PersonalBestsInput) (*mcp.CallToolResult, any, error) {
		if in.UserID == "" {
			return errorResult("Missing user_id"), nil, nil
		}
		snapshot, err := h.service.Progress(ctx, in.UserID)
		if err != nil {
			return errorResult("Error fetching progress: " + err.Error()), nil, nil
		}

		bests := snapshot.Profile.PersonalBests
		if in.ExerciseID != "" {
			wb, ok := bests[in.ExerciseID]
			if !ok {
				return errorResult("No personal bests for exercise: " + in.ExerciseID), nil, nil
			}
			bests = map[string]gymlog.WindowBests{in.ExerciseID: wb}
		}
		return jsonResult(bests), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
