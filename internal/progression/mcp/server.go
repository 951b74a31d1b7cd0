package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with read-only progression tools.
// The main backend mounts it at /mcp; cmd/progression_mcp serves it over stdio.
func NewServer(service progressService) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "progression-context",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_progress",
		Description: "Returns the progression snapshot of a user: total XP, level and title, daily and weekly streaks with bonuses, normalized muscle scores and personal bests. Arg: user_id.",
	}, h.GetProgressTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_level_for_xp",
		Description: "Returns the level info (level, thresholds, progress, title) for an XP amount. Args: xp; optional account_created_at (YYYY-MM-DD) to apply account-age decay.",
	}, h.GetLevelForXPTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_personal_bests",
		Description: "Returns the personal bests of a user per window (current, quarter, year, all time). Args: user_id; optional exercise_id to narrow to one exercise.",
	}, h.GetPersonalBestsTool())

	return s
}
