// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/gitlegend/gitlegend/core"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the GitLegend MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(svc *core.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"GitLegend Repository Intelligence",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{svc: svc}
	repository := mcp.WithString("repository",
		mcp.Description("Repository id, owner/name, or GitHub URL of an imported repository."),
		mcp.Required(),
	)

	// --- 1. Tool: get_biography ---
	s.AddTool(mcp.NewTool("get_biography",
		mcp.WithDescription("Tell the story of a repository: time span, commit volume, top and first contributors, most active month."),
		repository,
	), h.handleGetBiography)

	// --- 2. Tool: get_intel ---
	s.AddTool(mcp.NewTool("get_intel",
		mcp.WithDescription("Return a commit with its significance, summary, and up to five related commits."),
		repository,
		mcp.WithString("commit_sha", mcp.Description("Full SHA of the commit."), mcp.Required()),
	), h.handleGetIntel)

	// --- 3. Tool: diagnose_bug_origin ---
	s.AddTool(mcp.NewTool("diagnose_bug_origin",
		mcp.WithDescription("Find the commit most likely to have introduced a bug, based on bug keywords and significance."),
		repository,
		mcp.WithString("bug_description", mcp.Description("What goes wrong."), mcp.Required()),
		mcp.WithString("since", mcp.Description("Only consider commits after this date (RFC3339 or YYYY-MM-DD).")),
	), h.handleDiagnoseBugOrigin)

	// --- 4. Tool: explain_architectural_shift ---
	s.AddTool(mcp.NewTool("explain_architectural_shift",
		mcp.WithDescription("Classify key commits as architectural shifts and describe how the codebase evolved."),
		repository,
	), h.handleExplainArchitecturalShift)

	// --- 5. Tool: get_review_guidelines ---
	s.AddTool(mcp.NewTool("get_review_guidelines",
		mcp.WithDescription("Derive code review guidelines from the recent commit history."),
		repository,
	), h.handleGetReviewGuidelines)

	// --- 6. Tool: get_health_score ---
	s.AddTool(mcp.NewTool("get_health_score",
		mcp.WithDescription("Compute the repository health score: activity, contributor diversity, code quality, maintenance."),
		repository,
	), h.handleGetHealthScore)

	// --- 7. Tool: start_analysis ---
	s.AddTool(mcp.NewTool("start_analysis",
		mcp.WithDescription("Start a background analysis that fetches, scores and summarizes the commit history."),
		repository,
	), h.handleStartAnalysis)

	// --- 8. Tool: get_analysis_status ---
	s.AddTool(mcp.NewTool("get_analysis_status",
		mcp.WithDescription("Report the status, progress and counters of an analysis run."),
		mcp.WithString("analysis_id", mcp.Description("Id returned by start_analysis."), mcp.Required()),
	), h.handleGetAnalysisStatus)

	// --- 9. Tool: list_repositories ---
	s.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List the imported repositories."),
	), h.handleListRepositories)

	return s
}

// StartMCPServer serves the GitLegend MCP server over stdio.
func StartMCPServer(_ context.Context, svc *core.Service, version string) error {
	s := NewMCPServer(svc, version)
	return server.ServeStdio(s)
}
