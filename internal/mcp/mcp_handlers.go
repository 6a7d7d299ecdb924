package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/core"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	svc *core.Service
}

// analysisStarted is the response of start_analysis.
type analysisStarted struct {
	AnalysisID   string                `json:"analysis_id"`
	RepositoryID string                `json:"repository_id"`
	Status       schema.AnalysisStatus `json:"status"`
}

func (h *toolHandler) handleGetBiography(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	bio, err := h.svc.Biography(ctx, repo)
	if err != nil {
		return toolError("biography failed", err), nil
	}
	return jsonResult(bio), nil
}

func (h *toolHandler) handleGetIntel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	sha, errResult := requireArg(request, "commit_sha")
	if errResult != nil {
		return errResult, nil
	}
	intel, err := h.svc.Intel(ctx, repo, sha)
	if err != nil {
		return toolError("intel failed", err), nil
	}
	return jsonResult(intel), nil
}

func (h *toolHandler) handleDiagnoseBugOrigin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	description, errResult := requireArg(request, "bug_description")
	if errResult != nil {
		return errResult, nil
	}
	since, err := parseSince(request.GetString("since", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	diagnosis, err := h.svc.DiagnoseBugOrigin(ctx, repo, description, since)
	if err != nil {
		return toolError("diagnosis failed", err), nil
	}
	return jsonResult(diagnosis), nil
}

func (h *toolHandler) handleExplainArchitecturalShift(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	report, err := h.svc.ArchitecturalShifts(ctx, repo)
	if err != nil {
		return toolError("architecture analysis failed", err), nil
	}
	return jsonResult(report), nil
}

func (h *toolHandler) handleGetReviewGuidelines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	guidelines, err := h.svc.ReviewGuidelines(ctx, repo)
	if err != nil {
		return toolError("review guidelines failed", err), nil
	}
	return jsonResult(guidelines), nil
}

func (h *toolHandler) handleGetHealthScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	health, err := h.svc.GetHealthScore(ctx, repo)
	if err != nil {
		return toolError("health score failed", err), nil
	}
	return jsonResult(health), nil
}

func (h *toolHandler) handleStartAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo, errResult := requireArg(request, "repository")
	if errResult != nil {
		return errResult, nil
	}
	task, err := h.svc.StartAnalysis(ctx, repo)
	if err != nil {
		return toolError("failed to start analysis", err), nil
	}
	return jsonResult(analysisStarted{
		AnalysisID:   task.AnalysisID,
		RepositoryID: task.RepositoryID,
		Status:       schema.ProcessingStatus,
	}), nil
}

func (h *toolHandler) handleGetAnalysisStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireArg(request, "analysis_id")
	if errResult != nil {
		return errResult, nil
	}
	run, err := h.svc.GetAnalysis(ctx, id)
	if err != nil {
		return toolError("analysis lookup failed", err), nil
	}
	return jsonResult(run), nil
}

func (h *toolHandler) handleListRepositories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := h.svc.ListRepositories(ctx)
	if err != nil {
		return toolError("listing repositories failed", err), nil
	}
	if repos == nil {
		repos = []schema.Repository{}
	}
	return jsonResult(repos), nil
}

// requireArg reads a mandatory string argument.
func requireArg(request mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(request.GetString(name, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
	}
	return v, nil
}

// toolError turns a service failure into a tool error with a hint for the caller.
func toolError(prefix string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s: %v", prefix, err)
	switch {
	case errors.Is(err, contract.ErrNotFound):
		msg += ". Check the reference, or import the repository and run start_analysis first"
	case errors.Is(err, contract.ErrAnalysisInProgress):
		msg += ". Poll get_analysis_status until it finishes"
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

// parseSince accepts RFC3339 timestamps and plain dates; empty means no bound.
func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid since %q: use RFC3339 or YYYY-MM-DD", raw)
}
