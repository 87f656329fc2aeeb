package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/opinion"
	"github.com/joescharf/mergeq/internal/readiness"
	"github.com/joescharf/mergeq/internal/store"
	"github.com/joescharf/mergeq/internal/workflow"
)

// Server exposes the pure decision functions and the run history as MCP tools.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper. s may be nil, in which case the
// history tools report an error.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("mergeq", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.evaluateReadinessTool())
	srv.AddTool(s.classifyConflictTool())
	srv.AddTool(s.aggregateReviewsTool())
	srv.AddTool(s.listRunsTool())
	srv.AddTool(s.runResultsTool())
	srv.AddTool(s.prHistoryTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Decision tools
// ---------------------------------------------------------------------------

// mq_evaluate_readiness
func (s *Server) evaluateReadinessTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_evaluate_readiness",
		mcp.WithDescription("Evaluate whether a pull request is ready to merge from its host metadata. Returns the verdict and the failing checks."),
		mcp.WithString("state", mcp.Required(), mcp.Description("PR state, e.g. OPEN, CLOSED, MERGED")),
		mcp.WithString("mergeable", mcp.Description("Mergeable state: MERGEABLE, CONFLICTING or UNKNOWN")),
		mcp.WithString("merge_state_status", mcp.Description("Merge state status, e.g. CLEAN, DIRTY, BLOCKED")),
		mcp.WithBoolean("is_draft", mcp.Description("Whether the PR is a draft")),
	)
	return tool, s.handleEvaluateReadiness
}

func (s *Server) handleEvaluateReadiness(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := request.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: state"), nil
	}

	v := readiness.Evaluate(readiness.Metadata{
		State:            state,
		Mergeable:        request.GetString("mergeable", ""),
		MergeStateStatus: request.GetString("merge_state_status", ""),
		IsDraft:          request.GetBool("is_draft", false),
	})

	failing := v.Failing()
	if failing == nil {
		failing = []readiness.Check{}
	}
	out := struct {
		readiness.Verdict
		Failing []readiness.Check `json:"failing"`
	}{v, failing}
	return jsonResult(out)
}

// mq_classify_conflict
func (s *Server) classifyConflictTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_classify_conflict",
		mcp.WithDescription("Classify a conflicted file and recommend a resolution strategy. Pass the conflicted content, or its size and conflict section count."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Repository-relative file path")),
		mcp.WithString("content", mcp.Description("Conflicted file content including markers")),
		mcp.WithNumber("size_bytes", mcp.Description("File size in bytes, used when content is omitted")),
		mcp.WithNumber("marker_count", mcp.Description("Number of conflict sections, used when content is omitted")),
	)
	return tool, s.handleClassifyConflict
}

func (s *Server) handleClassifyConflict(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	var p conflict.Profile
	if content := request.GetString("content", ""); content != "" {
		p = conflict.ProfileContent(path, content)
	} else {
		p = conflict.Classify(path, request.GetInt("size_bytes", 0), request.GetInt("marker_count", 0))
	}
	return jsonResult(p)
}

// mq_aggregate_reviews
func (s *Server) aggregateReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_aggregate_reviews",
		mcp.WithDescription(`Parse reviewer answers and compute the consensus. reviews is a JSON array of {"source": "...", "text": "..."} objects.`),
		mcp.WithString("reviews", mcp.Required(), mcp.Description("JSON array of reviews")),
		mcp.WithNumber("required_approvals", mcp.Description("Approvals needed for consensus (default 2)")),
	)
	return tool, s.handleAggregateReviews
}

func (s *Server) handleAggregateReviews(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("reviews")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: reviews"), nil
	}
	var reviews []workflow.ReviewText
	if err := json.Unmarshal([]byte(raw), &reviews); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid reviews JSON: %v", err)), nil
	}

	all, res, err := workflow.AggregateTexts(reviews, request.GetInt("required_approvals", consensus.DefaultRequiredApprovals))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := struct {
		Opinions  []opinion.Opinion `json:"opinions"`
		Consensus *consensus.Result `json:"consensus"`
		Summary   string            `json:"summary"`
	}{all, res, res.Summary()}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// History tools
// ---------------------------------------------------------------------------

type runOut struct {
	ID         string          `json:"id"`
	Repo       string          `json:"repo"`
	DryRun     bool            `json:"dry_run"`
	Stats      models.RunStats `json:"stats"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
}

func toRunOut(r *models.Run) runOut {
	out := runOut{
		ID:        r.ID,
		Repo:      r.Repo,
		DryRun:    r.DryRun,
		Stats:     r.Stats,
		StartedAt: r.StartedAt.Format(time.RFC3339),
	}
	if r.FinishedAt != nil {
		out.FinishedAt = r.FinishedAt.Format(time.RFC3339)
	}
	return out
}

type resultOut struct {
	RunID         string  `json:"run_id"`
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	Outcome       string  `json:"outcome"`
	Reason        string  `json:"reason"`
	Approvals     int     `json:"approvals"`
	TotalOpinions int     `json:"total_opinions"`
	Confidence    float64 `json:"confidence"`
	MergeStrategy string  `json:"merge_strategy,omitempty"`
	Conflicts     int     `json:"conflicts"`
	CreatedAt     string  `json:"created_at"`
}

func toResultsOut(results []*models.PRResult) []resultOut {
	out := make([]resultOut, len(results))
	for i, r := range results {
		out[i] = resultOut{
			RunID:         r.RunID,
			Number:        r.Number,
			Title:         r.Title,
			Outcome:       string(r.Outcome),
			Reason:        r.Reason,
			Approvals:     r.Approvals,
			TotalOpinions: r.TotalOpinions,
			Confidence:    r.Confidence,
			MergeStrategy: r.MergeStrategy,
			Conflicts:     r.Conflicts,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

var errNoStore = errors.New("run history is not available")

// mq_list_runs
func (s *Server) listRunsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_list_runs",
		mcp.WithDescription("List recent pipeline runs with their statistics, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
	)
	return tool, s.handleListRuns
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}
	runs, err := s.store.ListRuns(ctx, request.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}

	out := make([]runOut, len(runs))
	for i, r := range runs {
		out[i] = toRunOut(r)
	}
	return jsonResult(out)
}

// mq_run_results
func (s *Server) runResultsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_run_results",
		mcp.WithDescription("Get a run and the per-PR results recorded during it."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
	)
	return tool, s.handleRunResults
}

func (s *Server) handleRunResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}
	id, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: run_id"), nil
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run not found: %s", id)), nil
	}
	results, err := s.store.ListPRResults(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list results: %v", err)), nil
	}

	out := struct {
		Run     runOut      `json:"run"`
		Results []resultOut `json:"results"`
	}{toRunOut(run), toResultsOut(results)}
	return jsonResult(out)
}

// mq_pr_history
func (s *Server) prHistoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("mq_pr_history",
		mcp.WithDescription("List every recorded outcome for one pull request across runs, newest first."),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Pull request number")),
	)
	return tool, s.handlePRHistory
}

func (s *Server) handlePRHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}
	number := request.GetInt("number", 0)
	if number <= 0 {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}

	results, err := s.store.ListPRHistory(ctx, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list history: %v", err)), nil
	}
	return jsonResult(toResultsOut(results))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
