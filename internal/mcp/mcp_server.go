// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/triad/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the triad MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Triad Quality Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: analyze_architecture ---
	s.AddTool(mcp.NewTool("analyze_architecture",
		mcp.WithDescription("Scan a source tree with the architecture agents and return the analysis report."),
		mcp.WithString("target_path", mcp.Description("Path to the source tree (defaults to the configured target).")),
		mcp.WithString("agents", mcp.Description("Comma-separated agents to run (di, security, ux, fileorg, performance, documentation). Defaults to all.")),
		mcp.WithBoolean("save", mcp.Description("Publish the report to the report store. Defaults to true.")),
	), h.handleAnalyzeArchitecture)

	// --- 2. Tool: get_latest_report ---
	s.AddTool(mcp.NewTool("get_latest_report",
		mcp.WithDescription("Return the most recently published analysis report."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of findings returned, most severe first.")),
	), h.handleGetLatestReport)

	// --- 3. Tool: get_test_profiles ---
	s.AddTool(mcp.NewTool("get_test_profiles",
		mcp.WithDescription("Return test health profiles (flakiness, failure rate, duration) from the execution history."),
		mcp.WithString("test_id", mcp.Description("Return only the profile of this test.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of profiles, flakiest first.")),
	), h.handleGetTestProfiles)

	// --- 4. Tool: get_recommendations ---
	s.AddTool(mcp.NewTool("get_recommendations",
		mcp.WithDescription("Return prioritized test recommendations from the execution history, the latest report and an optional coverage profile."),
		mcp.WithString("coverage_profile", mcp.Description("Path to a Go cover profile to include coverage gaps.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of recommendations.")),
	), h.handleGetRecommendations)

	// --- 5. Tool: predict_failure_risk ---
	s.AddTool(mcp.NewTool("predict_failure_risk",
		mcp.WithDescription("Return the advisory pre-flight failure risk of tests."),
		mcp.WithString("test_id", mcp.Description("Return only the risk of this test.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of predictions, riskiest first.")),
	), h.handlePredictFailureRisk)

	// --- 6. Tool: correlate ---
	s.AddTool(mcp.NewTool("correlate",
		mcp.WithDescription("Correlate the latest report with test health and return ranked teachings."),
		mcp.WithString("report_file", mcp.Description("Path to a report JSON file to use instead of the latest stored report.")),
		mcp.WithString("coverage_profile", mcp.Description("Path to a Go cover profile.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of detections.")),
	), h.handleCorrelate)

	return s
}

// StartMCPServer starts the triad MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
