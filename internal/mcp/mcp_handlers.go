package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/triad/core"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// config clones the base config and applies the optional limit argument.
func (h *toolHandler) config(request mcp.CallToolRequest) *contract.Config {
	cfg := h.baseCfg.Clone()
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.Limit = l
	}
	return cfg
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleAnalyzeArchitecture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("target_path", ""); p != "" {
		cfg.TargetPath = p
	}
	if a := request.GetString("agents", ""); a != "" {
		agents, err := contract.ParseAgentList(a)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid agents: %v", err)), nil
		}
		cfg.Analyzer.Agents = agents
	}
	cfg.SaveReport = request.GetBool("save", cfg.SaveReport)

	report, err := core.RunAnalysis(core.WithSuppressProgress(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetLatestReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.config(request)
	cfg.ReportFile = ""

	report, err := core.LoadReport(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if l := request.GetInt("limit", 0); l > 0 {
		report.Findings = schema.RankFindings(report.Findings, l)
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetTestProfiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.config(request)
	cfg.TestID = request.GetString("test_id", "")

	profiles, err := core.Profiles(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(profiles)
}

func (h *toolHandler) handleGetRecommendations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.config(request)
	if p := request.GetString("coverage_profile", ""); p != "" {
		cfg.CoverageProfile = p
	}

	recs, err := core.Recommendations(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recs)
}

func (h *toolHandler) handlePredictFailureRisk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.config(request)
	cfg.TestID = request.GetString("test_id", "")

	predictions, err := core.Predictions(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(predictions)
}

func (h *toolHandler) handleCorrelate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.config(request)
	if f := request.GetString("report_file", ""); f != "" {
		cfg.ReportFile = f
	}
	if p := request.GetString("coverage_profile", ""); p != "" {
		cfg.CoverageProfile = p
	}

	batch, err := core.Correlate(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("correlation failed: %v", err)), nil
	}
	detections := schema.EnrichDetections(batch.Detections)
	if cfg.Limit > 0 && len(detections) > cfg.Limit {
		detections = detections[:cfg.Limit]
	}
	return jsonResult(map[string]any{
		"id":            batch.ID,
		"report_id":     batch.ReportID,
		"profiles":      batch.Profiles,
		"detections":    detections,
		"detector_runs": batch.DetectorRuns,
	})
}
