package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/triad/core/testintel"
	"github.com/huangsam/triad/internal/contract"
	"github.com/huangsam/triad/schema"
)

// intelEngine returns a test intelligence engine over the configured history store.
func intelEngine(cfg *contract.Config, mgr contract.StoreManager) (*testintel.Engine, error) {
	store := mgr.GetHistoryStore()
	if store == nil {
		return nil, ErrNoHistoryStore
	}
	return testintel.NewEngine(store, cfg.Intel), nil
}

// RecordFromInput parses execution records from cfg.InputFile (stdin when empty or "-") and appends them.
func RecordFromInput(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, stdin io.Reader) (int, error) {
	engine, err := intelEngine(cfg, mgr)
	if err != nil {
		return 0, err
	}

	r := stdin
	if cfg.InputFile != "" && cfg.InputFile != "-" {
		f, err := os.Open(cfg.InputFile)
		if err != nil {
			return 0, fmt.Errorf("failed to open records: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	records, err := testintel.ParseRecords(r, cfg.InputFormat)
	if err != nil {
		return 0, err
	}
	return engine.RecordExecutions(ctx, records)
}

// Profiles returns the profile of cfg.TestID, or the ranked profiles of every known test.
func Profiles(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.TestHealthProfile, error) {
	engine, err := intelEngine(cfg, mgr)
	if err != nil {
		return nil, err
	}
	if cfg.TestID != "" {
		p, err := engine.ComputeHealthProfile(ctx, cfg.TestID)
		if err != nil {
			return nil, err
		}
		return []schema.TestHealthProfile{p}, nil
	}
	profiles, err := engine.ComputeHealthProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return rankProfiles(profiles, cfg.Limit), nil
}

// Predictions returns the risk of cfg.TestID, or the ranked risk of every known test.
func Predictions(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.RiskPrediction, error) {
	engine, err := intelEngine(cfg, mgr)
	if err != nil {
		return nil, err
	}
	if cfg.TestID != "" {
		p, err := engine.PredictFailureRisk(ctx, cfg.TestID)
		if err != nil {
			return nil, err
		}
		return []schema.RiskPrediction{p}, nil
	}
	predictions, err := engine.PredictAll(ctx)
	if err != nil {
		return nil, err
	}
	return rankPredictions(predictions, cfg.Limit), nil
}

// Recommendations derives recommendations from the history, the optional coverage profile
// and the latest analysis report when one exists.
func Recommendations(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.Recommendation, error) {
	engine, err := intelEngine(cfg, mgr)
	if err != nil {
		return nil, err
	}
	report, err := loadOptionalReport(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	coverage, err := LoadCoverage(cfg, report)
	if err != nil {
		return nil, err
	}
	recs, err := engine.GenerateRecommendations(ctx, coverage, report)
	if err != nil {
		return nil, err
	}
	return truncate(recs, cfg.Limit), nil
}

// CoverageGaps loads the coverage profile and links its gaps to the latest report's findings.
func CoverageGaps(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (*schema.CoverageReport, error) {
	if cfg.CoverageProfile == "" {
		return nil, errors.New("--coverage-profile is required")
	}
	report, err := loadOptionalReport(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}
	return LoadCoverage(cfg, report)
}

// Drafts synthesizes one draft test per file with a coverage gap, writing them when cfg.WriteDrafts is set.
// Existing files are never overwritten.
func Drafts(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) ([]schema.TestDraft, error) {
	coverage, err := CoverageGaps(ctx, cfg, mgr)
	if err != nil {
		return nil, err
	}

	drafts := make([]schema.TestDraft, 0)
	for _, gap := range selectDraftGaps(coverage.Gaps) {
		if cfg.Limit > 0 && len(drafts) >= cfg.Limit {
			break
		}
		draft, err := testintel.GenerateSkeleton(gap, cfg.TargetPath)
		if errors.Is(err, testintel.ErrUnsupportedLanguage) {
			contract.Logger.Debug("no draft template", "file", gap.File)
			continue
		}
		if err != nil {
			return nil, err
		}
		if cfg.WriteDrafts {
			if err := testintel.WriteDraft(cfg.TargetPath, draft); err != nil {
				return nil, err
			}
		}
		drafts = append(drafts, *draft)
	}
	return drafts, nil
}
