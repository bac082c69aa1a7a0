package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/eugenenazirov/disk-span/internal/binpack"
	"github.com/eugenenazirov/disk-span/internal/config"
	"github.com/eugenenazirov/disk-span/internal/discovery"
	"github.com/eugenenazirov/disk-span/internal/plan"
)

// PlanResult describes what RunPlan produced.
type PlanResult struct {
	Capacity     int64
	Stats        binpack.Stats
	Summaries    []plan.Summary
	ScriptPath   string
	ManifestPath string
}

// RunPlan discovers the files under cfg.Source, packs them into disks of
// cfg.Capacity bytes and writes the move script (and manifest, if configured).
// One summary line per disk is printed to out. Nothing is written when packing
// fails.
func RunPlan(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) (PlanResult, error) {
	if err := cfg.ValidatePlan(); err != nil {
		return PlanResult{}, err
	}

	files, err := discovery.Walk(ctx, cfg.Source,
		discovery.WithLogger(logger),
		discovery.WithExcludes(cfg.Excludes...),
	)
	if err != nil {
		return PlanResult{}, fmt.Errorf("discover files: %w", err)
	}
	logger.Info("files discovered", zap.String("source", cfg.Source), zap.Int("files", len(files)))

	bins, err := binpack.FirstFitDecreasing(cfg.Capacity, files)
	if err != nil {
		for _, itemErr := range binpack.ItemErrors(err) {
			logger.Error("file cannot be packed",
				zap.String("path", itemErr.Label),
				zap.Int64("size", itemErr.Size),
				zap.Int64("capacity", itemErr.Capacity),
				zap.Error(itemErr.Err),
			)
		}
		return PlanResult{}, fmt.Errorf("pack files: %w", err)
	}

	var script bytes.Buffer
	if err := plan.WriteScript(&script, bins, cfg.Capacity, cfg.Destination); err != nil {
		return PlanResult{}, err
	}
	if err := plan.ValidateScript(bytes.NewReader(script.Bytes())); err != nil {
		return PlanResult{}, err
	}

	var manifest bytes.Buffer
	if cfg.ManifestPath != "" {
		if err := plan.WriteManifest(&manifest, bins, cfg.Capacity, cfg.Destination); err != nil {
			return PlanResult{}, err
		}
	}

	if err := os.WriteFile(cfg.Output, script.Bytes(), 0o755); err != nil {
		return PlanResult{}, fmt.Errorf("write script: %w", err)
	}
	if cfg.ManifestPath != "" {
		if err := os.WriteFile(cfg.ManifestPath, manifest.Bytes(), 0o644); err != nil {
			return PlanResult{}, fmt.Errorf("write manifest: %w", err)
		}
	}

	result := PlanResult{
		Capacity:     cfg.Capacity,
		Stats:        binpack.Summarize(bins),
		Summaries:    plan.Summarize(bins, cfg.Capacity),
		ScriptPath:   cfg.Output,
		ManifestPath: cfg.ManifestPath,
	}

	for _, s := range result.Summaries {
		if _, err := fmt.Fprintln(out, s.String()); err != nil {
			return result, fmt.Errorf("print summary: %w", err)
		}
	}

	logger.Info("plan written",
		zap.String("script", result.ScriptPath),
		zap.String("manifest", result.ManifestPath),
		zap.Int("disks", result.Stats.Bins),
		zap.Int("files", result.Stats.Items),
		zap.Int64("bytes", result.Stats.Used),
		zap.Int64("unused", result.Stats.Unused),
	)
	return result, nil
}
