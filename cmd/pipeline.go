package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/joescharf/junior/internal/analyzer"
	"github.com/joescharf/junior/internal/engine"
	"github.com/joescharf/junior/internal/models"
	"github.com/joescharf/junior/internal/orchestrator"
	"github.com/joescharf/junior/internal/publisher"
	"github.com/joescharf/junior/internal/scheduler"
	"github.com/joescharf/junior/internal/source"
	"github.com/joescharf/junior/internal/throttle"
)

// buildPipeline assembles the analysis and review stages from configuration.
func buildPipeline() (*scheduler.Pipeline, error) {
	eng, err := buildEngine()
	if err != nil {
		return nil, err
	}

	reader := throttle.NewReader(
		viper.GetFloat64("reader.reads_per_second"),
		viper.GetInt64("reader.max_file_bytes"),
	)

	acfg := analyzer.DefaultConfig()
	acfg.MaxTotalBytes = viper.GetInt64("analyzer.max_total_bytes")
	acfg.MaxFiles = viper.GetInt("analyzer.max_files")
	acfg.Timeout = viper.GetDuration("analyzer.timeout")
	if path := viper.GetString("analyzer.rules_path"); path != "" {
		rules, err := analyzer.LoadRules(path)
		if err != nil {
			return nil, fmt.Errorf("load detection rules: %w", err)
		}
		acfg.Rules = rules
	}

	ocfg := orchestrator.DefaultConfig()
	ocfg.StageTimeout = viper.GetDuration("review.stage_timeout")
	ocfg.SimilarityThreshold = viper.GetFloat64("review.similarity_threshold")
	ocfg.HighCountThreshold = viper.GetInt("review.high_count_threshold")
	for _, name := range viper.GetStringSlice("review.disabled_stages") {
		cat := models.Category(name)
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown review stage: %q", name)
		}
		ocfg.Disabled[cat] = true
	}

	return &scheduler.Pipeline{
		Analyzer:     analyzer.New(reader, acfg),
		Orchestrator: orchestrator.New(eng, ocfg),
		Provider:     source.NewGitProvider(),
	}, nil
}

func buildEngine() (engine.Engine, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic.api_key is not configured (set JUNIOR_ANTHROPIC_API_KEY or config.yaml)")
	}
	return engine.NewAnthropic(apiKey, viper.GetString("anthropic.model")), nil
}

func buildPublisher() publisher.Publisher {
	if dryRun {
		return publisher.Log{}
	}
	return publisher.NewGitHub(viper.GetInt("review.max_comments"))
}
