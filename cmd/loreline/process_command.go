package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loreline/internal/config"
	"loreline/internal/episode"
	"loreline/internal/extract"
	"loreline/internal/history"
	"loreline/internal/logging"
	"loreline/internal/services/llm"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var chunkSize int
	var outputDir string

	cmd := &cobra.Command{
		Use:   "process <episode> [episode...]",
		Short: "Segment one or more episode transcripts",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("usage: loreline process <episode> [episode...]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			episodes, err := parseEpisodes(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyProcessOverrides(cfg, chunkSize, outputDir); err != nil {
				return err
			}
			return runProcess(cmd.Context(), ctx, cfg, episodes, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Characters per chunk (overrides processing.chunk_size)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for episode documents (overrides paths.output_dir)")
	return cmd
}

func parseEpisodes(args []string) ([]int, error) {
	episodes := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid episode number %q", arg)
		}
		episodes = append(episodes, n)
	}
	return episodes, nil
}

func applyProcessOverrides(cfg *config.Config, chunkSize int, outputDir string) error {
	if chunkSize < 0 {
		return fmt.Errorf("--chunk-size must be positive, got %d", chunkSize)
	}
	if chunkSize > 0 {
		cfg.Processing.ChunkSize = chunkSize
	}
	if dir := strings.TrimSpace(outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	return nil
}

func runProcess(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, episodes []int, out io.Writer) error {
	profile, err := cmdCtx.loadProfile()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.newLogger()
	if err != nil {
		return err
	}

	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		Format:         llmCfg.APIFormat,
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		MaxTokens:      llmCfg.MaxTokens,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	},
		llm.WithRetries(llmCfg.TransportRetries),
		llm.WithRetryDelay(llmCfg.TransportRetryDelay, 0),
		llm.WithLogger(logger),
	)
	extractor := extract.New(client, profile,
		extract.WithParseRetries(cfg.Processing.ParseRetries),
		extract.WithParseRetryDelay(cfg.ParseRetryDelay()),
		extract.WithLogger(logger),
	)

	progress := newConsoleProgress(out, shouldColorize(out))
	assembler := episode.NewAssembler(extractor, profile,
		episode.WithChunkSize(cfg.Processing.ChunkSize),
		episode.WithChunkDelay(cfg.ChunkDelay()),
		episode.WithExcerptChars(cfg.Processing.FallbackExcerptChars),
		episode.WithProgress(progress),
		episode.WithLogger(logger),
	)

	opts := []episode.RunnerOption{
		episode.WithRunProgress(progress),
		episode.WithRunLogger(logger),
	}
	if store := openHistory(ctx, cfg, logger); store != nil {
		defer store.Close()
		opts = append(opts, episode.WithRecorder(store))
	}
	runner := episode.NewRunner(assembler, profile, cfg, opts...)

	results, runErr := runner.Run(ctx, episodes)
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderBatchSummary(results, progress.colorize))
	return runErr
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
			logging.Error(err),
			logging.String("path", cfg.HistoryPath()),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or set history.enabled = false"),
			logging.String(logging.FieldImpact, "this batch will not appear in loreline history"),
		)
		return nil
	}
	return store
}
