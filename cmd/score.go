package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/consensus"
	"github.com/reelindex/catalog-trust/internal/engine"
	"github.com/reelindex/catalog-trust/internal/probe"
	"github.com/reelindex/catalog-trust/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a batch of catalog records",
	Long: `Recompute confidence scores and trust badges for records needing
attention, derive categorical classifications from accumulated signals, and
write an audit report for the run.

A record needs attention when it has no score yet or its score is older than
the staleness window. Use --rescore to force the whole catalog.

Examples:
  # Score the next batch of unscored or stale records
  score

  # Preview decisions without writing anything
  score --dry-run --verbose

  # Rescore every 1970s horror record
  score --rescore --genre Horror --decade 1970

  # Verify poster URLs before scoring
  score --verify-posters`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Int("limit", 0, "maximum records per batch (0=use config default)")
	f.Bool("dry-run", false, "compute decisions but write nothing to the store")
	f.Bool("verbose", false, "log a per-record trace of score and fills")
	f.String("genre", "", "restrict the batch to records with this genre")
	f.Int("decade", 0, "restrict the batch by release decade (e.g. 1970)")
	f.Bool("rescore", false, "include records that already have a fresh score")
	f.Bool("verify-posters", false, "probe poster URLs before scoring")
	f.Int("concurrency", 0, "worker count (overrides config)")
	f.String("store", "", "store driver: sqlite or postgres (overrides config)")
	f.String("report", "", "directory for audit reports (overrides config)")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "score"))

	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return err
	}
	if err := consensus.ValidateConfig(cfg.Consensus); err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Driver = v
	}
	if v, _ := cmd.Flags().GetString("report"); v != "" {
		cfg.Audit.Dir = v
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "score: migrate")
	}

	opts := engine.Options{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts.Genre, _ = cmd.Flags().GetString("genre")
	opts.Decade, _ = cmd.Flags().GetInt("decade")
	opts.Rescore, _ = cmd.Flags().GetBool("rescore")
	opts.VerifyPosters, _ = cmd.Flags().GetBool("verify-posters")

	engCfg := applyEngineOverrides(cmd, cfg.Engine)

	var prober *probe.Prober
	if opts.VerifyPosters {
		prober = probe.New(cfg.Probe, &http.Client{})
	}

	eng := engine.New(st,
		scorer.NewComposer(cfg.Scorer, reg),
		consensus.NewDeriver(cfg.Consensus, reg),
		prober, engCfg, cfg.Audit.Dir)

	log.Info("starting run",
		zap.Bool("dry_run", opts.DryRun),
		zap.String("genre", opts.Genre),
		zap.Int("decade", opts.Decade),
		zap.Bool("rescore", opts.Rescore),
	)

	res, err := eng.Run(ctx, opts)
	if err != nil {
		return eris.Wrap(err, "score: run")
	}

	if opts.DryRun {
		fmt.Println("Dry run: no records were written.")
	}
	res.Report.Render(os.Stdout)
	if res.ReportPath != "" {
		fmt.Printf("Audit report: %s\n", res.ReportPath)
	}
	return nil
}

// applyEngineOverrides returns a copy of the base config with CLI flag
// overrides applied.
func applyEngineOverrides(cmd *cobra.Command, base config.EngineConfig) config.EngineConfig {
	c := base
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		c.Concurrency = v
	}
	return c
}
