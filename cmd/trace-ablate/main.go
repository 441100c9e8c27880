// Package main provides the trace-ablate binary: an ablation-testing harness
// that measures how much each activity collection contributes to personal
// file-search quality.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tracesearch/trace-ablate/internal/ablation"
	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collect"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/config"
	"github.com/tracesearch/trace-ablate/internal/experiment"
	"github.com/tracesearch/trace-ablate/internal/history"
	"github.com/tracesearch/trace-ablate/internal/pkg/identity"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/registry"
	"github.com/tracesearch/trace-ablate/internal/report"
	"github.com/tracesearch/trace-ablate/internal/sanity"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trace-ablate",
		Short: "Ablation-testing harness for personal file search",
		Long: `trace-ablate measures how much each activity collection (location, music,
task, media, storage, collaboration) contributes to search quality. It
generates synthetic activity records with known ground truth, then ablates
collections one combination at a time and records the precision/recall/F1
impact on the collections that remain.

Run 'trace-ablate run' for a full experiment, or 'trace-ablate check' to
validate stored data without ablating anything.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		runCmd(),
		ablateCmd(),
		checkCmd(),
		generateCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired collaborators every subcommand needs.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  collections.Store
	truth  *truth.Store
	events bus.Bus
	runID  string
}

func setup(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	store, err := collections.NewStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	events, err := bus.NewBus(cfg.Bus)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	journal, err := bus.NewJournal(filepath.Join(cfg.Report.OutputDir, "events.jsonl"), true)
	if err != nil {
		log.WithError(err).Warn("event journal disabled")
	} else {
		events = bus.NewJournaledBus(events, journal, log)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		truth:  truth.NewStore(store, cfg.Storage.TruthCollection, log),
		events: events,
		runID:  uuid.NewString(),
	}, nil
}

func (a *app) close() {
	if err := a.events.Close(); err != nil {
		a.log.WithError(err).Warn("event bus close failed")
	}
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("store close failed")
	}
}

func (a *app) runnerConfig() experiment.RunnerConfig {
	return experiment.RunnerConfig{
		RecordsPerType: a.cfg.Generate.RecordsPerType,
		MatchCount:     a.cfg.Generate.MatchCount,
		NonMatchCount:  a.cfg.Generate.NonMatchCount,
		QueriesPerKind: a.cfg.Generate.QueriesPerRun,
		Iterations:     a.cfg.Experiment.Iterations,
		ControlSize:    a.cfg.Experiment.ControlSize,
		QueryLimit:     a.cfg.Experiment.QueryLimit,
		Seed:           a.cfg.Generate.Seed,
	}
}

func (a *app) engine() *ablation.Engine {
	return ablation.NewEngine(a.store, a.truth, a.events, ablation.EngineConfig{
		BatchSize:  a.cfg.Restore.BatchSize,
		RatePerSec: a.cfg.Restore.RatePerSec,
		RunID:      a.runID,
	}, a.log)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full ablation experiment",
		Long: `Run the complete experimental design: generate synthetic data, validate it,
partition activity types into control and test groups across crossover
iterations, ablate every partial combination of each test group, and write
JSON/CSV/Markdown reports to the output directory.`,
		RunE: runExperiment,
	}

	cmd.Flags().Int("records", 0, "background records per activity type (overrides config)")
	cmd.Flags().Int("match-count", 0, "matching records per query per collection")
	cmd.Flags().Int("queries", 0, "queries per test-group activity type")
	cmd.Flags().Int("iterations", 0, "experimental iterations (each adds a crossover pair)")
	cmd.Flags().Int("control-size", 0, "activity types held out as control group")
	cmd.Flags().Int64("seed", 0, "data generation seed")
	cmd.Flags().StringP("output", "o", "", "report output directory")
	cmd.Flags().Bool("fail-fast", true, "abort on the first sanity violation")
	cmd.Flags().Bool("skip-checks", false, "skip the pre-run sanity battery")
	cmd.Flags().StringSlice("checks", nil, "sanity checks to run (default all)")
	return cmd
}

func runExperiment(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	applyOverrides(cmd, a.cfg)

	ctx, cancel := signalContext()
	defer cancel()

	a.log.Info("starting ablation experiment",
		"run_id", a.runID,
		"version", version,
		"storage", a.cfg.Storage.Type,
		"iterations", a.cfg.Experiment.Iterations,
	)

	rcfg := a.runnerConfig()
	table := collect.NewTableWithMatchCount(registry.New(), rcfg.Seed, rcfg.MatchCount)

	skipChecks, _ := cmd.Flags().GetBool("skip-checks")
	if !skipChecks {
		checkNames, _ := cmd.Flags().GetStringSlice("checks")
		if err := a.preflight(ctx, table, rcfg, checkNames); err != nil {
			return err
		}
	}

	engine := a.engine()
	runner := experiment.NewRunner(a.store, a.truth, engine, table, a.events, rcfg, a.runID, a.log)

	started := time.Now().UTC()
	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("experiment failed: %w", err)
	}

	agg := report.NewAggregator()
	agg.AddAll(results)
	rep := agg.Build(a.runID)
	if err := report.NewWriter(a.cfg.Report.OutputDir, a.log).Write(rep); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	a.saveHistory(ctx, rep, started)
	a.log.Info("experiment complete",
		"run_id", a.runID,
		"result_keys", len(rep.Summaries),
		"output", a.cfg.Report.OutputDir,
	)
	return nil
}

// preflight seeds a full baseline dataset and runs the sanity battery over it
// before any ablation cycle is allowed to start.
func (a *app) preflight(ctx context.Context, table collect.Table, rcfg experiment.RunnerConfig, checkNames []string) error {
	kinds := table.Kinds()
	if _, err := experiment.SeedData(ctx, a.store, a.truth, table, kinds, kinds, rcfg); err != nil {
		return fmt.Errorf("failed to seed baseline data: %w", err)
	}

	failFast := a.cfg.Sanity.FailFast
	checker := sanity.NewChecker(a.store, a.truth, activity.Collections(kinds), a.events, failFast, a.runID, a.log)
	violations, err := checker.Run(ctx, checkNames)
	if err != nil {
		a.log.Error("sanity battery failed", "violations", len(violations))
		return err
	}
	a.log.Info("sanity battery passed")
	return nil
}

func (a *app) saveHistory(ctx context.Context, rep report.Report, started time.Time) {
	if !a.cfg.History.Enabled {
		return
	}
	store, err := history.New(a.cfg.History.RedisURL, time.Duration(a.cfg.History.TTLHours)*time.Hour)
	if err != nil {
		a.log.WithError(err).Warn("run history unavailable")
		return
	}
	defer store.Close()

	var impact float64
	var measurements int
	for _, s := range rep.Summaries {
		impact += s.MeanImpact
		measurements += s.Measurements
	}
	if len(rep.Summaries) > 0 {
		impact /= float64(len(rep.Summaries))
	}

	summary := history.RunSummary{
		RunID:        rep.RunID,
		StartedAt:    started,
		CompletedAt:  time.Now().UTC(),
		GroupPairs:   2 * a.cfg.Experiment.Iterations,
		ResultKeys:   len(rep.Summaries),
		Measurements: measurements,
		MeanImpact:   impact,
	}
	if err := store.Save(ctx, summary); err != nil {
		a.log.WithError(err).Warn("failed to save run history")
		return
	}
	a.log.Info("run history saved", "redis", a.cfg.History.RedisURL)
}

func ablateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ablate",
		Short: "Run one ablation cycle for a single query",
		Long: `Seed matching records and ground truth for one query across the chosen
collections, then ablate each collection in turn, measuring the collateral
impact on the others. Results are printed as JSON.`,
		RunE: runAblate,
	}

	cmd.Flags().StringP("query", "q", "", "query text (required)")
	cmd.Flags().StringSlice("collections", nil, "collections to cycle through (default all)")
	cmd.Flags().Int("records", 0, "background records per activity type")
	cmd.Flags().Int("match-count", 0, "matching records per collection")
	cmd.Flags().Int("limit", 0, "result cap per query execution")
	cmd.MarkFlagRequired("query")
	return cmd
}

func runAblate(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	applyOverrides(cmd, a.cfg)

	ctx, cancel := signalContext()
	defer cancel()

	queryText, _ := cmd.Flags().GetString("query")
	names, _ := cmd.Flags().GetStringSlice("collections")

	kinds, err := resolveKinds(names)
	if err != nil {
		return err
	}

	rcfg := a.runnerConfig()
	table := collect.NewTableWithMatchCount(registry.New(), rcfg.Seed, rcfg.MatchCount)
	queryID := identity.Derive("query:" + queryText)

	// Seed every chosen collection with background records, matching records
	// for this query, and the truth that binds them.
	for _, kind := range kinds {
		collector, ok := table.For(kind)
		if !ok {
			continue
		}
		name := kind.Collection()
		if err := a.store.EnsureCollection(ctx, name); err != nil {
			return fmt.Errorf("ensure %s: %w", name, err)
		}
		if err := a.store.BulkInsert(ctx, name, collector.GenerateBatch(rcfg.RecordsPerType)); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		matching := collector.GenerateMatching(queryText, rcfg.MatchCount)
		if err := a.store.BulkInsert(ctx, name, matching); err != nil {
			return fmt.Errorf("insert matching records into %s: %w", name, err)
		}
		a.truth.Ensure(ctx)
		a.truth.Put(ctx, truth.Record{
			QueryID:     queryID,
			QueryText:   queryText,
			Collection:  kind.Token(),
			ExpectedIDs: collector.GenerateTruth(queryText),
		})
	}

	engine := a.engine()
	defer engine.Cleanup(ctx)

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = a.cfg.Experiment.QueryLimit
	}
	results := engine.RunAblationTest(ctx, activity.Collections(kinds), queryID, queryText, limit)

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate stored data without ablating anything",
		Long: `Run the data sanity battery against the collections as they stand. Exits 1
when any check fails. Under --fail-fast the first violation aborts the
battery; otherwise every violation is collected and reported.`,
		RunE: runCheck,
	}

	cmd.Flags().StringSlice("checks", nil, "checks to run: "+strings.Join(sanity.AllChecks, ", "))
	cmd.Flags().Bool("fail-fast", true, "abort on the first violation")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	failFast, _ := cmd.Flags().GetBool("fail-fast")
	checkNames, _ := cmd.Flags().GetStringSlice("checks")

	cols := activity.Collections(activity.All())
	checker := sanity.NewChecker(a.store, a.truth, cols, a.events, failFast, a.runID, a.log)

	violations, err := checker.Run(ctx, checkNames)
	for _, v := range violations {
		fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %s\n", v.Check, v.Message)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "all checks passed")
	return nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic data and ground truth",
		Long: `Rebuild every activity collection from scratch: background records, matching
and non-matching records for the standard query set, and the ground-truth
records that bind queries to expected results.`,
		RunE: runGenerate,
	}

	cmd.Flags().Int("records", 0, "background records per activity type (overrides config)")
	cmd.Flags().Int("match-count", 0, "matching records per query per collection")
	cmd.Flags().Int("queries", 0, "queries per activity type")
	cmd.Flags().Int64("seed", 0, "data generation seed")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	applyOverrides(cmd, a.cfg)

	ctx, cancel := signalContext()
	defer cancel()

	rcfg := a.runnerConfig()
	table := collect.NewTableWithMatchCount(registry.New(), rcfg.Seed, rcfg.MatchCount)
	kinds := table.Kinds()

	queries, err := experiment.SeedData(ctx, a.store, a.truth, table, kinds, kinds, rcfg)
	if err != nil {
		return fmt.Errorf("data generation failed: %w", err)
	}

	for _, kind := range kinds {
		n, err := collections.Count(ctx, a.store, kind.Collection())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-30s %d records\n", kind.Collection(), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d queries with ground truth across %d collections\n", len(queries), len(kinds))
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trace-ablate %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// applyOverrides copies changed command-line flags over the loaded config.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("records") {
		cfg.Generate.RecordsPerType, _ = cmd.Flags().GetInt("records")
	}
	if cmd.Flags().Changed("match-count") {
		cfg.Generate.MatchCount, _ = cmd.Flags().GetInt("match-count")
	}
	if cmd.Flags().Changed("queries") {
		cfg.Generate.QueriesPerRun, _ = cmd.Flags().GetInt("queries")
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Experiment.Iterations, _ = cmd.Flags().GetInt("iterations")
	}
	if cmd.Flags().Changed("control-size") {
		cfg.Experiment.ControlSize, _ = cmd.Flags().GetInt("control-size")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generate.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("output") {
		cfg.Report.OutputDir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.Sanity.FailFast, _ = cmd.Flags().GetBool("fail-fast")
	}
}

// resolveKinds maps collection or activity names to kinds; empty means all.
func resolveKinds(names []string) ([]activity.Kind, error) {
	if len(names) == 0 {
		return activity.All(), nil
	}
	kinds := make([]activity.Kind, 0, len(names))
	for _, name := range names {
		kind, err := activity.Parse(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
