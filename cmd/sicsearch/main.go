// Package main provides the sicsearch CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orneryd/sicsearch/pkg/config"
	"github.com/orneryd/sicsearch/pkg/gmatrix"
	"github.com/orneryd/sicsearch/pkg/logging"
	"github.com/orneryd/sicsearch/pkg/minimizer"
	"github.com/orneryd/sicsearch/pkg/objective"
	"github.com/orneryd/sicsearch/pkg/povm"
	"github.com/orneryd/sicsearch/pkg/result"
	"github.com/orneryd/sicsearch/pkg/sampler"
	"github.com/orneryd/sicsearch/pkg/search"
	"github.com/orneryd/sicsearch/pkg/simd"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sicsearch",
		Short: "sicsearch - numerical search for SIC-POVM fiducial vectors",
		Long: `sicsearch looks for Weyl-Heisenberg covariant SIC-POVM fiducial vectors
by gradient descent on the G-matrix loss from stratified starting points.

Commands:
  • search   run the multi-seed parallel search for one dimension
  • verify   check a saved fiducial vector
  • global   run the derivative-free Nelder-Mead driver
  • catalog  inspect the catalog of accepted vectors`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: search standard locations)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := simd.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "sicsearch v%s (%s) built %s\n", version, commit, buildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "kernels: %s (accelerated=%v, features=%v)\n", info.Implementation, info.Accelerated, info.Features)
		},
	})

	// Search command
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search for a fiducial vector",
		Long:  "Run the seed loop for one dimension, persisting accepted vectors and a run summary",
		RunE:  runSearch,
	}
	searchCmd.Flags().Int("dim", 0, "Dimension (default from config: 42)")
	searchCmd.Flags().Uint64("seed", 0, "Initial seed (default from config: 227)")
	searchCmd.Flags().Int("seeds", 0, "Seed budget (default from config: 100)")
	searchCmd.Flags().Int("workers", 0, "Worker count (0 = one per logical CPU)")
	searchCmd.Flags().String("cadence", "", "Check cadence: auto, batched, drain")
	searchCmd.Flags().String("output", "", "Output directory")
	searchCmd.Flags().Bool("trajectory", false, "Record loss trajectories")
	searchCmd.Flags().Bool("catalog", false, "Also store accepted vectors in the catalog")
	searchCmd.Flags().Bool("verify-povm", false, "Verify the orbit of every accepted vector")
	searchCmd.Flags().Bool("check-gradient", false, "Compare analytic and numerical gradients before searching")
	searchCmd.Flags().String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	searchCmd.Flags().String("log-format", "", "Log format: text, json")
	rootCmd.AddCommand(searchCmd)

	// Verify command
	verifyCmd := &cobra.Command{
		Use:   "verify <fiducial.txt>",
		Short: "Check a saved fiducial vector",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	verifyCmd.Flags().Float64("tol", povm.DefaultTolerance, "Relative overlap tolerance")
	verifyCmd.Flags().Float64("max-loss", 2e-15, "Loss bound")
	rootCmd.AddCommand(verifyCmd)

	// Global command
	globalCmd := &cobra.Command{
		Use:   "global",
		Short: "Run Nelder-Mead over the loss callback",
		RunE:  runGlobal,
	}
	globalCmd.Flags().Int("dim", 4, "Dimension")
	globalCmd.Flags().Uint64("seed", 1, "Sampler seed for the starting point")
	globalCmd.Flags().Int("index", 0, "Sampler index for the starting point")
	globalCmd.Flags().Int("max-evals", 0, "Callback budget (0 = 200 per parameter)")
	globalCmd.Flags().Bool("polish", false, "Refine the best point with gradient descent")
	rootCmd.AddCommand(globalCmd)

	// Catalog commands
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the catalog of accepted vectors",
	}
	catalogCmd.PersistentFlags().String("dir", "", "Catalog directory (default from config)")

	catalogListCmd := &cobra.Command{
		Use:   "list",
		Short: "List accepted vectors for a dimension",
		RunE:  runCatalogList,
	}
	catalogListCmd.Flags().Int("dim", 42, "Dimension")
	catalogCmd.AddCommand(catalogListCmd)

	catalogShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print one accepted vector",
		RunE:  runCatalogShow,
	}
	catalogShowCmd.Flags().Int("dim", 42, "Dimension")
	catalogShowCmd.Flags().Uint64("seed", 227, "Seed")
	catalogShowCmd.Flags().Int("index", 0, "Candidate index")
	catalogCmd.AddCommand(catalogShowCmd)
	rootCmd.AddCommand(catalogCmd)

	return rootCmd
}

// loadConfig loads the config file (if any), then applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dim") {
		cfg.Search.Dimension, _ = flags.GetInt("dim")
	}
	if flags.Changed("seed") {
		cfg.Search.InitialSeed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("seeds") {
		cfg.Search.SeedBudget, _ = flags.GetInt("seeds")
	}
	if flags.Changed("workers") {
		cfg.Search.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("cadence") {
		cfg.Search.Cadence, _ = flags.GetString("cadence")
	}
	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("trajectory") {
		cfg.Output.RecordTrajectory, _ = flags.GetBool("trajectory")
	}
	if flags.Changed("catalog") {
		cfg.Output.CatalogEnabled, _ = flags.GetBool("catalog")
	}
	if flags.Changed("verify-povm") {
		cfg.Search.VerifyPOVM, _ = flags.GetBool("verify-povm")
	}
	if flags.Changed("check-gradient") {
		cfg.Gradient.Check, _ = flags.GetBool("check-gradient")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Debug("configuration loaded", "config", cfg.String())

	if cfg.Gradient.Check {
		if err := checkGradient(cfg, log); err != nil {
			return err
		}
	}

	store := result.NewFileStore(cfg.Output.Dir)
	sinks := result.MultiSink{store}
	if cfg.Output.CatalogEnabled {
		catalog, err := result.OpenCatalog(cfg.Output.CatalogDir)
		if err != nil {
			return err
		}
		defer catalog.Close()
		sinks = append(sinks, catalog)
	}

	searcher, err := search.New(search.Options{
		Dimension:   cfg.Search.Dimension,
		InitialSeed: cfg.Search.InitialSeed,
		SeedBudget:  cfg.Search.SeedBudget,
		Workers:     cfg.ResolveWorkers(),
		Cadence:     cfg.Cadence(),
		Minimizer:   cfg.MinimizerOptions(),
		VerifyPOVM:  cfg.Search.VerifyPOVM,
		Sink:        sinks,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := searcher.Run(ctx)
	if err != nil {
		return err
	}
	if err := store.SaveSummary(rep.Summary()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rep.Found {
		fmt.Fprintf(out, "Fiducial found: dimension %d, seed %d, candidate %d (loss %.3g, %d accepted)\n",
			rep.Dimension, rep.SeedUsed, rep.Result.Index, rep.Result.Loss, rep.Accepted)
		fmt.Fprintf(out, "Saved to %s\n", store.VectorPath(rep.Result))
	} else {
		fmt.Fprintf(out, "No fiducial found in %d seeds\n", rep.SeedsAttempted)
	}
	fmt.Fprintf(out, "Elapsed: %s (%d workers, %s cadence)\n", rep.Duration, rep.Workers, rep.Cadence)
	return nil
}

// checkGradient validates the analytic gradient at the first sample of the initial seed.
func checkGradient(cfg *config.Config, log *logging.Logger) error {
	samp := sampler.New(cfg.Search.Dimension)
	samp.Reseed(cfg.Search.InitialSeed)
	v, err := samp.Sample(0)
	if err != nil {
		return err
	}
	worst := gmatrix.GradientError(v, cfg.Gradient.FiniteDifferenceStep)
	if worst > cfg.Gradient.CheckTolerance {
		return fmt.Errorf("gradient check failed: max difference %.3g exceeds %.3g", worst, cfg.Gradient.CheckTolerance)
	}
	log.Info("gradient check passed", "max_difference", worst)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	tol, _ := cmd.Flags().GetFloat64("tol")
	maxLoss, _ := cmd.Flags().GetFloat64("max-loss")

	v, err := result.LoadVector(args[0])
	if err != nil {
		return err
	}
	loss := gmatrix.Loss(v)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dimension: %d\nloss: %.6g\nfingerprint: %s\n", v.Dim(), loss, result.Fingerprint(v))

	if loss >= maxLoss {
		return fmt.Errorf("loss %.3g is not below %.3g", loss, maxLoss)
	}
	if err := povm.VerifyFiducial(v, tol); err != nil {
		return err
	}
	fmt.Fprintln(out, "SIC-POVM: verified")
	return nil
}

func runGlobal(cmd *cobra.Command, args []string) error {
	dim, _ := cmd.Flags().GetInt("dim")
	seed, _ := cmd.Flags().GetUint64("seed")
	index, _ := cmd.Flags().GetInt("index")
	maxEvals, _ := cmd.Flags().GetInt("max-evals")
	polish, _ := cmd.Flags().GetBool("polish")

	res, err := objective.Global(dim, objective.GlobalOptions{
		Seed:           seed,
		Index:          index,
		MaxEvaluations: maxEvals,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "nelder-mead: loss %.6g after %d calls (%s)\n", res.Loss, res.Calls, res.Status)
	if !polish {
		return nil
	}

	mres := minimizer.Minimize(res.Vector, minimizer.DefaultOptions())
	fmt.Fprintf(out, "descent: %s after %d steps, loss %.6g, accepted=%v\n", mres.Status, mres.Steps, mres.Loss, mres.Accepted)
	if mres.Accepted {
		fmt.Fprint(out, mres.Vector.String())
	}
	return nil
}

func openCatalogForCmd(cmd *cobra.Command) (*result.Catalog, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.FindConfigFile()
		}
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		dir = cfg.Output.CatalogDir
	}
	return result.OpenCatalog(dir)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	dim, _ := cmd.Flags().GetInt("dim")
	catalog, err := openCatalogForCmd(cmd)
	if err != nil {
		return err
	}
	defer catalog.Close()

	list, err := catalog.List(dim)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintf(out, "No fiducials for dimension %d\n", dim)
		return nil
	}
	for _, r := range list {
		fmt.Fprintf(out, "%s  seed=%d index=%d loss=%.3g steps=%d %s\n",
			result.ZeroPad3(r.Dimension), r.Seed, r.Index, r.Loss, r.Steps, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	dim, _ := cmd.Flags().GetInt("dim")
	seed, _ := cmd.Flags().GetUint64("seed")
	index, _ := cmd.Flags().GetInt("index")

	catalog, err := openCatalogForCmd(cmd)
	if err != nil {
		return err
	}
	defer catalog.Close()

	r, err := catalog.Get(dim, seed, index)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), r.Vector.String())
	return nil
}
