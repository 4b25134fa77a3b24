package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"axiomind/internal/config"
	"axiomind/internal/engine"
	"axiomind/internal/server"
	"axiomind/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Serve flags
	serveAddr string

	// Reflect flags
	reflectCycles int

	// Metrics flags
	metricsAddr string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "axiomind",
	Short: "axiomind - self-referential reasoning engine",
	Long: `axiomind grounds statements in a fixed axiom table, reasons over them
recursively against a Datalog concept graph, and reflects on its own
reasoning through a four-level pipeline that grows a monotone capability
metric.

Every processed query yields a complete reasoning path: proof, inferences,
reflection cycle, safety screen, and convergence judgment.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// askCmd processes a single query through the full pipeline
var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Process one query: ground, reason, reflect",
	Long: `Runs the full pipeline over a query and prints the resulting
reasoning path as JSON.

Example:
  axiomind ask "Socrates is mortal"
  axiomind ask "what can emerge from composition?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// reflectCmd runs standalone reflection cycles
var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Run reflection cycles and report capability growth",
	RunE:  runReflect,
}

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Starts the HTTP API:

  POST /v1/query    full pipeline
  POST /v1/ground   axiom grounding only
  POST /v1/reason   recursive reasoning only
  POST /v1/reflect  one reflection cycle
  GET  /v1/metrics  aggregate metrics as JSON
  GET  /metrics     Prometheus exposition
  GET  /healthz     liveness`,
	RunE: runServe,
}

// metricsCmd fetches metrics from a running server
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch aggregate metrics from a running server",
	RunE:  runMetrics,
}

// demoCmd exercises the pipeline with canned queries
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a canned query set and print the capability trajectory",
	RunE:  runDemo,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "axiomind.yaml", "Config file path")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	reflectCmd.Flags().IntVar(&reflectCycles, "cycles", 1, "Number of reflection cycles to run")
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", "http://localhost:8090", "Server base URL")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildSystem loads config and constructs the pipeline.
func buildSystem() (*engine.System, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	sys, err := engine.NewSystem(engine.Config{
		MaxReasoningDepth: cfg.Engine.MaxReasoningDepth,
		InitialLambda:     cfg.Engine.InitialLambda,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return sys, cfg, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	sys, _, err := buildSystem()
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	path := sys.Process(query, nil)

	if !path.Safety.Passed() {
		logger.Warn("path failed the safety screen", zap.String("path_id", path.ID))
	}
	return printJSON(path)
}

func runReflect(cmd *cobra.Command, args []string) error {
	sys, _, err := buildSystem()
	if err != nil {
		return err
	}

	for i := 0; i < reflectCycles; i++ {
		report := sys.Reflect("assess current capability", nil)
		fmt.Printf("cycle %d: level=%s emergence=%.3f growth=%.4f lambda=%.4f\n",
			i+1,
			report.Cycle.LevelReached,
			report.Emergence,
			report.LambdaGrowth,
			report.LambdaTotal)
	}
	return printJSON(sys.GetMetrics())
}

func runServe(cmd *cobra.Command, args []string) error {
	sys, cfg, err := buildSystem()
	if err != nil {
		return err
	}

	var sink *store.LocalStore
	if cfg.Storage.Enabled {
		sink, err = store.NewLocalStore(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(sys, sink, server.Config{
		MaxQueryLength:  cfg.Server.MaxQueryLength,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx, addr)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(strings.TrimRight(metricsAddr, "/") + "/v1/metrics")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	fmt.Println(string(body))
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	sys, _, err := buildSystem()
	if err != nil {
		return err
	}

	queries := []string{
		"Socrates is a man",
		"all men are mortal",
		"is Socrates mortal?",
		"what patterns connect identity and composition?",
		"can new capability emerge from reflection?",
	}

	for i, q := range queries {
		path := sys.Process(q, nil)
		fmt.Printf("%d. %q\n", i+1, q)
		fmt.Printf("   grounding=%.3f depth=%d certainty=%.3f emergence=%.3f lambda=%.4f safe=%v\n",
			path.GroundingCertainty,
			path.Depth,
			path.Certainty,
			path.Emergence,
			path.LambdaTotal,
			path.Safety.Passed())
	}

	fmt.Println()
	return printJSON(sys.GetMetrics())
}
