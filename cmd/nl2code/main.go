package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nl2code/internal/batch"
	"nl2code/internal/config"
	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/telemetry"
	"nl2code/internal/translator"
)

var (
	// Global flags
	verbose    bool
	configPath string
	provider   string
	timeout    time.Duration

	// Translate flags
	approach   string
	streamMode bool
	outputPath string

	// Batch flags
	poolSize int

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nl2code",
	Short: "nl2code - pseudocode to Python translation pipeline",
	Long: `nl2code converts pseudocode and mixed natural-language input into
runnable Python.

It parses input into classified blocks, translates natural-language
blocks through a model capability, assembles the pieces with dependency
tracking, and validates the result with tree-sitter before repair.

Two approaches are available: "model_first" hands the whole input to the
model and validates the output, "structured_parsing" runs the full
block pipeline. The default policy tries model-first and falls back to
structured parsing when validation fails.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
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
		logging.CloseAll()
	},
}

// translateCmd translates one input through the pipeline
var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Translate pseudocode into Python",
	Long: `Translates a pseudocode file (or stdin when no file is given) into
Python source.

Examples:
  nl2code translate notes.txt
  cat notes.txt | nl2code translate
  nl2code translate notes.txt --approach structured_parsing
  nl2code translate big.txt --stream -o out.py`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTranslate,
}

// checkCmd validates Python syntax without translating
var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Syntax-check a Python file",
	Long: `Parses the given Python file (or stdin) and reports syntax errors
with line positions. Exits non-zero when the file does not parse.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// batchCmd translates many files over a pooled pipeline
var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Translate multiple files concurrently",
	Long: `Translates every input file over a pool of pipeline instances and
writes each result next to its input with a .py extension.

Example:
  nl2code batch notes/*.txt --pool 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Model provider override: llama, gemini, none")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	translateCmd.Flags().StringVarP(&approach, "approach", "a", "", "Force one approach: model_first or structured_parsing")
	translateCmd.Flags().BoolVar(&streamMode, "stream", false, "Stream incremental output for large inputs")
	translateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result to a file instead of stdout")

	batchCmd.Flags().IntVar(&poolSize, "pool", 2, "Number of pooled pipeline instances")

	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(batchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration from defaults, file and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		cfg.Model.Provider = provider
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}
	if err := logging.Configure(logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Dir:        cfg.Logging.Dir,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildCapability picks the model client for the configured provider.
func buildCapability(ctx context.Context, cfg *config.Config) (model.Capability, error) {
	switch cfg.Model.Provider {
	case "llama":
		return model.NewLlamaServerClient(cfg.Model), nil
	case "gemini":
		return model.NewGeminiClient(ctx, cfg.Model)
	case "none":
		return &model.Mock{}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q (want llama, gemini or none)", cfg.Model.Provider)
	}
}

// newSink wires a telemetry bus; in verbose mode events land in the zap log.
func newSink() telemetry.Sink {
	if !verbose {
		return telemetry.NopSink{}
	}
	bus := telemetry.NewBus()
	events := bus.Subscribe()
	go func() {
		for ev := range events {
			logger.Debug("pipeline event",
				zap.String("name", ev.Name),
				zap.String("request", ev.RequestID),
				zap.Any("fields", ev.Fields))
		}
	}()
	return bus
}

// readInput reads the argument file, or stdin when no argument was given.
func readInput(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}

// writeOutput writes code to the -o target or stdout.
func writeOutput(code string) error {
	if outputPath == "" {
		fmt.Print(code)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	logger.Info("Wrote output", zap.String("path", outputPath))
	return nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cap, err := buildCapability(ctx, cfg)
	if err != nil {
		return err
	}

	input, source, err := readInput(args)
	if err != nil {
		return err
	}
	logger.Info("Translating",
		zap.String("source", source),
		zap.Int("bytes", len(input)),
		zap.String("provider", cfg.Model.Provider))

	svc := translator.NewService(cfg, cap, newSink())
	defer svc.Close()

	var result *translator.Result
	switch {
	case streamMode:
		result = translateStreaming(ctx, svc, input)
	case approach != "":
		result, err = svc.TranslateWith(ctx, approach, input)
		if err != nil {
			return err
		}
	default:
		result = svc.Translate(ctx, input)
	}

	return reportResult(result)
}

// translateStreaming drains the partial-result channel, logging progress,
// and returns the final result.
func translateStreaming(ctx context.Context, svc *translator.Service, input string) *translator.Result {
	var final *translator.Result
	for pr := range svc.TranslateStreaming(ctx, input) {
		if pr.Final != nil {
			final = pr.Final
			continue
		}
		logger.Info("Chunk assembled",
			zap.Int("chunk", pr.ChunkIndex),
			zap.Int("code_bytes", len(pr.Code)))
	}
	if final == nil {
		final = &translator.Result{Errors: []string{"streaming ended without a final result"}}
	}
	return final
}

// reportResult prints warnings and either the code or the errors.
func reportResult(result *translator.Result) error {
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		return fmt.Errorf("translation failed")
	}
	return writeOutput(result.Code)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Model.Provider = "none" // no model needed for a syntax check

	code, source, err := readInput(args)
	if err != nil {
		return err
	}

	svc := translator.NewService(cfg, &model.Mock{}, telemetry.NopSink{})
	defer svc.Close()

	res, err := svc.CheckCode(ctx, code)
	if err != nil {
		return err
	}
	if res.Valid {
		fmt.Printf("%s: OK\n", source)
		return nil
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", source, e.Format())
	}
	return fmt.Errorf("%s: %d syntax error(s)", source, len(res.Errors))
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cap, err := buildCapability(ctx, cfg)
	if err != nil {
		return err
	}

	var reqs []batch.Request
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		reqs = append(reqs, batch.Request{ID: path, Input: string(data)})
	}

	logger.Info("Starting batch",
		zap.Int("jobs", len(reqs)),
		zap.Int("pool", poolSize))

	proc := batch.New(cfg, cap, newSink(), batch.Options{Size: poolSize})
	defer proc.Close()

	out, err := proc.Run(ctx, reqs)
	if err != nil {
		return err
	}

	failures := 0
	for _, resp := range out {
		if resp.Result == nil || !resp.Result.Success {
			failures++
			fmt.Fprintf(os.Stderr, "%s: failed", resp.ID)
			if resp.Result != nil && len(resp.Result.Errors) > 0 {
				fmt.Fprintf(os.Stderr, ": %s", resp.Result.Errors[0])
			}
			fmt.Fprintln(os.Stderr)
			continue
		}
		dst := outputName(resp.ID)
		if err := os.WriteFile(dst, []byte(resp.Result.Code), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dst, err)
		}
		fmt.Printf("%s -> %s\n", resp.ID, dst)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d jobs failed", failures, len(out))
	}
	return nil
}

// outputName maps an input path to its .py sibling.
func outputName(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == ".py" {
		base += "_translated"
	}
	return base + ".py"
}
