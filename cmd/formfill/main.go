// Command formfill runs the PDF form-field pipeline from the command line:
// layout extraction, AI-assisted field mapping and fill rendering.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eformly/formfill/internal/config"
	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/form"
	"github.com/eformly/formfill/internal/layout"
	"github.com/eformly/formfill/internal/mapping"
)

var (
	version   = "dev"     // set by build flags
	buildTime = "unknown" // set by build flags
	gitCommit = "unknown" // set by build flags
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	cfg, args, err := config.LoadFromFlags(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx := context.Background()
	switch command {
	case "extract":
		err = runExtract(cfg, args)
	case "analyze":
		err = runAnalyze(ctx, cfg, args)
	case "fill":
		err = runFill(ctx, cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// runExtract parses a PDF and prints its layout as JSON.
func runExtract(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: formfill extract <file.pdf>")
	}

	data, err := readPDF(args[0], cfg.MaxFileSize)
	if err != nil {
		return err
	}

	doc, err := layout.NewExtractor(cfg.MaxFileSize).Extract(data)
	if err != nil {
		return err
	}

	return printJSON(doc)
}

// runAnalyze extracts layout and asks the language service for field
// suggestions. The optional second argument identifies the quota/rate user;
// CLI runs default to a free-tier local user with in-process counters
// unless a Redis address is configured.
func runAnalyze(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: formfill analyze <file.pdf> [userID]")
	}

	userID := "local"
	if len(args) > 1 {
		userID = args[1]
	}

	data, err := readPDF(args[0], cfg.MaxFileSize)
	if err != nil {
		return err
	}

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	result, err := svc.AnalyzeDocument(ctx, mapping.User{ID: userID}, data)
	switch {
	case errors.Is(err, mapping.ErrQuotaExceeded):
		return fmt.Errorf("free trial limit reached: upgrade for unlimited AI mapping")
	case errors.Is(err, mapping.ErrRateLimited):
		return fmt.Errorf("too many requests: please wait before trying again")
	case err != nil:
		return err
	}

	if result.NoFieldsDetected {
		logrus.Info("no form fields detected; add fields manually")
	}
	return printJSON(result)
}

// runFill renders submitted values onto a source PDF.
func runFill(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: formfill fill <src.pdf> <fields.json> <values.json> <out.pdf>")
	}

	src, err := readPDF(args[0], cfg.MaxFileSize)
	if err != nil {
		return err
	}

	var placements []fields.Placement
	if err := readJSON(args[1], &placements); err != nil {
		return fmt.Errorf("failed to read field list: %w", err)
	}

	var values map[string]string
	if err := readJSON(args[2], &values); err != nil {
		return fmt.Errorf("failed to read submission values: %w", err)
	}

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	filled, err := svc.GenerateFilled(ctx, src, placements, values)
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[3], filled, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"output": args[3],
		"bytes":  len(filled),
	}).Info("wrote filled document")
	return nil
}

// buildService wires the pipeline from configuration.
func buildService(cfg *config.Config) (*form.Service, error) {
	llm, err := mapping.NewLLMClient(mapping.ProviderConfig{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create language service client: %w", err)
	}

	var (
		usage mapping.UsageStore
		rate  mapping.RateLimiter
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		usage = mapping.NewRedisUsageStore(client)
		rate = mapping.NewRedisRateLimiter(client, cfg.RateWindow, cfg.RateLimitMax)
	} else {
		usage = mapping.NewMemoryUsageStore()
		rate = mapping.NewMemoryRateLimiter(cfg.RateWindow, cfg.RateLimitMax)
	}

	orchestrator := mapping.NewOrchestrator(llm, usage, rate)
	extractor := layout.NewExtractor(cfg.MaxFileSize)
	fetcher := form.NewFetcher(cfg.MaxFileSize)

	return form.NewService(extractor, orchestrator, fetcher), nil
}

func readPDF(path string, maxSize int64) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := layout.ValidateUpload(data, path, maxSize); err != nil {
		return nil, err
	}
	return data, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVersion() {
	fmt.Printf("formfill %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: formfill <command> [options] <args>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  extract <file.pdf>                                Print page metadata and text blocks as JSON")
	fmt.Fprintln(os.Stderr, "  analyze <file.pdf> [userID]                       Suggest form fields via the language service")
	fmt.Fprintln(os.Stderr, "  fill <src.pdf> <fields.json> <values.json> <out>  Render submitted values onto the PDF")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment:")
	fmt.Fprintln(os.Stderr, "  FORMFILL_APIKEY     Language service API key")
	fmt.Fprintln(os.Stderr, "  FORMFILL_PROVIDER   openai (default), anthropic, ollama")
	fmt.Fprintln(os.Stderr, "  FORMFILL_MODEL      Model name (default gpt-4o)")
	fmt.Fprintln(os.Stderr, "  FORMFILL_REDIS      Redis address for shared quota/rate counters")
}
