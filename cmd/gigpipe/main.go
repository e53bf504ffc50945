package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/pipeline"
	"github.com/gigpipe/gigpipe/internal/posting"
)

const version = "0.1.0"

func main() {
	var (
		showVersion    bool
		configPath     string
		inputsDir      string
		outDir         string
		tier           string
		minConfidence  float64
		execConfidence float64
		dryRun         bool
	)

	flag.BoolVar(&showVersion, "version", false, "Print version")
	flag.StringVar(&configPath, "config", "", "Path to pipeline YAML config")
	flag.StringVar(&inputsDir, "inputs", "", "Directory holding per-job input folders")
	flag.StringVar(&outDir, "out", "", "Override the configured output directory")
	flag.StringVar(&tier, "tier", "", "Price every stage at this cost tier")
	flag.Float64Var(&minConfidence, "min-confidence", -1, "Override the proposal confidence threshold")
	flag.Float64Var(&execConfidence, "exec-confidence", -1, "Override the execution confidence threshold")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse the input and print jobs without calling the model")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("gigpipe %s\n", version)
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	if outDir != "" {
		cfg.Output.BaseDir = outDir
	}
	if tier != "" {
		cfg.Stages.Parser.Tier = tier
		cfg.Stages.Assessor.Tier = tier
		cfg.Stages.Executor.Tier = tier
	}
	if minConfidence >= 0 {
		cfg.Thresholds.MinConfidence = minConfidence
	}
	if execConfidence >= 0 {
		cfg.Thresholds.ExecConfidence = execConfidence
	}
	cfg.Sanitize()

	doc, err := parseInput(flag.Arg(0))
	if err != nil {
		logger.Fatalf("parse input failed: %v", err)
	}
	if len(doc.Jobs) == 0 {
		logger.Fatalf("no job postings found in %s", doc.Metadata.SourceFile)
	}

	if dryRun {
		printJobs(doc)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewHTTPClient(cfg.LLM)
	p := pipeline.New(cfg, client, inputsDir, logger)
	result, err := p.Run(ctx, doc)
	if err != nil {
		logger.Fatalf("run %s failed: %v", p.RunID(), err)
	}

	fmt.Printf("run %s: %d jobs, %d feasible, %d executed, %d tokens ($%.4f)\n",
		result.RunID, result.TotalJobs, result.FeasibleJobs, result.ExecutedJobs,
		result.Telemetry.Total.Total, result.Telemetry.Total.CostUSD)
}

// parseInput reads job postings from a file path, or from stdin when the
// argument is "-".
func parseInput(arg string) (posting.Document, error) {
	if arg != "-" {
		return posting.ParseFile(arg)
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return posting.Document{}, fmt.Errorf("read stdin: %w", err)
	}
	doc := posting.ParseText(string(data))
	doc.Metadata.SourceFile = "stdin"
	return doc, nil
}

func printJobs(doc posting.Document) {
	fmt.Printf("%d job(s) parsed from %s\n", len(doc.Jobs), doc.Metadata.SourceFile)
	for i, job := range doc.Jobs {
		budget := job.Budget
		if budget == "" {
			budget = "n/a"
		}
		fmt.Printf("%3d. %s (budget: %s, requirements: %d)\n", i+1, job.Title, budget, len(job.Requirements))
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: gigpipe [flags] <postings-file|->

Parses freelance job postings from free text, assesses their feasibility,
generates proposals for accepted jobs, and synthesizes and runs a Python
script for the highest-confidence ones.

Flags:
`)
	flag.PrintDefaults()
}
