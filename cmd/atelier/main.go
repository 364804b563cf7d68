package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"atelier.dev/atelier/common/id"
	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/common/logger"
	"atelier.dev/atelier/common/otel"
	"atelier.dev/atelier/core/config"
	"atelier.dev/atelier/internal/artifact"
	"atelier.dev/atelier/internal/runner"
	"atelier.dev/atelier/internal/session"
	"atelier.dev/atelier/internal/ui"
	"atelier.dev/atelier/internal/vcs"
	"atelier.dev/atelier/internal/workspace"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dir         string
		provider    string
		model       string
		extensions  string
		budget      int
		envFile     string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("atelier", pflag.ContinueOnError)
	flagSet.StringVar(&dir, "dir", "", "project directory to load (default: WORKSPACE_ROOT or .)")
	flagSet.StringVar(&provider, "provider", "", "model provider, openai or anthropic (default: LLM_PROVIDER)")
	flagSet.StringVar(&model, "model", "", "model name (default: the provider default)")
	flagSet.StringVar(&extensions, "extensions", "", "comma-separated extension filter (default: CONTEXT_EXTENSIONS)")
	flagSet.IntVar(&budget, "budget", 0, "context token budget (default: CONTEXT_TOKEN_BUDGET)")
	flagSet.StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("atelier %s\n", version)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Workspace.Root = dir
	}
	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if extensions != "" {
		var parts []string
		for _, part := range strings.Split(extensions, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		cfg.Workspace.Extensions = parts
	}
	if budget > 0 {
		cfg.Workspace.TokenBudget = budget
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Printf("%s\n", banner)
	logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.WarnContext(ctx, "telemetry setup failed", "error", err)
	}
	if telemetry != nil {
		defer func() {
			if err := telemetry.Shutdown(context.Background()); err != nil {
				slog.WarnContext(ctx, "telemetry shutdown failed", "error", err)
			}
		}()
	}

	slog.InfoContext(ctx, "atelier starting",
		"env", cfg.Env,
		"provider", cfg.LLM.Provider,
		"workspace", cfg.Workspace.Root)

	if err := id.Init(1); err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}

	client, err := llm.New(llm.Config(cfg.LLM))
	if err != nil {
		return err
	}

	// The session and the prompter must share one reader, otherwise either
	// would swallow input buffered for the other.
	in := bufio.NewReader(os.Stdin)
	terminal := ui.NewTerminal(in, os.Stdout)

	pipeline := artifact.NewPipeline(artifact.Options{
		Prompter:    terminal,
		Runner:      runner.NewExecRunner(cfg.Exec.TimeoutSeconds),
		Gateway:     vcs.NewGit(cfg.Workspace.Root),
		Client:      client,
		Out:         os.Stdout,
		Root:        cfg.Workspace.Root,
		MaxAttempts: cfg.Repair.MaxAttempts,
	})

	sess := session.New(session.Options{
		Config:   cfg,
		Builder:  workspace.NewBuilder(cfg.Workspace),
		Client:   client,
		Pipeline: pipeline,
		In:       in,
		Out:      os.Stdout,
	})

	return sess.Run(ctx)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Println("atelier - chat with a model about your project and turn its replies into files")
	fmt.Println()
	fmt.Println("Usage: atelier [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	flagSet.PrintDefaults()
	fmt.Println()
	fmt.Println("Configuration comes from the environment (LLM_API_KEY is required);")
	fmt.Println("flags override it for one run. See .env.example for the full list.")
}

const banner = `
 █████╗ ████████╗███████╗██╗     ██╗███████╗██████╗
██╔══██╗╚══██╔══╝██╔════╝██║     ██║██╔════╝██╔══██╗
███████║   ██║   █████╗  ██║     ██║█████╗  ██████╔╝
██╔══██║   ██║   ██╔══╝  ██║     ██║██╔══╝  ██╔══██╗
██║  ██║   ██║   ███████╗███████╗██║███████╗██║  ██║
╚═╝  ╚═╝   ╚═╝   ╚══════╝╚══════╝╚═╝╚══════╝╚═╝  ╚═╝
`
