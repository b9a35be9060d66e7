package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/tverberg/blogsmith/internal/components"
	"github.com/tverberg/blogsmith/internal/config"
	berrors "github.com/tverberg/blogsmith/internal/errors"
	"github.com/tverberg/blogsmith/internal/logfields"
	"github.com/tverberg/blogsmith/internal/preview"
	"github.com/tverberg/blogsmith/internal/site"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"blogsmith.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct{} `cmd:"" help:"Build the site into the output directory"`

	Serve struct {
		Addr string `short:"a" help:"Listen address (overrides config)"`
	} `cmd:"" help:"Build the site and serve it locally, rebuilding on changes"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	New struct {
		Title string `arg:"" help:"Title of the new post"`
	} `cmd:"" help:"Scaffold a new post file"`

	Discover struct{} `cmd:"" help:"List content files without building"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "serve":
		err = runServe()
	case "init":
		err = runInit()
	case "new <title>":
		err = runNew(CLI.New.Title)
	case "discover":
		err = runDiscover()
	}
	if err != nil {
		slog.Error("Command failed", logfields.Error(err))
		os.Exit(1)
	}
}

func runBuild() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	assembler := site.New(cfg, components.Builtin())
	report, err := assembler.Build(context.Background())

	printReport(report)
	if err != nil {
		return fmt.Errorf("build %s: %w", report.BuildID, err)
	}
	return nil
}

func runServe() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Serve.Addr != "" {
		cfg.Serve.Addr = CLI.Serve.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	assembler := site.New(cfg, components.Builtin())
	return preview.NewServer(cfg, assembler).Run(ctx)
}

func runInit() error {
	slog.Info("Initializing configuration", logfields.Path(CLI.Config))
	return config.Init(CLI.Config, CLI.Init.Force)
}

func runDiscover() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	files, err := discoverFiles(cfg)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	slog.Info("Discovery completed", slog.Int("count", len(files)))
	return nil
}

func printReport(report *site.BuildReport) {
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", berrors.GetCategory(e), e)
	}
	if cats := report.FatalCategories(); len(cats) > 0 {
		slog.Error("Build aborted", slog.Any("categories", cats))
	}
	fmt.Println(report.Summary())
}
