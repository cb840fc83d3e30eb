package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/lexiqai/echo-speech/internal/analysis"
	"github.com/lexiqai/echo-speech/internal/cli"
	"github.com/lexiqai/echo-speech/internal/config"
	"github.com/lexiqai/echo-speech/internal/observability"
	"github.com/lexiqai/echo-speech/internal/stt"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Version bool `short:"v" help:"Show version information"`

	Intensity    bool `short:"l" help:"Per-character loudness"`
	Speechrate   bool `short:"s" help:"Words per minute and characters per second"`
	Intonation   bool `short:"i" help:"Per-character pitch, duration and loudness"`
	Articulation bool `short:"a" help:"Articulation rate, pause ratio and accuracy"`

	RefText  string `name:"ref-text" placeholder:"text" help:"Reference text scored by articulation"`
	Language string `placeholder:"tag" help:"Transcription language (overrides TRANSCRIPTION_LANGUAGE)"`
	Workers  int    `placeholder:"n" help:"Analyses to run at once (0 uses MAX_WORKERS)"`
	Out      string `type:"path" placeholder:"dir" help:"Save the report under DIR/session_<timestamp>/"`
	Progress bool   `help:"Show a live progress view on stderr"`

	File string `arg:"" optional:"" name:"file" help:"WAV recording to analyze"`
}

func (c *CLI) kinds() []analysis.Kind {
	selected := map[analysis.Kind]bool{
		analysis.KindIntensity:    c.Intensity,
		analysis.KindSpeechRate:   c.Speechrate,
		analysis.KindIntonation:   c.Intonation,
		analysis.KindArticulation: c.Articulation,
	}
	var kinds []analysis.Kind
	for _, kind := range analysis.AllKinds {
		if selected[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("echo-speech"),
		kong.Description("Character-aligned speech prosody analysis"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	kinds := cliArgs.kinds()
	if len(kinds) == 0 {
		_ = ctx.PrintUsage(false)
		os.Exit(0)
	}
	if cliArgs.File == "" {
		cli.PrintError("No input file specified")
		_ = ctx.PrintUsage(false)
		os.Exit(1)
	}

	if err := cli.ValidateInput(cliArgs.File); err != nil {
		_ = cli.WriteFailure(os.Stdout, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		cli.PrintError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// The progress view owns stderr while it runs.
	var logOut io.Writer = os.Stderr
	if cliArgs.Progress {
		logOut = io.Discard
	}
	observability.InitLoggerTo(logOut, cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	transcriber, err := stt.New(cfg, logger)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	opts := analysis.OptionsFromConfig(cfg)
	if cliArgs.Language != "" {
		opts.Language = cliArgs.Language
	}
	opts.RefText = cliArgs.RefText

	job := cli.Job{
		Path:    cliArgs.File,
		Kinds:   kinds,
		Workers: cliArgs.Workers,
		Options: opts,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer := cli.NewAnalyzer(transcriber, cfg.MaxWorkers, logger)
	var reports map[analysis.Kind]analysis.Report
	if cliArgs.Progress {
		reports, err = analyzer.RunWithProgress(runCtx, job, os.Stderr)
		if err != nil {
			cli.PrintError(err.Error())
		}
	} else {
		reports = analyzer.Run(runCtx, job, nil)
	}

	if err := cli.WriteReport(os.Stdout, reports); err != nil {
		cli.PrintError(fmt.Sprintf("Failed to write report: %v", err))
		os.Exit(1)
	}

	if cliArgs.Out != "" {
		path, err := cli.SaveSession(cliArgs.Out, cliArgs.File, kinds, reports)
		if err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
		logger.Info().Str("path", path).Msg("Session saved")
	}
}
