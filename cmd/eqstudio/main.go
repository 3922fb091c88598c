package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/eqstudio/eqstudio/internal/config"
	"github.com/eqstudio/eqstudio/internal/domain"
	"github.com/eqstudio/eqstudio/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// gainFlags collects repeated -gain index=value flags.
type gainFlags []gainSetting

type gainSetting struct {
	Index int
	Gain  float64
}

func (g *gainFlags) String() string {
	parts := make([]string, len(*g))
	for i, s := range *g {
		parts[i] = fmt.Sprintf("%d=%g", s.Index, s.Gain)
	}
	return strings.Join(parts, ",")
}

func (g *gainFlags) Set(value string) error {
	index, gain, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected index=gain, got %q", value)
	}
	i, err := strconv.Atoi(strings.TrimSpace(index))
	if err != nil {
		return fmt.Errorf("band index %q: %w", index, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(gain), 64)
	if err != nil {
		return fmt.Errorf("gain %q: %w", gain, err)
	}
	*g = append(*g, gainSetting{Index: i, Gain: v})
	return nil
}

func main() {
	var gains gainFlags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		version     = flag.Bool("version", false, "Show version information")
		input       = flag.String("in", "", "Signal file to load (wav, mp3, flac, csv)")
		ecgKey      = flag.String("ecg-key", "", "ECG abnormality key (Abnormality 1-3, Normal)")
		mode        = flag.String("mode", "", "Equalizer mode (animals, music, uniform, ecg)")
		window      = flag.String("window", "", "Window kind (rectangle, hamming, hanning, gaussian)")
		out         = flag.String("out", "", "Write the equalized output to this WAV file")
		play        = flag.String("play", "", "Play the input or output signal")
		savePreset  = flag.String("save-preset", "", "Save the resulting parameters as a named preset")
		preset      = flag.String("preset", "", "Apply a saved preset before -gain flags")
		listPresets = flag.Bool("list-presets", false, "List saved presets")
		spectrogram = flag.Bool("spectrogram", false, "Print spectrogram summaries of input and output")
		showState   = flag.Bool("state", false, "Print the engine state")
	)
	flag.Var(&gains, "gain", "Band gain as index=value (repeatable)")
	flag.Parse()

	if *version {
		fmt.Printf("EqStudio %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	if *logLevel != "" {
		logConfig.Level = *logLevel
	}
	logConfig.File = cfg.Logging.File
	logConfig.JSONFormat = cfg.Logging.JSON
	logConfig.FilePath = filepath.Join(cfg.App.LogDir, "eqstudio.log")
	logger.Initialize(logConfig)
	defer logger.Get().Close()

	logger.Info("EqStudio starting",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
	)

	if *mode != "" {
		cfg.Equalizer.Mode = *mode
	}
	if *window != "" {
		cfg.Equalizer.Window = *window
	}

	app, err := NewApp(cfg)
	if err != nil {
		logger.Fatal("Failed to create application", logger.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.startup(ctx); err != nil {
		logger.Fatal("Failed to start", logger.Error(err))
	}
	defer app.shutdown()

	if *listPresets {
		if err := printPresets(app); err != nil {
			logger.Fatal("Failed to list presets", logger.Error(err))
		}
	}

	if *input == "" {
		if *out != "" || *play != "" || *spectrogram || len(gains) > 0 {
			logger.Fatal("No input signal; pass -in")
		}
		return
	}

	if err := run(ctx, app, runOptions{
		input:       *input,
		ecgKey:      *ecgKey,
		preset:      *preset,
		gains:       gains,
		out:         *out,
		play:        *play,
		savePreset:  *savePreset,
		spectrogram: *spectrogram,
		state:       *showState,
	}); err != nil {
		logger.Fatal("Run failed",
			logger.String("code", domain.Code(err)),
			logger.Error(err),
		)
	}
}

type runOptions struct {
	input       string
	ecgKey      string
	preset      string
	gains       gainFlags
	out         string
	play        string
	savePreset  string
	spectrogram bool
	state       bool
}

func run(ctx context.Context, app *App, opts runOptions) error {
	snap, err := app.ImportFile(opts.input, opts.ecgKey)
	if err != nil {
		if snap == nil || !errors.Is(err, domain.ErrUnknownModeKey) {
			return err
		}
		logger.Warn("ECG trace has no known abnormality key; all bands bypassed", logger.Error(err))
	}

	if opts.preset != "" {
		if _, err := app.ApplyPreset(opts.preset); err != nil {
			return err
		}
	}
	for _, g := range opts.gains {
		if _, err := app.SetBandGain(g.Index, g.Gain); err != nil {
			return err
		}
	}

	if opts.state {
		printState(app.GetEngineState())
	}

	if opts.spectrogram {
		for _, which := range []string{SourceInput, SourceOutput} {
			data, err := app.Spectrogram(which)
			if err != nil {
				return err
			}
			fmt.Printf("%s spectrogram: %d segments x %d bins, peak %.1f Hz\n",
				which, len(data.Times), len(data.Frequencies), data.PeakFrequency())
		}
	}

	if opts.out != "" {
		if err := app.ExportOutput(opts.out); err != nil {
			return err
		}
	}

	if opts.savePreset != "" {
		if _, err := app.SavePreset(opts.savePreset, ""); err != nil {
			return err
		}
	}

	if opts.play != "" {
		if err := app.Play(opts.play); err != nil {
			return err
		}
		if err := app.WaitPlayback(ctx); err != nil {
			app.Stop()
			if !errors.Is(err, context.Canceled) {
				return err
			}
		}
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Get(), nil
	}
	return config.Load(path)
}

func printPresets(app *App) error {
	presets, err := app.ListPresets()
	if err != nil {
		return err
	}
	for _, p := range presets {
		fmt.Printf("%-24s %-8s %-10s %v\n", p.Name, p.Mode, p.Window, p.Gains)
	}
	return nil
}

func printState(state map[string]interface{}) {
	keys := []string{"mode", "window", "labels", "gains", "title", "ecg_key", "samples", "sample_rate", "duration", "max_frequency"}
	for _, k := range keys {
		if v, ok := state[k]; ok {
			fmt.Printf("%-14s %v\n", k+":", v)
		}
	}
}
