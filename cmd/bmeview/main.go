package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"bmeview/internal/logging"
	"bmeview/pkg/config"
)

const longHelp = `Preview .bmeii ultrasound volumes.

bmeview decodes volume files, renders their first plane through a colormap
and writes the rasters into a preview cache directory. Files that cannot be
decoded are reported and skipped; the rest of the batch keeps going.

Settings come from the config file, then BMEVIEW_* environment variables,
then command line flags.`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// flagValues holds the raw values of the persistent flags. They are only
// copied into the configuration when the flag was set explicitly.
type flagValues struct {
	configPath string
	root       string
	colormap   string
	cacheDir   string
	layout     string
	byteOrder  string
	selection  string
	debounce   string
	logLevel   string
	logFormat  string
	workers    int
	plane      int
}

// app is the state shared by every command once the configuration is loaded
type app struct {
	flags flagValues
	cfg   *config.Config
	log   zerolog.Logger
}

func newApp() *app {
	return &app{
		cfg: config.DefaultConfig(),
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
	}
}

// load resolves the configuration: defaults < file < env < flags
func (a *app) load(cmd *cobra.Command) error {
	cfgFile := a.flags.configPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	a.applyFlags(cfg, changed)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.Output.LogLevel, cfg.Output.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.log.Debug().Str("config_file", cfgFile).Interface("config", cfg).Msg("configuration")
	return nil
}

func (a *app) applyFlags(cfg *config.Config, changed map[string]bool) {
	f := a.flags
	stringFlags := []struct {
		name string
		src  string
		dst  *string
	}{
		{"root", f.root, &cfg.Browse.Root},
		{"colormap", f.colormap, &cfg.Render.Colormap},
		{"cache-dir", f.cacheDir, &cfg.Render.CacheDir},
		{"layout", f.layout, &cfg.Processing.Layout},
		{"byte-order", f.byteOrder, &cfg.Processing.ByteOrder},
		{"selection", f.selection, &cfg.Selection.File},
		{"debounce", f.debounce, &cfg.Watch.Debounce},
		{"log-level", f.logLevel, &cfg.Output.LogLevel},
		{"log-format", f.logFormat, &cfg.Output.LogFormat},
	}
	for _, s := range stringFlags {
		if changed[s.name] {
			*s.dst = s.src
		}
	}

	if changed["workers"] {
		cfg.Processing.Workers = f.workers
	}
	if changed["plane"] {
		cfg.Processing.Plane = f.plane
	}
}

func newRootCmd() *cobra.Command {
	a := newApp()

	root := &cobra.Command{
		Use:           "bmeview",
		Short:         "Decode .bmeii volumes and render colormapped previews",
		Long:          longHelp,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file, YAML or TOML (default ~/.config/bmeview/config.yaml)")
	pf.StringVar(&a.flags.root, "root", defaults.Browse.Root, "Directory holding the study directories")
	pf.StringVar(&a.flags.colormap, "colormap", defaults.Render.Colormap, "Colormap used for rendering")
	pf.StringVar(&a.flags.cacheDir, "cache-dir", defaults.Render.CacheDir, "Preview cache directory, emptied before every batch")
	pf.IntVar(&a.flags.workers, "workers", defaults.Processing.Workers, "Number of files converted in parallel")
	pf.StringVar(&a.flags.layout, "layout", defaults.Processing.Layout, "Payload layout: legacy or dense")
	pf.StringVar(&a.flags.byteOrder, "byte-order", defaults.Processing.ByteOrder, "Byte order of volume files: native, little or big")
	pf.IntVar(&a.flags.plane, "plane", defaults.Processing.Plane, "Plane rendered from dense volumes")
	pf.StringVar(&a.flags.selection, "selection", defaults.Selection.File, "Selection CSV file")
	pf.StringVar(&a.flags.debounce, "debounce", defaults.Watch.Debounce, "Quiet period before a watch refresh")
	pf.StringVar(&a.flags.logLevel, "log-level", defaults.Output.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", defaults.Output.LogFormat, "Log format: console or json")

	root.AddCommand(
		newDirsCmd(a),
		newConvertCmd(a),
		newWatchCmd(a),
		newInfoCmd(a),
		newPalettesCmd(a),
		newSelectCmd(a),
		newConfigCmd(a),
	)

	return root
}

// run executes the CLI and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		log.Error().Err(err).Msg("command failed")
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
