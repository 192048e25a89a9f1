// Command photo-critic rates a photo with Gemini, applies the suggested edits,
// and compares the result side by side.
package main

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/config"
	"github.com/fpang/photo-critic/internal/logging"
	"github.com/fpang/photo-critic/internal/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global flags
var (
	configFlag     string
	logLevelFlag   string
	modelFlag      string
	imageModelFlag string
	variantFlag    string
)

// cfg is resolved once by loadConfig before any subcommand runs.
var cfg *config.Config

var startTime = time.Now()

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "photo-critic",
	Short: "AI photo critique, edit and compare",
	Long: `Photo Critic asks Gemini to rate a photo and suggest three concrete edits,
applies those edits with an image model, and lets you compare the original
against the result with a slider.

Examples:
  photo-critic analyze beach.jpg
  photo-critic edit beach.jpg --out beach-edited.png
  photo-critic tui beach.jpg
  photo-critic serve --addr 127.0.0.1:9090
  photo-critic ratio beach.jpg --instruction "crop to a square"`,
	PersistentPreRun: loadConfig,
	SilenceUsage:     true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Config file (default ~/.photo-critic/config.yaml)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&modelFlag, "model", "m", "", "Gemini model for critiques")
	pf.StringVar(&imageModelFlag, "image-model", "", "Gemini model for edits")
	pf.StringVar(&variantFlag, "variant", "", "Critique shape: detailed or plain")

	rootCmd.AddCommand(analyzeCmd, editCmd, tuiCmd, serveCmd, ratioCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, args []string) {
	c, err := config.Load(configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel = logLevelFlag
	}
	if flags.Changed("model") {
		c.Model = modelFlag
	}
	if flags.Changed("image-model") {
		c.ImageModel = imageModelFlag
	}
	if flags.Changed("variant") {
		c.Variant = variantFlag
	}
	if err := c.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cfg = c
}

// setupLogging initializes logging and metrics for a command. When toFile is
// set, or a log file is configured, both go to the log file instead of the
// terminal. The returned func closes the file.
func setupLogging(service string, toFile bool) func() {
	metrics.SetService(service)

	path := cfg.LogFile
	if toFile && path == "" {
		dir, err := config.Dir()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve log directory")
		}
		path = filepath.Join(dir, "photo-critic.log")
	}

	if path == "" {
		logging.Init(cfg.LogLevel, nil)
		metrics.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := logging.OpenFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to open log file")
	}
	logging.Init(cfg.LogLevel, f)
	metrics.SetOutput(f)
	return func() {
		metrics.SetOutput(io.Discard)
		f.Close()
	}
}

// logStartup emits the startup event for a command.
func logStartup(name string, extra func(*logging.StartupLogger)) {
	sl := logging.NewStartupLogger(name).
		Version(version).
		Model("analysis", cfg.Model).
		Model("edit", cfg.ImageModel).
		Config("variant", cfg.Variant).
		Config("timeout", cfg.Timeout.String()).
		Config("maxUploadMB", strconv.Itoa(cfg.MaxUploadMB))
	if cfg.Path != "" {
		sl.Config("configFile", cfg.Path)
	}
	if extra != nil {
		extra(sl)
	}
	sl.InitDuration(time.Since(startTime)).Log()
}
