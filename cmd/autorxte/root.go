package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/config"
	"autorxte/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath    string
	noInteractive bool
	directory     string
	logLevel      string
	logFormat     string
}

// appCfg is the configuration resolved once before any command runs.
var appCfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "autorxte",
	Short: "Automated RXTE/PCA data reduction",
	Long: "Autorxte downloads RXTE observations from the public archive and\nreduces them through the standard PCA chain: preparation, filtering,\nevent extraction, light curves, spectra and power density spectra.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: setup,
}

// setup resolves the layered configuration and initializes logging.
// Flags win over config for the logging settings.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(config.Options{ExplicitPath: rootFlags.configPath})
	if err != nil {
		return err
	}
	appCfg = cfg

	levelStr := rootFlags.logLevel
	if levelStr == "" {
		levelStr = cfg.GetString("global.log_level", "info")
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	logFormat := rootFlags.logFormat
	if logFormat == "" {
		logFormat = cfg.GetString("global.log_format", "text")
	}
	logging.Init(level, logFormat)
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Explicit config file (missing or malformed = error)")
	pf.BoolVar(&rootFlags.noInteractive, "no-interactive", false, "Never prompt; resolve every parameter from flags, config or fallbacks")
	pf.StringVar(&rootFlags.directory, "directory", "", "Observation root directory")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json (default from config)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(bitmaskCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(lightcurvesCmd)
	rootCmd.AddCommand(spectraCmd)
	rootCmd.AddCommand(pdsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(regionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.Version = version
}
