package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"tybafetch/lib/configutil"
	"tybafetch/lib/portal/webforms"
	"tybafetch/lib/serviceutil"
	"tybafetch/lib/telemetry"
	"tybafetch/services/expediente"

	"github.com/spf13/cobra"
)

// Config is the optional on-disk configuration; flags override it.
type Config struct {
	SearchUrl string `json:"searchUrl"`
	OutputDir string `json:"outputDir"`
}

var verbose *bool
var outputDir *string
var keepNotifications *bool

var rootCmd = &cobra.Command{
	Use:   "expediente-cli",
	Short: "expediente-cli downloads the full document set of judicial case files from the consultation portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
		_, err := telemetry.SetupFromEnv(cmd.Context(), "expediente-cli")
		if err != nil {
			slog.Debug("telemetry export disabled", "err", err)
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	outputDir = rootCmd.PersistentFlags().String("out", "", "Directory to create per-case folders under.")
	keepNotifications = rootCmd.PersistentFlags().Bool("keep-notifications", false, "Keep documents classified as mere notifications.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() expediente.Config {
	cfg := expediente.DefaultConfig()

	fileCfg, err := configutil.ReadConfig[Config]("config.json5")
	if err == nil {
		if fileCfg.SearchUrl != "" {
			cfg.SearchURL = fileCfg.SearchUrl
		}
		if fileCfg.OutputDir != "" {
			cfg.OutputDir = fileCfg.OutputDir
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("failed to read config", err)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	return cfg
}

func createService() *expediente.Service {
	cfg := loadConfig()
	driver, err := webforms.NewClient(webforms.Options{BaseURL: cfg.SearchURL})
	if err != nil {
		serviceutil.Fatal("failed to initialize portal session", err)
	}
	return expediente.NewService(driver, cfg)
}
