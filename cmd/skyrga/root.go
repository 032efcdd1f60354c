package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/config"
	"github.com/vova111/skyrga/internal/logging"
	"github.com/vova111/skyrga/internal/rating"
	"github.com/vova111/skyrga/internal/storage"
	"github.com/vova111/skyrga/internal/version"
)

var (
	cfgFile   string
	dbPath    string
	verbose   bool
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "skyrga",
	Short: "Backlink ledger: import reports, review placements, plan registrations",
	Long: `Skyrga keeps a ledger of backlinks placed on third-party domains.

It imports 22-column backlink reports (CSV or XLSX) into a domain registry,
keeps one reviewable placement per domain, aggregates domain ratings, records
reviewer verdicts and prints the two-year registration matrix of profiles.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		logCloser, err = logging.Setup(logging.Options{
			Level:      cfg.LogLevel,
			Format:     cfg.LogFormat,
			File:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
		if err != nil {
			return err
		}

		logrus.Debugf("Skyrga v%s, database %s", version.Version, cfg.DBPath)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./skyrga.yaml or ./skyrga.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path, overrides db_path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.Version = version.Version
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openStore opens the configured database
func openStore() (*storage.Storage, error) {
	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// newAggregator builds the aggregator for the configured rating policy
func newAggregator() (*rating.Aggregator, error) {
	policy, err := rating.PolicyByName(cfg.RatingPolicy)
	if err != nil {
		return nil, err
	}
	return rating.NewAggregator(policy), nil
}
