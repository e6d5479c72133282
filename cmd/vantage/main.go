// Package main provides the entry point for the vantage dataset comparison tool.
package main

import (
	"fmt"
	"os"

	"github.com/TFMV/vantage/config"
	"github.com/TFMV/vantage/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every command once the root has run.
type app struct {
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	defer logger.Sync()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "vantage",
		Short: "vantage compares schema-less record datasets field by field",
		Long: `vantage loads collections of JSON-like records (JSON, CSV, Parquet or
Arrow IPC files), discovers their fields, matches records across datasets by
a configurable set of key fields and reports which fields changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Path to a vantage.yaml file (defaults to ./vantage.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCommand(),
		newFieldsCommand(a),
		newValuesCommand(a),
		newKeysCommand(a),
		newDiffCommand(a),
		newServeCommand(a),
	)
	return rootCmd
}

// init loads the configuration and installs the global logger.
func (a *app) init() error {
	var (
		cfg *config.Config
		err error
	)
	if a.cfgPath != "" {
		cfg, err = config.LoadConfigFile(a.cfgPath)
	} else {
		cfg, err = config.LoadConfig(".")
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	logger.SetGlobal(l)
	a.cfg = cfg
	a.logger = l
	return nil
}
