// Package cli wires the silverform commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/damon-houk/silver-price-form/internal/config"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the silverform command tree
func NewRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "silverform",
		Short:         "Silver price prediction form",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(newServeCommand(load), newPredictCommand(load))
	return root
}

// Execute runs the CLI
func Execute() error { return NewRootCommand().Execute() }

func newLogger(cfg config.LoggingConfig, w io.Writer) logger.Logger {
	if w == nil {
		w = os.Stdout
	}

	level := logger.ParseLevel(cfg.Level)
	if cfg.Format == "console" {
		return logger.NewConsoleLogger(w, level)
	}
	return logger.NewJSONLogger(w, level)
}
