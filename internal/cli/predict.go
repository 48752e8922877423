package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/damon-houk/silver-price-form/internal/application/service"
	"github.com/damon-houk/silver-price-form/internal/config"
	"github.com/damon-houk/silver-price-form/internal/domain/entity"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/api"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/cache"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/handler"
	"github.com/damon-houk/silver-price-form/internal/infrastructure/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrPredictionFailed is returned by predict when the form shows an error
var ErrPredictionFailed = errors.New("prediction failed")

const cliSession = "cli"

func newPredictCommand(load func() (*config.Config, error)) *cobra.Command {
	var date, output string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit one date to the prediction endpoint and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}

			cfg, err := load()
			if err != nil {
				return err
			}

			// Progress logs go to stderr so stdout only carries the outcome
			log := newLogger(cfg.Logging, cmd.ErrOrStderr())
			logger.SetDefaultLogger(log)
			predictor := api.NewPredictionAPIClient(cfg.Predictor.Endpoint,
				&http.Client{Timeout: cfg.Predictor.Timeout}, log)
			formService := service.NewPredictionFormService(predictor, cache.NewFormStateCache(cfg.Session.TTL), nil, log)

			state, err := formService.Submit(context.WithoutCancel(cmd.Context()), cliSession, date)
			if err != nil {
				if errors.Is(err, entity.ErrDateRequired) {
					return fmt.Errorf("--date is required: %w", err)
				}
				return err
			}

			if err := printState(cmd.OutOrStdout(), output, state); err != nil {
				return err
			}

			if state.Outcome.Kind() == entity.OutcomeFailure {
				return ErrPredictionFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "date to predict (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func printState(w io.Writer, format string, state *entity.FormState) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(handler.NewFormStateResponse(state))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(handler.NewFormStateResponse(state)); err != nil {
			return err
		}
		return enc.Close()
	}

	if result, ok := state.Outcome.Result(); ok {
		_, err := color.New(color.FgGreen).Fprintf(w, "ราคาซิลเวอร์: %s %s\n", result.PriceText(), result.Currency)
		return err
	}
	if msg, ok := state.Outcome.Error(); ok {
		_, err := color.New(color.FgRed).Fprintln(w, msg)
		return err
	}
	return nil
}
