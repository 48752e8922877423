package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/damon-houk/silver-price-form/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// The failure panel has already been printed
		if !errors.Is(err, cli.ErrPredictionFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
