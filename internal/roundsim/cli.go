// Package roundsim drives a running badge service with generated rounds
// and reports which badges came out.
package roundsim

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/birdie/pkg/logger"
)

// SetupLogging initializes the global logger, teeing to logFile when set.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`birdie round simulator
======================

Generates disc golf rounds for a pool of players, submits them to a running
badge service and summarises the awards it granted.

Usage:
  go run ./cmd/round-sim [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -rounds int         Number of rounds to generate (default 500)
  -players int        Size of the player pool (default 40)
  -holes int          Holes per layout (default 18)
  -friends int        Friendships to register first (default 20)
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 30s)
  -settle duration    Max wait for async evaluation to drain (default 1m)
  -sync               Evaluate each round synchronously via /rounds/evaluate
  -output string      Write generated rounds to this JSON file
  -log string         Also write logs to this file
  -verbose            Enable verbose logging
  -help               Show this help message

Examples:
  go run ./cmd/round-sim -rounds 2000 -workers 16
  go run ./cmd/round-sim -sync -rounds 50 -players 8 -verbose
`)
}
