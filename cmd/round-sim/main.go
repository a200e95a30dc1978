package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/birdie/internal/roundsim"
)

// Default configuration constants.
const (
	defaultRounds  = 500
	defaultPlayers = 40
	defaultHoles   = 18
	defaultFriends = 20
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultTimeout = 30 * time.Second
	defaultSettle  = time.Minute
	defaultRunTime = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rounds     = flag.Int("rounds", defaultRounds, "Number of rounds to generate")
		players    = flag.Int("players", defaultPlayers, "Size of the player pool")
		holes      = flag.Int("holes", defaultHoles, "Holes per layout")
		friends    = flag.Int("friends", defaultFriends, "Friendships to register first")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Max wait for async evaluation to drain")
		evaluate   = flag.Bool("sync", false, "Evaluate rounds synchronously")
		outputFile = flag.String("output", "", "Write generated rounds to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		roundsim.ShowHelp()
		return
	}

	if err := roundsim.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()

	cfg := &roundsim.Config{
		BaseURL:    *baseURL,
		Rounds:     *rounds,
		Players:    *players,
		Holes:      *holes,
		Friends:    *friends,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Sync:       *evaluate,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := roundsim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
