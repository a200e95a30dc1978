package roundsim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rounds     int           // Number of rounds to generate
	Players    int           // Size of the player pool
	Holes      int           // Holes per generated layout
	Friends    int           // Accepted friendships to register before submitting
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for async evaluation to drain
	Sync       bool          // Use /rounds/evaluate instead of /rounds
	OutputFile string        // Optional JSON dump of generated rounds
	Verbose    bool          // Enable verbose logging
}

// Ack is the response to an async round submission.
type Ack struct {
	Status    string `json:"status"`
	RoundID   string `json:"roundId"`
	Players   int    `json:"players"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	RoundsGenerated  int
	RoundsSubmitted  int
	RoundsAccepted   int
	RoundsDuplicate  int
	RoundsFailed     int
	FriendshipsAdded int
	AwardsReported   int            // awards returned by /rounds/evaluate
	AwardsByBadge    map[string]int // badge id -> award records found per player
	PlayersWithBadge int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
