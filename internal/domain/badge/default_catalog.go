package badge

import (
	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/tier"
)

// DefaultCatalog is the built-in disc golf badge set used when no catalog
// file is configured.
func DefaultCatalog() []Definition {
	return []Definition{
		{
			ID: "ace", Name: "Ace", Description: "Hole in one.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassAce},
		},
		{
			ID: "ace_collector", Name: "Ace Collector", Description: "Aces across all rounds.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 3, 5, 10}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassAce},
		},
		{
			ID: "eagle_eye", Name: "Eagle Eye", Description: "Eagles across all rounds.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 5, 15}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassEagle},
		},
		{
			ID: "birdie_hunter", Name: "Birdie Hunter", Description: "Birdies in a single round.",
			Kind: tier.KindTiered, TierThresholds: []int{2, 4, 6, 8},
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBirdie},
		},
		{
			ID: "birdie_streak", Name: "Birdie Streak", Description: "Consecutive birdies in a round.",
			Kind: tier.KindTiered, TierThresholds: []int{2, 3, 4, 5},
			Condition: &condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassBirdie, MinLength: 2},
		},
		{
			ID: "par_machine", Name: "Par Machine", Description: "Consecutive pars in a round.",
			Kind: tier.KindTiered, TierThresholds: []int{5, 9, 18},
			Condition: &condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassPar, MinLength: 5},
		},
		{
			ID: "turkey", Name: "Turkey", Description: "Three birdies in a row, counted without overlap.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 3, 10, 25}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassBirdie, GroupSize: 3},
		},
		{
			ID: "bounce_back", Name: "Bounce Back", Description: "Birdie right after a bogey.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 10, 50}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindAdjacentPair, First: condition.ClassBogey, Second: condition.ClassBirdie},
		},
		{
			ID: "redemption_ace", Name: "Redemption Ace", Description: "Ace right after a bogey.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindAdjacentPair, First: condition.ClassBogey, Second: condition.ClassAce},
		},
		{
			ID: "rollercoaster", Name: "Rollercoaster", Description: "Alternate birdies and bogeys for four holes.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindAlternating, First: condition.ClassBirdie, Second: condition.ClassBogey, MinLength: 4},
		},
		{
			ID: "circle_one", Name: "Circle One", Description: "Birdies putted from circle two.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 25, 100}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBirdie, PuttZone: "c2"},
		},
		{
			ID: "champion", Name: "Champion", Description: "Rounds won against the field.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 5, 10, 25}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindRelativeComparison, Outcome: condition.OutcomeWon},
		},
		{
			ID: "comeback_kid", Name: "Comeback Kid", Description: "Win after trailing by three or more.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindRelativeComparison, Outcome: condition.OutcomeWon, DeficitAtLeast: 3},
		},
		{
			ID: "night_owl", Name: "Night Owl", Description: "Start a round between 21:00 and 04:00.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindTimeWindow, StartHour: 21, EndHour: 4},
		},
		{
			ID: "early_bird", Name: "Early Bird", Description: "Start a round between 05:00 and 07:00.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindTimeWindow, StartHour: 5, EndHour: 7},
		},
		{
			ID: "speed_demon", Name: "Speed Demon", Description: "Finish nine or more holes within an hour.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindDuration, MaxMinutes: 60, MinHoles: 9},
		},
		{
			ID: "under_par", Name: "Under Par", Description: "Finish nine or more holes under par.",
			Kind:      tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindRoundTotal, Comparator: condition.CmpLT, Value: 0, MinHoles: 9},
		},
		{
			ID: "fairway_finder", Name: "Fairway Finder", Description: "Rounds of nine or more holes without OB.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 5, 10}, AccumulateAcrossRounds: true,
			Condition: &condition.Spec{Type: condition.KindCleanRound, MinHoles: 9},
		},
		{
			ID: "perfect_balance", Name: "Perfect Balance", Description: "A clean round at or under par.",
			Kind: tier.KindUnique,
			Condition: &condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAll, Children: []condition.Spec{
				{Type: condition.KindCleanRound, MinHoles: 9},
				{Type: condition.KindRoundTotal, Comparator: condition.CmpLTE, Value: 0, MinHoles: 9},
			}},
		},
		{
			ID: "friendly_rivalry", Name: "Friendly Rivalry", Description: "Rounds lost to a friend.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 5, 10}, RequiresHistoricalData: true,
			History: &history.Spec{Comparison: history.LostToFriend},
		},
		{
			ID: "friend_slayer", Name: "Friend Slayer", Description: "Rounds where you beat every friend on the card.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 5, 10, 25}, RequiresHistoricalData: true,
			History: &history.Spec{Comparison: history.BeatFriends},
		},
		{
			ID: "dead_heat", Name: "Dead Heat", Description: "Tie a friend.",
			Kind: tier.KindUnique, RequiresHistoricalData: true,
			History: &history.Spec{Comparison: history.TiedFriend},
		},
		{
			ID: "social_butterfly", Name: "Social Butterfly", Description: "Rounds played with friends.",
			Kind: tier.KindTiered, TierThresholds: []int{1, 10, 50}, RequiresHistoricalData: true,
			History: &history.Spec{Comparison: history.PlayedWithFriend},
		},
	}
}
