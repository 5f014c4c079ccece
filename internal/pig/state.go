// Package pig implements the rules engine for the dice game Pig: a
// single player repeatedly rolls a die, accumulating points within a
// turn, until they either hold (banking the points) or roll a 1 and
// bust (forfeiting them). The first game to bank a total at or above
// the win threshold is over.
//
// The package is a pure state machine. It owns no randomness, no
// threshold constant and no storage; callers supply die values and the
// win threshold, and the registry package owns the per-player records.
package pig

// State holds one player's game progress. The zero value is a valid
// fresh game: no roll yet, nothing banked, not over.
type State struct {
	LastRoll   int  // most recent die value; 0 means no roll yet this turn, or just held
	TurnScore  int  // points accumulated this turn, not yet banked
	TotalScore int  // banked score across the whole game
	Round      int  // roll-or-hold actions since the last reset
	Turn       int  // turn-ending events (bust or hold) since the last reset
	GameOver   bool // set once TotalScore reaches the win threshold
}

// View is the read-only snapshot returned by mutating operations and
// served to clients. It deliberately carries no reference back into the
// live record.
type View struct {
	LastRoll   int  `json:"lastRoll"`
	TurnScore  int  `json:"turnScore"`
	TotalScore int  `json:"totalScore"`
	Round      int  `json:"round"`
	Turn       int  `json:"turn"`
	GameOver   bool `json:"gameOver"`
}

// Completion is the immutable payload handed to the leaderboard when a
// finished game is registered.
type Completion struct {
	TotalScore int `json:"totalScore"`
	Rounds     int `json:"rounds"`
	Turns      int `json:"turns"`
}

// View snapshots the state.
func (s *State) View() View {
	return View{
		LastRoll:   s.LastRoll,
		TurnScore:  s.TurnScore,
		TotalScore: s.TotalScore,
		Round:      s.Round,
		Turn:       s.Turn,
		GameOver:   s.GameOver,
	}
}
