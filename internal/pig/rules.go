package pig

import "fmt"

// DieSides is the number of faces on the die. Die values are always in
// [1, DieSides].
const DieSides = 6

// ApplyRoll applies one die roll. Rolling a 1 busts the turn: the
// unbanked turn score is forfeited and the turn counter advances.
// Any other value accumulates into the turn score. Rolls never touch
// the banked total, so no win check happens here.
//
// The state is untouched when an error is returned.
func (s *State) ApplyRoll(die int) (View, error) {
	if s.GameOver {
		return View{}, ErrGameOver
	}
	if die < 1 || die > DieSides {
		return View{}, fmt.Errorf("pig: die value %d out of range [1,%d]", die, DieSides)
	}

	s.Round++
	s.LastRoll = die
	if die == 1 {
		s.TurnScore = 0
		s.Turn++
	} else {
		s.TurnScore += die
	}
	return s.View(), nil
}

// ApplyHold banks the current turn score into the total and ends the
// turn. The win check happens here and only here: the total only ever
// changes on a hold.
//
// The state is untouched when an error is returned.
func (s *State) ApplyHold(winThreshold int) (View, error) {
	if s.GameOver {
		return View{}, ErrGameOver
	}

	s.TotalScore += s.TurnScore
	s.TurnScore = 0
	s.LastRoll = 0
	s.Turn++
	if s.TotalScore >= winThreshold {
		s.GameOver = true
	}
	return s.View(), nil
}

// CompletionReport produces the payload for registering a finished
// game with the leaderboard. It never mutates the state and fails with
// ErrGameOver while the game is still in progress.
func (s *State) CompletionReport() (Completion, error) {
	if !s.GameOver {
		return Completion{}, ErrGameOver
	}
	return Completion{
		TotalScore: s.TotalScore,
		Rounds:     s.Round,
		Turns:      s.Turn,
	}, nil
}
