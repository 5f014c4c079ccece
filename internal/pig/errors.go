package pig

import "errors"

var (
	// ErrGameOver indicates a roll or hold on a finished game, or a
	// completion attempt on a game that is not finished.
	ErrGameOver = errors.New("pig: game over")

	// ErrNoActiveGame indicates a hold or completion for a player who
	// has never rolled. Rolling (or resetting) creates the record.
	ErrNoActiveGame = errors.New("pig: no active game")
)
