package room

import (
	"errors"
	"fmt"
)

// Error text is sent to clients verbatim.
var (
	ErrRoomNotFound         = errors.New("Room not found")
	ErrGameInProgress       = errors.New("Game already in progress")
	ErrRoomFull             = errors.New("Room is full")
	ErrNotHost              = errors.New("Only host can assign teams")
	ErrNotHostStart         = errors.New("Only host can start the game")
	ErrNotHostRound         = errors.New("Only host can start a new round")
	ErrNotEnoughPlayers     = errors.New("not enough players")
	ErrNotAllReady          = errors.New("All players must be ready")
	ErrSeatEmpty            = errors.New("No player in that position")
	ErrInvalidSeat          = errors.New("Invalid position")
	ErrNotConfirming        = errors.New("Not in confirmation phase")
	ErrAwaitingConfirmation = errors.New("Waiting for all players to confirm")
	ErrNotPlaying           = errors.New("Game is not in progress")
)

// NotEnoughPlayersError reports the seat count a start needs. It matches ErrNotEnoughPlayers.
type NotEnoughPlayersError struct {
	Need int
}

func (e *NotEnoughPlayersError) Error() string {
	return fmt.Sprintf("Need %d players to start", e.Need)
}

func (e *NotEnoughPlayersError) Is(target error) bool {
	return target == ErrNotEnoughPlayers
}
