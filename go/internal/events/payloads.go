package events

import (
	"encoding/json"

	"github.com/thaasbai/tables/go/internal/room"
)

// Inbound payloads.

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
	MaxPlayers int    `json:"maxPlayers"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

type SwapRequest struct {
	FromPosition *int `json:"fromPosition"`
}

type StartRequest struct {
	GameState   json.RawMessage   `json:"gameState"`
	Hands       json.RawMessage   `json:"hands"`
	StockPile   []json.RawMessage `json:"stockPile"`
	DiscardPile []json.RawMessage `json:"discardPile"`
}

func (s StartRequest) Deal() room.Deal {
	return room.Deal{
		GameState: s.GameState,
		Hands:     s.Hands,
		Stock:     s.StockPile,
		Discard:   s.DiscardPile,
	}
}

type CardRequest struct {
	Card json.RawMessage `json:"card"`
}

type TrickCompletedRequest struct {
	Winner *int `json:"winner"`
}

type UpdateStateRequest struct {
	GameState json.RawMessage `json:"gameState"`
}

type JoinQueueRequest struct {
	PlayerName string `json:"playerName"`
}

type DrawRequest struct {
	Source string `json:"source"`
}

type DeclareRequest struct {
	Melds   json.RawMessage `json:"melds"`
	IsValid bool            `json:"isValid"`
}

type GameOverRequest struct {
	Results json.RawMessage `json:"results"`
}

// Outbound payloads.

type ConnectedPayload struct {
	Sid string `json:"sid"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type RoomJoinedPayload struct {
	RoomID     string     `json:"roomId"`
	Position   int        `json:"position"`
	Players    room.Seats `json:"players"`
	MaxPlayers int        `json:"maxPlayers,omitempty"`
}

type PlayersPayload struct {
	Players room.Seats `json:"players"`
}

type LeftRoomPayload struct {
	RoomID string `json:"roomId"`
}

type PositionChangedPayload struct {
	FromPosition int        `json:"fromPosition"`
	ToPosition   int        `json:"toPosition"`
	Players      room.Seats `json:"players"`
}

type GameStartedPayload struct {
	GameState          json.RawMessage `json:"gameState"`
	Hands              json.RawMessage `json:"hands"`
	Players            room.Seats      `json:"players,omitempty"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	GamePhase          room.Phase      `json:"gamePhase,omitempty"`
	StockCount         *int            `json:"stockCount,omitempty"`
	DiscardCount       *int            `json:"discardCount,omitempty"`
}

type StateUpdatedPayload struct {
	GameState json.RawMessage `json:"gameState"`
}

type RoomResetPayload struct {
	RoomID  string      `json:"roomId"`
	Status  room.Status `json:"status"`
	Players room.Seats  `json:"players"`
}

type PlayerLeftPayload struct {
	Position   int        `json:"position"`
	PlayerName string     `json:"playerName"`
	Reason     string     `json:"reason"`
	Players    room.Seats `json:"players"`
}

type RemoteCardPayload struct {
	Card               json.RawMessage `json:"card"`
	Position           int             `json:"position"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	GamePhase          room.Phase      `json:"gamePhase,omitempty"`
}

type TurnChangedPayload struct {
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
	GamePhase          room.Phase `json:"gamePhase,omitempty"`
}

type TrickWinnerPayload struct {
	Winner             int `json:"winner"`
	CurrentPlayerIndex int `json:"currentPlayerIndex"`
}

type CardDrawnPayload struct {
	Source             string          `json:"source"`
	Card               json.RawMessage `json:"card"`
	Position           int             `json:"position"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	GamePhase          room.Phase      `json:"gamePhase"`
	StockCount         int             `json:"stockCount"`
	DiscardCount       int             `json:"discardCount"`
}

type StockReshuffledPayload struct {
	StockCount int `json:"stockCount"`
}

type DeclarePayload struct {
	Position int             `json:"position"`
	Melds    json.RawMessage `json:"melds"`
	IsValid  bool            `json:"isValid"`
}

type GameOverPayload struct {
	Results    json.RawMessage `json:"results"`
	DeclaredBy int             `json:"declaredBy"`
}

type QueuePayload struct {
	PlayersInQueue int `json:"playersInQueue"`
	PlayersNeeded  int `json:"playersNeeded"`
}

type MatchFoundPayload struct {
	RoomID               string     `json:"roomId"`
	Position             int        `json:"position"`
	Players              room.Seats `json:"players"`
	ConfirmTimeout       int        `json:"confirmTimeout"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
}

type PlayerConfirmedPayload struct {
	Position int        `json:"position"`
	Players  room.Seats `json:"players"`
}

type AllConfirmedPayload struct {
	RoomID  string     `json:"roomId"`
	Players room.Seats `json:"players"`
}

type MatchEndedPayload struct {
	Message  string `json:"message"`
	Requeued bool   `json:"requeued,omitempty"`
}
