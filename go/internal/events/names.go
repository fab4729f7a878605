package events

import "github.com/thaasbai/tables/go/internal/room"

// Action is what an inbound event asks the coordinator to do.
type Action int

const (
	ActCreateRoom Action = iota
	ActJoinRoom
	ActLeaveRoom
	ActSetReady
	ActSwapSeat
	ActStartGame
	ActCardPlayed
	ActTrickCompleted
	ActUpdateState
	ActNewRound
	ActReadyForRound
	ActJoinQueue
	ActLeaveQueue
	ActConfirmMatch
	ActDrawCard
	ActDiscardCard
	ActDeclare
	ActGameOver
	ActKeepalive
)

// Route binds an inbound event name to its variant, action and rate-limit bucket.
type Route struct {
	Variant room.Variant
	Action  Action
	Budget  string
}

var routes = map[string]Route{
	"create_room":       {room.VariantTrick, ActCreateRoom, "create_room"},
	"join_room":         {room.VariantTrick, ActJoinRoom, "join_room"},
	"leave_room":        {room.VariantTrick, ActLeaveRoom, "leave_room"},
	"set_ready":         {room.VariantTrick, ActSetReady, "set_ready"},
	"swap_player":       {room.VariantTrick, ActSwapSeat, "swap_player"},
	"start_game":        {room.VariantTrick, ActStartGame, "start_game"},
	"card_played":       {room.VariantTrick, ActCardPlayed, "card_played"},
	"trick_completed":   {room.VariantTrick, ActTrickCompleted, "trick_completed"},
	"update_game_state": {room.VariantTrick, ActUpdateState, "update_game_state"},
	"new_round":         {room.VariantTrick, ActNewRound, "new_round"},
	"ready_for_round":   {room.VariantTrick, ActReadyForRound, "ready_for_round"},
	"join_queue":        {room.VariantTrick, ActJoinQueue, "join_queue"},
	"leave_queue":       {room.VariantTrick, ActLeaveQueue, "leave_queue"},
	"confirm_match":     {room.VariantTrick, ActConfirmMatch, "confirm_match"},
	"ping_keepalive":    {room.VariantTrick, ActKeepalive, "ping_keepalive"},

	// rummy creation, joining and queueing share the trick game's buckets
	"create_digu_room":   {room.VariantRummy, ActCreateRoom, "create_room"},
	"join_digu_room":     {room.VariantRummy, ActJoinRoom, "join_room"},
	"leave_digu_room":    {room.VariantRummy, ActLeaveRoom, "leave_digu_room"},
	"digu_set_ready":     {room.VariantRummy, ActSetReady, "digu_set_ready"},
	"swap_digu_player":   {room.VariantRummy, ActSwapSeat, "swap_digu_player"},
	"start_digu_game":    {room.VariantRummy, ActStartGame, "start_digu_game"},
	"digu_draw_card":     {room.VariantRummy, ActDrawCard, "digu_draw_card"},
	"digu_discard_card":  {room.VariantRummy, ActDiscardCard, "digu_discard_card"},
	"digu_declare":       {room.VariantRummy, ActDeclare, "digu_declare"},
	"digu_update_state":  {room.VariantRummy, ActUpdateState, "digu_update_state"},
	"digu_game_over":     {room.VariantRummy, ActGameOver, "digu_game_over"},
	"digu_new_match":     {room.VariantRummy, ActNewRound, "digu_new_match"},
	"join_digu_queue":    {room.VariantRummy, ActJoinQueue, "join_queue"},
	"leave_digu_queue":   {room.VariantRummy, ActLeaveQueue, "leave_digu_queue"},
	"digu_confirm_match": {room.VariantRummy, ActConfirmMatch, "digu_confirm_match"},
}

// Lookup resolves an inbound event name.
func Lookup(name string) (Route, bool) {
	r, ok := routes[name]
	return r, ok
}

// DefaultBudgets are the per-minute limits applied when configuration does not override them.
func DefaultBudgets() map[string]int {
	return map[string]int{
		"create_room":       5,
		"join_room":         10,
		"join_queue":        10,
		"card_played":       120,
		"trick_completed":   120,
		"update_game_state": 240,
		"digu_update_state": 240,
		"digu_draw_card":    60,
		"digu_discard_card": 60,
		"digu_declare":      10,
		"ping_keepalive":    120,
	}
}

const DefaultBudget = 60

const (
	Connected = "connected"
	Error     = "error"
)

// Names are the outbound event names for one variant.
type Names struct {
	RoomCreated     string
	RoomJoined      string
	PlayersChanged  string
	LeftRoom        string
	PositionChanged string
	GameStarted     string
	StateUpdated    string
	RoundStarted    string
	RoomReset       string
	PlayerLeft      string
	TurnChanged     string

	QueueJoined     string
	QueueUpdate     string
	QueueLeft       string
	MatchFound      string
	PlayerConfirmed string
	AllConfirmed    string
	MatchTimeout    string
	MatchCancelled  string

	// trick game only
	RemoteCardPlayed string
	TrickWinnerSet   string
	AllReadyForRound string

	// rummy only
	CardDrawn           string
	StockReshuffled     string
	RemoteCardDiscarded string
	RemoteDeclare       string
	RemoteGameOver      string
}

var trickNames = Names{
	RoomCreated:      "room_created",
	RoomJoined:       "room_joined",
	PlayersChanged:   "players_changed",
	LeftRoom:         "left_room",
	PositionChanged:  "position_changed",
	GameStarted:      "game_started",
	StateUpdated:     "game_state_updated",
	RoundStarted:     "round_started",
	RoomReset:        "room_reset",
	PlayerLeft:       "player_left_game",
	QueueJoined:      "queue_joined",
	QueueUpdate:      "queue_update",
	QueueLeft:        "queue_left",
	MatchFound:       "match_found",
	PlayerConfirmed:  "player_confirmed",
	AllConfirmed:     "all_confirmed",
	MatchTimeout:     "match_timeout",
	MatchCancelled:   "match_cancelled",
	RemoteCardPlayed: "remote_card_played",
	TurnChanged:      "turn_changed",
	TrickWinnerSet:   "trick_winner_set",
	AllReadyForRound: "all_ready_for_round",
}

var rummyNames = Names{
	RoomCreated:         "digu_room_created",
	RoomJoined:          "digu_room_joined",
	PlayersChanged:      "digu_players_changed",
	LeftRoom:            "digu_left_room",
	PositionChanged:     "digu_position_changed",
	GameStarted:         "digu_game_started",
	StateUpdated:        "digu_state_updated",
	RoundStarted:        "digu_match_started",
	RoomReset:           "digu_room_reset",
	PlayerLeft:          "digu_player_left",
	QueueJoined:         "digu_queue_joined",
	QueueUpdate:         "digu_queue_update",
	QueueLeft:           "digu_queue_left",
	MatchFound:          "digu_match_found",
	PlayerConfirmed:     "digu_player_confirmed",
	AllConfirmed:        "digu_all_confirmed",
	MatchTimeout:        "digu_match_timeout",
	MatchCancelled:      "digu_match_cancelled",
	TurnChanged:         "digu_turn_changed",
	CardDrawn:           "digu_card_drawn",
	StockReshuffled:     "digu_stock_reshuffled",
	RemoteCardDiscarded: "digu_remote_card_discarded",
	RemoteDeclare:       "digu_remote_declare",
	RemoteGameOver:      "digu_remote_game_over",
}

// For returns the outbound names used by variant.
func For(v room.Variant) Names {
	if v == room.VariantRummy {
		return rummyNames
	}
	return trickNames
}
