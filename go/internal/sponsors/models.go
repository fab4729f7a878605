package sponsors

import "time"

// Slot is a placement in the client UI that can carry a sponsor.
type Slot string

const (
	SlotTable       Slot = "table"
	SlotDrink       Slot = "drink"
	SlotFood        Slot = "food"
	SlotMatchmaking Slot = "matchmaking"
	SlotWaitingRoom Slot = "waiting_room"
)

// Slots lists every placement in display order.
var Slots = []Slot{SlotTable, SlotDrink, SlotFood, SlotMatchmaking, SlotWaitingRoom}

// Sponsor is what the client renders for one slot.
type Sponsor struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
	Logo    string `json:"logo"`
	URL     string `json:"url"`
	Callout string `json:"callout"`
}

// Campaign is an active sponsorship row managed by the admin tooling.
type Campaign struct {
	Slot      Slot      `db:"sponsor_slot"`
	Name      string    `db:"name"`
	Logo      string    `db:"logo"`
	URL       string    `db:"url"`
	Callout   string    `db:"callout"`
	CreatedAt time.Time `db:"created_at"`
}
