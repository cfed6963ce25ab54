package model

// Screen is a physical auditorium.  Its seat shape is described by the
// SeatLayout rows attached to it; the shape is copied into show_seats
// whenever a show is scheduled on this screen.
type Screen struct {
	ID         uint64 `json:"id"`          // screens.id
	Name       string `json:"name"`        // screens.name
	PriceCents uint32 `json:"price_cents"` // screens.price_cents
}

// SeatLayout describes one row of a screen: the row letter and how many
// seats that row has.  Layout rows are static: they are written when the
// screen is configured and never mutated afterwards.
type SeatLayout struct {
	ID           uint64 `json:"id"`            // seat_layouts.id
	ScreenID     uint64 `json:"screen_id"`     // seat_layouts.screen_id
	RowLabel     string `json:"row"`           // seat_layouts.row_label (e.g. "A")
	TotalColumns int    `json:"total_columns"` // seat_layouts.total_columns
}
