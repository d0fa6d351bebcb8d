package models

// Bill represents a finalized split session as it is persisted.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// UserID is the account that saved the bill.
	UserID string

	// Title is the human-readable name for the bill (required).
	Title string

	// Description is optional free text.
	Description string

	// Items are the line items in entry order.
	Items []Item

	// Participants are the people splitting the bill, in entry order.
	Participants []Participant

	// Tax, Service and Tip are flat additional charges, split evenly
	// across all participants regardless of item assignment.
	Tax     float64
	Service float64
	Tip     float64

	// Subtotal is the sum of price × quantity over all items.
	Subtotal float64

	// Total is Subtotal plus all additional charges.
	Total float64

	// CreatedAt is the Unix timestamp when the bill was saved.
	CreatedAt int64
}

// Item represents a single line item on a bill.
// Items can be shared among multiple participants.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the item label (e.g., "Nasi Goreng").
	Name string

	// Price is the unit price.
	Price float64

	// Quantity is the number of units.
	Quantity int

	// Category is free text ("Food", "Other", ...).
	Category string

	// AssignedTo is the list of participant IDs sharing this item.
	// The item's cost is split equally among them.
	AssignedTo []string
}

// Participant is one person splitting a bill.
type Participant struct {
	// ID is unique within the bill (UUID format).
	ID string

	// Name is unique within the bill, compared case-insensitively.
	Name string

	// Amount is what this participant owes, computed when the bill is finalized.
	Amount float64
}

// BillSummary is the list-view projection of a saved bill.
type BillSummary struct {
	ID               string
	Title            string
	Description      string
	Total            float64
	ParticipantCount int
	CreatedAt        int64
}
