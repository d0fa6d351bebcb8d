// Package draft holds a bill while it is being built in a split session.
//
// A Draft is a two-state machine. In CollectingItems the user enters the title,
// items and participants; in AssigningAndReviewing they assign items and review
// the split. Every mutation validates its input first and leaves the draft
// untouched on error. A Draft is not safe for concurrent use.
package draft

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mmynk/splitbill/internal/calculator"
	"github.com/mmynk/splitbill/internal/models"
)

const (
	MinParticipants = 2
	MaxParticipants = 10
	MaxNameLength   = 100

	// Bounds match what receipt scanning accepts.
	MaxPrice    = 999999999
	MaxQuantity = 9999

	DefaultCategory = "Other"
	ScannedCategory = "Food"
)

var (
	ErrEmptyTitle           = errors.New("title is required")
	ErrEmptyName            = errors.New("name is required")
	ErrNameTooLong          = fmt.Errorf("name must be at most %d characters", MaxNameLength)
	ErrInvalidPrice         = fmt.Errorf("price must be greater than zero and at most %d", MaxPrice)
	ErrInvalidQuantity      = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
	ErrNegativeCharge       = errors.New("tax, service and tip must not be negative")
	ErrInvalidCharge        = fmt.Errorf("tax, service and tip must be at most %d", MaxPrice)
	ErrDuplicateParticipant = errors.New("participant name already exists")
	ErrTooManyParticipants  = fmt.Errorf("at most %d participants allowed", MaxParticipants)
	ErrTooFewParticipants   = fmt.Errorf("at least %d participants required", MinParticipants)
	ErrNoItems              = errors.New("at least one item is required")
	ErrUnassignedItems      = errors.New("items must be assigned to at least one participant")
	ErrItemNotFound         = errors.New("item not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrInvalidTransition    = errors.New("invalid step transition")
)

// State is a step of the split wizard.
type State int

const (
	CollectingItems State = iota
	AssigningAndReviewing
)

func (s State) String() string {
	switch s {
	case CollectingItems:
		return "collecting_items"
	case AssigningAndReviewing:
		return "assigning_and_reviewing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Draft is an in-memory bill under construction.
type Draft struct {
	title        string
	description  string
	items        []models.Item
	participants []models.Participant
	charges      calculator.Charges
	state        State
}

// New returns an empty draft in CollectingItems.
func New() *Draft {
	return &Draft{state: CollectingItems}
}

func (d *Draft) State() State        { return d.state }
func (d *Draft) Title() string       { return d.title }
func (d *Draft) Description() string { return d.description }

// Charges returns the current tax, service and tip.
func (d *Draft) Charges() calculator.Charges { return d.charges }

// Items returns a copy of the items in entry order.
func (d *Draft) Items() []models.Item {
	out := make([]models.Item, len(d.items))
	for i, item := range d.items {
		out[i] = item
		out[i].AssignedTo = append([]string(nil), item.AssignedTo...)
	}
	return out
}

// Participants returns a copy of the participants in entry order.
func (d *Draft) Participants() []models.Participant {
	return append([]models.Participant(nil), d.participants...)
}

// SetTitle sets the bill title. An empty title is allowed while editing but
// blocks Next and Finalize.
func (d *Draft) SetTitle(title string) {
	d.title = strings.TrimSpace(title)
}

func (d *Draft) SetDescription(description string) {
	d.description = strings.TrimSpace(description)
}

// SetCharges replaces tax, service and tip.
func (d *Draft) SetCharges(tax, service, tip float64) error {
	for _, c := range []float64{tax, service, tip} {
		if math.IsNaN(c) || c > MaxPrice {
			return ErrInvalidCharge
		}
		if c < 0 {
			return ErrNegativeCharge
		}
	}
	d.charges = calculator.Charges{Tax: tax, Service: service, Tip: tip}
	return nil
}

// AddItem appends a line item. assignTo may be empty; each ID must name an
// existing participant. An empty category becomes DefaultCategory.
func (d *Draft) AddItem(name string, price float64, quantity int, category string, assignTo ...string) (models.Item, error) {
	name, err := validName(name)
	if err != nil {
		return models.Item{}, err
	}
	if math.IsNaN(price) || price <= 0 || price > MaxPrice {
		return models.Item{}, ErrInvalidPrice
	}
	if quantity <= 0 || quantity > MaxQuantity {
		return models.Item{}, ErrInvalidQuantity
	}
	assigned := make([]string, 0, len(assignTo))
	for _, id := range assignTo {
		if d.participantIndex(id) < 0 {
			return models.Item{}, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
		}
		if !contains(assigned, id) {
			assigned = append(assigned, id)
		}
	}
	if category = strings.TrimSpace(category); category == "" {
		category = DefaultCategory
	}

	item := models.Item{
		ID:         uuid.New().String(),
		Name:       name,
		Price:      price,
		Quantity:   quantity,
		Category:   category,
		AssignedTo: assigned,
	}
	d.items = append(d.items, item)
	return item, nil
}

// MergeScanned appends sanitized receipt items, unassigned and categorized as
// ScannedCategory. Items that fail item validation are skipped.
func (d *Draft) MergeScanned(scanned []models.ReceiptItem) []models.Item {
	added := make([]models.Item, 0, len(scanned))
	for _, s := range scanned {
		item, err := d.AddItem(s.Name, s.Price, s.Quantity, ScannedCategory)
		if err != nil {
			continue
		}
		added = append(added, item)
	}
	return added
}

// RemoveItem deletes an item by ID.
func (d *Draft) RemoveItem(id string) error {
	i := d.itemIndex(id)
	if i < 0 {
		return ErrItemNotFound
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	return nil
}

// AddParticipant appends a participant with a fresh ID.
func (d *Draft) AddParticipant(name string) (models.Participant, error) {
	name, err := validName(name)
	if err != nil {
		return models.Participant{}, err
	}
	if len(d.participants) >= MaxParticipants {
		return models.Participant{}, ErrTooManyParticipants
	}
	for _, p := range d.participants {
		if strings.EqualFold(p.Name, name) {
			return models.Participant{}, ErrDuplicateParticipant
		}
	}

	p := models.Participant{ID: uuid.New().String(), Name: name}
	d.participants = append(d.participants, p)
	return p, nil
}

// RemoveParticipant deletes a participant and strips their ID from every
// item's assignments. Items are never removed, even when left unassigned.
func (d *Draft) RemoveParticipant(id string) error {
	i := d.participantIndex(id)
	if i < 0 {
		return ErrParticipantNotFound
	}
	d.participants = append(d.participants[:i], d.participants[i+1:]...)
	for j := range d.items {
		d.items[j].AssignedTo = without(d.items[j].AssignedTo, id)
	}
	return nil
}

// Assign adds a participant to an item's assignment set. Assigning twice is a no-op.
func (d *Draft) Assign(itemID, participantID string) error {
	item, err := d.lookup(itemID, participantID)
	if err != nil {
		return err
	}
	if !contains(item.AssignedTo, participantID) {
		item.AssignedTo = append(item.AssignedTo, participantID)
	}
	return nil
}

// Unassign removes a participant from an item's assignment set.
func (d *Draft) Unassign(itemID, participantID string) error {
	item, err := d.lookup(itemID, participantID)
	if err != nil {
		return err
	}
	item.AssignedTo = without(item.AssignedTo, participantID)
	return nil
}

// ToggleAssignment flips an assignment and reports whether the participant is
// now assigned.
func (d *Draft) ToggleAssignment(itemID, participantID string) (bool, error) {
	item, err := d.lookup(itemID, participantID)
	if err != nil {
		return false, err
	}
	if contains(item.AssignedTo, participantID) {
		item.AssignedTo = without(item.AssignedTo, participantID)
		return false, nil
	}
	item.AssignedTo = append(item.AssignedTo, participantID)
	return true, nil
}

// Split runs the calculator over the current contents. It is cheap and meant
// to be called after every change.
func (d *Draft) Split() *calculator.Result {
	items := make([]calculator.Item, len(d.items))
	for i, item := range d.items {
		items[i] = calculator.Item{
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			AssignedTo: item.AssignedTo,
		}
	}
	ids := make([]string, len(d.participants))
	for i, p := range d.participants {
		ids[i] = p.ID
	}
	return calculator.ComputeSplit(items, ids, d.charges)
}

// Next moves from CollectingItems to AssigningAndReviewing.
func (d *Draft) Next() error {
	if d.state != CollectingItems {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, d.state)
	}
	if err := d.validateCollected(); err != nil {
		return err
	}
	d.state = AssigningAndReviewing
	return nil
}

// Back returns from AssigningAndReviewing to CollectingItems.
func (d *Draft) Back() error {
	if d.state != AssigningAndReviewing {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, d.state)
	}
	d.state = CollectingItems
	return nil
}

// Validate reports the first rule that blocks finalization, regardless of state.
func (d *Draft) Validate() error {
	if err := d.validateCollected(); err != nil {
		return err
	}
	var unassigned []string
	for _, item := range d.items {
		if len(item.AssignedTo) == 0 {
			unassigned = append(unassigned, item.Name)
		}
	}
	if len(unassigned) > 0 {
		return fmt.Errorf("%w: %s", ErrUnassignedItems, strings.Join(unassigned, ", "))
	}
	return nil
}

// Finalize produces the bill to persist. It is only valid in
// AssigningAndReviewing and rejects drafts with unassigned items.
func (d *Draft) Finalize(userID string) (*models.Bill, error) {
	if d.state != AssigningAndReviewing {
		return nil, fmt.Errorf("%w: finalize from %s", ErrInvalidTransition, d.state)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	res := d.Split()
	participants := d.Participants()
	for i := range participants {
		participants[i].Amount = res.Owed(participants[i].ID)
	}

	return &models.Bill{
		UserID:       userID,
		Title:        d.title,
		Description:  d.description,
		Items:        d.Items(),
		Participants: participants,
		Tax:          res.Tax,
		Service:      res.Service,
		Tip:          res.Tip,
		Subtotal:     res.Subtotal,
		Total:        res.Total,
		CreatedAt:    time.Now().Unix(),
	}, nil
}

func (d *Draft) validateCollected() error {
	if d.title == "" {
		return ErrEmptyTitle
	}
	if len(d.items) == 0 {
		return ErrNoItems
	}
	if len(d.participants) < MinParticipants {
		return ErrTooFewParticipants
	}
	if len(d.participants) > MaxParticipants {
		return ErrTooManyParticipants
	}
	return nil
}

func (d *Draft) lookup(itemID, participantID string) (*models.Item, error) {
	i := d.itemIndex(itemID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	if d.participantIndex(participantID) < 0 {
		return nil, ErrParticipantNotFound
	}
	return &d.items[i], nil
}

func (d *Draft) itemIndex(id string) int {
	for i, item := range d.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (d *Draft) participantIndex(id string) int {
	for i, p := range d.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
