package calculator

// Item represents a single priced line on the bill.
type Item struct {
	Name       string
	Price      float64
	Quantity   int
	AssignedTo []string // participant IDs
}

// Charges are the flat additional costs split evenly across participants.
type Charges struct {
	Tax     float64
	Service float64
	Tip     float64
}

// Sum returns tax + service + tip.
func (c Charges) Sum() float64 {
	return c.Tax + c.Service + c.Tip
}

// PersonItem represents an item's share for one person.
type PersonItem struct {
	Name   string
	Amount float64 // this person's share of the item
}

// PersonSplit represents the calculated split for one person.
type PersonSplit struct {
	Subtotal   float64 // sum of item shares
	Additional float64 // even share of tax + service + tip
	Total      float64
	Items      []PersonItem
}

// Result is the output of ComputeSplit.
type Result struct {
	Subtotal            float64
	Tax                 float64
	Service             float64
	Tip                 float64
	Additional          float64
	AdditionalPerPerson float64
	Total               float64

	// Splits is keyed by participant ID. Empty when there are no participants.
	Splits map[string]*PersonSplit
}

// Owed returns the total a participant owes, or 0 for an unknown ID.
func (r *Result) Owed(participantID string) float64 {
	if split, ok := r.Splits[participantID]; ok {
		return split.Total
	}
	return 0
}

// ComputeSplit computes how much each participant owes.
//
// Additional charges are split evenly across all participants regardless of
// assignment. Each item's price × quantity is split evenly across the
// participants assigned to it. Items with no assignees are counted in the
// subtotal but credited to nobody, so callers must reject them before saving.
// Assignee IDs that are not in participants are ignored: the item is split
// among its known assignees only, and an item with none is treated as
// unassigned.
//
// No rounding is applied; the sum of all participant totals equals Total up to
// floating-point error when every item is assigned.
func ComputeSplit(items []Item, participants []string, charges Charges) *Result {
	res := &Result{
		Tax:        charges.Tax,
		Service:    charges.Service,
		Tip:        charges.Tip,
		Additional: charges.Sum(),
		Splits:     make(map[string]*PersonSplit, len(participants)),
	}

	for _, item := range items {
		res.Subtotal += item.Price * float64(item.Quantity)
	}
	res.Total = res.Subtotal + res.Additional

	if len(participants) == 0 {
		return res
	}
	res.AdditionalPerPerson = res.Additional / float64(len(participants))

	for _, p := range participants {
		res.Splits[p] = &PersonSplit{
			Additional: res.AdditionalPerPerson,
			Items:      []PersonItem{},
		}
	}

	for _, item := range items {
		assignees := make([]*PersonSplit, 0, len(item.AssignedTo))
		for _, person := range item.AssignedTo {
			if split, exists := res.Splits[person]; exists {
				assignees = append(assignees, split)
			}
		}
		if len(assignees) == 0 {
			continue
		}

		share := item.Price * float64(item.Quantity) / float64(len(assignees))
		for _, split := range assignees {
			split.Subtotal += share
			split.Items = append(split.Items, PersonItem{Name: item.Name, Amount: share})
		}
	}

	for _, split := range res.Splits {
		split.Total = split.Subtotal + split.Additional
	}

	return res
}
