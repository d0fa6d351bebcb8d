package api

// Item is a line item. AssignedTo holds participant IDs from the same request.
type Item struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Quantity   int      `json:"quantity"`
	Category   string   `json:"category,omitempty"`
	AssignedTo []string `json:"assignedTo"`
}

// Participant is a person splitting the bill. On requests, ID is any client
// chosen key unique within the request. Amount is only set on saved bills.
type Participant struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount,omitempty"`
}

type Charges struct {
	Tax     float64 `json:"tax"`
	Service float64 `json:"service"`
	Tip     float64 `json:"tip"`
}

type CalculateSplitRequest struct {
	Items        []Item        `json:"items"`
	Participants []Participant `json:"participants"`
	Charges      Charges       `json:"charges"`
}

type PersonItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ParticipantSplit is one participant's share. Display is the total rounded
// to whole rupiah.
type ParticipantSplit struct {
	ParticipantID string       `json:"participantId"`
	Name          string       `json:"name"`
	Subtotal      float64      `json:"subtotal"`
	Additional    float64      `json:"additional"`
	Total         float64      `json:"total"`
	Display       string       `json:"display"`
	Items         []PersonItem `json:"items"`
}

type Split struct {
	Subtotal            float64            `json:"subtotal"`
	Tax                 float64            `json:"tax"`
	Service             float64            `json:"service"`
	Tip                 float64            `json:"tip"`
	AdditionalPerPerson float64            `json:"additionalPerPerson"`
	Total               float64            `json:"total"`
	TotalDisplay        string             `json:"totalDisplay"`
	Participants        []ParticipantSplit `json:"participants"`
}

type CalculateSplitResponse struct {
	Split *Split `json:"split"`
}

type SaveBillRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Items        []Item        `json:"items"`
	Participants []Participant `json:"participants"`
	Charges      Charges       `json:"charges"`
}

type SaveBillResponse struct {
	BillID    string    `json:"billId"`
	CreatedAt Timestamp `json:"createdAt"`
	Split     *Split    `json:"split"`
}

type Bill struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Items        []Item        `json:"items"`
	Participants []Participant `json:"participants"`
	Charges      Charges       `json:"charges"`
	Subtotal     float64       `json:"subtotal"`
	Total        float64       `json:"total"`
	CreatedAt    Timestamp     `json:"createdAt"`
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type GetBillResponse struct {
	Bill  *Bill  `json:"bill"`
	Split *Split `json:"split"`
}

type BillSummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Total            float64   `json:"total"`
	TotalDisplay     string    `json:"totalDisplay"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        Timestamp `json:"createdAt"`
}

type ListBillsRequest struct{}

type ListBillsResponse struct {
	Bills []BillSummary `json:"bills"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillResponse struct{}
