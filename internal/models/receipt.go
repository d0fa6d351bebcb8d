package models

// ReceiptItem is a line item detected on a scanned receipt after sanitization.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}
