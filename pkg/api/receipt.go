package api

// ScanReceiptRequest carries a receipt photo as a base64 data URL
// ("data:image/jpeg;base64,...").
type ScanReceiptRequest struct {
	Image string `json:"image"`
}

type ReceiptItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type ScanReceiptResponse struct {
	Items []ReceiptItem `json:"items"`
}
