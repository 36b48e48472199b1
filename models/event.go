package models

import "github.com/shopspring/decimal"

// Progress event types sent to interactive clients
const (
	EventStatusUpdate       = "status_update"
	EventItemProcessing     = "item_processing"
	EventItemUpdated        = "item_updated"
	EventItemUnchanged      = "item_unchanged"
	EventItemError          = "item_error"
	EventProcessingComplete = "processing_complete"
	EventProcessingError    = "processing_error"
)

// Event is one message on the progress channel
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ItemProcessing is sent before an item is looked up
type ItemProcessing struct {
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Index        int             `json:"index"`
	Total        int             `json:"total"`
}

// ProcessingComplete is sent once the output files are written
type ProcessingComplete struct {
	OutputFile string       `json:"output_file"`
	ReportFile string       `json:"report_file"`
	Summary    TaskSnapshot `json:"summary"`
}

// ProcessingError is sent when a batch aborts
type ProcessingError struct {
	Error string `json:"error"`
}
