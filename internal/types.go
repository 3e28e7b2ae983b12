package internal

import "time"

type SourceKind string

const (
	KindOrder    SourceKind = "order"
	KindShipment SourceKind = "shipment"
)

// Document is a fetched message reduced to the parts the extractors read.
// It is never mutated after fetch.
type Document struct {
	MessageID  string
	Sender     string
	Subject    string
	HTML       string
	Text       string
	ReceivedAt time.Time
}

// SearchQuery is the server-side discovery filter for one source. Exact
// subjects are matched as a phrase, others as a set of words.
type SearchQuery struct {
	From    []string
	Subject string
	Exact   bool
}

type ItemExtract struct {
	MerchantItemID string
	Size           string
	Quantity       int
	DisplayName    string
}

type OrderExtract struct {
	Source      string
	Kind        SourceKind
	OrderNumber string
	Items       []ItemExtract
	// Shipment-only extras, informational.
	SecondaryCode string
	ProcessedAt   string
}

type Retailer struct {
	ID       int64
	Name     string
	Link     string
	Location string
}

type SourcingLead struct {
	ID          int64
	LeadID      string
	UniqueID    string
	ProductSKU  string
	ProductName string
	RetailerID  *int64
	PPU         float64
	RSP         float64
}

type AsinBankEntry struct {
	ID     int64
	LeadID string
	ASIN   string
	Size   string
}

type PurchaseRecord struct {
	ID             int64
	SourcingLeadID int64
	AsinBankID     *int64
	LeadID         string
	RetailerID     int64
	OrderNumber    string
	Platform       string
	PurchasedOn    string
	OGQty          int
	FinalQty       int
	RSP            float64
	FBAMSKU        string
	Status         string
	Size           string
	Source         string
	MessageID      string
}

type CheckinRecord struct {
	ID          int64
	OrderNumber string
	ItemName    string
	AsinBankID  int64
	ASIN        string
	Size        string
	Quantity    int
	CheckedInAt time.Time
	MessageID   string
}

const (
	PlatformAmazon = "AMZ"
	StatusOrdered  = "Ordered"
	UnknownSKU     = "UNKNOWN"
	DefaultLeadID  = "PREPWORX"
)

// BatchResult summarises one RunSource call.
type BatchResult struct {
	Source           string   `json:"source"`
	TotalFound       int      `json:"totalFound"`
	Processed        int      `json:"processed"`
	SkippedDuplicate int      `json:"skippedDuplicate"`
	Errors           int      `json:"errors"`
	Ignored          int      `json:"ignored"`
	ItemsStored      int      `json:"itemsStored"`
	ItemsSkipped     int      `json:"itemsSkipped"`
	ErrorMessages    []string `json:"errorMessages"`
}

// Add folds other into r. Used by RunAll.
func (r *BatchResult) Add(other BatchResult) {
	r.TotalFound += other.TotalFound
	r.Processed += other.Processed
	r.SkippedDuplicate += other.SkippedDuplicate
	r.Errors += other.Errors
	r.Ignored += other.Ignored
	r.ItemsStored += other.ItemsStored
	r.ItemsSkipped += other.ItemsSkipped
	r.ErrorMessages = append(r.ErrorMessages, other.ErrorMessages...)
}

type PurchaseExportRow struct {
	PurchasedOn string
	Retailer    string
	OrderNumber string
	LeadID      string
	ProductName string
	UniqueID    string
	Size        string
	ASIN        string
	Qty         int
	RSP         float64
	FBAMSKU     string
	Status      string
}

type CheckinExportRow struct {
	CheckedInAt string
	OrderNumber string
	ItemName    string
	ASIN        string
	Size        string
	LeadID      string
	Quantity    int
}
