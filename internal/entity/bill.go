package entity

import (
	"time"

	"github.com/joseph-ayodele/bills-extractor/constants"
)

// BillDocument is the single persisted record for one upload.
type BillDocument struct {
	UploadID             string                            `json:"upload_id"`
	SourcePDF            string                            `json:"source_pdf"`
	PageCount            int                               `json:"page_count"`
	SchemaVersion        int                               `json:"schema_version"`
	Status               constants.BillStatus              `json:"status"`
	ExtractionDate       time.Time                         `json:"extraction_date"`
	ExtractionConfidence float64                           `json:"extraction_confidence"`
	Header               BillHeader                        `json:"header"`
	Patient              PatientInfo                       `json:"patient"`
	Items                map[constants.Category][]LineItem `json:"items"`
	Payments             []PaymentEvent                    `json:"payments"`
	Subtotals            map[constants.Category]float64    `json:"subtotals"`
	Summary              BillSummary                       `json:"summary"`
	GrandTotal           float64                           `json:"grand_total"`
	RawOCRText           *string                           `json:"raw_ocr_text"`
	CreatedAt            *time.Time                        `json:"created_at,omitempty"`
	UpdatedAt            *time.Time                        `json:"updated_at,omitempty"`
}

// BillHeader holds the locked header fields.
type BillHeader struct {
	PrimaryBillNumber *string  `json:"primary_bill_number"`
	BillNumbers       []string `json:"bill_numbers"`
	BillingDate       *string  `json:"billing_date"`
	HospitalName      *string  `json:"hospital_name"`
}

// PatientInfo defaults to the name UNKNOWN.
type PatientInfo struct {
	Name string  `json:"name"`
	MRN  *string `json:"mrn"`
}

// LineItem is one medical charge.
type LineItem struct {
	ItemID      string             `json:"item_id"`
	Description string             `json:"description"`
	Amount      float64            `json:"amount"`
	Category    constants.Category `json:"category"`
	Page        int                `json:"page"`
	SectionRaw  *string            `json:"section_raw"`
}

// PaymentEvent is money received against the bill. It is never a LineItem.
type PaymentEvent struct {
	PaymentID   string   `json:"payment_id"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Reference   *string  `json:"reference"`
	Mode        *string  `json:"mode"`
	Page        int      `json:"page"`
}

// BillSummary carries figures derived from items and payments.
type BillSummary struct {
	GrossTotal   float64 `json:"gross_total"`
	AmountPaid   float64 `json:"amount_paid"`
	BalanceToPay float64 `json:"balance_to_pay"`
}

// BillStatistics aggregates across all stored bills.
type BillStatistics struct {
	TotalBills     int64                          `json:"total_bills"`
	TotalRevenue   float64                        `json:"total_revenue"`
	AverageBill    float64                        `json:"average_bill"`
	CategoryTotals map[constants.Category]float64 `json:"category_totals"`
}

// NewBillDocument returns a document with every category key present.
func NewBillDocument() *BillDocument {
	doc := &BillDocument{
		SchemaVersion: constants.SchemaVersion,
		Header:        BillHeader{BillNumbers: []string{}},
		Patient:       PatientInfo{Name: "UNKNOWN"},
		Items:         make(map[constants.Category][]LineItem),
		Payments:      []PaymentEvent{},
		Subtotals:     make(map[constants.Category]float64),
	}
	for _, c := range constants.AllCategories() {
		doc.Items[c] = []LineItem{}
		doc.Subtotals[c] = 0
	}
	return doc
}

// AllItems flattens items in category display order.
func (d *BillDocument) AllItems() []LineItem {
	var out []LineItem
	for _, c := range constants.AllCategories() {
		out = append(out, d.Items[c]...)
	}
	return out
}

// ItemCount counts items across every category.
func (d *BillDocument) ItemCount() int {
	n := 0
	for _, items := range d.Items {
		n += len(items)
	}
	return n
}
