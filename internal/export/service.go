package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

const (
	SheetItems    = "Items"
	SheetPayments = "Payments"
	SheetSummary  = "Summary"
)

// BillGetter is the slice of the bill repository the export needs.
type BillGetter interface {
	GetByUploadID(ctx context.Context, uploadID string) (*entity.BillDocument, error)
}

// Service is a tiny façade over the bill store that produces XLSX bytes for exports.
type Service struct {
	bills  BillGetter
	logger *slog.Logger
}

func NewService(bills BillGetter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bills: bills, logger: logger}
}

// BillXLSX returns a workbook (as bytes) with the items, payments and summary of one bill.
func (s *Service) BillXLSX(ctx context.Context, uploadID string) ([]byte, error) {
	start := time.Now()
	doc, err := s.bills.GetByUploadID(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("load bill: %w", err)
	}
	b, err := BuildWorkbook(doc)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "upload_id", uploadID, "error", err)
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"upload_id", uploadID,
		"items", doc.ItemCount(),
		"payments", len(doc.Payments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// BuildWorkbook renders doc without touching storage.
func BuildWorkbook(doc *entity.BillDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetItems); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetPayments, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	idx, _ := f.GetSheetIndex(SheetItems)
	f.SetActiveSheet(idx)

	// Items
	w := sheetWriter{f: f, sheet: SheetItems}
	w.row("Category", "Description", "Page", "Amount", "Section", "Item ID")
	for _, it := range doc.AllItems() {
		w.row(string(it.Category), it.Description, it.Page+1, it.Amount, deref(it.SectionRaw), it.ItemID)
	}
	_ = f.SetColWidth(SheetItems, "A", "A", 24) // category
	_ = f.SetColWidth(SheetItems, "B", "B", 48) // description
	_ = f.SetColWidth(SheetItems, "C", "D", 12)
	_ = f.SetColWidth(SheetItems, "E", "E", 22)
	_ = f.SetColWidth(SheetItems, "F", "F", 44)

	// Payments
	w.start(SheetPayments)
	w.row("Description", "Amount", "Reference", "Mode", "Page", "Payment ID")
	for _, p := range doc.Payments {
		var amount any = ""
		if p.Amount != nil {
			amount = *p.Amount
		}
		w.row(p.Description, amount, deref(p.Reference), deref(p.Mode), p.Page+1, p.PaymentID)
	}
	_ = f.SetColWidth(SheetPayments, "A", "A", 48)
	_ = f.SetColWidth(SheetPayments, "B", "E", 16)
	_ = f.SetColWidth(SheetPayments, "F", "F", 44)

	// Summary
	w.start(SheetSummary)
	w.row("Field", "Value")
	w.row("Upload ID", doc.UploadID)
	w.row("Source", doc.SourcePDF)
	w.row("Status", string(doc.Status))
	w.row("Pages", doc.PageCount)
	w.row("Bill Number", deref(doc.Header.PrimaryBillNumber))
	w.row("All Bill Numbers", strings.Join(doc.Header.BillNumbers, ", "))
	w.row("Billing Date", deref(doc.Header.BillingDate))
	w.row("Hospital", deref(doc.Header.HospitalName))
	w.row("Patient", doc.Patient.Name)
	w.row("MRN", deref(doc.Patient.MRN))
	w.row("", "")
	for _, c := range constants.AllCategories() {
		w.row("Subtotal: "+string(c), doc.Subtotals[c])
	}
	w.row("Grand Total", doc.GrandTotal)
	w.row("Amount Paid", doc.Summary.AmountPaid)
	w.row("Balance To Pay", doc.Summary.BalanceToPay)
	_ = f.SetColWidth(SheetSummary, "A", "A", 36)
	_ = f.SetColWidth(SheetSummary, "B", "B", 40)

	if w.err != nil {
		return nil, fmt.Errorf("xlsx cells: %w", w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) start(sheet string) {
	w.sheet, w.next = sheet, 0
}

func (w *sheetWriter) row(values ...any) {
	w.next++
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
