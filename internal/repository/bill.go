package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

const (
	colUploadID             = "upload_id"
	colSourcePDF            = "source_pdf"
	colSchemaVersion        = "schema_version"
	colCreatedAt            = "created_at"
	colUpdatedAt            = "updated_at"
	colPageCount            = "page_count"
	colStatus               = "status"
	colExtractionDate       = "extraction_date"
	colExtractionConfidence = "extraction_confidence"
	colPrimaryBillNumber    = "primary_bill_number"
	colBillNumbers          = "bill_numbers"
	colBillingDate          = "billing_date"
	colHospitalName         = "hospital_name"
	colPatientName          = "patient_name"
	colPatientMRN           = "patient_mrn"
	colSubtotals            = "subtotals"
	colGrossTotal           = "gross_total"
	colAmountPaid           = "amount_paid"
	colBalanceToPay         = "balance_to_pay"
	colGrandTotal           = "grand_total"
	colRawOCRText           = "raw_ocr_text"

	colItemID      = "item_id"
	colPaymentID   = "payment_id"
	colCategory    = "category"
	colDescription = "description"
	colAmount      = "amount"
	colPage        = "page"
	colSectionRaw  = "section_raw"
	colReference   = "reference"
	colMode        = "mode"
	colOrdinal     = "ordinal"
)

// identity columns are written once, when the upload is first seen
var identityColumns = []string{colUploadID, colSourcePDF, colSchemaVersion, colCreatedAt}

// computed columns are replaced by every upsert
var computedColumns = []string{
	colUpdatedAt, colPageCount, colStatus, colExtractionDate, colExtractionConfidence,
	colPrimaryBillNumber, colBillNumbers, colBillingDate, colHospitalName,
	colPatientName, colPatientMRN, colSubtotals,
	colGrossTotal, colAmountPaid, colBalanceToPay, colGrandTotal, colRawOCRText,
}

var itemColumns = []string{colUploadID, colItemID, colCategory, colDescription, colAmount, colPage, colSectionRaw, colOrdinal}

var paymentColumns = []string{colUploadID, colPaymentID, colDescription, colAmount, colReference, colMode, colPage, colOrdinal}

type BillRepository interface {
	// Upsert merges doc into the stored record keyed by its upload id.
	// Items and payments accumulate as a set union by their stable ids.
	Upsert(ctx context.Context, doc *entity.BillDocument) error
	GetByUploadID(ctx context.Context, uploadID string) (*entity.BillDocument, error)
	ListByPatientMRN(ctx context.Context, mrn string) ([]*entity.BillDocument, error)
	ListByPatientName(ctx context.Context, name string) ([]*entity.BillDocument, error)
	Statistics(ctx context.Context) (*entity.BillStatistics, error)
}

type billRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
	now    func() time.Time
}

type RepoOption func(*billRepository)

// WithNow overrides the clock used for created_at and updated_at.
func WithNow(now func() time.Time) RepoOption {
	return func(r *billRepository) { r.now = now }
}

func NewBillRepository(drv *entsql.Driver, logger *slog.Logger, opts ...RepoOption) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &billRepository{drv: drv, logger: logger, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *billRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *billRepository) Upsert(ctx context.Context, doc *entity.BillDocument) error {
	if doc == nil || doc.UploadID == "" {
		return common.NewAppError("INVALID_BILL", "upload_id is required", common.ErrInvalidInput)
	}
	billNumbers := doc.Header.BillNumbers
	if billNumbers == nil {
		billNumbers = []string{}
	}
	numbersJSON, err := json.Marshal(billNumbers)
	if err != nil {
		return fmt.Errorf("marshal bill numbers: %w", err)
	}
	subtotalsJSON, err := json.Marshal(doc.Subtotals)
	if err != nil {
		return fmt.Errorf("marshal subtotals: %w", err)
	}
	now := r.now().UTC().Format(time.RFC3339Nano)

	b := r.builder()
	bill := b.Insert(TableBills).
		Columns(append(append([]string{}, identityColumns...), computedColumns...)...).
		Values(
			doc.UploadID, doc.SourcePDF, doc.SchemaVersion, now,
			now, doc.PageCount, string(doc.Status), formatTime(doc.ExtractionDate), doc.ExtractionConfidence,
			nullString(doc.Header.PrimaryBillNumber), string(numbersJSON), nullString(doc.Header.BillingDate), nullString(doc.Header.HospitalName),
			doc.Patient.Name, nullString(doc.Patient.MRN), string(subtotalsJSON),
			doc.Summary.GrossTotal, doc.Summary.AmountPaid, doc.Summary.BalanceToPay, doc.GrandTotal, nullString(doc.RawOCRText),
		).
		OnConflict(
			entsql.ConflictColumns(colUploadID),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range computedColumns {
					u.SetExcluded(c)
				}
			}),
		)

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", "upload_id", doc.UploadID, "error", err)
		return fmt.Errorf("begin tx: %w", err)
	}

	q, args := bill.Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		r.logger.Error("failed to upsert bill", "upload_id", doc.UploadID, "error", err)
		return rollback(tx, fmt.Errorf("upsert bill: %w", err))
	}

	if items := doc.AllItems(); len(items) > 0 {
		ins := b.Insert(TableBillItems).Columns(itemColumns...)
		for i, it := range items {
			ins.Values(doc.UploadID, it.ItemID, string(it.Category), it.Description, it.Amount, it.Page, nullString(it.SectionRaw), i)
		}
		ins.OnConflict(entsql.ConflictColumns(colUploadID, colItemID), entsql.DoNothing())
		q, args := ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to insert bill items", "upload_id", doc.UploadID, "count", len(items), "error", err)
			return rollback(tx, fmt.Errorf("insert items: %w", err))
		}
	}

	if len(doc.Payments) > 0 {
		ins := b.Insert(TableBillPayments).Columns(paymentColumns...)
		for i, p := range doc.Payments {
			ins.Values(doc.UploadID, p.PaymentID, p.Description, nullFloat(p.Amount), nullString(p.Reference), nullString(p.Mode), p.Page, i)
		}
		ins.OnConflict(entsql.ConflictColumns(colUploadID, colPaymentID), entsql.DoNothing())
		q, args := ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			r.logger.Error("failed to insert bill payments", "upload_id", doc.UploadID, "count", len(doc.Payments), "error", err)
			return rollback(tx, fmt.Errorf("insert payments: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit bill upsert", "upload_id", doc.UploadID, "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("bill upserted", "upload_id", doc.UploadID, "items", doc.ItemCount(), "payments", len(doc.Payments))
	return nil
}

func (r *billRepository) GetByUploadID(ctx context.Context, uploadID string) (*entity.BillDocument, error) {
	if uploadID == "" {
		return nil, common.NewAppError("INVALID_BILL", "upload_id is required", common.ErrInvalidInput)
	}
	b := r.builder()
	q, args := b.Select(append(append([]string{}, identityColumns...), computedColumns...)...).
		From(entsql.Table(TableBills)).
		Where(entsql.EQ(colUploadID, uploadID)).
		Query()
	doc, err := r.queryBill(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.NewAppError("BILL_NOT_FOUND", fmt.Sprintf("bill %q not found", uploadID), common.ErrNotFound)
	}
	if err := r.loadItems(ctx, doc); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *billRepository) ListByPatientMRN(ctx context.Context, mrn string) ([]*entity.BillDocument, error) {
	if mrn == "" {
		return nil, common.NewAppError("INVALID_QUERY", "mrn is required", common.ErrInvalidInput)
	}
	return r.listWhere(ctx, entsql.EQ(colPatientMRN, mrn))
}

// ListByPatientName matches names case-insensitively anywhere in the stored name.
func (r *billRepository) ListByPatientName(ctx context.Context, name string) ([]*entity.BillDocument, error) {
	if name == "" {
		return nil, common.NewAppError("INVALID_QUERY", "name is required", common.ErrInvalidInput)
	}
	return r.listWhere(ctx, entsql.ContainsFold(colPatientName, name))
}

func (r *billRepository) listWhere(ctx context.Context, p *entsql.Predicate) ([]*entity.BillDocument, error) {
	q, args := r.builder().Select(colUploadID).
		From(entsql.Table(TableBills)).
		Where(p).
		OrderBy(entsql.Desc(colExtractionDate), colUploadID).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to list bills", "error", err)
		return nil, fmt.Errorf("list bills: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan upload id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// release the connection before loading each bill
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]*entity.BillDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := r.GetByUploadID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *billRepository) Statistics(ctx context.Context) (*entity.BillStatistics, error) {
	b := r.builder()
	stats := &entity.BillStatistics{CategoryTotals: make(map[constants.Category]float64)}
	for _, c := range constants.AllCategories() {
		stats.CategoryTotals[c] = 0
	}

	q, args := b.Select(entsql.Count("*"), entsql.Sum(colGrandTotal), entsql.Avg(colGrandTotal)).
		From(entsql.Table(TableBills)).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to compute bill statistics", "error", err)
		return nil, fmt.Errorf("bill statistics: %w", err)
	}
	var sum, avg sql.NullFloat64
	if rows.Next() {
		if err := rows.Scan(&stats.TotalBills, &sum, &avg); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan statistics: %w", err)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	stats.TotalRevenue = round2(sum.Float64)
	stats.AverageBill = round2(avg.Float64)

	q, args = b.Select(colCategory, entsql.Sum(colAmount)).
		From(entsql.Table(TableBillItems)).
		GroupBy(colCategory).
		Query()
	rows = &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to compute category totals", "error", err)
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var total sql.NullFloat64
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		c, _ := constants.Canonicalize(cat)
		stats.CategoryTotals[c] = round2(stats.CategoryTotals[c] + total.Float64)
	}
	return stats, rows.Err()
}

// queryBill returns nil without error when no row matches.
func (r *billRepository) queryBill(ctx context.Context, q string, args []any) (*entity.BillDocument, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to query bill", "error", err)
		return nil, fmt.Errorf("query bill: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		status, createdAt, updatedAt, extractionDate string
		numbersJSON, subtotalsJSON                   string
		primary, billingDate, hospital, mrn, raw     sql.NullString
	)
	doc := entity.NewBillDocument()
	err := rows.Scan(
		&doc.UploadID, &doc.SourcePDF, &doc.SchemaVersion, &createdAt,
		&updatedAt, &doc.PageCount, &status, &extractionDate, &doc.ExtractionConfidence,
		&primary, &numbersJSON, &billingDate, &hospital,
		&doc.Patient.Name, &mrn, &subtotalsJSON,
		&doc.Summary.GrossTotal, &doc.Summary.AmountPaid, &doc.Summary.BalanceToPay, &doc.GrandTotal, &raw,
	)
	if err != nil {
		return nil, fmt.Errorf("scan bill: %w", err)
	}

	doc.Status = constants.BillStatus(status)
	doc.ExtractionDate = parseTime(extractionDate)
	created, updated := parseTime(createdAt), parseTime(updatedAt)
	doc.CreatedAt, doc.UpdatedAt = &created, &updated
	doc.Header.PrimaryBillNumber = stringPtr(primary)
	doc.Header.BillingDate = stringPtr(billingDate)
	doc.Header.HospitalName = stringPtr(hospital)
	doc.Patient.MRN = stringPtr(mrn)
	doc.RawOCRText = stringPtr(raw)
	if err := json.Unmarshal([]byte(numbersJSON), &doc.Header.BillNumbers); err != nil {
		return nil, fmt.Errorf("decode bill numbers: %w", err)
	}
	if doc.Header.BillNumbers == nil {
		doc.Header.BillNumbers = []string{}
	}
	var subtotals map[constants.Category]float64
	if err := json.Unmarshal([]byte(subtotalsJSON), &subtotals); err != nil {
		return nil, fmt.Errorf("decode subtotals: %w", err)
	}
	for c, v := range subtotals {
		doc.Subtotals[c] = v
	}
	return doc, nil
}

func (r *billRepository) loadItems(ctx context.Context, doc *entity.BillDocument) error {
	q, args := r.builder().Select(colItemID, colCategory, colDescription, colAmount, colPage, colSectionRaw).
		From(entsql.Table(TableBillItems)).
		Where(entsql.EQ(colUploadID, doc.UploadID)).
		OrderBy(colPage, colOrdinal).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to load bill items", "upload_id", doc.UploadID, "error", err)
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it      entity.LineItem
			cat     string
			section sql.NullString
		)
		if err := rows.Scan(&it.ItemID, &cat, &it.Description, &it.Amount, &it.Page, &section); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		// unknown stored values fall back to Other, keeping the category set closed
		it.Category, _ = constants.Canonicalize(cat)
		it.SectionRaw = stringPtr(section)
		doc.Items[it.Category] = append(doc.Items[it.Category], it)
	}
	return rows.Err()
}

func (r *billRepository) loadPayments(ctx context.Context, doc *entity.BillDocument) error {
	q, args := r.builder().Select(colPaymentID, colDescription, colAmount, colReference, colMode, colPage).
		From(entsql.Table(TableBillPayments)).
		Where(entsql.EQ(colUploadID, doc.UploadID)).
		OrderBy(colPage, colOrdinal).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to load bill payments", "upload_id", doc.UploadID, "error", err)
		return fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p         entity.PaymentEvent
			amount    sql.NullFloat64
			ref, mode sql.NullString
		)
		if err := rows.Scan(&p.PaymentID, &p.Description, &amount, &ref, &mode, &p.Page); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		if amount.Valid {
			v := amount.Float64
			p.Amount = &v
		}
		p.Reference, p.Mode = stringPtr(ref), stringPtr(mode)
		doc.Payments = append(doc.Payments, p)
	}
	return rows.Err()
}

// rollback calls tx.Rollback and wraps the given error with the rollback error if occurred.
func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
	}
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
