package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/billing"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
)

type stubSource struct {
	res   entity.OCRResult
	err   error
	paths []string
}

func (s *stubSource) Extract(_ context.Context, path string) (entity.OCRResult, error) {
	s.paths = append(s.paths, path)
	return s.res, s.err
}

type memStore struct {
	docs map[string]*entity.BillDocument
	err  error
}

func (m *memStore) Upsert(_ context.Context, doc *entity.BillDocument) error {
	if m.err != nil {
		return m.err
	}
	if m.docs == nil {
		m.docs = map[string]*entity.BillDocument{}
	}
	m.docs[doc.UploadID] = doc
	return nil
}

type engineFunc func(entity.OCRResult) (*entity.BillDocument, error)

func (f engineFunc) Extract(res entity.OCRResult) (*entity.BillDocument, error) { return f(res) }

func billLines() entity.OCRResult {
	frag := func(text string, y float64) entity.Fragment {
		return entity.Fragment{Text: text, Confidence: 0.9, Box: geometry.RectBox(10, y, 300, 12)}
	}
	return entity.OCRResult{
		Pages: 1,
		Lines: []entity.Fragment{
			frag("Bill No: INV12345", 20),
			frag("Patient Name: John Doe", 40),
			frag("MEDICINES", 80),
			frag("Paracetamol 500mg 45.00", 100),
			frag("RCPO-1234 CASH 500.00", 120),
		},
	}
}

func newEngine() *billing.Extractor {
	return billing.NewExtractor(nil, billing.WithClock(func() time.Time {
		return time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	}))
}

func TestProcessFileStampsAndStores(t *testing.T) {
	src := &stubSource{res: billLines()}
	store := &memStore{}
	p := NewProcessor(nil, src, newEngine(), store, WithSchemaValidation(true))

	doc, err := p.ProcessFile(context.Background(), Request{Path: "/inbox/march/bill-01.pdf", UploadID: "up-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/inbox/march/bill-01.pdf"}, src.paths)
	assert.Equal(t, "up-1", doc.UploadID)
	assert.Equal(t, "bill-01.pdf", doc.SourcePDF)
	assert.Equal(t, 1, doc.PageCount)
	require.NotNil(t, doc.Header.PrimaryBillNumber)
	assert.Equal(t, "INV12345", *doc.Header.PrimaryBillNumber)
	assert.Equal(t, "John Doe", doc.Patient.Name)
	assert.Len(t, doc.Items[constants.Medicines], 1)
	assert.Len(t, doc.Payments, 1)
	assert.Same(t, doc, store.docs["up-1"])
}

func TestProcessFileGeneratesUploadID(t *testing.T) {
	p := NewProcessor(nil, &stubSource{res: billLines()}, newEngine(), nil)
	doc, err := p.ProcessFile(context.Background(), Request{Path: "bill.pdf"})
	require.NoError(t, err)
	_, err = uuid.Parse(doc.UploadID)
	assert.NoError(t, err)

	p = NewProcessor(nil, &stubSource{res: billLines()}, newEngine(), nil, WithIDGenerator(func() string { return "fixed" }))
	doc, err = p.ProcessFile(context.Background(), Request{Path: "bill.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", doc.UploadID)
}

func TestProcessFileReturnsDocumentOnStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	p := NewProcessor(nil, &stubSource{res: billLines()}, newEngine(), store)

	doc, err := p.ProcessFile(context.Background(), Request{Path: "bill.pdf", UploadID: "up-1"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, doc)
	assert.Equal(t, "up-1", doc.UploadID)
	assert.Equal(t, 1, doc.ItemCount())
}

func TestProcessFileErrors(t *testing.T) {
	p := NewProcessor(nil, &stubSource{err: errors.New("pdftoppm: exit status 1")}, newEngine(), &memStore{})
	doc, err := p.ProcessFile(context.Background(), Request{Path: "bill.pdf"})
	assert.Nil(t, doc)
	assert.ErrorContains(t, err, "pdftoppm")

	_, err = p.ProcessFile(context.Background(), Request{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = NewProcessor(nil, nil, newEngine(), nil).ProcessFile(context.Background(), Request{Path: "bill.pdf"})
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestProcessResultPropagatesExtractionError(t *testing.T) {
	store := &memStore{}
	leak := common.NewAppError("PAYMENT_LEAK", "RCPO-1 in line items", common.ErrPaymentLeak)
	p := NewProcessor(nil, nil, engineFunc(func(entity.OCRResult) (*entity.BillDocument, error) { return nil, leak }), store)

	doc, err := p.ProcessResult(context.Background(), Request{UploadID: "up-1"}, billLines())
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, common.ErrPaymentLeak)
	assert.Empty(t, store.docs)
}

func TestProcessResultRejectsSchemaViolations(t *testing.T) {
	store := &memStore{}
	bad := func(entity.OCRResult) (*entity.BillDocument, error) {
		doc := entity.NewBillDocument()
		doc.Status = constants.BillStatusEmpty
		doc.ExtractionConfidence = 3
		return doc, nil
	}
	p := NewProcessor(nil, nil, engineFunc(bad), store, WithSchemaValidation(true))

	doc, err := p.ProcessResult(context.Background(), Request{UploadID: "up-1"}, entity.OCRResult{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	require.NotNil(t, doc)
	assert.Empty(t, store.docs)
}

func TestProcessResultEmptyInput(t *testing.T) {
	store := &memStore{}
	p := NewProcessor(nil, nil, newEngine(), store, WithSchemaValidation(true))

	doc, err := p.ProcessResult(context.Background(), Request{UploadID: "up-empty"}, entity.OCRResult{})
	require.NoError(t, err)
	assert.Equal(t, constants.BillStatusEmpty, doc.Status)
	assert.Equal(t, 1, doc.PageCount)
	assert.Equal(t, 0, doc.ItemCount())
	assert.Empty(t, doc.SourcePDF)
	assert.Contains(t, store.docs, "up-empty")
}
