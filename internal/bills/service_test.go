package bills

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/bills-extractor/internal/async"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/ingest"
)

type fakeReader struct {
	docs map[string]*entity.BillDocument
	err  error
}

func (f *fakeReader) GetByUploadID(_ context.Context, id string) (*entity.BillDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, common.NewAppError("BILL_NOT_FOUND", id, common.ErrNotFound)
}

func (f *fakeReader) ListByPatientMRN(_ context.Context, mrn string) ([]*entity.BillDocument, error) {
	var out []*entity.BillDocument
	for _, d := range f.docs {
		if d.Patient.MRN != nil && *d.Patient.MRN == mrn {
			out = append(out, d)
		}
	}
	return out, f.err
}

func (f *fakeReader) ListByPatientName(_ context.Context, name string) ([]*entity.BillDocument, error) {
	var out []*entity.BillDocument
	for _, d := range f.docs {
		if d.Patient.Name == name {
			out = append(out, d)
		}
	}
	return out, f.err
}

func (f *fakeReader) Statistics(context.Context) (*entity.BillStatistics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.BillStatistics{TotalBills: int64(len(f.docs))}, nil
}

type fakeQueue struct {
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

type fakeExporter struct{}

func (fakeExporter) BillXLSX(_ context.Context, id string) ([]byte, error) {
	if id == "missing" {
		return nil, common.ErrNotFound
	}
	return []byte("xlsx:" + id), nil
}

func newFixture() (*Service, *fakeReader, *fakeQueue) {
	mrn := "00991234"
	doc := entity.NewBillDocument()
	doc.UploadID = "u-1"
	doc.Patient = entity.PatientInfo{Name: "John Doe", MRN: &mrn}
	repo := &fakeReader{docs: map[string]*entity.BillDocument{"u-1": doc}}
	q := &fakeQueue{}
	return NewService(repo, fakeExporter{}, q, nil), repo, q
}

func code(err error) codes.Code { return status.Code(err) }

func TestGet(t *testing.T) {
	svc, repo, _ := newFixture()
	doc, err := svc.Get(context.Background(), " u-1 ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", doc.UploadID)

	_, err = svc.Get(context.Background(), "")
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = svc.Get(context.Background(), "nope")
	assert.Equal(t, codes.NotFound, code(err))

	repo.err = errors.New("connection reset")
	_, err = svc.Get(context.Background(), "u-1")
	assert.Equal(t, codes.Internal, code(err))
}

func TestFind(t *testing.T) {
	svc, _, _ := newFixture()
	docs, err := svc.Find(context.Background(), FindRequest{MRN: "00991234", Name: "ignored"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = svc.Find(context.Background(), FindRequest{Name: "John Doe"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.Find(context.Background(), FindRequest{})
	assert.Equal(t, codes.InvalidArgument, code(err))
}

func TestStatsAndExport(t *testing.T) {
	svc, _, _ := newFixture()
	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalBills)

	b, err := svc.Export(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "xlsx:u-1", string(b))

	_, err = svc.Export(context.Background(), "missing")
	assert.Equal(t, codes.NotFound, code(err))

	_, err = NewService(&fakeReader{}, nil, nil, nil).Export(context.Background(), "u-1")
	assert.Equal(t, codes.Unimplemented, code(err))
}

func TestIngestFile(t *testing.T) {
	svc, _, q := newFixture()
	path := filepath.Join(t.TempDir(), "bill.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	res, err := svc.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, res.UploadID, q.jobs[0].UploadID)
	assert.Equal(t, ingest.UploadIDForHash(res.HashHex), res.UploadID)

	_, err = svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "notes.txt"))
	assert.Equal(t, codes.InvalidArgument, code(err))

	q.err = common.ErrQueueClosed
	_, err = svc.IngestFile(context.Background(), path)
	assert.Equal(t, codes.Unavailable, code(err))

	_, err = NewService(&fakeReader{}, nil, nil, nil).IngestFile(context.Background(), path)
	assert.Equal(t, codes.Unavailable, code(err))
}

func TestIngestDirectorySkipsDuplicates(t *testing.T) {
	svc, _, q := newFixture()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.pdf"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.png"), []byte("other"), 0o644))

	res, err := svc.IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)
	assert.Equal(t, uint32(1), res.Statistics.Deduplicated)
	assert.Len(t, q.jobs, 2)
}
