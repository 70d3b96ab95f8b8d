package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/metrics"
	"github.com/muhammadolammi/resumezk/internal/resume"
)

type fakeStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]database.ParseJob
	getErr    error
	finishErr error
}

func (f *fakeStore) CreateParseJob(_ context.Context, arg database.CreateParseJobParams) (database.ParseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := database.ParseJob{
		ID:               arg.ID,
		OriginalFilename: arg.OriginalFilename,
		Mime:             arg.Mime,
		SizeBytes:        arg.SizeBytes,
		ObjectKey:        arg.ObjectKey,
		Status:           StatusPending,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	f.rows[arg.ID] = row
	return row, nil
}

func (f *fakeStore) GetParseJob(_ context.Context, id uuid.UUID) (database.ParseJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return database.ParseJob{}, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return database.ParseJob{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeStore) UpdateParseJobStatus(_ context.Context, arg database.UpdateParseJobStatusParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.rows[arg.ID]
	row.Status = arg.Status
	f.rows[arg.ID] = row
	return nil
}

func (f *fakeStore) FinishParseJob(_ context.Context, arg database.FinishParseJobParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishErr != nil {
		return f.finishErr
	}
	row := f.rows[arg.ID]
	row.Status = arg.Status
	row.Result = arg.Result
	row.Error = arg.Error
	f.rows[arg.ID] = row
	return nil
}

type fakeArchive struct {
	objects   map[string][]byte
	failGets  int
	uploadErr error
}

func (f *fakeArchive) Upload(_ context.Context, key, _ string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeArchive) Download(_ context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("connection reset")
	}
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return b, nil
}

type fakeQueue struct {
	msgs []Message
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, v any) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, v.(Message))
	return nil
}

type fakeNotifier struct {
	events []events.Event
}

func (f *fakeNotifier) Emit(_ context.Context, e events.Event) { f.events = append(f.events, e) }

func (f *fakeNotifier) statuses() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.Status)
	}
	return out
}

type parserFunc func(ctx context.Context, text string) (resume.Info, error)

func (p parserFunc) Parse(ctx context.Context, text string) (resume.Info, error) { return p(ctx, text) }

type fixture struct {
	store    *fakeStore
	archive  *fakeArchive
	queue    *fakeQueue
	notifier *fakeNotifier
	reg      *prometheus.Registry
	svc      *Service
}

func newFixture(t *testing.T, p resume.Parser) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	f := &fixture{
		store:    &fakeStore{rows: map[uuid.UUID]database.ParseJob{}},
		archive:  &fakeArchive{objects: map[string][]byte{}},
		queue:    &fakeQueue{},
		notifier: &fakeNotifier{},
		reg:      prometheus.NewRegistry(),
	}
	f.svc = New(f.store, f.archive, f.queue, p,
		WithNotifier(f.notifier),
		WithMetrics(metrics.New(f.reg)),
		WithLogger(log),
		WithBackoff(0),
	)
	return f
}

func okParser(name string) resume.Parser {
	return parserFunc(func(_ context.Context, text string) (resume.Info, error) {
		return resume.Info{PersonalInfo: resume.PersonalInfo{Name: name}, Skills: []string{text}}, nil
	})
}

func TestSubmitAndProcess(t *testing.T) {
	f := newFixture(t, okParser("Zhang San"))
	ctx := context.Background()

	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("Go")})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, resume.MimeText, job.Mime)
	require.Len(t, f.queue.msgs, 1)
	assert.Equal(t, job.ID, f.queue.msgs[0].JobID)
	assert.Len(t, f.archive.objects, 1)

	require.NoError(t, f.svc.Process(ctx, f.queue.msgs[0]))

	got, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	var info resume.Info
	require.NoError(t, json.Unmarshal(got.Result, &info))
	assert.Equal(t, "Zhang San", info.PersonalInfo.Name)
	assert.Equal(t, []string{"Go"}, info.Skills)

	assert.Equal(t, []string{StatusPending, StatusProcessing, StatusCompleted}, f.notifier.statuses())
	assert.Equal(t, job.ID.String(), f.notifier.events[0].Subject)
}

func TestSubmitRejectsInvalidUpload(t *testing.T) {
	f := newFixture(t, okParser("x"))
	_, err := f.svc.Submit(context.Background(), Upload{Filename: "a.png", ContentType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, resume.ErrUnsupportedType)
	assert.Empty(t, f.archive.objects)
	assert.Empty(t, f.store.rows)
}

func TestSubmitQueueFailureMarksJobFailed(t *testing.T) {
	f := newFixture(t, okParser("x"))
	f.queue.err = errors.New("broker down")

	_, err := f.svc.Submit(context.Background(), Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
	require.Error(t, err)
	require.Len(t, f.store.rows, 1)
	for _, row := range f.store.rows {
		assert.Equal(t, StatusFailed, row.Status)
		assert.Contains(t, row.Error.String, "broker down")
	}
}

func TestProcessRetriesDownload(t *testing.T) {
	f := newFixture(t, okParser("x"))
	ctx := context.Background()
	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
	require.NoError(t, err)

	f.archive.failGets = 2
	require.NoError(t, f.svc.Process(ctx, Message{JobID: job.ID}))
	assert.Equal(t, StatusCompleted, f.store.rows[job.ID].Status)
}

func TestProcessParserFailure(t *testing.T) {
	calls := 0
	f := newFixture(t, parserFunc(func(context.Context, string) (resume.Info, error) {
		calls++
		return resume.Info{}, resume.ErrBadResponse
	}))
	ctx := context.Background()
	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
	require.NoError(t, err)

	err = f.svc.Process(ctx, Message{JobID: job.ID})
	assert.ErrorIs(t, err, resume.ErrBadResponse)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.True(t, Settled(err))
	assert.Equal(t, 2, calls)

	got, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "agent error")
	assert.Equal(t, StatusFailed, f.notifier.events[len(f.notifier.events)-1].Status)
}

func TestProcessSkipsFinishedJobs(t *testing.T) {
	calls := 0
	f := newFixture(t, parserFunc(func(context.Context, string) (resume.Info, error) {
		calls++
		return resume.Info{}, nil
	}))
	ctx := context.Background()
	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Process(ctx, Message{JobID: job.ID}))
	require.NoError(t, f.svc.Process(ctx, Message{JobID: job.ID}))
	assert.Equal(t, 1, calls)
}

func TestProcessUnsettledFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, okParser("Zhang San"))
		job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
		require.NoError(t, err)

		f.store.getErr = errors.New("connection refused")
		err = f.svc.Process(ctx, Message{JobID: job.ID})
		require.Error(t, err)
		assert.False(t, Settled(err))
		assert.Equal(t, StatusPending, f.store.rows[job.ID].Status)
	})

	t.Run("interrupted", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		f := newFixture(t, parserFunc(func(context.Context, string) (resume.Info, error) {
			cancel()
			return resume.Info{}, errors.New("stream closed")
		}))
		job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
		require.NoError(t, err)

		err = f.svc.Process(cctx, Message{JobID: job.ID})
		require.Error(t, err)
		assert.False(t, Settled(err))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusProcessing, f.store.rows[job.ID].Status)
		assert.NotContains(t, f.notifier.statuses(), StatusFailed)
	})

	t.Run("failure not recorded", func(t *testing.T) {
		f := newFixture(t, parserFunc(func(context.Context, string) (resume.Info, error) {
			return resume.Info{}, resume.ErrBadResponse
		}))
		job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
		require.NoError(t, err)

		f.store.finishErr = errors.New("connection reset")
		err = f.svc.Process(ctx, Message{JobID: job.ID})
		require.Error(t, err)
		assert.False(t, Settled(err))
		assert.Equal(t, StatusProcessing, f.store.rows[job.ID].Status)
	})
}

func TestProcessMalformedUploadFails(t *testing.T) {
	f := newFixture(t, okParser("Zhang San"))
	ctx := context.Background()
	data := []byte("%PDF-1.4\nstartxref\n99999\n%%EOF\n")
	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.pdf", ContentType: "application/pdf", Data: data})
	require.NoError(t, err)

	err = f.svc.Process(ctx, Message{JobID: job.ID})
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Equal(t, StatusFailed, f.store.rows[job.ID].Status)
	assert.Contains(t, f.store.rows[job.ID].Error.String, "text extraction error")
}

func TestGetUnknown(t *testing.T) {
	f := newFixture(t, okParser("x"))
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Process(context.Background(), Message{JobID: uuid.New()}), ErrNotFound)
}

func TestRetry(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), 3, 0, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = retry(context.Background(), 2, 0, func() (int, error) { return 0, sql.ErrConnDone })
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.ErrorContains(t, err, "after 2 attempts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = retry(ctx, 3, time.Hour, func() (int, error) { return 0, errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetricsCounted(t *testing.T) {
	f := newFixture(t, okParser("x"))
	ctx := context.Background()
	job, err := f.svc.Submit(ctx, Upload{Filename: "cv.txt", ContentType: "text/plain", Data: []byte("Go")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(ctx, Message{JobID: job.ID}))

	n, err := testutil.GatherAndCount(f.reg, "resumezk_parse_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
