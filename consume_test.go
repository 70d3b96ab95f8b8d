package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/resumezk/internal/jobs"
)

type recordingProcessor struct {
	msgs []jobs.Message
	err  error
}

func (p *recordingProcessor) Process(_ context.Context, msg jobs.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestHandleDelivery(t *testing.T) {
	log, hook := test.NewNullLogger()
	proc := &recordingProcessor{}
	wc := &WorkerConfig{Jobs: proc, Log: log}

	id := uuid.New()
	body := []byte(`{"jobId":"` + id.String() + `"}`)
	require.NoError(t, wc.handle(context.Background(), 1, body))
	require.Len(t, proc.msgs, 1)
	assert.Equal(t, id, proc.msgs[0].JobID)

	hook.Reset()
	assert.NoError(t, wc.handle(context.Background(), 1, []byte("not json")))
	assert.Len(t, proc.msgs, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	hook.Reset()
	proc.err = fmt.Errorf("%w: agent error", jobs.ErrJobFailed)
	assert.NoError(t, wc.handle(context.Background(), 2, body))
	assert.Equal(t, "parse job failed", hook.LastEntry().Message)
	assert.Equal(t, 2, hook.LastEntry().Data["worker"])

	hook.Reset()
	proc.err = jobs.ErrNotFound
	assert.NoError(t, wc.handle(context.Background(), 2, body))
}

func TestHandleRequeuesUnfinishedJobs(t *testing.T) {
	log, hook := test.NewNullLogger()
	proc := &recordingProcessor{err: errors.New("failed to load parse job: connection refused")}
	wc := &WorkerConfig{Jobs: proc, Log: log}

	err := wc.handle(context.Background(), 1, []byte(`{"jobId":"`+uuid.NewString()+`"}`))
	require.Error(t, err)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	proc.err = context.Canceled
	assert.ErrorIs(t, wc.handle(context.Background(), 1, []byte(`{"jobId":"`+uuid.NewString()+`"}`)), context.Canceled)
}

type recordingAcks struct {
	acked, requeued []uint64
}

func (r *recordingAcks) Ack(tag uint64, _ bool) error {
	r.acked = append(r.acked, tag)
	return nil
}

func (r *recordingAcks) Nack(tag uint64, _ bool, requeue bool) error {
	if requeue {
		r.requeued = append(r.requeued, tag)
	}
	return nil
}

func TestSettle(t *testing.T) {
	acks := &recordingAcks{}
	require.NoError(t, settle(acks, 1, nil))
	require.NoError(t, settle(acks, 2, errors.New("interrupted")))
	assert.Equal(t, []uint64{1}, acks.acked)
	assert.Equal(t, []uint64{2}, acks.requeued)
}
