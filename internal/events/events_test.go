package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streadway/amqp"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	out    *[]published
	err    error
	closed bool
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	*c.out = append(*c.out, published{exchange, key, msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func newTestPublisher(pubErr error) (*Publisher, *[]published, *[]*fakeChannel, *test.Hook) {
	var out []published
	var channels []*fakeChannel
	log, hook := test.NewNullLogger()
	p := NewPublisher(func() (Channel, error) {
		ch := &fakeChannel{out: &out, err: pubErr}
		channels = append(channels, ch)
		return ch, nil
	}, log)
	p.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return p, &out, &channels, hook
}

func TestPublish(t *testing.T) {
	p, out, channels, _ := newTestPublisher(nil)
	err := p.Publish(context.Background(), Event{Kind: KindJob, Subject: "abc", Status: "completed"})
	require.NoError(t, err)

	require.Len(t, *out, 1)
	got := (*out)[0]
	assert.Equal(t, Exchange, got.exchange)
	assert.Equal(t, "job.abc", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var e Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &e))
	assert.Equal(t, "completed", e.Status)
	assert.True(t, e.Timestamp.Equal(time.Unix(1700000000, 0)))
	assert.True(t, (*channels)[0].closed)
}

func TestEnqueue(t *testing.T) {
	p, out, _, _ := newTestPublisher(nil)
	require.NoError(t, p.Enqueue(context.Background(), map[string]string{"jobId": "42"}))
	require.Len(t, *out, 1)
	assert.Equal(t, "", (*out)[0].exchange)
	assert.Equal(t, ParseQueue, (*out)[0].key)
	assert.JSONEq(t, `{"jobId":"42"}`, string((*out)[0].msg.Body))
}

func TestEmitLogsFailure(t *testing.T) {
	p, _, _, hook := newTestPublisher(errors.New("channel closed"))
	p.Emit(context.Background(), Event{Kind: KindShare, Subject: "created"})
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "share.created", hook.LastEntry().Data["routing_key"])
}

func TestCancelledContext(t *testing.T) {
	p, out, _, _ := newTestPublisher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Enqueue(ctx, "x"), context.Canceled)
	assert.Empty(t, *out)
}

func TestNilPublisher(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), Event{Kind: KindJob, Subject: "x"}))
	assert.Error(t, p.Enqueue(context.Background(), "x"))
}
