package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/jobs"
)

type jobProcessor interface {
	Process(ctx context.Context, msg jobs.Message) error
}

type WorkerConfig struct {
	RabbitMQURL string
	Jobs        jobProcessor
	Log         logrus.FieldLogger
}

// handle processes one delivery body. A non-nil error means the job did not
// reach a final status and the delivery should be requeued. Undecodable
// messages are dropped.
func (wc *WorkerConfig) handle(ctx context.Context, workerID int, body []byte) error {
	var msg jobs.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		wc.Log.WithError(err).WithField("worker", workerID).Error("error unmarshalling message body")
		return nil
	}
	log := wc.Log.WithFields(logrus.Fields{"worker": workerID, "job_id": msg.JobID})
	log.Info("processing parse job")
	err := wc.Jobs.Process(ctx, msg)
	switch {
	case err == nil:
		return nil
	case jobs.Settled(err):
		log.WithError(err).Error("parse job failed")
		return nil
	default:
		log.WithError(err).Warn("parse job unfinished, requeueing")
		return err
	}
}

// settle acks or requeues a delivery depending on the outcome of handle.
func settle(d acknowledger, tag uint64, err error) error {
	if err != nil {
		return d.Nack(tag, false, true)
	}
	return d.Ack(tag, false)
}

type acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
}

func (wc *WorkerConfig) worker(ctx context.Context, id int) error {
	conn, err := amqp.Dial(wc.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		events.ParseQueue, // queue name
		true,              // durable
		false,             // auto-delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := ch.Consume(
		events.ParseQueue, // queue name
		"",                // consumer tag
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return fmt.Errorf("error consuming rabbitmq message: %w", err)
	}

	wc.Log.WithField("worker", id).Info("worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := settle(ch, msg.DeliveryTag, wc.handle(ctx, id, msg.Body)); err != nil {
				wc.Log.WithError(err).WithField("worker", id).Warn("failed to settle message")
			}
		}
	}
}

// StartConsumerWorkerPool blocks until every worker has returned.
func (wc *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	wg.Add(numWorkers)
	for i := range numWorkers {
		go func(id int) {
			defer wg.Done()
			if err := wc.worker(ctx, id); err != nil {
				wc.Log.WithError(err).WithField("worker", id).Error("worker stopped")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i + 1)
	}
	wg.Wait()
	return errors.Join(errs...)
}
