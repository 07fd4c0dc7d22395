package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// AttemptHeader carries the 1-based attempt number of a delivery.
const AttemptHeader = "x-attempt"

// publishTimeout bounds a single publish.
const publishTimeout = 10 * time.Second

// Publisher is the publishing half of an AMQP channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Consumer is the consuming half of an AMQP channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Connect dials RabbitMQ, sets the prefetch count and declares the durable
// job queue.
func Connect(url, queue string, prefetch int) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return conn, ch, nil
}

// newMessage builds a persistent JSON message for job.
func newMessage(job ImportJob, attempt int) (amqp.Publishing, error) {
	body, err := job.Encode()
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode import job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{AttemptHeader: int32(attempt)},
		Body:         body,
	}, nil
}

// attemptFromHeaders reads AttemptHeader; missing or malformed means 1.
func attemptFromHeaders(headers amqp.Table) int {
	if headers == nil {
		return 1
	}
	var n int
	switch v := headers[AttemptHeader].(type) {
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case int:
		n = v
	case int16:
		n = int(v)
	case int8:
		n = int(v)
	}
	if n < 1 {
		return 1
	}
	return n
}

// ============================================================================
// Producer
// ============================================================================

// AMQPQueue publishes import jobs to a RabbitMQ queue.
type AMQPQueue struct {
	pub   Publisher
	queue string
}

// NewAMQPQueue creates a dispatcher publishing to queue on the default
// exchange.
func NewAMQPQueue(pub Publisher, queue string) *AMQPQueue {
	return &AMQPQueue{pub: pub, queue: queue}
}

// Dispatch publishes job as its first attempt.
func (q *AMQPQueue) Dispatch(ctx context.Context, job ImportJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	msg, err := newMessage(job, 1)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := q.pub.PublishWithContext(ctx, "", q.queue, false, false, msg); err != nil {
		return fmt.Errorf("%w: publish: %v", core.ErrQueueUnavailable, err)
	}
	return nil
}

// ============================================================================
// Consumer
// ============================================================================

// channel is what AMQPWorker needs from an *amqp.Channel.
type channel interface {
	Publisher
	Consumer
}

// AMQPWorker consumes import jobs and runs them through an Executor.
//
// A retry waits out the backoff, republishes the message with the next
// attempt number and acks the original. A terminal failure or an
// undecodable payload is nacked without requeue.
type AMQPWorker struct {
	ch     channel
	queue  string
	name   string
	exec   *Executor
	sleep  Sleeper
	logger *slog.Logger
}

// AMQPWorkerOption configures an AMQPWorker.
type AMQPWorkerOption func(*AMQPWorker)

// WithWorkerSleeper replaces the backoff wait.
func WithWorkerSleeper(s Sleeper) AMQPWorkerOption {
	return func(w *AMQPWorker) { w.sleep = s }
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) AMQPWorkerOption {
	return func(w *AMQPWorker) { w.logger = l }
}

// NewAMQPWorker creates a worker. ch is normally an *amqp.Channel.
func NewAMQPWorker(ch channel, queue, name string, exec *Executor, opts ...AMQPWorkerOption) *AMQPWorker {
	w := &AMQPWorker{
		ch:     ch,
		queue:  queue,
		name:   name,
		exec:   exec,
		sleep:  sleepWithContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (w *AMQPWorker) Run(ctx context.Context) error {
	msgs, err := w.ch.Consume(
		w.queue, // queue
		w.name,  // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.logger.Info("import worker consuming", "queue", w.queue, "consumer", w.name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery runs one attempt and settles the delivery.
func (w *AMQPWorker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	job, err := DecodeImportJob(d.Body)
	if err != nil {
		w.logger.Error("dropping undecodable import job", "message_id", d.MessageId, "error", err)
		w.settle(d.Nack(false, false))
		return
	}

	attempt := attemptFromHeaders(d.Headers)
	decision := w.exec.Attempt(ctx, job, attempt)

	switch decision.Outcome {
	case Succeeded:
		w.settle(d.Ack(false))

	case Failed:
		w.settle(d.Nack(false, false))

	case Abandoned:
		w.settle(d.Nack(false, true))

	case Retry:
		// On shutdown the retry is republished at once so it is not lost.
		if err := w.sleep(ctx, decision.Delay); err != nil {
			w.logger.Info("republishing retry early due to shutdown", "file_path", job.FilePath)
		}
		if err := w.republish(context.WithoutCancel(ctx), job, attempt+1); err != nil {
			w.logger.Error("republish failed, requeueing", "file_path", job.FilePath, "error", err)
			w.settle(d.Nack(false, true))
			return
		}
		w.settle(d.Ack(false))
	}
}

func (w *AMQPWorker) republish(ctx context.Context, job ImportJob, attempt int) error {
	msg, err := newMessage(job, attempt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return w.ch.PublishWithContext(ctx, "", w.queue, false, false, msg)
}

func (w *AMQPWorker) settle(err error) {
	if err != nil {
		w.logger.Error("failed to settle delivery", "error", err)
	}
}
