package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

const defaultPollInterval = time.Second

// RabbitReportQueue реализует очередь задач поверх AMQP.
type RabbitReportQueue struct {
	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	queue        string
	pollInterval time.Duration
}

var _ domain.ReportQueue = (*RabbitReportQueue)(nil)

// NewRabbitReportQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitReportQueue(amqpURL, queue string) (*RabbitReportQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitReportQueue{conn: conn, ch: ch, queue: queue, pollInterval: defaultPollInterval}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitReportQueue) Enqueue(ctx context.Context, job domain.ReportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RabbitReportQueue) Pop(ctx context.Context) (domain.ReportJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ReportJob{}, err
		}
		msg, ok, err := q.get()
		if err != nil {
			return domain.ReportJob{}, err
		}
		if !ok {
			select {
			case <-ctx.Done():
				return domain.ReportJob{}, ctx.Err()
			case <-time.After(q.pollInterval):
			}
			continue
		}
		job, err := decodeJob(msg.Body)
		if err != nil {
			// Битое сообщение не возвращаем в очередь.
			_ = msg.Nack(false, false)
			return domain.ReportJob{}, err
		}
		if err := msg.Ack(false); err != nil {
			return domain.ReportJob{}, fmt.Errorf("ack job: %w", err)
		}
		return job, nil
	}
}

func (q *RabbitReportQueue) get() (amqp.Delivery, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	start := time.Now()
	msg, ok, err := q.ch.Get(q.queue, false)
	metrics.ObserveNetworkRequest("rabbitmq", "get", q.queue, start, err)
	if err != nil {
		return amqp.Delivery{}, false, fmt.Errorf("get message: %w", err)
	}
	return msg, ok, nil
}

// Close закрывает канал и соединение.
func (q *RabbitReportQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	return errors.Join(chErr, connErr)
}
