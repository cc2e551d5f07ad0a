package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/veslabs/litscreen/internal/core/domain"
	"github.com/veslabs/litscreen/internal/infrastructure/resilience"
)

// Broker adapts NATS to the minimal job-broker contract: a subject for
// batch submissions plus one subject per named downstream queue
// (extraction, synthesis, discussion).
type Broker struct {
	conn         *nats.Conn
	batchSubject string
	queuePrefix  string
	executor     *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, batchSubject, queuePrefix string) (*Broker, error) {
	return NewWithOptions(url, batchSubject, queuePrefix, Options{})
}

func NewWithOptions(url, batchSubject, queuePrefix string, options Options) (*Broker, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	if queuePrefix == "" {
		queuePrefix = "jobs"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("litscreen"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Broker{
		conn:         conn,
		batchSubject: batchSubject,
		queuePrefix:  queuePrefix,
		executor:     options.ResilienceExecutor,
	}, nil
}

func (b *Broker) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishBatchSubmitted hands one submission to the ingestion workers.
func (b *Broker) PublishBatchSubmitted(ctx context.Context, sub domain.BatchSubmission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal batch submission: %w", err)
	}
	return b.publish(ctx, "nats.publish_batch", b.batchSubject, payload)
}

// SubscribeBatchSubmitted consumes batch submissions in a worker queue
// group and blocks until ctx is cancelled. A payload that fails to
// decode is logged and dropped; there is no task to fail it against.
func (b *Broker) SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, domain.BatchSubmission) error) error {
	sub, err := b.conn.QueueSubscribe(b.batchSubject, "ingest-workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		var submission domain.BatchSubmission
		if err := json.Unmarshal(msg.Data, &submission); err != nil {
			slog.Error("batch_payload_undecodable", "subject", b.batchSubject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, submission); err != nil {
			slog.Error("batch_handler_error", "task_id", submission.TaskID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

type jobMessage struct {
	JobID     string `json:"job_id"`
	ProjectID string `json:"project_id"`
	RecordID  string `json:"record_id"`
}

// Enqueue publishes one job descriptor to the named queue and returns
// the broker-assigned job id.
func (b *Broker) Enqueue(ctx context.Context, queue string, descriptor domain.JobDescriptor) (string, error) {
	jobID := uuid.NewString()
	payload, err := json.Marshal(jobMessage{
		JobID:     jobID,
		ProjectID: descriptor.ProjectID,
		RecordID:  descriptor.RecordID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal job descriptor: %w", err)
	}
	subject := b.queuePrefix + "." + queue
	if err := b.publish(ctx, "nats.enqueue_job", subject, payload); err != nil {
		return "", err
	}
	return jobID, nil
}

func (b *Broker) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if b.executor != nil {
		err = b.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}
