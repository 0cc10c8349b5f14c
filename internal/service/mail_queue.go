package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskSendMail = "mail:send"

// QueuedMailer pushes mail onto an asynq queue so request handlers don't
// wait on SMTP
type QueuedMailer struct {
	client *asynq.Client
}

func NewQueuedMailer(redisAddr string) *QueuedMailer {
	return &QueuedMailer{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

func (q *QueuedMailer) Send(ctx context.Context, m Mail) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mail, %w", err)
	}

	info, err := q.client.EnqueueContext(ctx,
		asynq.NewTask(TaskSendMail, payload),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail, %w", err)
	}

	zap.L().Debug("Mail queued", zap.String("taskID", info.ID), zap.String("to", m.To))
	return nil
}

func (q *QueuedMailer) Close() error {
	return q.client.Close()
}

// MailWorker delivers queued mail with the wrapped mailer
type MailWorker struct {
	server *asynq.Server
	mailer Mailer
}

func NewMailWorker(redisAddr string, mailer Mailer) *MailWorker {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 2,
			Logger:      zap.S(),
		},
	)

	return &MailWorker{
		server: srv,
		mailer: mailer,
	}
}

func (w *MailWorker) HandleSendMail(ctx context.Context, t *asynq.Task) error {
	var m Mail
	if err := json.Unmarshal(t.Payload(), &m); err != nil {
		return fmt.Errorf("bad mail payload, %v: %w", err, asynq.SkipRetry)
	}

	return w.mailer.Send(ctx, m)
}

// Start runs the worker in the background
func (w *MailWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendMail, w.HandleSendMail)

	return w.server.Start(mux)
}

func (w *MailWorker) Shutdown() {
	w.server.Shutdown()
}
