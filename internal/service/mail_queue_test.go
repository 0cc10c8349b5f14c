package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.sent = append(m.sent, mail)
	return nil
}

func TestQueuedMailerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	q := NewQueuedMailer(mr.Addr())
	t.Cleanup(func() { q.Close() })

	mail := VerificationMail("Szoniska", "alice@example.com", "123456")
	require.NoError(t, q.Send(context.Background(), mail))

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })

	tasks, err := inspector.ListPendingTasks("default")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskSendMail, tasks[0].Type)
	assert.Equal(t, 5, tasks[0].MaxRetry)

	mailer := &recordingMailer{}
	w := NewMailWorker(mr.Addr(), mailer)

	require.NoError(t, w.HandleSendMail(context.Background(), asynq.NewTask(tasks[0].Type, tasks[0].Payload)))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, mail, mailer.sent[0])
}

func TestMailWorkerBadPayloadSkipsRetry(t *testing.T) {
	mailer := &recordingMailer{}
	w := &MailWorker{mailer: mailer}

	err := w.HandleSendMail(context.Background(), asynq.NewTask(TaskSendMail, []byte("{not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, mailer.sent)
}

func TestMailWorkerDeliveryErrorRetries(t *testing.T) {
	boom := errors.New("smtp down")
	w := &MailWorker{mailer: &recordingMailer{err: boom}}

	payload, err := json.Marshal(Mail{To: "bob@example.com", Subject: "hi", Body: "hello"})
	require.NoError(t, err)

	err = w.HandleSendMail(context.Background(), asynq.NewTask(TaskSendMail, payload))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestQueuedMailerUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	q := NewQueuedMailer(addr)
	t.Cleanup(func() { q.Close() })

	err := q.Send(context.Background(), Mail{To: "bob@example.com", Subject: "hi", Body: "hello"})
	assert.Error(t, err)
}
