package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/models"
)

type fakeSender struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func TestEmailEscalator_Escalate(t *testing.T) {
	sender := &fakeSender{resp: &rest.Response{StatusCode: http.StatusAccepted}}
	e := NewEmailEscalatorWithSender(sender, "alerts@ledger.test", "oversight@ngo.test", "https://ledger.test")

	err := e.Escalate(context.Background(),
		models.Record{ID: "ALERT-0042", DetaineeName: "Unknown", Status: models.StatusUnregisteredAlert, Location: "Marina"},
		models.LogEntry{Action: "Unregistered Detention Reported by Public", Timestamp: time.Now()},
	)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "[Unregistered Detention Alert] ALERT-0042: Unknown", msg.Subject)
	assert.Equal(t, "alerts@ledger.test", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "oversight@ngo.test", msg.Personalizations[0].To[0].Address)
	assert.Contains(t, msg.Content[0].Value, "https://ledger.test/api/v1/records/ALERT-0042")
}

func TestEmailEscalator_Failures(t *testing.T) {
	rec := models.Record{ID: "CASE-1234-A", Status: models.StatusEmergency}

	sender := &fakeSender{err: errors.New("dial tcp: timeout")}
	err := NewEmailEscalatorWithSender(sender, "a@b.c", "d@e.f", "").Escalate(context.Background(), rec, models.LogEntry{})
	assert.ErrorContains(t, err, "dial tcp: timeout")

	sender = &fakeSender{resp: &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}}
	err = NewEmailEscalatorWithSender(sender, "a@b.c", "d@e.f", "").Escalate(context.Background(), rec, models.LogEntry{})
	assert.EqualError(t, err, "send escalation for CASE-1234-A: sendgrid status 401: bad key")
}
