package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/linesmerrill/custody-ledger-api/models"
	templates "github.com/linesmerrill/custody-ledger-api/templates/html"
)

// MailSender is the part of the sendgrid client the escalator uses
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailEscalator mails the oversight address when a record turns urgent
type EmailEscalator struct {
	sender    MailSender
	from      *mail.Email
	to        *mail.Email
	ledgerURL string
}

// NewEmailEscalator sends through sendgrid with apiKey
func NewEmailEscalator(apiKey, from, to, baseURL string) *EmailEscalator {
	return NewEmailEscalatorWithSender(sendgrid.NewSendClient(apiKey), from, to, baseURL)
}

// NewEmailEscalatorWithSender sends through sender
func NewEmailEscalatorWithSender(sender MailSender, from, to, baseURL string) *EmailEscalator {
	return &EmailEscalator{
		sender:    sender,
		from:      mail.NewEmail("Custody Ledger", from),
		to:        mail.NewEmail("Oversight", to),
		ledgerURL: baseURL,
	}
}

// Escalate implements custody.Escalator
func (e *EmailEscalator) Escalate(ctx context.Context, rec models.Record, entry models.LogEntry) error {
	d := templates.EscalationDetails{
		RecordID:      rec.ID,
		DetaineeName:  rec.DetaineeName,
		Status:        string(rec.Status),
		Location:      rec.Location,
		PoliceStation: rec.PoliceStation,
		Action:        entry.Action,
		Notes:         entry.Notes,
		PerformedBy:   entry.PerformedBy,
		At:            entry.Timestamp,
	}
	if e.ledgerURL != "" {
		d.LedgerURL = e.ledgerURL + "/api/v1/records/" + rec.ID
	}

	msg := mail.NewSingleEmail(e.from, templates.EscalationSubject(d), e.to,
		templates.RenderEscalationText(d), templates.RenderEscalationEmail(d))
	resp, err := e.sender.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send escalation for %s: %w", rec.ID, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send escalation for %s: sendgrid status %d: %s", rec.ID, resp.StatusCode, resp.Body)
	}
	return nil
}
