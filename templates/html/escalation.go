package templates

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// EscalationDetails is what the oversight email shows about an urgent record
type EscalationDetails struct {
	RecordID      string
	DetaineeName  string
	Status        string
	Location      string
	PoliceStation string
	Action        string
	Notes         string
	PerformedBy   string
	At            time.Time
	LedgerURL     string
}

// EscalationSubject is the subject line of an escalation email
func EscalationSubject(d EscalationDetails) string {
	return fmt.Sprintf("[%s] %s: %s", d.Status, d.RecordID, d.DetaineeName)
}

// RenderEscalationText renders the plain text body
func RenderEscalationText(d EscalationDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record %s entered status %q.\n\n", d.RecordID, d.Status)
	fmt.Fprintf(&b, "Detainee: %s\n", d.DetaineeName)
	fmt.Fprintf(&b, "Location: %s\n", d.Location)
	fmt.Fprintf(&b, "Station: %s\n", d.PoliceStation)
	fmt.Fprintf(&b, "Event: %s by %s at %s\n", d.Action, d.PerformedBy, d.At.UTC().Format(time.RFC3339))
	if d.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", d.Notes)
	}
	if d.LedgerURL != "" {
		fmt.Fprintf(&b, "\nLedger: %s\n", d.LedgerURL)
	}
	return b.String()
}

// RenderEscalationEmail generates the HTML body. Every field is escaped;
// notes come from public reports.
func RenderEscalationEmail(d EscalationDetails) string {
	escaped := html.EscapeString(RenderEscalationText(d))
	htmlBody := strings.ReplaceAll(escaped, "\n", "<br>")
	safeSubject := html.EscapeString(EscalationSubject(d))

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f4f5; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: #b91c1c; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 20px; font-weight: 700; }
    .content { padding: 32px 30px; color: #111827; line-height: 1.6; font-size: 15px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>Custody Ledger oversight alert. Do not reply to this address.</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody)
}
