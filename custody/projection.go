package custody

import "github.com/linesmerrill/custody-ledger-api/models"

// ProjectPublic returns every entry not marked internal, in the original
// order. Internal entries are omitted, not redacted.
func ProjectPublic(logs []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(logs))
	for _, entry := range logs {
		if !entry.IsInternal {
			out = append(out, entry)
		}
	}
	return out
}

// Project returns the view of rec the role may see. Roles without internal
// ledger access get the public log projection; every other field passes
// through unchanged. rec itself is not modified.
func Project(role Role, rec models.Record) models.Record {
	if role.Can(PermViewInternalLedger) {
		return rec
	}
	rec.Logs = ProjectPublic(rec.Logs)
	return rec
}

// ProjectAll applies Project to every record
func ProjectAll(role Role, recs []models.Record) []models.Record {
	out := make([]models.Record, len(recs))
	for i, rec := range recs {
		out[i] = Project(role, rec)
	}
	return out
}
