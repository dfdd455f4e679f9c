package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RecordPatch is a partial update of the mutable record fields. A nil field
// is left untouched.
type RecordPatch struct {
	DetaineeName     *string    `json:"detaineeName,omitempty"`
	Age              *int       `json:"age,omitempty"`
	Gender           *string    `json:"gender,omitempty"`
	DateTimeDetained *time.Time `json:"dateTimeDetained,omitempty"`
	Location         *string    `json:"location,omitempty"`
	Reason           *string    `json:"reason,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	PoliceStation    *string    `json:"policeStation,omitempty"`
	OfficerInCharge  *string    `json:"officerInCharge,omitempty"`
	LastMedicalCheck *time.Time `json:"lastMedicalCheck,omitempty"`
	RiskLevel        *RiskLevel `json:"riskLevel,omitempty"`
}

// immutableFields are record fields that exist on the document but can never
// be patched.
var immutableFields = []string{"id", "isArchived", "logs", "evidenceUrls", "medicalDocuments"}

// UnmarshalJSON rejects any key that is not a patchable field, so a client
// cannot believe it changed a field that was silently dropped.
func (p *RecordPatch) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	for _, name := range immutableFields {
		if _, ok := keys[name]; ok {
			return fmt.Errorf("updates: %s is immutable", name)
		}
	}

	type plain RecordPatch
	var out plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return fmt.Errorf("updates: %w", err)
	}
	*p = RecordPatch(out)
	return nil
}

// Fields returns the patch as column/field name to value, using the same
// camelCase names as the record documents and table columns.
func (p RecordPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.DetaineeName != nil {
		fields["detaineeName"] = *p.DetaineeName
	}
	if p.Age != nil {
		fields["age"] = *p.Age
	}
	if p.Gender != nil {
		fields["gender"] = *p.Gender
	}
	if p.DateTimeDetained != nil {
		fields["dateTimeDetained"] = NormalizeTime(*p.DateTimeDetained)
	}
	if p.Location != nil {
		fields["location"] = *p.Location
	}
	if p.Reason != nil {
		fields["reason"] = *p.Reason
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	if p.PoliceStation != nil {
		fields["policeStation"] = *p.PoliceStation
	}
	if p.OfficerInCharge != nil {
		fields["officerInCharge"] = *p.OfficerInCharge
	}
	if p.LastMedicalCheck != nil {
		fields["lastMedicalCheck"] = NormalizeTime(*p.LastMedicalCheck)
	}
	if p.RiskLevel != nil {
		fields["riskLevel"] = string(*p.RiskLevel)
	}
	return fields
}

// IsEmpty reports whether the patch changes nothing
func (p RecordPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// ApplyTo copies every set field onto rec
func (p RecordPatch) ApplyTo(rec *Record) {
	if p.DetaineeName != nil {
		rec.DetaineeName = *p.DetaineeName
	}
	if p.Age != nil {
		rec.Age = *p.Age
	}
	if p.Gender != nil {
		rec.Gender = *p.Gender
	}
	if p.DateTimeDetained != nil {
		rec.DateTimeDetained = NormalizeTime(*p.DateTimeDetained)
	}
	if p.Location != nil {
		rec.Location = *p.Location
	}
	if p.Reason != nil {
		rec.Reason = *p.Reason
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.PoliceStation != nil {
		rec.PoliceStation = *p.PoliceStation
	}
	if p.OfficerInCharge != nil {
		rec.OfficerInCharge = *p.OfficerInCharge
	}
	if p.LastMedicalCheck != nil {
		t := NormalizeTime(*p.LastMedicalCheck)
		rec.LastMedicalCheck = &t
	}
	if p.RiskLevel != nil {
		rec.RiskLevel = *p.RiskLevel
	}
}
