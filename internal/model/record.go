package model

import (
	"encoding/json"
	"fmt"
)

// Field names a scalar profile field. The set of fields is fixed; the wire
// names match what the portal API expects in its multipart form.
type Field string

const (
	FieldEmail              Field = "email"
	FieldPassword           Field = "password"
	FieldGender             Field = "gender"
	FieldDOB                Field = "dob"
	FieldPhone              Field = "phone"
	FieldBloodGroup         Field = "bloodGroup"
	FieldAge                Field = "age"
	FieldEmergencyContact   Field = "emergencyContact"
	FieldAllergies          Field = "allergies"
	FieldVaccinationHistory Field = "vaccinationHistory"
	FieldInsurancePolicy    Field = "healthInsurancePolicy"
)

// Fields is the canonical field order. Rendering and form encoding iterate
// this slice so the output is stable across runs.
var Fields = []Field{
	FieldEmail,
	FieldPassword,
	FieldGender,
	FieldDOB,
	FieldPhone,
	FieldBloodGroup,
	FieldAge,
	FieldEmergencyContact,
	FieldAllergies,
	FieldVaccinationHistory,
	FieldInsurancePolicy,
}

// PatientRecord is the canonical, server-committed patient profile. Email is
// the identity key. Every scalar field is always present; absent values are
// empty strings, never missing keys.
type PatientRecord struct {
	Email                 string            `json:"email"`
	Password              string            `json:"password"`
	Gender                string            `json:"gender"`
	DOB                   string            `json:"dob"`
	Phone                 string            `json:"phone"`
	BloodGroup            string            `json:"bloodGroup"`
	Age                   string            `json:"age"`
	EmergencyContact      string            `json:"emergencyContact"`
	Allergies             string            `json:"allergies"`
	VaccinationHistory    string            `json:"vaccinationHistory"`
	HealthInsurancePolicy string            `json:"healthInsurancePolicy"`
	DoctorAssigned        *DoctorAssignment `json:"doctorAssigned,omitempty"`
	Documents             *StoredDocuments  `json:"documents,omitempty"`
}

// StoredDocuments mirrors the server-side document bundle attached to a
// record. PDF holds the base64-encoded artifact previously uploaded.
type StoredDocuments struct {
	PDF string `json:"pdf,omitempty"`
}

// Get returns the value of a scalar field.
func (r *PatientRecord) Get(f Field) (string, error) {
	switch f {
	case FieldEmail:
		return r.Email, nil
	case FieldPassword:
		return r.Password, nil
	case FieldGender:
		return r.Gender, nil
	case FieldDOB:
		return r.DOB, nil
	case FieldPhone:
		return r.Phone, nil
	case FieldBloodGroup:
		return r.BloodGroup, nil
	case FieldAge:
		return r.Age, nil
	case FieldEmergencyContact:
		return r.EmergencyContact, nil
	case FieldAllergies:
		return r.Allergies, nil
	case FieldVaccinationHistory:
		return r.VaccinationHistory, nil
	case FieldInsurancePolicy:
		return r.HealthInsurancePolicy, nil
	}
	return "", fmt.Errorf("unknown profile field %q", f)
}

// Set assigns the value of a scalar field.
func (r *PatientRecord) Set(f Field, value string) error {
	switch f {
	case FieldEmail:
		r.Email = value
	case FieldPassword:
		r.Password = value
	case FieldGender:
		r.Gender = value
	case FieldDOB:
		r.DOB = value
	case FieldPhone:
		r.Phone = value
	case FieldBloodGroup:
		r.BloodGroup = value
	case FieldAge:
		r.Age = value
	case FieldEmergencyContact:
		r.EmergencyContact = value
	case FieldAllergies:
		r.Allergies = value
	case FieldVaccinationHistory:
		r.VaccinationHistory = value
	case FieldInsurancePolicy:
		r.HealthInsurancePolicy = value
	default:
		return fmt.Errorf("unknown profile field %q", f)
	}
	return nil
}

// Pairs returns the scalar fields as (field, value) pairs in canonical order.
func (r *PatientRecord) Pairs() []FieldValue {
	pairs := make([]FieldValue, 0, len(Fields))
	for _, f := range Fields {
		v, _ := r.Get(f)
		pairs = append(pairs, FieldValue{Field: f, Value: v})
	}
	return pairs
}

// Clone returns a deep copy of the record.
func (r *PatientRecord) Clone() PatientRecord {
	out := *r
	if r.DoctorAssigned != nil {
		da := *r.DoctorAssigned
		out.DoctorAssigned = &da
	}
	if r.Documents != nil {
		docs := *r.Documents
		out.Documents = &docs
	}
	return out
}

// Equal reports whether two records carry identical contents.
func (r *PatientRecord) Equal(other *PatientRecord) bool {
	a, _ := json.Marshal(r)
	b, _ := json.Marshal(other)
	return string(a) == string(b)
}

// FieldValue is one row of the record's tabular representation.
type FieldValue struct {
	Field Field
	Value string
}

// Attachment is a pending binary upload, at most one per draft.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Clone returns a deep copy of the attachment.
func (a *Attachment) Clone() *Attachment {
	if a == nil {
		return nil
	}
	out := &Attachment{Filename: a.Filename, ContentType: a.ContentType}
	out.Data = append([]byte(nil), a.Data...)
	return out
}

// DraftRecord is the working copy of a PatientRecord under edit, plus an
// optional pending image attachment. It exists only while edit mode is
// active: discarded on cancel, promoted on successful submit.
type DraftRecord struct {
	Record     PatientRecord
	Attachment *Attachment
}

// Clone returns a deep copy of the draft.
func (d *DraftRecord) Clone() DraftRecord {
	return DraftRecord{
		Record:     d.Record.Clone(),
		Attachment: d.Attachment.Clone(),
	}
}
