package model

import "encoding/json"

// DoctorAssignment binds a patient to a doctor. It is only ever set from a
// successful assignment response, echoing the selected doctor's display
// fields.
type DoctorAssignment struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON tolerates legacy servers that encode an unset assignment as
// an empty string instead of omitting the key.
func (d *DoctorAssignment) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return nil
	}
	type alias DoctorAssignment
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*d = DoctorAssignment(a)
	return nil
}

// Empty reports whether the assignment carries no doctor.
func (d *DoctorAssignment) Empty() bool {
	return d == nil || (d.Name == "" && d.Email == "")
}

// DoctorImage is an inline profile image as served by the doctor directory.
type DoctorImage struct {
	MimeType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// DoctorSummary is one entry of the doctor directory.
type DoctorSummary struct {
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Speciality string       `json:"speciality"`
	Available  bool         `json:"available"`
	Image      *DoctorImage `json:"image,omitempty"`
}
