// Package memory holds the reference backend's state. The real portal keeps
// its data in a database; the reference server only needs enough persistence
// to exercise the client pipeline, so everything lives in maps guarded by a
// mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/medilink/patient-portal/internal/model"
)

var (
	ErrUserNotFound   = fmt.Errorf("user not found")
	ErrDoctorNotFound = fmt.Errorf("doctor not found")
)

// User is a stored portal account: the profile record plus credentials and
// the uploaded artifact bytes.
type User struct {
	Record       model.PatientRecord
	PasswordHash string
	ArtifactPDF  []byte
}

// Store is the in-memory repository.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*User
	doctors map[string]model.DoctorSummary
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]*User),
		doctors: make(map[string]model.DoctorSummary),
	}
}

// CreateUser registers a new account keyed by email.
func (s *Store) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Record.Email]; exists {
		return fmt.Errorf("user %s already exists", u.Record.Email)
	}
	cp := *u
	cp.Record = u.Record.Clone()
	s.users[u.Record.Email] = &cp
	return nil
}

// GetUser returns a copy of the stored account.
func (s *Store) GetUser(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	cp.Record = u.Record.Clone()
	cp.ArtifactPDF = append([]byte(nil), u.ArtifactPDF...)
	return &cp, nil
}

// UpdateRecord replaces the stored profile record for email. The doctor
// assignment and stored documents survive the update; only scalar fields
// come from the client.
func (s *Store) UpdateRecord(_ context.Context, email string, rec model.PatientRecord) (*model.PatientRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	rec.DoctorAssigned = u.Record.DoctorAssigned
	rec.Documents = u.Record.Documents
	u.Record = rec.Clone()
	out := u.Record.Clone()
	return &out, nil
}

// StoreArtifact attaches uploaded PDF bytes to the account.
func (s *Store) StoreArtifact(_ context.Context, email string, pdf []byte, encoded string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return ErrUserNotFound
	}
	u.ArtifactPDF = append([]byte(nil), pdf...)
	u.Record.Documents = &model.StoredDocuments{PDF: encoded}
	return nil
}

// UpsertDoctor adds or replaces a directory entry.
func (s *Store) UpsertDoctor(_ context.Context, d model.DoctorSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.Email] = d
}

// ListDoctors returns the directory sorted by email for stable output.
func (s *Store) ListDoctors(_ context.Context) []model.DoctorSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.DoctorSummary, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// AssignDoctor binds the doctor to the user and returns the assignment.
func (s *Store) AssignDoctor(_ context.Context, userEmail, doctorEmail string) (*model.DoctorAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userEmail]
	if !ok {
		return nil, ErrUserNotFound
	}
	d, ok := s.doctors[doctorEmail]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	assignment := model.DoctorAssignment{Name: d.Name, Email: d.Email}
	u.Record.DoctorAssigned = &assignment
	return &assignment, nil
}
