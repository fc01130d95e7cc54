// Package assign manages the doctor-selection flow: fetch the directory,
// issue the assignment request, and on success patch the record store with
// the echoed assignment instead of reloading the whole record.
package assign

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/pkg/errors"
)

const directoryCacheKey = "doctor_directory"

// Directory is the slice of the gateway the coordinator needs.
type Directory interface {
	ListDoctors(ctx context.Context, token string) ([]model.DoctorSummary, error)
	AssignDoctor(ctx context.Context, token, userEmail, doctorEmail string) error
}

// RecordPatcher is the slice of the record store the coordinator needs.
type RecordPatcher interface {
	Record() model.PatientRecord
	Token() string
	ApplyAssignment(a model.DoctorAssignment) error
}

// Coordinator drives doctor assignment for the active patient session.
type Coordinator struct {
	dir   Directory
	store RecordPatcher
	cache *gocache.Cache
	log   zerolog.Logger
}

type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithDirectoryTTL controls how long a fetched doctor directory is reused
// before hitting the network again.
func WithDirectoryTTL(ttl time.Duration) Option {
	return func(c *Coordinator) { c.cache = gocache.New(ttl, 2*ttl) }
}

func NewCoordinator(dir Directory, store RecordPatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		dir:   dir,
		store: store,
		cache: gocache.New(time.Minute, 2*time.Minute),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAvailable returns the doctor directory, serving a cached copy when one
// is fresh.
func (c *Coordinator) ListAvailable(ctx context.Context) ([]model.DoctorSummary, error) {
	if cached, ok := c.cache.Get(directoryCacheKey); ok {
		return cached.([]model.DoctorSummary), nil
	}

	token := c.store.Token()
	if token == "" {
		return nil, errors.Unauthenticated("user token not found", nil)
	}

	doctors, err := c.dir.ListDoctors(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor directory: %w", err)
	}
	c.cache.Set(directoryCacheKey, doctors, gocache.DefaultExpiration)
	return doctors, nil
}

// Assign binds the current patient to the doctor identified by email. The
// operation is refused locally, without a network call, when no patient
// identity is resolved. On success the store is patched with the doctor's
// display fields; the server echo is authoritative for display.
func (c *Coordinator) Assign(ctx context.Context, doctorEmail string) (*model.DoctorAssignment, error) {
	token := c.store.Token()
	patientEmail := c.store.Record().Email
	if token == "" || patientEmail == "" {
		return nil, errors.Unauthenticated("login required to assign a doctor", nil)
	}

	doctors, err := c.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	var selected *model.DoctorSummary
	for i := range doctors {
		if doctors[i].Email == doctorEmail {
			selected = &doctors[i]
			break
		}
	}
	if selected == nil {
		return nil, errors.NotFound("doctor", nil)
	}

	if err := c.dir.AssignDoctor(ctx, token, patientEmail, doctorEmail); err != nil {
		return nil, fmt.Errorf("failed to assign doctor: %w", err)
	}

	assignment := model.DoctorAssignment{Name: selected.Name, Email: selected.Email}
	if err := c.store.ApplyAssignment(assignment); err != nil {
		return nil, fmt.Errorf("failed to patch record: %w", err)
	}

	c.log.Info().
		Str("patient", patientEmail).
		Str("doctor", doctorEmail).
		Msg("doctor assigned")
	return &assignment, nil
}
