// Package store owns the patient record for the active session: the
// last-known-committed record, the in-progress draft, and the view/edit mode
// state machine. No other component writes the record directly; consumers
// read snapshots and the assignment coordinator patches through
// ApplyAssignment.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/pkg/errors"
)

// State is the store's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateLoadedView    State = "loaded_view"
	StateLoadedEdit    State = "loaded_edit"
	StateSubmitting    State = "submitting"
	StateFailed        State = "failed"
)

// Gateway is the slice of the remote API the store depends on.
type Gateway interface {
	FetchRecord(ctx context.Context, token string) (*model.PatientRecord, error)
	SubmitRecord(ctx context.Context, draft model.DraftRecord) (*model.PatientRecord, error)
}

// CommitHook runs after a successful submit with the server-echoed record.
// The store invokes it on its own goroutine: it must not block the
// view-state transition and its failure is the hook's own concern.
type CommitHook func(rec model.PatientRecord)

// Store is the profile record store. Operations are serialized internally;
// snapshots returned to callers are copies.
type Store struct {
	mu     sync.Mutex
	state  State
	record model.PatientRecord
	draft  model.DraftRecord
	token  string

	gw            Gateway
	onCommit      CommitHook
	log           zerolog.Logger
	submitTimeout time.Duration
}

type Option func(*Store)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.onCommit = hook }
}

// WithSubmitTimeout bounds how long a submit may stay in flight. A hung
// request fails the submit instead of holding the store in Submitting.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Store) { s.submitTimeout = d }
}

func New(gw Gateway, opts ...Option) *Store {
	s := &Store{
		state:         StateUninitialized,
		gw:            gw,
		log:           zerolog.Nop(),
		submitTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record returns a snapshot of the committed record.
func (s *Store) Record() model.PatientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Draft returns a snapshot of the working draft.
func (s *Store) Draft() model.DraftRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Token returns the credential captured by Load.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Load fetches the record. On success the store enters view mode and the
// draft is seeded as a copy of the record; on failure the store enters
// Failed and the record stays absent.
func (s *Store) Load(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.state == StateLoading || s.state == StateSubmitting {
		s.mu.Unlock()
		return fmt.Errorf("load not allowed in state %s", s.state)
	}
	s.state = StateLoading
	s.mu.Unlock()

	if token == "" {
		s.fail(errors.Unauthenticated("user token not found", nil))
		return errors.Unauthenticated("user token not found", nil)
	}

	rec, err := s.gw.FetchRecord(ctx, token)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.token = token
	s.record = *rec
	s.draft = model.DraftRecord{Record: rec.Clone()}
	s.state = StateLoadedView
	s.mu.Unlock()
	return nil
}

// BeginEdit enters edit mode with a fresh draft copied from the committed
// record.
func (s *Store) BeginEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadedView {
		return fmt.Errorf("edit not allowed in state %s", s.state)
	}
	s.draft = model.DraftRecord{Record: s.record.Clone()}
	s.state = StateLoadedEdit
	return nil
}

// MutateDraft updates exactly one draft field. The committed record is never
// touched.
func (s *Store) MutateDraft(field model.Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadedEdit {
		return fmt.Errorf("draft mutation not allowed in state %s", s.state)
	}
	return s.draft.Record.Set(field, value)
}

// SetAttachment stages a pending binary attachment on the draft, replacing
// any previous one. A nil attachment clears it.
func (s *Store) SetAttachment(a *model.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadedEdit {
		return fmt.Errorf("attachment not allowed in state %s", s.state)
	}
	s.draft.Attachment = a.Clone()
	return nil
}

// CancelEdit discards draft mutations and any pending attachment, reverting
// to a copy of the committed record.
func (s *Store) CancelEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoadedEdit {
		return fmt.Errorf("cancel not allowed in state %s", s.state)
	}
	s.draft = model.DraftRecord{Record: s.record.Clone()}
	s.state = StateLoadedView
	return nil
}

// Submit sends the draft through the gateway. On success the server's echo
// replaces the committed record, the store returns to view mode, and the
// commit hook is spawned with the echoed record. On failure the store stays
// in edit mode with the draft intact so the user can retry without
// re-entering data.
func (s *Store) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoadedEdit {
		s.mu.Unlock()
		return fmt.Errorf("submit not allowed in state %s", s.state)
	}
	s.state = StateSubmitting
	draft := s.draft.Clone()
	timeout := s.submitTimeout
	s.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	echo, err := s.gw.SubmitRecord(ctx, draft)
	s.mu.Lock()
	if err != nil {
		s.state = StateLoadedEdit
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("profile submit failed, draft preserved")
		return err
	}

	s.record = *echo
	s.draft = model.DraftRecord{Record: echo.Clone()}
	s.state = StateLoadedView
	hook := s.onCommit
	committed := echo.Clone()
	s.mu.Unlock()

	s.log.Info().Str("email", committed.Email).Msg("profile committed")
	if hook != nil {
		// Fire-and-forget: the artifact pipeline runs after and independent
		// of the submit response, using the echoed record.
		go hook(committed)
	}
	return nil
}

// ApplyAssignment patches the committed record with a server-echoed doctor
// assignment, without a full reload. The echo is trusted over any local
// inference.
func (s *Store) ApplyAssignment(a model.DoctorAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUninitialized || s.state == StateLoading || s.state == StateFailed {
		return fmt.Errorf("no record to patch in state %s", s.state)
	}
	assigned := a
	s.record.DoctorAssigned = &assigned
	s.draft.Record.DoctorAssigned = &assigned
	return nil
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()
	s.log.Error().Err(err).Msg("profile load failed")
}
