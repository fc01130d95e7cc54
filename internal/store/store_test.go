package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/pkg/errors"
)

type fakeGateway struct {
	mu          sync.Mutex
	fetchRecord *model.PatientRecord
	fetchErr    error
	submitEcho  *model.PatientRecord
	submitErr   error
	fetchCalls  int
	submitCalls int
	lastSubmit  model.DraftRecord
}

func (f *fakeGateway) FetchRecord(_ context.Context, _ string) (*model.PatientRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rec := f.fetchRecord.Clone()
	return &rec, nil
}

func (f *fakeGateway) SubmitRecord(_ context.Context, draft model.DraftRecord) (*model.PatientRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.lastSubmit = draft.Clone()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	rec := f.submitEcho.Clone()
	return &rec, nil
}

func loadedStore(t *testing.T, gw *fakeGateway, opts ...Option) *Store {
	t.Helper()
	s := New(gw, opts...)
	require.NoError(t, s.Load(context.Background(), "token"))
	require.Equal(t, StateLoadedView, s.State())
	return s
}

func baseRecord() *model.PatientRecord {
	return &model.PatientRecord{Email: "a@b.com", Phone: "", Age: "30"}
}

func TestLoadSeedsDraftFromRecord(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := loadedStore(t, gw)

	assert.Equal(t, *baseRecord(), s.Record())
	assert.Equal(t, *baseRecord(), s.Draft().Record)
	assert.Equal(t, "token", s.Token())
}

func TestLoadWithoutTokenFailsLocally(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := New(gw)

	err := s.Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))
	assert.Equal(t, StateFailed, s.State())
	assert.Zero(t, gw.fetchCalls, "missing credential must not reach the network")
}

func TestLoadNetworkFailure(t *testing.T) {
	gw := &fakeGateway{fetchErr: errors.Network("request failed", nil)}
	s := New(gw)

	err := s.Load(context.Background(), "token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNetwork))
	assert.Equal(t, StateFailed, s.State())
	assert.Empty(t, s.Record().Email, "record stays absent after a failed load")
}

func TestMutateDraftDoesNotTouchRecord(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.MutateDraft(model.FieldPhone, "555"))

	assert.Equal(t, "555", s.Draft().Record.Phone)
	assert.Equal(t, "", s.Record().Phone)
}

func TestMutateDraftRejectsUnknownField(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	assert.Error(t, s.MutateDraft("bogus", "x"))
}

func TestCancelEditRestoresDraftExactly(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	for _, f := range model.Fields {
		require.NoError(t, s.MutateDraft(f, "scrambled"))
	}
	require.NoError(t, s.SetAttachment(&model.Attachment{Filename: "rx.png", Data: []byte{1}}))
	require.NoError(t, s.CancelEdit())

	assert.Equal(t, StateLoadedView, s.State())
	draft := s.Draft()
	assert.Equal(t, *baseRecord(), draft.Record, "cancel must restore the draft bit-for-bit")
	assert.Nil(t, draft.Attachment, "cancel must drop the pending attachment")
}

func TestOperationsRequireTheRightState(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := New(gw)

	assert.Error(t, s.BeginEdit())
	assert.Error(t, s.MutateDraft(model.FieldPhone, "555"))
	assert.Error(t, s.CancelEdit())
	assert.Error(t, s.Submit(context.Background()))

	require.NoError(t, s.Load(context.Background(), "token"))
	assert.Error(t, s.MutateDraft(model.FieldPhone, "555"), "mutation requires edit mode")
	assert.Error(t, s.CancelEdit())
	assert.Error(t, s.Submit(context.Background()))
}

func TestSubmitAdoptsServerEcho(t *testing.T) {
	// Server normalizes the phone; the echo, not the draft, must win.
	echo := &model.PatientRecord{Email: "a@b.com", Phone: "555", Age: "30"}
	gw := &fakeGateway{fetchRecord: baseRecord(), submitEcho: echo}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.MutateDraft(model.FieldPhone, "555-whatever"))
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, StateLoadedView, s.State())
	assert.Equal(t, *echo, s.Record())
	assert.Equal(t, *echo, s.Draft().Record, "draft reseeds from the committed echo")
}

func TestSubmitFailurePreservesRecordAndDraft(t *testing.T) {
	gw := &fakeGateway{
		fetchRecord: baseRecord(),
		submitErr:   errors.Server("boom", nil),
	}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.MutateDraft(model.FieldPhone, "555"))
	require.NoError(t, s.SetAttachment(&model.Attachment{Filename: "rx.png", Data: []byte{7}}))

	err := s.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateLoadedEdit, s.State(), "failed submit keeps edit mode for retry")
	assert.Equal(t, *baseRecord(), s.Record(), "record untouched until success")
	draft := s.Draft()
	assert.Equal(t, "555", draft.Record.Phone, "draft preserved verbatim")
	require.NotNil(t, draft.Attachment)
	assert.Equal(t, []byte{7}, draft.Attachment.Data)
}

func TestSubmitSendsDraftWithAttachment(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord(), submitEcho: baseRecord()}
	s := loadedStore(t, gw)

	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.MutateDraft(model.FieldAllergies, "penicillin"))
	require.NoError(t, s.SetAttachment(&model.Attachment{Filename: "rx.png", ContentType: "image/png", Data: []byte{1, 2}}))
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, "penicillin", gw.lastSubmit.Record.Allergies)
	require.NotNil(t, gw.lastSubmit.Attachment)
	assert.Equal(t, "rx.png", gw.lastSubmit.Attachment.Filename)
}

func TestSubmitSpawnsCommitHookWithEcho(t *testing.T) {
	echo := &model.PatientRecord{Email: "a@b.com", Phone: "555", Age: "30"}
	gw := &fakeGateway{fetchRecord: baseRecord(), submitEcho: echo}

	got := make(chan model.PatientRecord, 1)
	s := loadedStore(t, gw, WithCommitHook(func(rec model.PatientRecord) {
		got <- rec
	}))

	require.NoError(t, s.BeginEdit())
	require.NoError(t, s.Submit(context.Background()))

	select {
	case rec := <-got:
		assert.Equal(t, *echo, rec, "hook receives the echoed record, not the draft")
	case <-time.After(time.Second):
		t.Fatal("commit hook was not invoked")
	}
}

func TestSubmitTimeout(t *testing.T) {
	gw := &hangingGateway{fetched: baseRecord()}
	s := New(gw, WithSubmitTimeout(20*time.Millisecond))
	require.NoError(t, s.Load(context.Background(), "token"))
	require.NoError(t, s.BeginEdit())

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateLoadedEdit, s.State())
}

type hangingGateway struct {
	fetched *model.PatientRecord
}

func (h *hangingGateway) FetchRecord(_ context.Context, _ string) (*model.PatientRecord, error) {
	rec := h.fetched.Clone()
	return &rec, nil
}

func (h *hangingGateway) SubmitRecord(ctx context.Context, _ model.DraftRecord) (*model.PatientRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestApplyAssignmentPatchesWithoutReload(t *testing.T) {
	gw := &fakeGateway{fetchRecord: baseRecord()}
	s := loadedStore(t, gw)

	require.NoError(t, s.ApplyAssignment(model.DoctorAssignment{Name: "Dr. X", Email: "x@clinic"}))

	rec := s.Record()
	require.NotNil(t, rec.DoctorAssigned)
	assert.Equal(t, "Dr. X", rec.DoctorAssigned.Name)
	assert.Equal(t, 1, gw.fetchCalls, "patch must not trigger a reload")
}

func TestApplyAssignmentRequiresRecord(t *testing.T) {
	s := New(&fakeGateway{})
	assert.Error(t, s.ApplyAssignment(model.DoctorAssignment{Name: "Dr. X", Email: "x@clinic"}))
}
