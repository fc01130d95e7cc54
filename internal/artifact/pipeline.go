// Package artifact runs the post-commit follow-up: render the echoed record
// into a PDF, fingerprint it, and upload it server-side. The three-step
// submit/render/upload sequence has no compensating transaction: an upload
// failure after a committed record is an accepted partial state, surfaced
// only through logs and metrics.
package artifact

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/digest"
	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/internal/report"
	"github.com/medilink/patient-portal/pkg/metrics"
)

// Uploader is the slice of the gateway the pipeline needs.
type Uploader interface {
	UploadArtifact(ctx context.Context, artifact []byte) error
}

// Pipeline generates and persists profile report artifacts. The last
// generated artifact is retained in memory for preview/download until the
// next commit replaces it.
type Pipeline struct {
	renderer *report.Renderer
	uploader Uploader
	log      zerolog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	mu   sync.Mutex
	last *model.DocumentArtifact
}

type Option func(*Pipeline)

func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithUploadTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

func NewPipeline(renderer *report.Renderer, uploader Uploader, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer: renderer,
		uploader: uploader,
		log:      zerolog.Nop(),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run renders rec, digests the bytes, retains the artifact, and uploads it.
// It is the store's commit hook: the record is already committed when Run
// starts, so errors here never propagate to the user and never roll the
// record back.
func (p *Pipeline) Run(rec model.PatientRecord) {
	start := time.Now()
	raw, err := p.renderer.Render(rec)
	if err != nil {
		p.log.Error().Err(err).Msg("artifact rendering failed, committed record stands")
		return
	}
	if p.metrics != nil {
		p.metrics.ObserveRender(time.Since(start).Seconds())
	}

	art := &model.DocumentArtifact{
		ID:          uuid.New(),
		Bytes:       raw,
		Digest:      digest.Sum(raw),
		GeneratedAt: time.Now(),
	}

	p.mu.Lock()
	p.last = art
	p.mu.Unlock()

	p.log.Info().
		Str("artifact_id", art.ID.String()).
		Str("digest", art.Digest).
		Int("size", len(art.Bytes)).
		Msg("profile artifact generated")

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.uploader.UploadArtifact(ctx, art.Bytes)
	if p.metrics != nil {
		p.metrics.ArtifactUpload(err)
	}
	if err != nil {
		p.log.Error().Err(err).
			Str("artifact_id", art.ID.String()).
			Msg("artifact upload failed, committed record stands")
		return
	}
	p.log.Info().Str("artifact_id", art.ID.String()).Msg("profile artifact stored")
}

// Last returns the most recently generated artifact, or nil before the first
// commit.
func (p *Pipeline) Last() *model.DocumentArtifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// VerifyStored checks a server-held base64 document against an expected
// digest. Used to confirm that what the server stored matches what was
// generated locally.
func VerifyStored(docs *model.StoredDocuments, expected string) (bool, error) {
	if docs == nil || docs.PDF == "" {
		return false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(docs.PDF)
	if err != nil {
		return false, err
	}
	return digest.Verify(raw, expected), nil
}
