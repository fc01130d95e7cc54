// Package gateway is the HTTP client for the portal API. Each operation is a
// single request/response with no automatic retry; callers decide whether to
// retry on user action.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/pkg/errors"
	"github.com/medilink/patient-portal/pkg/metrics"
)

const (
	pathLogin          = "/api/user/login"
	pathFetchRecord    = "/api/user/me"
	pathSubmitRecord   = "/api/user/update"
	pathUploadArtifact = "/api/user/upload-pdf"
	pathListDoctors    = "/api/doctor/all"
	pathAssignDoctor   = "/api/doctor/assign"

	attachmentField = "prescriptionImage"
	artifactField   = "pdf"
	artifactName    = "profile.pdf"

	defaultTimeout = 30 * time.Second
)

// Client performs the portal's network operations.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
	metrics *metrics.Metrics
	// tokenSource, when set, supplies a bearer token attached to requests
	// that do not already carry one. The update/upload endpoints enforce no
	// auth, but sending the credential lets the server tie the upload to an
	// account.
	tokenSource func() string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) { g.httpc = c }
}

func WithLogger(log zerolog.Logger) Option {
	return func(g *Client) { g.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Client) { g.metrics = m }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Client) { g.httpc.Timeout = d }
}

func WithTokenSource(fn func() string) Option {
	return func(g *Client) { g.tokenSource = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the portal API response shape.
type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Token   string                `json:"token"`
	User    *model.PatientRecord  `json:"user"`
	Doctors []model.DoctorSummary `json:"doctors"`
}

// Login exchanges credentials for a bearer token. Token acquisition sits
// outside the sync pipeline but the CLI needs it to drive the rest.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathLogin, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do("login", req)
	if err != nil {
		return "", err
	}
	if env.Token == "" {
		return "", errors.Server("response carried no token", nil)
	}
	return env.Token, nil
}

// FetchRecord loads the authenticated patient's record.
func (c *Client) FetchRecord(ctx context.Context, token string) (*model.PatientRecord, error) {
	if token == "" {
		return nil, errors.Unauthenticated("user token not found", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathFetchRecord, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do("fetch_record", req)
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.Server("response carried no user record", nil)
	}
	return env.User, nil
}

// SubmitRecord sends the draft as a multipart form, the attachment (if any)
// as a distinct binary part. The returned record is the server's canonical
// echo, which callers must treat as authoritative over the submitted draft.
func (c *Client) SubmitRecord(ctx context.Context, draft model.DraftRecord) (*model.PatientRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, pair := range draft.Record.Pairs() {
		if err := mw.WriteField(string(pair.Field), pair.Value); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", pair.Field, err)
		}
	}
	if draft.Attachment != nil {
		if err := writeFilePart(mw, attachmentField, draft.Attachment.Filename, draft.Attachment.ContentType, draft.Attachment.Data); err != nil {
			return nil, fmt.Errorf("failed to encode attachment: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+pathSubmitRecord, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.do("submit_record", req)
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.Server("response carried no user record", nil)
	}
	return env.User, nil
}

// UploadArtifact stores the rendered report server-side. Issued only after a
// successful SubmitRecord; its failure must not roll back the committed
// record.
func (c *Client) UploadArtifact(ctx context.Context, artifact []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writeFilePart(mw, artifactField, artifactName, "application/pdf", artifact); err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+pathUploadArtifact, &body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.do("upload_artifact", req)
	return err
}

// ListDoctors fetches the doctor directory.
func (c *Client) ListDoctors(ctx context.Context, token string) ([]model.DoctorSummary, error) {
	if token == "" {
		return nil, errors.Unauthenticated("user token not found", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathListDoctors, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do("list_doctors", req)
	if err != nil {
		return nil, err
	}
	return env.Doctors, nil
}

// AssignDoctor binds the patient to the chosen doctor.
func (c *Client) AssignDoctor(ctx context.Context, token, userEmail, doctorEmail string) error {
	if token == "" {
		return errors.Unauthenticated("user token not found", nil)
	}

	payload, err := json.Marshal(map[string]string{
		"userEmail":   userEmail,
		"doctorEmail": doctorEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to encode assignment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathAssignDoctor, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build assignment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do("assign_doctor", req)
	return err
}

func (c *Client) do(operation string, req *http.Request) (*envelope, error) {
	if req.Header.Get("Authorization") == "" && c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if c.metrics != nil {
		defer func() { c.metrics.GatewayRequest(operation, err) }()
	}
	if err != nil {
		c.log.Error().Err(err).Str("operation", operation).Msg("request failed")
		err = errors.Network("request failed", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = errors.Network("failed to read response", readErr)
		return nil, err
	}

	var env envelope
	// The error envelope still carries a message worth surfacing, so decode
	// before checking the status.
	if len(raw) > 0 {
		if decErr := json.Unmarshal(raw, &env); decErr != nil && resp.StatusCode < 300 {
			err = errors.Server("malformed response", decErr)
			return nil, err
		}
	}

	if resp.StatusCode >= 300 {
		err = c.statusError(resp.StatusCode, env.Message)
		c.log.Warn().Int("status", resp.StatusCode).Str("operation", operation).Str("message", env.Message).Msg("request rejected")
		return nil, err
	}
	return &env, nil
}

func (c *Client) statusError(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "credential rejected"
		}
		return errors.Unauthenticated(message, nil)
	case status == http.StatusNotFound:
		return errors.NotFound("resource", nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "request rejected"
		}
		return errors.Validation(message, nil)
	default:
		if message == "" {
			message = fmt.Sprintf("server returned status %d", status)
		}
		return errors.Server(message, nil)
	}
}

func writeFilePart(mw *multipart.Writer, field, filename, contentType string, data []byte) error {
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
