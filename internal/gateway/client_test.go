package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/pkg/errors"
)

func TestFetchRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/user/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"user":    map[string]string{"email": "a@b.com", "phone": "555"},
		})
	}))
	defer srv.Close()

	rec, err := NewClient(srv.URL).FetchRecord(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Email)
	assert.Equal(t, "555", rec.Phone)
}

func TestFetchRecordWithoutTokenNeverDials(t *testing.T) {
	dialed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchRecord(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthenticated))
	assert.False(t, dialed)
}

func TestSubmitRecordEncodesMultipartForm(t *testing.T) {
	var gotFields map[string]string
	var gotAttachment []byte
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/update", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotFields = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if file, hdr, err := r.FormFile("prescriptionImage"); err == nil {
			gotAttachment, _ = io.ReadAll(file)
			gotContentType = hdr.Header.Get("Content-Type")
			file.Close()
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"user":    map[string]string{"email": "a@b.com"},
		})
	}))
	defer srv.Close()

	draft := model.DraftRecord{
		Record: model.PatientRecord{Email: "a@b.com", Phone: "555"},
		Attachment: &model.Attachment{
			Filename:    "rx.png",
			ContentType: "image/png",
			Data:        []byte{0x89, 0x50},
		},
	}

	echo, err := NewClient(srv.URL).SubmitRecord(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", echo.Email)

	// Every scalar field travels, even when empty.
	for _, f := range model.Fields {
		_, ok := gotFields[string(f)]
		assert.True(t, ok, "field %s missing from form", f)
	}
	assert.Equal(t, "555", gotFields["phone"])
	assert.Equal(t, []byte{0x89, 0x50}, gotAttachment)
	assert.Equal(t, "image/png", gotContentType)
}

func TestUploadArtifact(t *testing.T) {
	var gotPDF []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/upload-pdf", r.URL.Path)

		file, hdr, err := r.FormFile("pdf")
		require.NoError(t, err)
		defer file.Close()
		gotPDF, _ = io.ReadAll(file)
		assert.Equal(t, "profile.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))

		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UploadArtifact(context.Background(), []byte("%PDF-fake"))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), gotPDF)
}

func TestTokenSourceAttachesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(func() string { return "tok" }))
	require.NoError(t, c.UploadArtifact(context.Background(), []byte("x")))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestAssignDoctor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/doctor/assign", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["userEmail"])
		assert.Equal(t, "x@clinic", body["doctorEmail"])

		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	err := NewClient(srv.URL).AssignDoctor(context.Background(), "tok", "a@b.com", "x@clinic")
	require.NoError(t, err)
}

func TestListDoctors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/doctor/all", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"doctors": []map[string]interface{}{
				{"name": "Dr. X", "email": "x@clinic", "speciality": "Cardiology", "available": true},
			},
		})
	}))
	defer srv.Close()

	doctors, err := NewClient(srv.URL).ListDoctors(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. X", doctors[0].Name)
	assert.True(t, doctors[0].Available)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    errors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, "", errors.ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, "", errors.ErrUnauthenticated},
		{"not found", http.StatusNotFound, "", errors.ErrNotFound},
		{"validation", http.StatusBadRequest, "age must be numeric", errors.ErrValidation},
		{"server", http.StatusInternalServerError, "", errors.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"message": tt.message,
				})
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).FetchRecord(context.Background(), "tok")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.want), "want %s, got %v", tt.want, err)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message, "server message surfaces verbatim")
			}
		})
	}
}

func TestNetworkErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	_, err := NewClient(srv.URL).FetchRecord(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNetwork))
}
