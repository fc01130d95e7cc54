package user

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/internal/server/middleware"
	"github.com/medilink/patient-portal/internal/server/repository/memory"
	"github.com/medilink/patient-portal/internal/server/service/auth"
	"github.com/medilink/patient-portal/pkg/httputil"
)

// maxUploadBytes caps multipart bodies (10 MB).
const maxUploadBytes = 10 << 20

type Handler struct {
	users   *memory.Store
	authSvc *auth.Service
	log     zerolog.Logger
}

func NewHandler(users *memory.Store, authSvc *auth.Service, log zerolog.Logger) *Handler {
	return &Handler{users: users, authSvc: authSvc, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	users := r.Group("/user")
	{
		users.POST("/login", h.Login)
		users.POST("/signup", h.Signup)
		users.GET("/me", authMW.Authenticate(), h.Me)
		users.PUT("/update", h.Update)
		users.PUT("/upload-pdf", h.UploadPDF)
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), req.Email)
	if err != nil {
		httputil.RespondWithError(c, http.StatusNotFound, "user not found")
		return
	}

	c.JSON(http.StatusOK, httputil.Response{Success: true, Token: token, User: user.Record})
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.RespondWithError(c, http.StatusInternalServerError, "failed to create account")
		return
	}

	account := &memory.User{
		Record:       model.PatientRecord{Email: req.Email},
		PasswordHash: hash,
	}
	if err := h.users.CreateUser(c.Request.Context(), account); err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "account already exists")
		return
	}

	h.log.Info().Str("email", req.Email).Msg("account created")
	httputil.RespondWithUser(c, account.Record)
}

func (h *Handler) Me(c *gin.Context) {
	email := c.GetString(middleware.ContextUserEmail)
	user, err := h.users.GetUser(c.Request.Context(), email)
	if err != nil {
		httputil.RespondWithError(c, http.StatusNotFound, "user not found")
		return
	}
	httputil.RespondWithUser(c, user.Record)
}

// Update replaces the scalar profile fields from a multipart form. The
// account is identified by the email field; assignment and stored documents
// are preserved server-side.
func (h *Handler) Update(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "malformed multipart form")
		return
	}

	var rec model.PatientRecord
	for _, f := range model.Fields {
		rec.Set(f, c.Request.FormValue(string(f)))
	}
	if rec.Email == "" {
		httputil.RespondWithError(c, http.StatusBadRequest, "email is required")
		return
	}

	// The prescription image is accepted but only acknowledged: the
	// reference backend has no image store.
	if file, hdr, err := c.Request.FormFile("prescriptionImage"); err == nil {
		file.Close()
		h.log.Info().Str("email", rec.Email).Str("filename", hdr.Filename).Msg("prescription image received")
	}

	echo, err := h.users.UpdateRecord(c.Request.Context(), rec.Email, rec)
	if err != nil {
		httputil.RespondWithError(c, http.StatusNotFound, "user not found")
		return
	}
	httputil.RespondWithUser(c, echo)
}

// UploadPDF stores the generated profile artifact. The account is resolved
// from the bearer token when one is sent, otherwise from an email form
// field.
func (h *Handler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, _, err := c.Request.FormFile("pdf")
	if err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "pdf form field is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "failed to read pdf")
		return
	}

	email := h.resolveEmail(c)
	if email == "" {
		httputil.RespondWithError(c, http.StatusBadRequest, "unable to identify account")
		return
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := h.users.StoreArtifact(c.Request.Context(), email, raw, encoded); err != nil {
		httputil.RespondWithError(c, http.StatusNotFound, "user not found")
		return
	}

	h.log.Info().Str("email", email).Int("size", len(raw)).Msg("profile artifact stored")
	httputil.RespondWithAck(c)
}

func (h *Handler) resolveEmail(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
		if email, err := h.authSvc.ValidateToken(c.Request.Context(), header[7:]); err == nil {
			return email
		}
	}
	return c.Request.FormValue("email")
}
