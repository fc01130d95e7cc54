package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/server/middleware"
	"github.com/medilink/patient-portal/internal/server/repository/memory"
	"github.com/medilink/patient-portal/pkg/httputil"
)

type Handler struct {
	store *memory.Store
	log   zerolog.Logger
}

func NewHandler(store *memory.Store, log zerolog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	doctors := r.Group("/doctor")
	doctors.Use(authMW.Authenticate())
	{
		doctors.GET("/all", h.ListDoctors)
		doctors.POST("/assign", h.AssignDoctor)
	}
}

func (h *Handler) ListDoctors(c *gin.Context) {
	httputil.RespondWithDoctors(c, h.store.ListDoctors(c.Request.Context()))
}

type assignRequest struct {
	UserEmail   string `json:"userEmail" binding:"required,email"`
	DoctorEmail string `json:"doctorEmail" binding:"required,email"`
}

func (h *Handler) AssignDoctor(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, http.StatusBadRequest, "userEmail and doctorEmail are required")
		return
	}

	// The token identifies the caller; the patch targets the same account.
	if caller := c.GetString(middleware.ContextUserEmail); caller != req.UserEmail {
		httputil.RespondWithError(c, http.StatusForbidden, "cannot assign a doctor for another patient")
		return
	}

	if _, err := h.store.AssignDoctor(c.Request.Context(), req.UserEmail, req.DoctorEmail); err != nil {
		httputil.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	}

	h.log.Info().Str("patient", req.UserEmail).Str("doctor", req.DoctorEmail).Msg("doctor assigned")
	httputil.RespondWithAck(c)
}
