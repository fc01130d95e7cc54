package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the portal API envelope. User and Doctors are set per
// endpoint; Message carries the error text on failure.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
	User    interface{} `json:"user,omitempty"`
	Doctors interface{} `json:"doctors,omitempty"`
}

// RespondWithUser sends a success envelope carrying the user record.
func RespondWithUser(c *gin.Context, user interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, User: user})
}

// RespondWithDoctors sends the doctor directory.
func RespondWithDoctors(c *gin.Context, doctors interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Doctors: doctors})
}

// RespondWithAck sends a bare success envelope.
func RespondWithAck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true})
}

// RespondWithError sends a failure envelope with the given status.
func RespondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}
