package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"skybook/internal/auth"
	apperrors "skybook/internal/errors"
	"skybook/internal/middleware"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		services: services,
	}
}

// identity pulls the authenticated caller placed by the auth
// middleware. A missing identity means the route was wired without it.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return auth.Identity{}, false
	}
	return id, true
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return 0, false
	}
	return id, true
}

// fail translates service errors to the API's status codes. Unexpected
// errors never leak their text to the client.
func fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	var compErr *apperrors.CompensationError
	if errors.As(err, &compErr) {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}
