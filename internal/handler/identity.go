package handler

import (
	"github.com/gin-gonic/gin"

	"ridetrack/internal/domain"
)

const (
	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"
)

// identity returns the caller set by the upstream auth proxy.
func identity(c *gin.Context) (string, domain.Role, error) {
	userID := c.GetHeader(userIDHeader)
	rawRole := c.GetHeader(userRoleHeader)
	if userID == "" || rawRole == "" {
		return "", "", errMissingIdentity
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return "", "", errInvalidRole
	}
	return userID, role, nil
}
