package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// actorID returns the authenticated user ID set by the auth middleware.
func actorID(c *gin.Context) uint64 {
	return c.GetUint64("userID")
}

// callerCustomerID returns the authenticated customer ID set by the auth
// middleware.
func callerCustomerID(c *gin.Context) uint64 {
	return c.GetUint64("customerID")
}

// intPtr coerces a loosely-typed numeric parameter, returning nil for empty
// or malformed input.
func intPtr(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, errParse := strconv.Atoi(value)
	if errParse != nil {
		return nil
	}
	return &n
}
