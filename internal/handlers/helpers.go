package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/recipe-search-api/internal/repository"
	"github.com/windoze95/recipe-search-api/internal/service"
)

// parseIntQuery parses an optional non-negative integer query parameter,
// returning def when it is absent.
func parseIntQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return parsed, nil
}

// parseOptionalIntQuery is parseIntQuery for parameters without a default.
func parseOptionalIntQuery(c *gin.Context, name string) (*int, error) {
	if c.Query(name) == "" {
		return nil, nil
	}
	v, err := parseIntQuery(c, name, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// errorStatus maps service and repository errors to HTTP status codes.
func errorStatus(err error) int {
	var validationErr service.ValidationError
	var notFoundErr repository.NotFoundError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrMailDisabled), errors.Is(err, service.ErrMailBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the status for err. Internal errors are not echoed.
func writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "An unexpected error occurred"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
