package errorx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondWithError writes a JSON error response for the given error.
// Unknown error types are wrapped as internal server errors with the
// original message preserved in details.
func RespondWithError(c *gin.Context, err error) {
	apiErr := AsAPIError(err)
	c.JSON(apiErr.HTTPStatus, gin.H{"error": apiErr})
}

// AsAPIError converts any error to an APIError
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal.WithDetail("original_error", err.Error())
}

// HTTPStatusOf returns the HTTP status an error maps to.
func HTTPStatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
