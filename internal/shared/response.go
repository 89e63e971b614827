package shared

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse represents a successful response with data
type SuccessResponse[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// Page represents a paginated response structure
type Page[T any] struct {
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
	Data         []T   `json:"data"`
}

// RespondWithSuccess writes a SuccessResponse envelope.
func RespondWithSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse[interface{}]{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// RespondWithError writes a generic error envelope for callers that don't
// have a structured AppError at hand.
func RespondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// RespondWithAppError writes the ErrorResponse derived from an AppError.
func RespondWithAppError(c *gin.Context, appErr *AppError) {
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}

// RespondWithSuccessNoData writes a SuccessResponse envelope with no data
// payload, for operations (delete, cancel) with nothing to return.
func RespondWithSuccessNoData(c *gin.Context, status int, message string) {
	c.JSON(status, SuccessResponse[interface{}]{
		Status:  status,
		Message: message,
	})
}

// HandleError converts any error to an AppError and writes its response,
// falling back to a generic 500 if conversion produces nothing usable.
func HandleError(c *gin.Context, err error) {
	if appErr := ToAppError(err); appErr != nil {
		RespondWithAppError(c, appErr)
		return
	}
	RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}
