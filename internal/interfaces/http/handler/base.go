package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/platform"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
	"github.com/ledgerlink/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := middleware.GetRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError sends a 400 response for a request binding failure, with
// per-field messages when the failure came from struct validation.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, middleware.FormatBindingError(err))
}

// HandleError converts domain and adapter errors to HTTP responses.
// Wrapped errors are supported throughout.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, integration.ErrMappingNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, integration.ErrRateLimited):
		h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "upstream platform is rate limiting requests")
	default:
		var statusErr *platform.HTTPStatusError
		if errors.As(err, &statusErr) {
			h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamRejected, err.Error())
			return
		}
		h.InternalError(c, "An unexpected error occurred")
	}
}
