package v1

import (
	"errors"
	"net/http"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

// problemFor maps domain errors onto problem documents. Errors that reach
// the client before any stream output use these statuses.
func problemFor(err error) *api.Problem {
	var (
		problem  *api.Problem
		encErr   *llm.EncodingError
		provider *llm.ProviderError
	)

	switch {
	case errors.As(err, &problem):
		return problem
	case errors.Is(err, llm.ErrUnsupportedProvider):
		return api.BadRequestError(err.Error(), api.WithType("/problems/unsupported-model"))
	case errors.Is(err, llm.ErrUnsupportedMediaKind):
		return api.NewError(http.StatusUnsupportedMediaType, "Unsupported Media Type", err.Error())
	case errors.Is(err, attachment.ErrTooLarge):
		return api.NewError(http.StatusRequestEntityTooLarge, "Attachment Too Large", err.Error())
	case errors.As(err, &encErr):
		return api.NewError(http.StatusUnprocessableEntity, "Invalid Attachment", err.Error(), api.WithLog(err))
	case errors.Is(err, llm.ErrMissingCredential):
		return api.NewError(http.StatusServiceUnavailable, "Provider Not Configured", err.Error(),
			api.WithType("/problems/missing-credential"))
	case errors.Is(err, gateway.ErrProviderNotFound):
		return api.NewError(http.StatusServiceUnavailable, "Provider Unavailable", err.Error())
	case errors.As(err, &provider):
		return api.NewError(http.StatusBadGateway, "Upstream Error", err.Error(),
			api.WithLog(err),
			api.WithExtension("provider", provider.Provider.String()),
			api.WithExtension("upstream_status", provider.StatusCode))
	default:
		return api.InternalError("Failed to process request", err)
	}
}

// streamError renders a mid-stream failure as the error payload of an SSE chunk.
func streamError(err error) *api.StreamError {
	se := &api.StreamError{Message: err.Error()}
	var provider *llm.ProviderError
	if errors.As(err, &provider) {
		se.Provider = provider.Provider.String()
		se.StatusCode = provider.StatusCode
	}
	return se
}
