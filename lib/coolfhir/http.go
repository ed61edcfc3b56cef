package coolfhir

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/SanteonNL/medex/negotiator/lib/logging"
)

// SendResponse marshals the given resource and writes it as FHIR JSON response with the given HTTP status code.
func SendResponse(httpResponse http.ResponseWriter, httpStatus int, resource interface{}, additionalHeaders ...map[string]string) {
	data, err := json.Marshal(resource)
	if err != nil {
		slog.ErrorContext(context.Background(), "Failed to marshal FHIR response resource", slog.String(logging.FieldError, err.Error()))
		httpResponse.WriteHeader(http.StatusInternalServerError)
		return
	}
	httpResponse.Header().Set("Content-Type", FHIRContentType)
	for _, headers := range additionalHeaders {
		for key, value := range headers {
			httpResponse.Header().Set(key, value)
		}
	}
	httpResponse.WriteHeader(httpStatus)
	_, _ = httpResponse.Write(data)
}
