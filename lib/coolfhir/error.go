package coolfhir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// SanitizeOperationOutcome replaces security-related issues with a generic
// message, so an upstream FHIR server's OperationOutcome can be returned to the
// client without leaking details about authentication or authorization.
/// It follows the code list from https://www.hl7.org/fhir/codesystem-issue-type.html#issue-type-security
func SanitizeOperationOutcome(in fhir.OperationOutcome) fhir.OperationOutcome {
	result := in
	result.Issue = nil
	for _, issue := range in.Issue {
		switch issue.Code {
		case fhir.IssueTypeSecurity,
			fhir.IssueTypeLogin,
			fhir.IssueTypeUnknown,
			fhir.IssueTypeExpired,
			fhir.IssueTypeForbidden,
			fhir.IssueTypeSuppressed:
			result.Issue = append(result.Issue, fhir.OperationOutcomeIssue{
				Severity:    issue.Severity,
				Code:        fhir.IssueTypeProcessing,
				Diagnostics: to.Ptr("upstream FHIR server error"),
			})
		default:
			result.Issue = append(result.Issue, issue)
		}
	}
	return result
}

// ErrorWithCode is an error that prescribes the HTTP status code of the response.
type ErrorWithCode struct {
	Message    string
	StatusCode int
}

func (e ErrorWithCode) Error() string {
	return e.Message
}

func NewErrorWithCode(message string, statusCode int) error {
	return &ErrorWithCode{
		Message:    message,
		StatusCode: statusCode,
	}
}

// BadRequestError wraps an error into a response with status 400.
func BadRequestError(err error) error {
	return &ErrorWithCode{
		Message:    err.Error(),
		StatusCode: http.StatusBadRequest,
	}
}

// BadRequest creates an error with status 400 from the format and arguments.
func BadRequest(msg string, args ...any) error {
	return BadRequestError(fmt.Errorf(msg, args...))
}

// WriteOperationOutcomeFromError writes the error as an OperationOutcome
// response. The status code comes from the error when it carries one,
// defaulting to 500. Only the diagnostics of bad requests include the error
// message, other statuses get the generic status text so internals stay out of
// responses.
func WriteOperationOutcomeFromError(ctx context.Context, err error, desc string, httpResponse http.ResponseWriter) {
	slog.ErrorContext(ctx, fmt.Sprintf("%s failed: %v", desc, err))

	statusCode := http.StatusInternalServerError
	var operationOutcome fhir.OperationOutcome

	// fhirclient returns OperationOutcomeError by value or by pointer,
	// depending on the code path, so probe for both.
	var operationOutcomeErr = new(fhirclient.OperationOutcomeError)
	if errors.As(err, operationOutcomeErr) || errors.As(err, &operationOutcomeErr) {
		if operationOutcomeErr.HttpStatusCode > 0 {
			statusCode = operationOutcomeErr.HttpStatusCode
		}
		operationOutcome = operationOutcomeErr.OperationOutcome
		if statusCode != http.StatusBadRequest {
			operationOutcome = SanitizeOperationOutcome(operationOutcome)
		}
	} else {
		var errorWithCode = new(ErrorWithCode)
		if errors.As(err, errorWithCode) || errors.As(err, &errorWithCode) {
			if errorWithCode.StatusCode > 0 {
				statusCode = errorWithCode.StatusCode
			}
		}

		diagnostics := http.StatusText(statusCode)
		if statusCode == http.StatusBadRequest {
			diagnostics = err.Error()
		}
		operationOutcome = fhir.OperationOutcome{
			Issue: []fhir.OperationOutcomeIssue{
				{
					Severity:    fhir.IssueSeverityError,
					Code:        fhir.IssueTypeProcessing,
					Diagnostics: to.Ptr(fmt.Sprintf("%s failed: %s", desc, diagnostics)),
				},
			},
		}
	}
	SendResponse(httpResponse, statusCode, operationOutcome)
}
