package coolfhir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestWriteOperationOutcomeFromError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "bad request includes the error message",
			err:          BadRequest("acting party is required"),
			expectedCode: 400,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"processing","diagnostics":"Negotiator/GetTask failed: acting party is required"}]}`,
		},
		{
			name:         "other statuses only carry the status text",
			err:          NewErrorWithCode("task 12 does not exist", http.StatusNotFound),
			expectedCode: 404,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"processing","diagnostics":"Negotiator/GetTask failed: Not Found"}]}`,
		},
		{
			name:         "error without a code defaults to 500",
			err:          NewErrorWithCode("database is down", 0),
			expectedCode: 500,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"processing","diagnostics":"Negotiator/GetTask failed: Internal Server Error"}]}`,
		},
		{
			name: "OperationOutcome from a FHIR server is returned as-is for bad requests",
			err: &fhirclient.OperationOutcomeError{
				OperationOutcome: fhir.OperationOutcome{
					Issue: []fhir.OperationOutcomeIssue{
						{
							Severity:    fhir.IssueSeverityError,
							Code:        fhir.IssueTypeInvalid,
							Diagnostics: to.Ptr("Questionnaire.item[0].linkId is required"),
						},
					},
				},
				HttpStatusCode: http.StatusBadRequest,
			},
			expectedCode: 400,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"invalid","diagnostics":"Questionnaire.item[0].linkId is required"}]}`,
		},
		{
			name: "OperationOutcome from a FHIR server keeps its status code",
			err: &fhirclient.OperationOutcomeError{
				OperationOutcome: fhir.OperationOutcome{
					Issue: []fhir.OperationOutcomeIssue{
						{
							Severity:    fhir.IssueSeverityError,
							Code:        fhir.IssueTypeConflict,
							Diagnostics: to.Ptr("version conflict"),
						},
					},
				},
				HttpStatusCode: http.StatusConflict,
			},
			expectedCode: 409,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"conflict","diagnostics":"version conflict"}]}`,
		},
		{
			name: "OperationOutcome without a status code defaults to 500",
			err: &fhirclient.OperationOutcomeError{
				OperationOutcome: fhir.OperationOutcome{
					Issue: []fhir.OperationOutcomeIssue{
						{
							Severity:    fhir.IssueSeverityError,
							Code:        fhir.IssueTypeConflict,
							Diagnostics: to.Ptr("version conflict"),
						},
					},
				},
			},
			expectedCode: 500,
			expectedBody: `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"conflict","diagnostics":"version conflict"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := httptest.NewRecorder()

			WriteOperationOutcomeFromError(context.Background(), tt.err, "Negotiator/GetTask", response)

			assert.Equal(t, tt.expectedCode, response.Code)
			assert.JSONEq(t, tt.expectedBody, response.Body.String())
		})
	}
}

func TestSanitizeOperationOutcome(t *testing.T) {
	sanitizedCodes := []fhir.IssueType{
		fhir.IssueTypeSecurity,
		fhir.IssueTypeLogin,
		fhir.IssueTypeUnknown,
		fhir.IssueTypeExpired,
		fhir.IssueTypeForbidden,
		fhir.IssueTypeSuppressed,
	}
	var nonSanitizedCodes []fhir.IssueType
	for i := 0; i < 30; i++ { // 30 = highest IssueType value
		if !slices.Contains(sanitizedCodes, fhir.IssueType(i)) {
			nonSanitizedCodes = append(nonSanitizedCodes, fhir.IssueType(i))
		}
	}

	for _, code := range sanitizedCodes {
		t.Run(code.String()+" is sanitized", func(t *testing.T) {
			sanitized := SanitizeOperationOutcome(fhir.OperationOutcome{
				Issue: []fhir.OperationOutcomeIssue{{
					Code:        code,
					Diagnostics: to.Ptr("secret details"),
				}},
			})

			assert.Len(t, sanitized.Issue, 1)
			assert.Equal(t, fhir.IssueTypeProcessing, sanitized.Issue[0].Code)
			assert.Equal(t, "upstream FHIR server error", *sanitized.Issue[0].Diagnostics)
		})
	}
	for _, code := range nonSanitizedCodes {
		t.Run(code.String()+" is kept", func(t *testing.T) {
			sanitized := SanitizeOperationOutcome(fhir.OperationOutcome{
				Issue: []fhir.OperationOutcomeIssue{{
					Code:        code,
					Diagnostics: to.Ptr("some error message"),
				}},
			})

			assert.Len(t, sanitized.Issue, 1)
			assert.Equal(t, code, sanitized.Issue[0].Code)
			assert.Equal(t, "some error message", *sanitized.Issue[0].Diagnostics)
		})
	}
}
