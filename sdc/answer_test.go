package sdc

import (
	"encoding/json"
	"testing"

	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestCreateAnswerForType(t *testing.T) {
	tests := []struct {
		name     string
		itemType fhir.QuestionnaireItemType
		value    interface{}
		expected fhir.QuestionnaireResponseItemAnswer
	}{
		{
			name:     "boolean",
			itemType: fhir.QuestionnaireItemTypeBoolean,
			value:    true,
			expected: fhir.QuestionnaireResponseItemAnswer{ValueBoolean: to.Ptr(true)},
		},
		{
			name:     "boolean coerced from string",
			itemType: fhir.QuestionnaireItemTypeBoolean,
			value:    "true",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueBoolean: to.Ptr(true)},
		},
		{
			name:     "decimal from json number",
			itemType: fhir.QuestionnaireItemTypeDecimal,
			value:    json.Number("2.5"),
			expected: fhir.QuestionnaireResponseItemAnswer{ValueDecimal: to.Ptr(json.Number("2.5"))},
		},
		{
			name:     "decimal from float",
			itemType: fhir.QuestionnaireItemTypeDecimal,
			value:    2.5,
			expected: fhir.QuestionnaireResponseItemAnswer{ValueDecimal: to.Ptr(json.Number("2.5"))},
		},
		{
			name:     "decimal parsed from string",
			itemType: fhir.QuestionnaireItemTypeDecimal,
			value:    "2.5",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueDecimal: to.Ptr(json.Number("2.5"))},
		},
		{
			name:     "integer from json number",
			itemType: fhir.QuestionnaireItemTypeInteger,
			value:    json.Number("50"),
			expected: fhir.QuestionnaireResponseItemAnswer{ValueInteger: to.Ptr(50)},
		},
		{
			name:     "integer from whole float",
			itemType: fhir.QuestionnaireItemTypeInteger,
			value:    float64(3),
			expected: fhir.QuestionnaireResponseItemAnswer{ValueInteger: to.Ptr(3)},
		},
		{
			name:     "integer parsed from string",
			itemType: fhir.QuestionnaireItemTypeInteger,
			value:    "50",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueInteger: to.Ptr(50)},
		},
		{
			name:     "date",
			itemType: fhir.QuestionnaireItemTypeDate,
			value:    "2025-03-14",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueDate: to.Ptr("2025-03-14")},
		},
		{
			name:     "dateTime",
			itemType: fhir.QuestionnaireItemTypeDateTime,
			value:    "2025-03-14T09:30:00Z",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueDateTime: to.Ptr("2025-03-14T09:30:00Z")},
		},
		{
			name:     "time",
			itemType: fhir.QuestionnaireItemTypeTime,
			value:    "09:30:00",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueTime: to.Ptr("09:30:00")},
		},
		{
			name:     "string",
			itemType: fhir.QuestionnaireItemTypeString,
			value:    "Januvia 50mg",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("Januvia 50mg")},
		},
		{
			name:     "text",
			itemType: fhir.QuestionnaireItemTypeText,
			value:    "take one tablet daily",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("take one tablet daily")},
		},
		{
			name:     "url",
			itemType: fhir.QuestionnaireItemTypeUrl,
			value:    "https://example.com/leaflet",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueUri: to.Ptr("https://example.com/leaflet")},
		},
		{
			name:     "choice from code",
			itemType: fhir.QuestionnaireItemTypeChoice,
			value:    "completed",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("completed")},
		},
		{
			name:     "choice from coding",
			itemType: fhir.QuestionnaireItemTypeChoice,
			value: map[string]interface{}{
				"system":  "http://snomed.info/sct",
				"code":    "703127006",
				"display": "Sitagliptin",
			},
			expected: fhir.QuestionnaireResponseItemAnswer{ValueCoding: &fhir.Coding{
				System:  to.Ptr("http://snomed.info/sct"),
				Code:    to.Ptr("703127006"),
				Display: to.Ptr("Sitagliptin"),
			}},
		},
		{
			name:     "open choice from free text",
			itemType: fhir.QuestionnaireItemTypeOpenChoice,
			value:    "other, see notes",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("other, see notes")},
		},
		{
			name:     "quantity",
			itemType: fhir.QuestionnaireItemTypeQuantity,
			value: map[string]interface{}{
				"value": json.Number("50"),
				"unit":  "mg",
			},
			expected: fhir.QuestionnaireResponseItemAnswer{ValueQuantity: &fhir.Quantity{
				Value: to.Ptr(json.Number("50")),
				Unit:  to.Ptr("mg"),
			}},
		},
		{
			name:     "reference from string",
			itemType: fhir.QuestionnaireItemTypeReference,
			value:    "Medication/42",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueReference: &fhir.Reference{
				Reference: to.Ptr("Medication/42"),
			}},
		},
		{
			name:     "reference from object",
			itemType: fhir.QuestionnaireItemTypeReference,
			value: map[string]interface{}{
				"reference": "Medication/42",
				"display":   "Januvia 50mg",
			},
			expected: fhir.QuestionnaireResponseItemAnswer{ValueReference: &fhir.Reference{
				Reference: to.Ptr("Medication/42"),
				Display:   to.Ptr("Januvia 50mg"),
			}},
		},
		{
			name:     "attachment",
			itemType: fhir.QuestionnaireItemTypeAttachment,
			value: map[string]interface{}{
				"contentType": "application/pdf",
				"url":         "https://example.com/leaflet.pdf",
			},
			expected: fhir.QuestionnaireResponseItemAnswer{ValueAttachment: &fhir.Attachment{
				ContentType: to.Ptr("application/pdf"),
				Url:         to.Ptr("https://example.com/leaflet.pdf"),
			}},
		},
		{
			name:     "unlisted item type falls back to a string answer",
			itemType: fhir.QuestionnaireItemTypeQuestion,
			value:    "free form",
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("free form")},
		},
		{
			name:     "fallback stringifies scalars",
			itemType: fhir.QuestionnaireItemTypeQuestion,
			value:    json.Number("42"),
			expected: fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr("42")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := CreateAnswerForType(tt.itemType, tt.value)
			require.NoError(t, err)
			require.NotNil(t, answer)
			assert.Equal(t, tt.expected, *answer)
		})
	}
}

func TestCreateAnswerForType_Mismatch(t *testing.T) {
	tests := []struct {
		name          string
		itemType      fhir.QuestionnaireItemType
		value         interface{}
		errorContains string
	}{
		{
			name:          "boolean item with string value",
			itemType:      fhir.QuestionnaireItemTypeBoolean,
			value:         "yes",
			errorContains: "cannot answer a boolean item with string",
		},
		{
			name:          "string item with boolean value",
			itemType:      fhir.QuestionnaireItemTypeString,
			value:         true,
			errorContains: "cannot answer a string item with bool",
		},
		{
			name:          "integer item with fractional value",
			itemType:      fhir.QuestionnaireItemTypeInteger,
			value:         2.5,
			errorContains: "item with float64",
		},
		{
			name:          "decimal item with unparseable string",
			itemType:      fhir.QuestionnaireItemTypeDecimal,
			value:         "two and a half",
			errorContains: "item with string",
		},
		{
			name:          "unlisted item type with an object value",
			itemType:      fhir.QuestionnaireItemTypeQuestion,
			value:         map[string]interface{}{"nested": true},
			errorContains: "item with map[string]interface {}",
		},
		{
			name:          "quantity item with scalar value",
			itemType:      fhir.QuestionnaireItemTypeQuantity,
			value:         "50 mg",
			errorContains: "item with string",
		},
		{
			name:          "group items take no answer",
			itemType:      fhir.QuestionnaireItemTypeGroup,
			value:         "anything",
			errorContains: "cannot create an answer for item type group",
		},
		{
			name:          "display items take no answer",
			itemType:      fhir.QuestionnaireItemTypeDisplay,
			value:         "anything",
			errorContains: "cannot create an answer for item type display",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := CreateAnswerForType(tt.itemType, tt.value)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.errorContains)
			assert.Nil(t, answer)
		})
	}
}
