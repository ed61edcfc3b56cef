package sdc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// CreateAnswerForType converts a FHIRPath evaluation result to an answer of
// the item's type. Every answerable kind has its own constructor arm, an item
// type without one takes the value as a string answer. A value that does not
// fit the item's type is an error, which the population engine treats as a
// per-item failure.
func CreateAnswerForType(itemType fhir.QuestionnaireItemType, value interface{}) (*fhir.QuestionnaireResponseItemAnswer, error) {
	switch itemType {
	case fhir.QuestionnaireItemTypeBoolean:
		if b, ok := value.(bool); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueBoolean: to.Ptr(b)}, nil
		}
		if s, ok := value.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return &fhir.QuestionnaireResponseItemAnswer{ValueBoolean: to.Ptr(b)}, nil
			}
		}
	case fhir.QuestionnaireItemTypeDecimal:
		if number, ok := toNumber(value); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueDecimal: &number}, nil
		}
	case fhir.QuestionnaireItemTypeInteger:
		if i, ok := toInt(value); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueInteger: to.Ptr(i)}, nil
		}
	case fhir.QuestionnaireItemTypeDate:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueDate: to.Ptr(s)}, nil
		}
	case fhir.QuestionnaireItemTypeDateTime:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueDateTime: to.Ptr(s)}, nil
		}
	case fhir.QuestionnaireItemTypeTime:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueTime: to.Ptr(s)}, nil
		}
	case fhir.QuestionnaireItemTypeString, fhir.QuestionnaireItemTypeText:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr(s)}, nil
		}
	case fhir.QuestionnaireItemTypeUrl:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueUri: to.Ptr(s)}, nil
		}
	case fhir.QuestionnaireItemTypeChoice, fhir.QuestionnaireItemTypeOpenChoice:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr(s)}, nil
		}
		if coding, err := convertValue[fhir.Coding](value); err == nil {
			return &fhir.QuestionnaireResponseItemAnswer{ValueCoding: coding}, nil
		}
	case fhir.QuestionnaireItemTypeQuantity:
		if quantity, err := convertValue[fhir.Quantity](value); err == nil {
			return &fhir.QuestionnaireResponseItemAnswer{ValueQuantity: quantity}, nil
		}
	case fhir.QuestionnaireItemTypeReference:
		if s, ok := value.(string); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueReference: &fhir.Reference{Reference: to.Ptr(s)}}, nil
		}
		if reference, err := convertValue[fhir.Reference](value); err == nil {
			return &fhir.QuestionnaireResponseItemAnswer{ValueReference: reference}, nil
		}
	case fhir.QuestionnaireItemTypeAttachment:
		if attachment, err := convertValue[fhir.Attachment](value); err == nil {
			return &fhir.QuestionnaireResponseItemAnswer{ValueAttachment: attachment}, nil
		}
	case fhir.QuestionnaireItemTypeGroup, fhir.QuestionnaireItemTypeDisplay:
		// Groups and display items are structural, they never carry answers.
		return nil, fmt.Errorf("cannot create an answer for item type %s", itemType.Code())
	default:
		if s, ok := stringify(value); ok {
			return &fhir.QuestionnaireResponseItemAnswer{ValueString: to.Ptr(s)}, nil
		}
	}
	return nil, fmt.Errorf("cannot answer a %s item with %T", itemType.Code(), value)
}

func toNumber(value interface{}) (json.Number, bool) {
	switch v := value.(type) {
	case json.Number:
		return v, true
	case float64:
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), true
	case int:
		return json.Number(strconv.Itoa(v)), true
	case int64:
		return json.Number(strconv.FormatInt(v, 10)), true
	case string:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return json.Number(v), true
		}
	}
	return "", false
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case json.Number:
		if i, err := strconv.Atoi(v.String()); err == nil {
			return i, true
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}

// stringify renders a scalar as the string answer of the fallback arm.
// Objects and arrays have no string form.
func stringify(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// convertValue converts a decoded JSON value to a FHIR datatype by
// marshalling through JSON. Only maps convert, scalars do not.
func convertValue[T any](value interface{}) (*T, error) {
	if _, ok := value.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("cannot convert %T to a complex FHIR type", value)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
