package coolfhir

import (
	"encoding/json"
	"errors"
	"reflect"
)

var ErrEntryNotFound = errors.New("entry not found in FHIR Bundle")

// ResourceType derives the FHIR resource type from the given resource.
// For typed resources (e.g. fhir.Task) the Go type name is used, for raw JSON
// the resourceType property is read. It returns an empty string if the type can't be derived.
func ResourceType(resource interface{}) string {
	switch data := resource.(type) {
	case json.RawMessage:
		return rawResourceType(data)
	case []byte:
		return rawResourceType(data)
	}
	t := reflect.TypeOf(resource)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}
	return t.Name()
}

func rawResourceType(data []byte) string {
	var resource Resource
	if err := json.Unmarshal(data, &resource); err != nil {
		return ""
	}
	return resource.Type
}
