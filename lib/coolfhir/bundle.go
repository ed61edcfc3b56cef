package coolfhir

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// BundleBuilder collects resources into a FHIR Bundle.
type BundleBuilder fhir.Bundle

// SearchSet returns a builder for a searchset Bundle, as returned by FHIR search operations.
func SearchSet() *BundleBuilder {
	return &BundleBuilder{
		Type: fhir.BundleTypeSearchset,
	}
}

// Append marshals the resource and adds it to the bundle. Resources that fail to marshal are skipped.
func (b *BundleBuilder) Append(resource interface{}, request *fhir.BundleEntryRequest, response *fhir.BundleEntryResponse, opts ...BundleEntryOption) *BundleBuilder {
	data, err := json.Marshal(resource)
	if err != nil {
		return b
	}
	entry := fhir.BundleEntry{
		Resource: data,
		Request:  request,
		Response: response,
	}
	return b.AppendEntry(entry, opts...)
}

func (b *BundleBuilder) AppendEntry(entry fhir.BundleEntry, opts ...BundleEntryOption) *BundleBuilder {
	for _, opt := range opts {
		opt(&entry)
	}
	b.Entry = append(b.Entry, entry)
	return b
}

// Bundle returns the collected bundle. For searchsets, Bundle.total is set to the number of entries.
func (b *BundleBuilder) Bundle() fhir.Bundle {
	result := fhir.Bundle(*b)
	if result.Type == fhir.BundleTypeSearchset {
		result.Total = to.Ptr(len(b.Entry))
	}
	return result
}

// BundleEntryOption modifies a bundle entry before it is appended.
type BundleEntryOption func(entry *fhir.BundleEntry)

// WithFullUrl sets the entry's fullUrl. An empty string leaves the fullUrl absent.
func WithFullUrl(fullUrl string) BundleEntryOption {
	return func(entry *fhir.BundleEntry) {
		entry.FullUrl = to.NilString(fullUrl)
	}
}

// Resource captures the identifying fields every FHIR resource carries,
// so bundle entries can be filtered without unmarshaling the full resource.
type Resource struct {
	Type string `json:"resourceType"`
	ID   string `json:"id"`
}

// EntryIsOfType matches bundle entries holding a resource of the given type.
func EntryIsOfType(resourceType string) func(entry fhir.BundleEntry) bool {
	return FilterResource(func(res Resource) bool {
		return res.Type == resourceType
	})
}

// EntryHasID matches bundle entries by resource ID. The ID may be given as a
// bare ID or as a local reference (e.g. Task/12).
func EntryHasID(id string) func(entry fhir.BundleEntry) bool {
	return FilterResource(func(res Resource) bool {
		id = strings.TrimPrefix(id, res.Type+"/")
		return res.ID == id
	})
}

// FilterResource adapts a predicate on Resource into a bundle entry filter.
// Entries whose resource cannot be unmarshaled never match.
func FilterResource(fn func(resource Resource) bool) func(entry fhir.BundleEntry) bool {
	return func(entry fhir.BundleEntry) bool {
		var res Resource
		if err := json.Unmarshal(entry.Resource, &res); err != nil {
			return false
		}
		return fn(res)
	}
}

// ResourceInBundle unmarshals the first entry matching the filter into result,
// which must be a FHIR resource type matching the entry's resourceType.
// If no entry matches, ErrEntryNotFound is returned.
func ResourceInBundle(bundle *fhir.Bundle, filter func(entry fhir.BundleEntry) bool, result interface{}) error {
	resourceType := ResourceType(result)
	if resourceType == "" {
		return fmt.Errorf("cannot determine the resource type of %T", result)
	}
	for _, entry := range bundle.Entry {
		var resource Resource
		if json.Unmarshal(entry.Resource, &resource) != nil {
			continue
		}
		if filter(entry) && resource.Type == resourceType {
			if err := json.Unmarshal(entry.Resource, result); err != nil {
				return fmt.Errorf("unmarshal Bundle entry (target=%T): %w", result, err)
			}
			return nil
		}
	}
	return ErrEntryNotFound
}
