package deep

import "encoding/json"

// Copy returns a deep copy of src through a JSON round-trip. The type must
// survive JSON marshaling, which holds for FHIR model types and the store
// records built from them.
func Copy[T any](src T) T {
	var dst T
	bytes, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	err = json.Unmarshal(bytes, &dst)
	if err != nil {
		panic(err)
	}
	return dst
}
