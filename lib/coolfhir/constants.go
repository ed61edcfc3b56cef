package coolfhir

// FHIRContentType is the content-type for FHIR JSON payloads
const FHIRContentType = "application/fhir+json"

// FHIRXMLContentType is the content-type for FHIR XML payloads
const FHIRXMLContentType = "application/fhir+xml"
