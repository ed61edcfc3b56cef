// Package fhirxml converts FHIR XML resources into the JSON object model
// (map[string]interface{} trees) used by FHIRPath evaluation.
//
// The conversion is schema-less, so primitive typing is heuristic: literal
// "true"/"false" become booleans, and values of elements whose name carries a
// numeric FHIR type suffix (valueInteger, valueDecimal and friends) become
// json.Number. Single-element XML lists come out as scalars rather than
// one-element arrays, which FHIRPath navigation treats identically.
package fhirxml

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoRootElement is returned when the document contains no resource element.
var ErrNoRootElement = errors.New("FHIR XML document has no root element")

// Unmarshal parses a FHIR XML resource into the JSON object model. The root
// element's tag becomes the resourceType.
func Unmarshal(data []byte) (map[string]interface{}, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRootElement
	}
	return convertResource(root), nil
}

func convertResource(el *etree.Element) map[string]interface{} {
	resource := convertElement(el)
	resource["resourceType"] = el.Tag
	return resource
}

func convertElement(el *etree.Element) map[string]interface{} {
	result := map[string]interface{}{}
	for _, attr := range el.Attr {
		// Extensions carry their canonical URL as an attribute, elements may carry an id.
		if attr.Space == "" && (attr.Key == "url" || attr.Key == "id") {
			result[attr.Key] = attr.Value
		}
	}
	for _, child := range el.ChildElements() {
		appendField(result, child.Tag, convertChild(child))
	}
	return result
}

func convertChild(el *etree.Element) interface{} {
	if el.Tag == "div" {
		return renderNarrative(el)
	}
	children := el.ChildElements()
	if len(children) == 1 && isResourceTag(children[0].Tag) {
		// Wrapper elements such as Bundle.entry.resource and contained hold
		// a single inline resource.
		return convertResource(children[0])
	}
	if value := el.SelectAttrValue("value", ""); value != "" {
		// Extensions on primitives (the JSON underscore properties) are dropped.
		return convertPrimitive(el.Tag, value)
	}
	return convertElement(el)
}

func convertPrimitive(tag, value string) interface{} {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if isNumericElement(tag, value) {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return json.Number(value)
		}
	}
	return value
}

// isNumericElement reports whether the element's value should be a JSON number.
// FHIR polymorphic element names encode the type (valueDecimal, valueInteger),
// the bare Quantity.value field is recognized by its decimal point so that
// string-valued "value" fields such as ContactPoint.value stay strings.
func isNumericElement(tag, value string) bool {
	for _, suffix := range []string{"Integer", "Decimal", "Count", "PositiveInt", "UnsignedInt"} {
		if strings.HasSuffix(tag, suffix) {
			return true
		}
	}
	return tag == "value" && strings.Contains(value, ".")
}

func isResourceTag(tag string) bool {
	return len(tag) > 0 && tag[0] >= 'A' && tag[0] <= 'Z'
}

// renderNarrative serializes a narrative div back to its XHTML source string,
// matching how FHIR JSON carries Narrative.div.
func renderNarrative(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	text, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func appendField(result map[string]interface{}, name string, value interface{}) {
	existing, ok := result[name]
	if !ok {
		result[name] = value
		return
	}
	if array, ok := existing.([]interface{}); ok {
		result[name] = append(array, value)
		return
	}
	result[name] = []interface{}{existing, value}
}
