package fhirxml

import (
	"encoding/json"
	"testing"

	"github.com/SanteonNL/medex/negotiator/lib/fhirpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientXML = `<Patient xmlns="http://hl7.org/fhir">
  <id value="patient-001"/>
  <text>
    <status value="generated"/>
    <div xmlns="http://www.w3.org/1999/xhtml"><p>Sarah Jansen</p></div>
  </text>
  <extension url="http://example.org/fhir/StructureDefinition/preferred-pharmacy">
    <valueReference>
      <reference value="Organization/pharmacy-001"/>
    </valueReference>
  </extension>
  <active value="true"/>
  <name>
    <use value="official"/>
    <family value="Jansen"/>
    <given value="Sarah"/>
    <given value="Louise"/>
  </name>
  <telecom>
    <system value="phone"/>
    <value value="0301234567"/>
  </telecom>
  <multipleBirthInteger value="2"/>
</Patient>`

const bundleXML = `<Bundle xmlns="http://hl7.org/fhir">
  <type value="collection"/>
  <entry>
    <resource>
      <Medication>
        <code>
          <text value="Januvia 50mg"/>
        </code>
      </Medication>
    </resource>
  </entry>
  <entry>
    <resource>
      <Observation>
        <status value="final"/>
        <valueQuantity>
          <value value="6.3"/>
          <unit value="mmol/L"/>
        </valueQuantity>
      </Observation>
    </resource>
  </entry>
</Bundle>`

func TestUnmarshal_Patient(t *testing.T) {
	patient, err := Unmarshal([]byte(patientXML))
	require.NoError(t, err)

	assert.Equal(t, "Patient", patient["resourceType"])
	assert.Equal(t, "patient-001", patient["id"])
	assert.Equal(t, true, patient["active"])

	name, ok := patient["name"].(map[string]interface{})
	require.True(t, ok, "single name element should convert to an object")
	assert.Equal(t, "official", name["use"])
	assert.Equal(t, "Jansen", name["family"])
	assert.Equal(t, []interface{}{"Sarah", "Louise"}, name["given"])

	telecom, ok := patient["telecom"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "0301234567", telecom["value"], "ContactPoint.value must stay a string")

	assert.Equal(t, json.Number("2"), patient["multipleBirthInteger"])

	extension, ok := patient["extension"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "http://example.org/fhir/StructureDefinition/preferred-pharmacy", extension["url"])
	valueReference, ok := extension["valueReference"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Organization/pharmacy-001", valueReference["reference"])

	text, ok := patient["text"].(map[string]interface{})
	require.True(t, ok)
	div, ok := text["div"].(string)
	require.True(t, ok)
	assert.Contains(t, div, "<p>Sarah Jansen</p>")
}

func TestUnmarshal_Bundle(t *testing.T) {
	bundle, err := Unmarshal([]byte(bundleXML))
	require.NoError(t, err)

	assert.Equal(t, "Bundle", bundle["resourceType"])
	assert.Equal(t, "collection", bundle["type"])

	entries, ok := bundle["entry"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)

	medication := entries[0].(map[string]interface{})["resource"].(map[string]interface{})
	assert.Equal(t, "Medication", medication["resourceType"])
	observation := entries[1].(map[string]interface{})["resource"].(map[string]interface{})
	assert.Equal(t, "Observation", observation["resourceType"])
	valueQuantity := observation["valueQuantity"].(map[string]interface{})
	assert.Equal(t, json.Number("6.3"), valueQuantity["value"])
	assert.Equal(t, "mmol/L", valueQuantity["unit"])
}

func TestUnmarshal_FHIRPathOverConvertedBundle(t *testing.T) {
	bundle, err := Unmarshal([]byte(bundleXML))
	require.NoError(t, err)

	result, err := fhirpath.Evaluate(bundle, "Medication.code.text", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Januvia 50mg"}, result)

	result, err = fhirpath.Evaluate(bundle, "Observation.valueQuantity.value = 6.3", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true}, result)
}

func TestUnmarshal_Invalid(t *testing.T) {
	t.Run("malformed XML", func(t *testing.T) {
		_, err := Unmarshal([]byte(`<Patient><id value="x"`))
		require.Error(t, err)
	})
	t.Run("empty document", func(t *testing.T) {
		_, err := Unmarshal([]byte(""))
		require.ErrorIs(t, err, ErrNoRootElement)
	})
}
