//go:build slowtests

package sdc

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/test"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestFhirApiQuestionnaireLoader_Integration(t *testing.T) {
	fhirBaseURL := test.SetupHAPI(t)
	client := fhirclient.New(fhirBaseURL, http.DefaultClient, coolfhir.Config())

	questionnaire := fhir.Questionnaire{
		Url:    to.Ptr("https://forms.example.com/medication-request"),
		Status: fhir.PublicationStatusActive,
		Item: []fhir.QuestionnaireItem{
			{
				LinkId: "medication",
				Type:   fhir.QuestionnaireItemTypeString,
			},
		},
	}
	var created fhir.Questionnaire
	require.NoError(t, client.CreateWithContext(context.Background(), questionnaire, &created))
	require.NotNil(t, created.Id)

	loader := NewCachingQuestionnaireLoader(NewFhirApiQuestionnaireLoader(client), time.Minute)

	t.Run("literal reference", func(t *testing.T) {
		loaded, err := loader.Load(context.Background(), "Questionnaire/"+*created.Id)

		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, *questionnaire.Url, *loaded.Url)
	})
	t.Run("search by canonical URL", func(t *testing.T) {
		searchURL := fhirBaseURL.JoinPath("Questionnaire")
		searchURL.RawQuery = url.Values{"url": []string{*questionnaire.Url}}.Encode()

		loaded, err := loader.Load(context.Background(), searchURL.String())

		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, *created.Id, *loaded.Id)
	})
	t.Run("unknown canonical URL", func(t *testing.T) {
		searchURL := fhirBaseURL.JoinPath("Questionnaire")
		searchURL.RawQuery = url.Values{"url": []string{"https://forms.example.com/does-not-exist"}}.Encode()

		_, err := loader.Load(context.Background(), searchURL.String())

		require.EqualError(t, err, "expected 1 questionnaire, got 0")
	})
}
