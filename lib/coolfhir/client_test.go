package coolfhir

import (
	"net/http"
	"net/http/httptest"
	"testing"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/SanteonNL/medex/negotiator/lib/must"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("requests specify cache-control: no-cache header", func(t *testing.T) {
		receivedHeaders := make(chan http.Header, 1)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedHeaders <- r.Header
			w.Header().Set("Content-Type", "application/fhir+json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"resourceType": "Task"}`))
		}))
		defer ts.Close()

		client := fhirclient.New(must.ParseURL(ts.URL), http.DefaultClient, Config())

		var target any
		err := client.Read("Task/12", &target)
		require.NoError(t, err)

		headers := <-receivedHeaders
		require.Equal(t, []string{"no-cache"}, headers.Values("Cache-Control"))
	})
}
