package coolfhir

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	fhirclient "github.com/SanteonNL/go-fhir-client"
)

// AzureManagedIdentity authenticates to the FHIR server using the Managed Identity of the Azure environment.
const AzureManagedIdentity = "azure-managedidentity"

const azureMaxResponseSize = 10 * 1024 * 1024

// FHIRRoundTripperConfig holds the configuration for connecting to a FHIR server.
type FHIRRoundTripperConfig struct {
	// BaseURL is the base URL of the FHIR server to connect to.
	BaseURL string `koanf:"url"`
	// Auth is the authentication configuration for the FHIR server.
	Auth FHIRAuthConfig `koanf:"auth"`
}

type FHIRAuthConfig struct {
	// Type of authentication to use, supported options: azure-managedidentity.
	// Leave empty for no authentication.
	Type string `koanf:"type"`
}

// NewFHIRAuthRoundTripper creates an HTTP RoundTripper and FHIR client for the configured FHIR server,
// authenticating according to the configured authentication type.
func NewFHIRAuthRoundTripper(config FHIRRoundTripperConfig, fhirClientConfig *fhirclient.Config) (http.RoundTripper, fhirclient.Client, error) {
	fhirURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid FHIR base URL: %w", err)
	}
	switch config.Auth.Type {
	case AzureManagedIdentity:
		credential, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to create Azure credential: %w", err)
		}
		// Azure FHIR caps response sizes, so the client needs a matching limit.
		fhirClientConfig.MaxResponseSize = azureMaxResponseSize
		httpClient := NewAzureHTTPClient(credential, DefaultAzureScope(fhirURL))
		return httpClient.Transport, fhirclient.New(fhirURL, httpClient, fhirClientConfig), nil
	case "":
		return http.DefaultTransport, fhirclient.New(fhirURL, http.DefaultClient, fhirClientConfig), nil
	default:
		return nil, nil, fmt.Errorf("invalid FHIR authentication type: %s", config.Auth.Type)
	}
}
