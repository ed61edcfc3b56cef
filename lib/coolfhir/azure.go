package coolfhir

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	fhirclient "github.com/SanteonNL/go-fhir-client"
	"golang.org/x/oauth2"
)

// NewAzureFHIRClient creates a FHIR client for an Azure Health Data Services
// FHIR API, authenticating with the given Azure credential.
func NewAzureFHIRClient(fhirBaseURL *url.URL, credential azcore.TokenCredential) fhirclient.Client {
	return fhirclient.New(fhirBaseURL, NewAzureHTTPClient(credential, DefaultAzureScope(fhirBaseURL)), Config())
}

// DefaultAzureScope returns the OAuth2 scope for the FHIR API itself.
func DefaultAzureScope(fhirBaseURL *url.URL) []string {
	return []string{fhirBaseURL.Host + "/.default"}
}

// NewAzureHTTPClient returns an HTTP client that authenticates requests with
// tokens from the Azure credential. Token caching and refresh are handled by
// the oauth2 transport.
func NewAzureHTTPClient(credential azcore.TokenCredential, scopes []string) *http.Client {
	ctx := context.Background()
	return oauth2.NewClient(ctx, azureTokenSource{
		ctx:        ctx,
		credential: credential,
		scopes:     scopes,
		timeout:    10 * time.Second,
	})
}

var _ oauth2.TokenSource = azureTokenSource{}

// azureTokenSource adapts an Azure credential to the oauth2.TokenSource
// interface, which has no context parameter of its own.
type azureTokenSource struct {
	ctx        context.Context
	credential azcore.TokenCredential
	scopes     []string
	timeout    time.Duration
}

func (a azureTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()
	accessToken, err := a.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: a.scopes})
	if err != nil {
		return nil, fmt.Errorf("get OAuth2 token from Azure credential: %w", err)
	}
	return &oauth2.Token{
		AccessToken: accessToken.Token,
		TokenType:   "Bearer",
		Expiry:      accessToken.ExpiresOn,
	}, nil
}
