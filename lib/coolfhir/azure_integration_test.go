package coolfhir

import (
	"net/url"
	"os"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/stretchr/testify/require"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

func TestAzure_Integration(t *testing.T) {
	t.Skip("Needs an Azure FHIR service and credentials, run manually")
	os.Setenv("AZURE_TENANT_ID", "")
	os.Setenv("AZURE_CLIENT_ID", "")
	os.Setenv("AZURE_CLIENT_SECRET", "")
	fhirBaseURL, _ := url.Parse("https://(...).fhir.azurehealthcareapis.com/")

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	require.NoError(t, err)
	fhirClient := NewAzureFHIRClient(fhirBaseURL, credential)

	var task = fhir.Task{Intent: "order", Status: fhir.TaskStatusRequested}
	err = fhirClient.Create(task, &task)
	require.NoError(t, err)

	var actual fhir.Task
	err = fhirClient.Read("Task/"+*task.Id, &actual)

	require.NoError(t, err)
	require.NotEmpty(t, actual.Id)
}
