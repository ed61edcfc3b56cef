package negotiation

import (
	"strconv"
	"strings"
	"time"

	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// FHIRTask renders a negotiation task as a FHIR Task. Task.status carries the
// closest FHIR status code, businessStatus.text the exact negotiation state.
func FHIRTask(task taskstore.Task) fhir.Task {
	result := fhir.Task{
		Id:     to.Ptr(strconv.FormatInt(task.ID, 10)),
		Status: fhirTaskStatus(task.State),
		BusinessStatus: &fhir.CodeableConcept{
			Text: to.Ptr(string(task.State)),
		},
		Intent:       "order",
		Priority:     to.Ptr(fhir.RequestPriorityRoutine),
		Requester:    ActorReference(task.Requester),
		Owner:        ActorReference(task.Owner),
		For:          ActorReference(task.Requester),
		AuthoredOn:   to.Ptr(task.CreatedAt.Format(time.RFC3339)),
		LastModified: to.Ptr(task.UpdatedAt.Format(time.RFC3339)),
	}
	if task.Kind != "" {
		result.Code = &fhir.CodeableConcept{Text: to.Ptr(task.Kind)}
	}
	if task.ArtifactID != 0 {
		result.Input = []fhir.TaskInput{
			{
				Type: fhir.CodeableConcept{Text: to.Ptr(string(task.ArtifactType))},
				ValueReference: &fhir.Reference{
					Reference: to.Ptr(ArtifactResourceType(task.ArtifactType) + "/" + strconv.FormatInt(task.ArtifactID, 10)),
				},
			},
		}
	}
	// The closing document's password is a secret between the parties and is
	// deliberately not rendered.
	if task.ClosingDocument != nil {
		result.Output = []fhir.TaskOutput{
			{
				Type:        fhir.CodeableConcept{Text: to.Ptr("closing-document")},
				ValueString: to.Ptr(task.ClosingDocument.DocumentID),
			},
		}
	}
	return result
}

func fhirTaskStatus(state taskstore.State) fhir.TaskStatus {
	switch state {
	case taskstore.StateRequested:
		return fhir.TaskStatusRequested
	case taskstore.StateReceived:
		return fhir.TaskStatusReceived
	case taskstore.StateInProgressRequester, taskstore.StateInProgressReceiver:
		return fhir.TaskStatusInProgress
	case taskstore.StateAccepted:
		return fhir.TaskStatusAccepted
	case taskstore.StateRejected:
		return fhir.TaskStatusRejected
	case taskstore.StateCompleted:
		return fhir.TaskStatusCompleted
	default:
		return fhir.TaskStatusEnteredInError
	}
}

// ActorReference renders an actor as a FHIR Organization reference. Bare
// identifiers gain the Organization/ prefix, already prefixed references pass
// through unchanged.
func ActorReference(actor string) *fhir.Reference {
	if actor == "" {
		return nil
	}
	if !strings.HasPrefix(actor, "Organization/") {
		actor = "Organization/" + actor
	}
	return &fhir.Reference{
		Reference: to.Ptr(actor),
		Type:      to.Ptr("Organization"),
	}
}

// ArtifactResourceType returns the FHIR resource type an artifact is served as.
func ArtifactResourceType(artifactType taskstore.ArtifactType) string {
	if artifactType == taskstore.ArtifactTypeQuestionnaireResponse {
		return "QuestionnaireResponse"
	}
	return "Questionnaire"
}

// FHIRQuestionnaire renders a questionnaire artifact under its allocated id.
func FHIRQuestionnaire(artifact taskstore.Artifact) *fhir.Questionnaire {
	if artifact.Questionnaire == nil {
		return nil
	}
	result := *artifact.Questionnaire
	result.Id = to.Ptr(strconv.FormatInt(artifact.ID, 10))
	if result.Date == nil {
		result.Date = to.Ptr(artifact.CreatedAt.Format(time.RFC3339))
	}
	return &result
}

// FHIRQuestionnaireResponse renders a response artifact under its allocated id.
func FHIRQuestionnaireResponse(artifact taskstore.Artifact) *fhir.QuestionnaireResponse {
	if artifact.Response == nil {
		return nil
	}
	result := *artifact.Response
	result.Id = to.Ptr(strconv.FormatInt(artifact.ID, 10))
	if result.Authored == nil {
		result.Authored = to.Ptr(artifact.CreatedAt.Format(time.RFC3339))
	}
	return &result
}
