package otel

// Attribute keys shared by the spans this service produces. Negotiation
// attributes carry the domain identifiers, so traces can be correlated with
// store contents and audit logs.
const (
	HTTPMethod     = "http.method"
	HTTPURL        = "http.url"
	HTTPStatusCode = "http.status_code"
	HTTPStatusText = "http.status_text"

	FHIROperation        = "fhir.operation"
	FHIRResourceType     = "fhir.resource_type"
	FHIRSearchParamCount = "fhir.search.param_count"

	NegotiationTaskID     = "negotiation.task.id"
	NegotiationTaskState  = "negotiation.task.state"
	NegotiationTaskKind   = "negotiation.task.kind"
	NegotiationTaskCount  = "negotiation.task.count"
	NegotiationActorID    = "negotiation.actor.id"
	NegotiationArtifactID = "negotiation.artifact.id"

	PopulationQuestionnaire = "population.questionnaire"
	PopulationItemCount     = "population.item_count"
	PopulationAnswerCount   = "population.answer_count"

	NotificationResourceType = "notification.resource_type"
)
