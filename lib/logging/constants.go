package logging

// Slog field keys shared across packages, so log aggregation sees one name per concept.
const (
	FieldActorID    = "actor_id"
	FieldError      = "error"
	FieldExpression = "expression"
	FieldLinkID     = "link_id"
	FieldTaskID     = "task_id"
	FieldTaskState  = "task_state"
)
