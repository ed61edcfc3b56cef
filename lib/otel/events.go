package otel

// Span event names. Failures that leave the operation intact, like a single
// questionnaire item that cannot be populated, are recorded as span events
// instead of span status.
const (
	TaskStoreWrite       = "task_store.write"
	TaskStoreWriteFailed = "task_store.write.failed"

	TaskTransition       = "task.transition"
	TaskTransitionFailed = "task.transition.failed"

	PopulationEvaluate           = "population.evaluate"
	PopulationEvaluateItemFailed = "population.evaluate.item_failed"
	PopulationComplete           = "population.complete"

	NotificationDeliver       = "notification.deliver"
	NotificationDeliverFailed = "notification.deliver.failed"

	RequestReadingBody       = "request.reading_body"
	RequestReadingBodyFailed = "request.reading_body.failed"
)
