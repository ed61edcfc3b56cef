// Package negotiation implements bilateral, asynchronous negotiations between
// healthcare parties, such as a pharmacy requesting a prescription from a
// physician. Parties exchange offers as FHIR Questionnaires and
// QuestionnaireResponses attached to a Task, until one side accepts, rejects
// or the accepted task is closed with a closing document.
package negotiation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SanteonNL/medex/negotiator/events"
	"github.com/SanteonNL/medex/negotiator/lib/coolfhir"
	"github.com/SanteonNL/medex/negotiator/lib/logging"
	lib_otel "github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/negotiation/taskstore"
	"github.com/SanteonNL/medex/negotiator/sdc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const basePath = "/fhir"
const tracerName = "negotiation"

// actorHeader carries the identity of the calling party. The negotiator trusts
// the deployment's ingress to authenticate callers and set this header.
const actorHeader = "X-Actor-Id"

const taskLockStripes = 64

// ContextBundleSource supplies the patient context bundle used to pre-fill
// questionnaires when the caller does not provide one.
type ContextBundleSource interface {
	ContextBundle(ctx context.Context, subject string) (map[string]interface{}, error)
}

type Config struct {
	Enabled bool `koanf:"enabled"`
	// Questionnaires configures where questionnaires referenced by URL are
	// loaded from. When no FHIR API is configured, parties can only open
	// negotiations with an inline questionnaire.
	Questionnaires QuestionnairesConfig `koanf:"questionnaires"`
}

type QuestionnairesConfig struct {
	// FHIR holds the configuration of the FHIR API that serves questionnaires.
	FHIR coolfhir.FHIRRoundTripperConfig `koanf:"fhir"`
	// CacheTTL determines how long a loaded questionnaire is served from cache.
	CacheTTL time.Duration `koanf:"cachettl"`
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Questionnaires: QuestionnairesConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// Service orchestrates negotiations: it owns the task store, enforces the
// state machine and publishes task updates to the event manager.
type Service struct {
	config         Config
	store          taskstore.Store
	eventManager   events.Manager
	populator      *sdc.Engine
	contextSource  ContextBundleSource
	questionnaires sdc.QuestionnaireLoader
	tracer         trace.Tracer
	nowFunc        func() time.Time
	taskLocks      [taskLockStripes]sync.Mutex
}

// New creates the negotiation service. contextSource may be nil, in which case
// questionnaire population requires the caller to provide a context bundle.
// questionnaireLoader may be nil, in which case opening a negotiation requires
// an inline questionnaire.
func New(config Config, store taskstore.Store, eventManager events.Manager, contextSource ContextBundleSource, questionnaireLoader sdc.QuestionnaireLoader) *Service {
	return &Service{
		config:         config,
		store:          store,
		eventManager:   eventManager,
		populator:      sdc.NewEngine(),
		contextSource:  contextSource,
		questionnaires: questionnaireLoader,
		tracer:         otel.Tracer(tracerName),
		nowFunc:        time.Now,
	}
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	tracer := otel.Tracer(tracerName)
	mux.HandleFunc("POST "+basePath+"/Task", lib_otel.HandlerWithTracing(tracer, "Negotiator/CreateTask", s.handleCreateTask))
	mux.HandleFunc("GET "+basePath+"/Task", lib_otel.HandlerWithTracing(tracer, "Negotiator/ListTasks", s.handleListTasks))
	mux.HandleFunc("GET "+basePath+"/Task/{id}", lib_otel.HandlerWithTracing(tracer, "Negotiator/GetTask", s.handleGetTask))
	mux.HandleFunc("POST "+basePath+"/Task/{id}/$counter-offer", lib_otel.HandlerWithTracing(tracer, "Negotiator/CounterOfferTask", s.handleCounterOfferTask))
	mux.HandleFunc("POST "+basePath+"/Task/{id}/$accept", lib_otel.HandlerWithTracing(tracer, "Negotiator/AcceptTask", s.handleAcceptTask))
	mux.HandleFunc("POST "+basePath+"/Task/{id}/$reject", lib_otel.HandlerWithTracing(tracer, "Negotiator/RejectTask", s.handleRejectTask))
	mux.HandleFunc("POST "+basePath+"/Task/{id}/$close", lib_otel.HandlerWithTracing(tracer, "Negotiator/CloseTask", s.handleCloseTask))
	mux.HandleFunc("GET "+basePath+"/Questionnaire/{id}", lib_otel.HandlerWithTracing(tracer, "Negotiator/GetQuestionnaire", s.handleGetQuestionnaire))
	mux.HandleFunc("GET "+basePath+"/QuestionnaireResponse/{id}", lib_otel.HandlerWithTracing(tracer, "Negotiator/GetQuestionnaireResponse", s.handleGetQuestionnaireResponse))
	mux.HandleFunc("POST "+basePath+"/Questionnaire/{id}/$populate", lib_otel.HandlerWithTracing(tracer, "Negotiator/PopulateQuestionnaire", s.handlePopulateQuestionnaire))
}

func (s *Service) now() time.Time {
	return s.nowFunc().UTC()
}

func (s *Service) lockFor(taskID int64) *sync.Mutex {
	return &s.taskLocks[uint64(taskID)%taskLockStripes]
}

// roleOf returns the actor's side of the task. Both the bare identifier and
// the Organization/{id} form name the same party.
func (s *Service) roleOf(task *taskstore.Task, actor string) (Role, error) {
	switch taskstore.NormalizeActorID(actor) {
	case taskstore.NormalizeActorID(task.Requester):
		return RoleRequester, nil
	case taskstore.NormalizeActorID(task.Receiver):
		return RoleReceiver, nil
	}
	return 0, errorNotAParty(task.ID, actor)
}

// partyReference returns the task's stored reference for the given role, so
// the owner field keeps one canonical spelling per party regardless of how
// callers identify themselves.
func partyReference(task *taskstore.Task, role Role) string {
	if role == RoleRequester {
		return task.Requester
	}
	return task.Receiver
}

// applyTransition is the shared write path of all negotiation actions: it
// locks the task, checks the actor and the state machine, applies the change
// to a copy and stores it. The stored task is only modified when every guard
// passed, a failed action leaves it untouched.
func (s *Service) applyTransition(ctx context.Context, actor string, taskID int64, trigger Trigger, prepare func(task *taskstore.Task, role Role) error) (*taskstore.Task, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}
	lock := s.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()
	return s.applyTransitionLocked(ctx, actor, taskID, trigger, prepare)
}

// applyTransitionLocked requires the task's lock to be held by the caller.
func (s *Service) applyTransitionLocked(ctx context.Context, actor string, taskID int64, trigger Trigger, prepare func(task *taskstore.Task, role Role) error) (*taskstore.Task, error) {
	span := trace.SpanFromContext(ctx)
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	role, err := s.roleOf(task, actor)
	if err != nil {
		return nil, err
	}
	next, ok := transition(task.State, trigger, role)
	if !ok {
		span.AddEvent(lib_otel.TaskTransitionFailed)
		return nil, InvalidTransitionError{State: task.State, Trigger: trigger}
	}
	updated := *task
	updated.State = next
	updated.Owner = partyReference(task, role)
	if prepare != nil {
		if err := prepare(&updated, role); err != nil {
			return nil, err
		}
	}
	updated.Version++
	updated.UpdatedAt = s.now()
	if err := s.store.PutTask(ctx, updated); err != nil {
		span.AddEvent(lib_otel.TaskStoreWriteFailed)
		return nil, err
	}
	span.AddEvent(lib_otel.TaskTransition)
	slog.InfoContext(ctx, "Task transitioned",
		slog.String(logging.FieldTaskID, strconv.FormatInt(updated.ID, 10)),
		slog.String(logging.FieldTaskState, string(updated.State)),
		slog.String(logging.FieldActorID, taskstore.NormalizeActorID(actor)))
	s.notifyTaskUpdated(ctx, updated, actor, trigger)
	return &updated, nil
}

// storeOffer allocates an identifier for the offer and stores it as an artifact.
func (s *Service) storeOffer(ctx context.Context, offer Offer) (*taskstore.Artifact, error) {
	artifactType, err := offer.artifactType()
	if err != nil {
		return nil, err
	}
	id, err := s.store.AllocateArtifactID(ctx)
	if err != nil {
		return nil, err
	}
	artifact := taskstore.Artifact{
		ID:            id,
		Type:          artifactType,
		Questionnaire: offer.Questionnaire,
		Response:      offer.Response,
		CreatedAt:     s.now(),
	}
	if err := s.store.PutArtifact(ctx, artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (s *Service) notifyTaskUpdated(ctx context.Context, task taskstore.Task, actor string, trigger Trigger) {
	if s.eventManager == nil {
		return
	}
	event := TaskUpdatedEvent{Task: task, Actor: actor, Trigger: trigger}
	if err := s.eventManager.Notify(ctx, event); err != nil {
		// Notification is best-effort: a failing subscriber must not fail the
		// negotiation action itself.
		slog.WarnContext(ctx, "Task update event delivery failed",
			slog.String(logging.FieldTaskID, strconv.FormatInt(task.ID, 10)),
			slog.String(logging.FieldError, err.Error()))
	}
}

// writeError renders an error as an OperationOutcome with the HTTP status its
// class maps to: 404 for unknown tasks and artifacts, 400 for missing actors
// and disallowed operations, 409 for concurrent updates, 500 otherwise.
func writeError(ctx context.Context, err error, desc string, httpResponse http.ResponseWriter) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, taskstore.ErrTaskNotFound), errors.Is(err, taskstore.ErrArtifactNotFound), errors.Is(err, sdc.ErrQuestionnaireNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, ErrMissingActor), errors.Is(err, ErrInvalidOperation):
		statusCode = http.StatusBadRequest
	case errors.Is(err, taskstore.ErrConcurrentUpdate):
		statusCode = http.StatusConflict
	}
	coolfhir.WriteOperationOutcomeFromError(ctx, coolfhir.NewErrorWithCode(err.Error(), statusCode), desc, httpResponse)
}

// requestActor returns the calling party, from the request header or, for
// clients that cannot set headers, from the _actor query parameter.
func requestActor(request *http.Request) string {
	if actor := request.Header.Get(actorHeader); actor != "" {
		return actor
	}
	return request.URL.Query().Get("_actor")
}

func taskIDFromRequest(request *http.Request) (int64, error) {
	id, err := strconv.ParseInt(request.PathValue("id"), 10, 64)
	if err != nil {
		return 0, taskstore.ErrTaskNotFound
	}
	return id, nil
}

func artifactIDFromRequest(request *http.Request) (int64, error) {
	id, err := strconv.ParseInt(request.PathValue("id"), 10, 64)
	if err != nil {
		return 0, taskstore.ErrArtifactNotFound
	}
	return id, nil
}
