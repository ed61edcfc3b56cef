//go:generate mockgen -destination=./store_mock.go -package=taskstore -source=store.go

// Package taskstore persists negotiation tasks and the questionnaire artifacts
// exchanged between the negotiating parties. Identifiers are allocated from
// monotonic counters and are never reused, artifacts are append-only, and task
// updates are guarded by a version counter so concurrent writers cannot
// silently overwrite each other.
package taskstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

var ErrTaskNotFound = errors.New("task not found")
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrConcurrentUpdate is returned when a write carries a version that does not
// follow the stored one, meaning another writer got there first.
var ErrConcurrentUpdate = errors.New("task was updated concurrently")

// State is the negotiation state of a task. The zero value is not a valid state.
type State string

const (
	// StateRequested is the initial state: the requester has placed the task,
	// the receiver has not seen it yet.
	StateRequested State = "requested"
	// StateReceived means the receiver has read the task for the first time.
	StateReceived State = "received"
	// StateInProgressRequester means the requester made the latest offer and
	// the receiver is expected to respond.
	StateInProgressRequester State = "in-progress-requester"
	// StateInProgressReceiver means the receiver made the latest offer and the
	// requester is expected to respond.
	StateInProgressReceiver State = "in-progress-receiver"
	// StateAccepted means one party accepted the other's latest offer.
	StateAccepted State = "accepted"
	// StateRejected is terminal: a party withdrew from the negotiation.
	StateRejected State = "rejected"
	// StateCompleted is terminal: the accepted task was closed with a closing document.
	StateCompleted State = "completed"
)

// IsTerminal reports whether no further transitions are allowed from the state.
func (s State) IsTerminal() bool {
	return s == StateRejected || s == StateCompleted
}

// ArtifactType discriminates the payload of an Artifact.
type ArtifactType string

const (
	ArtifactTypeQuestionnaire         ArtifactType = "questionnaire"
	ArtifactTypeQuestionnaireResponse ArtifactType = "questionnaire-response"
)

// Task is a bilateral negotiation between a requester and a receiver about a
// single subject, progressing through offers referenced by ArtifactID.
type Task struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Requester string `json:"requester"`
	Receiver  string `json:"receiver"`
	// Owner is the party that performed the latest negotiation action. While
	// an offer is on the table it is the party that placed it, so the other
	// party is the one expected to respond.
	Owner string `json:"owner"`
	State State  `json:"state"`
	// ArtifactID references the artifact currently under negotiation. A
	// counter-offer replaces it, the superseded artifact stays retrievable.
	ArtifactID   int64        `json:"artifactId"`
	ArtifactType ArtifactType `json:"artifactType"`
	// ClosingDocument is set when the task completes.
	ClosingDocument *ClosingDocument `json:"closingDocument,omitempty"`
	// Version starts at 1 and increments on every update.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClosingDocument carries the credentials the receiver needs to retrieve the
// final document, e.g. an electronic prescription.
type ClosingDocument struct {
	DocumentID string `json:"docId"`
	Password   string `json:"docPw"`
}

// Artifact is one offer in a negotiation: a questionnaire stating what a party
// asks of the other, or a questionnaire response answering one. Artifacts are
// immutable once stored, callers must not modify the returned resources.
type Artifact struct {
	ID            int64                       `json:"id"`
	Type          ArtifactType                `json:"type"`
	Questionnaire *fhir.Questionnaire         `json:"questionnaire,omitempty"`
	Response      *fhir.QuestionnaireResponse `json:"response,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
}

// TaskFilter selects a subset of tasks in ListTasks. The zero value matches all tasks.
type TaskFilter struct {
	// Actor matches tasks where the given party is requester or receiver,
	// accepting both the bare identifier and the Organization/{id} form.
	Actor string
}

// Matches reports whether the task passes the filter.
func (f TaskFilter) Matches(task Task) bool {
	if f.Actor == "" {
		return true
	}
	actor := NormalizeActorID(f.Actor)
	return NormalizeActorID(task.Requester) == actor || NormalizeActorID(task.Receiver) == actor
}

// NormalizeActorID reduces an actor reference to its bare identifier, so that
// "Organization/pharmacy-001" and "pharmacy-001" identify the same party.
func NormalizeActorID(ref string) string {
	return strings.TrimPrefix(ref, "Organization/")
}

// Store persists tasks and artifacts.
type Store interface {
	// AllocateTaskID returns the next task identifier. Identifiers are
	// monotonically increasing and never handed out twice, even when the
	// task they were allocated for is never stored.
	AllocateTaskID(ctx context.Context) (int64, error)
	// AllocateArtifactID returns the next artifact identifier.
	AllocateArtifactID(ctx context.Context) (int64, error)
	// PutTask stores a task. A task with Version 1 is created and must not
	// exist yet, any other version must be exactly one ahead of the stored
	// version. ErrConcurrentUpdate is returned otherwise.
	PutTask(ctx context.Context, task Task) error
	// GetTask returns the task with the given id, or ErrTaskNotFound.
	GetTask(ctx context.Context, id int64) (*Task, error)
	// PutArtifact stores a new artifact. Storing an artifact under an id that
	// already exists returns ErrConcurrentUpdate.
	PutArtifact(ctx context.Context, artifact Artifact) error
	// GetArtifact returns the artifact with the given id, or ErrArtifactNotFound.
	GetArtifact(ctx context.Context, id int64) (*Artifact, error)
	// ListTasks returns the tasks matching the filter, newest first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
}
