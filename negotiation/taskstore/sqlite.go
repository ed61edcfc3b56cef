package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

var _ Store = &SQLiteStore{}

// SQLiteStore is a Store backed by a SQLite database file, for deployments
// that need tasks to survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the SQLite database at the given path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS negotiation_counters (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`INSERT OR IGNORE INTO negotiation_counters(name, value) VALUES ('task', 0), ('artifact', 0);`,
		`CREATE TABLE IF NOT EXISTS negotiation_tasks (
			id               INTEGER PRIMARY KEY,
			kind             TEXT NOT NULL,
			requester        TEXT NOT NULL,
			receiver         TEXT NOT NULL,
			owner            TEXT NOT NULL,
			state            TEXT NOT NULL,
			artifact_id      INTEGER NOT NULL,
			artifact_type    TEXT NOT NULL,
			closing_document TEXT,
			version          INTEGER NOT NULL,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS negotiation_artifacts (
			id         INTEGER PRIMARY KEY,
			type       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) AllocateTaskID(ctx context.Context) (int64, error) {
	return s.allocate(ctx, "task")
}

func (s *SQLiteStore) AllocateArtifactID(ctx context.Context) (int64, error) {
	return s.allocate(ctx, "artifact")
}

func (s *SQLiteStore) allocate(ctx context.Context, counter string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE negotiation_counters SET value = value + 1 WHERE name = ?`, counter); err != nil {
		return 0, err
	}
	var value int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM negotiation_counters WHERE name = ?`, counter).Scan(&value); err != nil {
		return 0, err
	}
	return value, tx.Commit()
}

func (s *SQLiteStore) PutTask(ctx context.Context, task Task) error {
	var closingDocument any
	if task.ClosingDocument != nil {
		data, err := json.Marshal(task.ClosingDocument)
		if err != nil {
			return fmt.Errorf("marshal closing document: %w", err)
		}
		closingDocument = string(data)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var storedVersion int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM negotiation_tasks WHERE id = ?`, task.ID).Scan(&storedVersion)
	switch {
	case err == sql.ErrNoRows:
		if task.Version != 1 {
			return ErrConcurrentUpdate
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO negotiation_tasks(id, kind, requester, receiver, owner, state, artifact_id, artifact_type, closing_document, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Kind, task.Requester, task.Receiver, task.Owner, string(task.State),
			task.ArtifactID, string(task.ArtifactType), closingDocument, task.Version,
			task.CreatedAt.UnixNano(), task.UpdatedAt.UnixNano())
	case err == nil:
		if task.Version != storedVersion+1 {
			return ErrConcurrentUpdate
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE negotiation_tasks
			 SET kind = ?, requester = ?, receiver = ?, owner = ?, state = ?, artifact_id = ?, artifact_type = ?, closing_document = ?, version = ?, updated_at = ?
			 WHERE id = ?`,
			task.Kind, task.Requester, task.Receiver, task.Owner, string(task.State),
			task.ArtifactID, string(task.ArtifactType), closingDocument, task.Version,
			task.UpdatedAt.UnixNano(), task.ID)
	default:
		return err
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, requester, receiver, owner, state, artifact_id, artifact_type, closing_document, version, created_at, updated_at
		 FROM negotiation_tasks WHERE id = ?`, id)
	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, requester, receiver, owner, state, artifact_id, artifact_type, closing_document, version, created_at, updated_at
		 FROM negotiation_tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		if filter.Matches(*task) {
			result = append(result, *task)
		}
	}
	return result, rows.Err()
}

func scanTask(scan func(dest ...any) error) (*Task, error) {
	var task Task
	var state, artifactType string
	var closingDocument sql.NullString
	var createdAt, updatedAt int64
	err := scan(&task.ID, &task.Kind, &task.Requester, &task.Receiver, &task.Owner, &state,
		&task.ArtifactID, &artifactType, &closingDocument, &task.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	task.State = State(state)
	task.ArtifactType = ArtifactType(artifactType)
	task.CreatedAt = time.Unix(0, createdAt).UTC()
	task.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if closingDocument.Valid {
		task.ClosingDocument = &ClosingDocument{}
		if err := json.Unmarshal([]byte(closingDocument.String), task.ClosingDocument); err != nil {
			return nil, fmt.Errorf("unmarshal closing document: %w", err)
		}
	}
	return &task, nil
}

func (s *SQLiteStore) PutArtifact(ctx context.Context, artifact Artifact) error {
	var content []byte
	var err error
	switch artifact.Type {
	case ArtifactTypeQuestionnaire:
		content, err = json.Marshal(artifact.Questionnaire)
	case ArtifactTypeQuestionnaireResponse:
		content, err = json.Marshal(artifact.Response)
	default:
		return fmt.Errorf("unknown artifact type: %s", artifact.Type)
	}
	if err != nil {
		return fmt.Errorf("marshal artifact content: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM negotiation_artifacts WHERE id = ?)`, artifact.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrConcurrentUpdate
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO negotiation_artifacts(id, type, content, created_at) VALUES (?, ?, ?, ?)`,
		artifact.ID, string(artifact.Type), string(content), artifact.CreatedAt.UnixNano())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, id int64) (*Artifact, error) {
	var artifact Artifact
	var artifactType, content string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `SELECT id, type, content, created_at FROM negotiation_artifacts WHERE id = ?`, id).
		Scan(&artifact.ID, &artifactType, &content, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	artifact.Type = ArtifactType(artifactType)
	artifact.CreatedAt = time.Unix(0, createdAt).UTC()
	switch artifact.Type {
	case ArtifactTypeQuestionnaire:
		artifact.Questionnaire = &fhir.Questionnaire{}
		err = json.Unmarshal([]byte(content), artifact.Questionnaire)
	case ArtifactTypeQuestionnaireResponse:
		artifact.Response = &fhir.QuestionnaireResponse{}
		err = json.Unmarshal([]byte(content), artifact.Response)
	default:
		return nil, fmt.Errorf("unknown artifact type: %s", artifact.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal artifact content: %w", err)
	}
	return &artifact, nil
}
