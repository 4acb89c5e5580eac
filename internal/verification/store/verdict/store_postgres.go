package verdict

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"veriterra/internal/verification/models"
	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/sentinel"
)

// PostgresStore persists verdict history in PostgreSQL. The table is
// insert-only; the primary key on (project_id, decided_at) enforces the
// append-only contract at the database level.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed verdict store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the verdicts table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS verdicts (
			project_id         UUID             NOT NULL,
			decided_at         TIMESTAMPTZ      NOT NULL,
			overall_status     TEXT             NOT NULL,
			overall_confidence DOUBLE PRECISION NOT NULL,
			payload            JSONB            NOT NULL,
			PRIMARY KEY (project_id, decided_at)
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate verdicts table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, verdict *models.Verdict) error {
	if verdict == nil {
		return fmt.Errorf("verdict is required")
	}
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	query := `
		INSERT INTO verdicts (project_id, decided_at, overall_status, overall_confidence, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(verdict.ProjectID),
		verdict.DecidedAt,
		string(verdict.OverallStatus),
		verdict.OverallConfidence,
		payload,
	)
	if err != nil {
		return fmt.Errorf("append verdict: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, projectID id.ProjectID) ([]models.Verdict, error) {
	query := `
		SELECT payload
		FROM verdicts
		WHERE project_id = $1
		ORDER BY decided_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(projectID))
	if err != nil {
		return nil, fmt.Errorf("list verdict history: %w", err)
	}
	defer rows.Close()

	var history []models.Verdict
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		var v models.Verdict
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
		history = append(history, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verdict history: %w", err)
	}
	return history, nil
}

func (s *PostgresStore) Latest(ctx context.Context, projectID id.ProjectID) (*models.Verdict, error) {
	query := `
		SELECT payload
		FROM verdicts
		WHERE project_id = $1
		ORDER BY decided_at DESC
		LIMIT 1
	`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(projectID)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get latest verdict: %w", err)
	}
	var v models.Verdict
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	return &v, nil
}
