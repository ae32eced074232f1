package observability

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
)

// CurrentSchemaVersion defines the trace store schema version for migration
// support.
const CurrentSchemaVersion = 1

// Store persists generation traces to SQLite. It is a capability passed into
// a Provider, never a package-level singleton.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// GenerationRecord is a persisted generation trace.
type GenerationRecord struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Model            string         `json:"model"`
	Input            string         `json:"input"`
	Output           map[string]any `json:"output"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	CostUSD          float64        `json:"cost_usd"`
	LatencyMS        int64          `json:"latency_ms"`
	CreatedAt        time.Time      `json:"created_at"`
}

// OpenStore opens (creating if needed) the trace database at dbPath.
// WAL mode and a busy timeout keep concurrent agent and dashboard access safe.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping trace database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize trace schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, logger: logx.NewLogger("tracestore")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close trace database: %w", err)
	}
	return nil
}

func initializeSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("trace database schema version %d is newer than supported %d", version, CurrentSchemaVersion)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	model             TEXT NOT NULL DEFAULT '',
	input             TEXT NOT NULL DEFAULT '',
	output            TEXT NOT NULL DEFAULT '{}',
	metadata          TEXT,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd          REAL NOT NULL DEFAULT 0,
	latency_ms        INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_name ON generations(name);
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create generations table: %w", err)
	}
	// PRAGMA does not accept bound parameters; the version is a trusted constant.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", CurrentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// InsertGeneration persists one generation record.
func (s *Store) InsertGeneration(rec *GenerationRecord) error {
	outputJSON, err := json.Marshal(rec.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal generation output: %w", err)
	}

	var metadataJSON []byte
	if rec.Metadata != nil {
		metadataJSON, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal generation metadata: %w", err)
		}
	}

	_, err = s.db.Exec(`
INSERT INTO generations (id, name, model, input, output, metadata, prompt_tokens, completion_tokens, cost_usd, latency_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Model, rec.Input, string(outputJSON), nullableString(metadataJSON),
		rec.PromptTokens, rec.CompletionTokens, rec.CostUSD, rec.LatencyMS,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}
	return nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// RecentGenerations returns up to limit generations, newest first, optionally
// filtered by observation name.
func (s *Store) RecentGenerations(name string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, name, model, input, output, metadata, prompt_tokens, completion_tokens, cost_usd, latency_ms, created_at
FROM generations`
	args := []any{}
	if name != "" {
		query += " WHERE name = ?"
		args = append(args, name)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var outputJSON string
		var metadataJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Model, &rec.Input, &outputJSON, &metadataJSON,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.CostUSD, &rec.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}

		if err := json.Unmarshal([]byte(outputJSON), &rec.Output); err != nil {
			s.logger.Warn("corrupt output JSON for generation %s: %v", rec.ID, err)
			rec.Output = map[string]any{"raw": outputJSON}
		}
		if metadataJSON.Valid {
			if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
				s.logger.Warn("corrupt metadata JSON for generation %s: %v", rec.ID, err)
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = ts
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation rows: %w", err)
	}
	return records, nil
}
