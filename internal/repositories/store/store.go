package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store is the SQLite audit and query layer of the settlement node. The
// in-memory engine state is authoritative; store failures are surfaced to
// callers but never abort a settlement operation.
type Store struct {
	db  *sql.DB
	log interfaces.ILogger
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	idx             INTEGER PRIMARY KEY,
	address         TEXT NOT NULL UNIQUE,
	client          TEXT NOT NULL,
	freelancer      TEXT NOT NULL,
	asset           TEXT NOT NULL,
	milestones_json TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS credentials (
	token_id        INTEGER PRIMARY KEY,
	owner           TEXT NOT NULL,
	project_address TEXT,
	minted_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	ts              TEXT NOT NULL,
	kind            TEXT NOT NULL,
	project_address TEXT,
	payload_json    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pending_mints (
	project_address TEXT PRIMARY KEY,
	recipient       TEXT NOT NULL,
	failed_at       TEXT NOT NULL,
	error           TEXT NOT NULL
);
`

// Open opens the SQLite database and creates the schema if missing
func Open(path string, log interfaces.ILogger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Project struct {
	Index      int       `json:"index"`
	Address    string    `json:"address"`
	Client     string    `json:"client"`
	Freelancer string    `json:"freelancer"`
	Asset      string    `json:"asset"`
	Milestones []string  `json:"milestones"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Store) InsertProject(ctx context.Context, p Project) error {
	milestones, err := json.Marshal(p.Milestones)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects(idx,address,client,freelancer,asset,milestones_json,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.Index, p.Address, p.Client, p.Freelancer, p.Asset, string(milestones), p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetProject(ctx context.Context, address string) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT idx,address,client,freelancer,asset,milestones_json,created_at FROM projects WHERE address=?`, address)
	return scanProject(row.Scan)
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx,address,client,freelancer,asset,milestones_json,created_at FROM projects ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(scan func(dest ...any) error) (Project, error) {
	var p Project
	var milestones, createdAt string
	err := scan(&p.Index, &p.Address, &p.Client, &p.Freelancer, &p.Asset, &milestones, &createdAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(milestones), &p.Milestones); err != nil {
		return p, err
	}
	p.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	return p, err
}

type EventRecord struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Project   string         `json:"project"`
	Payload   map[string]any `json:"payload"`
}

func (s *Store) AppendEvent(ctx context.Context, id string, ts time.Time, kind, project string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events(id,ts,kind,project_address,payload_json) VALUES (?,?,?,?,?)`,
		id, ts.UTC().Format(time.RFC3339), kind, nullable(project), string(data))
	return err
}

func (s *Store) ListEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,ts,kind,COALESCE(project_address,''),payload_json FROM events ORDER BY ts DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var evt EventRecord
		var ts, payload string
		if err := rows.Scan(&evt.ID, &ts, &evt.Kind, &evt.Project, &payload); err != nil {
			return nil, err
		}
		if evt.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

type Credential struct {
	TokenID  uint64    `json:"tokenId"`
	Owner    string    `json:"owner"`
	Project  string    `json:"project"`
	MintedAt time.Time `json:"mintedAt"`
}

func (s *Store) InsertCredential(ctx context.Context, c Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials(token_id,owner,project_address,minted_at) VALUES (?,?,?,?)`,
		c.TokenID, c.Owner, nullable(c.Project), c.MintedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListCredentials(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token_id,owner,COALESCE(project_address,''),minted_at FROM credentials ORDER BY token_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []Credential
	for rows.Next() {
		var c Credential
		var mintedAt string
		if err := rows.Scan(&c.TokenID, &c.Owner, &c.Project, &mintedAt); err != nil {
			return nil, err
		}
		if c.MintedAt, err = time.Parse(time.RFC3339, mintedAt); err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}
	return credentials, rows.Err()
}

type PendingMint struct {
	Project   string    `json:"project"`
	Recipient string    `json:"recipient"`
	FailedAt  time.Time `json:"failedAt"`
	Error     string    `json:"error"`
}

// AddPendingMint records a completion whose reputation mint failed, so the
// mint can be replayed externally
func (s *Store) AddPendingMint(ctx context.Context, p PendingMint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pending_mints(project_address,recipient,failed_at,error) VALUES (?,?,?,?)`,
		p.Project, p.Recipient, p.FailedAt.UTC().Format(time.RFC3339), p.Error)
	return err
}

func (s *Store) ClearPendingMint(ctx context.Context, project string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_mints WHERE project_address=?`, project)
	return err
}

func (s *Store) ListPendingMints(ctx context.Context) ([]PendingMint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_address,recipient,failed_at,error FROM pending_mints ORDER BY failed_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingMint
	for rows.Next() {
		var p PendingMint
		var failedAt string
		if err := rows.Scan(&p.Project, &p.Recipient, &failedAt, &p.Error); err != nil {
			return nil, err
		}
		if p.FailedAt, err = time.Parse(time.RFC3339, failedAt); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
