package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is meant for
// local development and single-operator deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS emissions_data (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name      TEXT NOT NULL CHECK (company_name <> ''),
	year              INTEGER NOT NULL,
	data_point_type   TEXT NOT NULL,
	final_answer      TEXT,
	explanation       TEXT,
	discrepancy       TEXT,
	source_documents  TEXT NOT NULL DEFAULT '[]',
	created_at        DATETIME NOT NULL,
	thumbs_up_count   INTEGER NOT NULL DEFAULT 0,
	thumbs_down_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE (company_name, year, data_point_type)
);

CREATE TABLE IF NOT EXISTS evidence (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	data_id       INTEGER NOT NULL REFERENCES emissions_data(id),
	answer        TEXT,
	explanation   TEXT,
	quotes        TEXT,
	page_number   INTEGER,
	document_name TEXT
);

CREATE TABLE IF NOT EXISTS feedback (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	data_id     INTEGER NOT NULL REFERENCES emissions_data(id),
	is_thumb_up INTEGER NOT NULL,
	email       TEXT,
	comment     TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emissions_company_year ON emissions_data(company_name, year);
CREATE INDEX IF NOT EXISTS idx_evidence_data_id ON evidence(data_id);
CREATE INDEX IF NOT EXISTS idx_feedback_data_id ON feedback(data_id);
`

const sqliteRecordColumns = `id, company_name, year, data_point_type, COALESCE(final_answer, ''), COALESCE(explanation, ''), COALESCE(discrepancy, ''), source_documents, created_at, thumbs_up_count, thumbs_down_count`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListRecords(ctx context.Context, opts ListOptions) ([]model.EmissionRecord, error) {
	order, ok := orderClauses[opts.Order]
	if !ok {
		order = orderClauses[OrderAlphabetical]
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteRecordColumns+` FROM emissions_data`+order)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var records []model.EmissionRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate records")
	}
	if err := s.attachEvidence(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id int64) (*model.EmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRecordColumns+` FROM emissions_data WHERE id = ?`, id)
	return s.oneRecord(ctx, row)
}

func (s *SQLiteStore) FindRecord(ctx context.Context, company string, year int, dataPointType string) (*model.EmissionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM emissions_data WHERE company_name = ? AND year = ? AND data_point_type = ?`,
		company, year, dataPointType,
	)
	return s.oneRecord(ctx, row)
}

func (s *SQLiteStore) oneRecord(ctx context.Context, row *sql.Row) (*model.EmissionRecord, error) {
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	records := []model.EmissionRecord{*rec}
	if err := s.attachEvidence(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// evidenceBatchSize bounds the ids bound per evidence query, keeping each
// statement under SQLite's host parameter limit.
const evidenceBatchSize = 500

func (s *SQLiteStore) attachEvidence(ctx context.Context, records []model.EmissionRecord) error {
	index := make(map[int64]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	for start := 0; start < len(records); start += evidenceBatchSize {
		end := min(start+evidenceBatchSize, len(records))
		if err := s.attachEvidenceBatch(ctx, records, records[start:end], index); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) attachEvidenceBatch(ctx context.Context, records, batch []model.EmissionRecord, index map[int64]int) error {
	args := make([]any, len(batch))
	for i, r := range batch {
		args[i] = r.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data_id, COALESCE(answer, ''), COALESCE(explanation, ''), COALESCE(quotes, ''), COALESCE(page_number, 0), COALESCE(document_name, '')
		 FROM evidence WHERE data_id IN (`+placeholders+`) ORDER BY data_id, id`, args...)
	if err != nil {
		return eris.Wrap(err, "sqlite: list evidence")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var ev model.EvidenceRecord
		if err := rows.Scan(&ev.ID, &ev.DataID, &ev.Answer, &ev.Explanation, &ev.Quotes, &ev.PageNumber, &ev.DocumentName); err != nil {
			return eris.Wrap(err, "sqlite: scan evidence")
		}
		if i, ok := index[ev.DataID]; ok {
			records[i].Evidence = append(records[i].Evidence, ev)
		}
	}
	return eris.Wrap(rows.Err(), "sqlite: iterate evidence")
}

func (s *SQLiteStore) DeleteDataPoints(ctx context.Context, company string, year int, dataPointTypes []string) (int64, error) {
	if len(dataPointTypes) == 0 {
		return 0, nil
	}

	args := []any{company, year}
	for _, t := range dataPointTypes {
		args = append(args, t)
	}
	match := `company_name = ? AND year = ? AND data_point_type IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(dataPointTypes)), ",") + `)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Owned rows first, then the records, in one transaction.
	for _, table := range []string{"evidence", "feedback"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE data_id IN (SELECT id FROM emissions_data WHERE `+match+`)`, args...,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: delete %s for %s (%d)", table, company, year)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM emissions_data WHERE `+match, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete data points for %s (%d)", company, year)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete: commit")
	}
	return n, nil
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, rec model.EmissionRecord) (*model.EmissionRecord, error) {
	if rec.SourceDocuments == nil {
		rec.SourceDocuments = []string{}
	}
	docsJSON, err := json.Marshal(rec.SourceDocuments)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal source documents")
	}
	rec.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO emissions_data (company_name, year, data_point_type, final_answer, explanation, discrepancy, source_documents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CompanyName, rec.Year, rec.DataPointType,
		nullString(rec.FinalAnswer), nullString(rec.Explanation), nullString(rec.Discrepancy),
		string(docsJSON), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s record for %s (%d)", rec.DataPointType, rec.CompanyName, rec.Year)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	rec.ThumbsUpCount, rec.ThumbsDownCount = 0, 0
	rec.Evidence = nil
	return &rec, nil
}

func (s *SQLiteStore) InsertEvidence(ctx context.Context, dataID int64, evidence []model.EvidenceRecord) (int64, error) {
	if len(evidence) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evidence: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (data_id, answer, explanation, quotes, page_number, document_name) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: evidence: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, ev := range evidence {
		if _, err := stmt.ExecContext(ctx, dataID,
			nullString(ev.Answer), nullString(ev.Explanation), nullString(ev.Quotes),
			nullInt(ev.PageNumber), nullString(ev.DocumentName),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert evidence for record %d", dataID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: evidence: commit")
	}
	return int64(len(evidence)), nil
}

func (s *SQLiteStore) AddPlaceholder(ctx context.Context, company string, year int) (*model.EmissionRecord, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO emissions_data (company_name, year, data_point_type, created_at)
		 SELECT ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM emissions_data WHERE company_name = ? AND year = ?)`,
		company, year, model.LabelInit, now, company, year,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: add placeholder for %s (%d)", company, year)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	return &model.EmissionRecord{
		ID:              id,
		CompanyName:     company,
		Year:            year,
		DataPointType:   model.LabelInit,
		SourceDocuments: []string{},
		CreatedAt:       now,
	}, nil
}

func (s *SQLiteStore) RecordFeedback(ctx context.Context, vote model.FeedbackVote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: feedback: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := `UPDATE emissions_data SET thumbs_down_count = thumbs_down_count + 1 WHERE id = ?`
	if vote.IsThumbUp {
		stmt = `UPDATE emissions_data SET thumbs_up_count = thumbs_up_count + 1 WHERE id = ?`
	}
	res, err := tx.ExecContext(ctx, stmt, vote.DataID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: feedback: increment counter on %d", vote.DataID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO feedback (data_id, is_thumb_up, email, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		vote.DataID, vote.IsThumbUp, nullString(vote.Email), nullString(vote.Comment), time.Now().UTC(),
	); err != nil {
		return eris.Wrapf(err, "sqlite: feedback: insert vote on %d", vote.DataID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: feedback: commit")
}

func scanSQLiteRecord(row scannable) (*model.EmissionRecord, error) {
	var r model.EmissionRecord
	var docsJSON string
	err := row.Scan(
		&r.ID, &r.CompanyName, &r.Year, &r.DataPointType,
		&r.FinalAnswer, &r.Explanation, &r.Discrepancy,
		&docsJSON, &r.CreatedAt,
		&r.ThumbsUpCount, &r.ThumbsDownCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}
	if err := json.Unmarshal([]byte(docsJSON), &r.SourceDocuments); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode source documents for record %d", r.ID)
	}
	if r.SourceDocuments == nil {
		r.SourceDocuments = []string{}
	}
	return &r, nil
}
