package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-dashboard/internal/db"
	"github.com/sells-group/disclosure-dashboard/internal/model"
)

// PostgresStore implements Store using pgxpool. Reads go through the
// read-only pool and writes through the privileged pool; both may be the
// same pool.
type PostgresStore struct {
	pool     db.Pool
	readPool db.Pool
	closeFns []func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore. readURL may be empty or equal to
// writeURL, in which case a single pool serves both.
func NewPostgres(ctx context.Context, writeURL, readURL string, poolCfg *PoolConfig) (*PostgresStore, error) {
	write, err := openPool(ctx, writeURL, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: write pool")
	}
	s := &PostgresStore{pool: write, readPool: write, closeFns: []func(){write.Close}}

	if readURL != "" && readURL != writeURL {
		read, err := openPool(ctx, readURL, poolCfg)
		if err != nil {
			write.Close()
			return nil, eris.Wrap(err, "postgres: read pool")
		}
		s.readPool = read
		s.closeFns = append(s.closeFns, read.Close)
	}
	return s, nil
}

func openPool(ctx context.Context, connString string, poolCfg *PoolConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS emissions_data (
	id                BIGSERIAL PRIMARY KEY,
	company_name      TEXT NOT NULL CHECK (company_name <> ''),
	year              INTEGER NOT NULL,
	data_point_type   TEXT NOT NULL,
	final_answer      TEXT,
	explanation       TEXT,
	discrepancy       TEXT,
	source_documents  TEXT[] NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	thumbs_up_count   INTEGER NOT NULL DEFAULT 0 CHECK (thumbs_up_count >= 0),
	thumbs_down_count INTEGER NOT NULL DEFAULT 0 CHECK (thumbs_down_count >= 0),
	UNIQUE (company_name, year, data_point_type)
);

CREATE TABLE IF NOT EXISTS evidence (
	id            BIGSERIAL PRIMARY KEY,
	data_id       BIGINT NOT NULL REFERENCES emissions_data(id) ON DELETE CASCADE,
	answer        TEXT,
	explanation   TEXT,
	quotes        TEXT,
	page_number   INTEGER,
	document_name TEXT
);

CREATE TABLE IF NOT EXISTS feedback (
	id          BIGSERIAL PRIMARY KEY,
	data_id     BIGINT NOT NULL REFERENCES emissions_data(id) ON DELETE CASCADE,
	is_thumb_up BOOLEAN NOT NULL,
	email       TEXT,
	comment     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_emissions_company_year ON emissions_data(company_name, year DESC);
CREATE INDEX IF NOT EXISTS idx_emissions_created_at ON emissions_data(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_evidence_data_id ON evidence(data_id);
CREATE INDEX IF NOT EXISTS idx_feedback_data_id ON feedback(data_id);
`

const recordColumns = `id, company_name, year, data_point_type, COALESCE(final_answer, ''), COALESCE(explanation, ''), COALESCE(discrepancy, ''), source_documents, created_at, thumbs_up_count, thumbs_down_count`

const evidenceColumns = `id, data_id, COALESCE(answer, ''), COALESCE(explanation, ''), COALESCE(quotes, ''), COALESCE(page_number, 0), COALESCE(document_name, '')`

var evidenceCopyColumns = []string{"data_id", "answer", "explanation", "quotes", "page_number", "document_name"}

var orderClauses = map[Order]string{
	OrderAlphabetical: ` ORDER BY company_name ASC, year DESC, id ASC`,
	OrderRecent:       ` ORDER BY created_at DESC, id DESC`,
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	for _, fn := range s.closeFns {
		fn()
	}
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, opts ListOptions) ([]model.EmissionRecord, error) {
	order, ok := orderClauses[opts.Order]
	if !ok {
		order = orderClauses[OrderAlphabetical]
	}

	rows, err := s.readPool.Query(ctx, `SELECT `+recordColumns+` FROM emissions_data`+order)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan records")
	}
	if err := s.attachEvidence(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id int64) (*model.EmissionRecord, error) {
	row := s.readPool.QueryRow(ctx, `SELECT `+recordColumns+` FROM emissions_data WHERE id = $1`, id)
	return s.oneRecord(ctx, row, "get record")
}

func (s *PostgresStore) FindRecord(ctx context.Context, company string, year int, dataPointType string) (*model.EmissionRecord, error) {
	row := s.readPool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM emissions_data WHERE company_name = $1 AND year = $2 AND data_point_type = $3`,
		company, year, dataPointType,
	)
	return s.oneRecord(ctx, row, "find record")
}

func (s *PostgresStore) oneRecord(ctx context.Context, row pgx.Row, action string) (*model.EmissionRecord, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", action)
	}
	records := []model.EmissionRecord{*rec}
	if err := s.attachEvidence(ctx, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

func (s *PostgresStore) attachEvidence(ctx context.Context, records []model.EmissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]int64, len(records))
	index := make(map[int64]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
		index[r.ID] = i
	}

	rows, err := s.readPool.Query(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE data_id = ANY($1) ORDER BY data_id, id`, ids)
	if err != nil {
		return eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	for rows.Next() {
		var ev model.EvidenceRecord
		if err := rows.Scan(&ev.ID, &ev.DataID, &ev.Answer, &ev.Explanation, &ev.Quotes, &ev.PageNumber, &ev.DocumentName); err != nil {
			return eris.Wrap(err, "postgres: scan evidence")
		}
		if i, ok := index[ev.DataID]; ok {
			records[i].Evidence = append(records[i].Evidence, ev)
		}
	}
	return eris.Wrap(rows.Err(), "postgres: iterate evidence")
}

func (s *PostgresStore) DeleteDataPoints(ctx context.Context, company string, year int, dataPointTypes []string) (int64, error) {
	if len(dataPointTypes) == 0 {
		return 0, nil
	}
	// Evidence and feedback rows go with their record via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM emissions_data WHERE company_name = $1 AND year = $2 AND data_point_type = ANY($3)`,
		company, year, dataPointTypes,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete data points for %s (%d)", company, year)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) InsertRecord(ctx context.Context, rec model.EmissionRecord) (*model.EmissionRecord, error) {
	docs := rec.SourceDocuments
	if docs == nil {
		docs = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO emissions_data (company_name, year, data_point_type, final_answer, explanation, discrepancy, source_documents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		rec.CompanyName, rec.Year, rec.DataPointType,
		nullString(rec.FinalAnswer), nullString(rec.Explanation), nullString(rec.Discrepancy), docs,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert %s record for %s (%d)", rec.DataPointType, rec.CompanyName, rec.Year)
	}
	rec.SourceDocuments = docs
	rec.ThumbsUpCount, rec.ThumbsDownCount = 0, 0
	rec.Evidence = nil
	return &rec, nil
}

func (s *PostgresStore) InsertEvidence(ctx context.Context, dataID int64, evidence []model.EvidenceRecord) (int64, error) {
	rows := make([][]any, 0, len(evidence))
	for _, ev := range evidence {
		rows = append(rows, []any{
			dataID,
			nullString(ev.Answer),
			nullString(ev.Explanation),
			nullString(ev.Quotes),
			nullInt(ev.PageNumber),
			nullString(ev.DocumentName),
		})
	}
	n, err := db.CopyRows(ctx, s.pool, "evidence", evidenceCopyColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert evidence for record %d", dataID)
	}
	return n, nil
}

func (s *PostgresStore) AddPlaceholder(ctx context.Context, company string, year int) (*model.EmissionRecord, error) {
	rec := model.EmissionRecord{
		CompanyName:     company,
		Year:            year,
		DataPointType:   model.LabelInit,
		SourceDocuments: []string{},
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO emissions_data (company_name, year, data_point_type)
		 SELECT $1::text, $2::integer, $3::text
		 WHERE NOT EXISTS (SELECT 1 FROM emissions_data WHERE company_name = $1::text AND year = $2::integer)
		 ON CONFLICT DO NOTHING
		 RETURNING id, created_at`,
		company, year, model.LabelInit,
	).Scan(&rec.ID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: add placeholder for %s (%d)", company, year)
	}
	return &rec, nil
}

const (
	incrementThumbsUp   = `UPDATE emissions_data SET thumbs_up_count = thumbs_up_count + 1 WHERE id = $1`
	incrementThumbsDown = `UPDATE emissions_data SET thumbs_down_count = thumbs_down_count + 1 WHERE id = $1`
)

func (s *PostgresStore) RecordFeedback(ctx context.Context, vote model.FeedbackVote) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: feedback: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stmt := incrementThumbsDown
	if vote.IsThumbUp {
		stmt = incrementThumbsUp
	}
	tag, err := tx.Exec(ctx, stmt, vote.DataID)
	if err != nil {
		return eris.Wrapf(err, "postgres: feedback: increment counter on %d", vote.DataID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO feedback (data_id, is_thumb_up, email, comment) VALUES ($1, $2, $3, $4)`,
		vote.DataID, vote.IsThumbUp, nullString(vote.Email), nullString(vote.Comment),
	); err != nil {
		return eris.Wrapf(err, "postgres: feedback: insert vote on %d", vote.DataID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: feedback: commit")
}

func collectRecords(rows pgx.Rows) ([]model.EmissionRecord, error) {
	defer rows.Close()
	var out []model.EmissionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.EmissionRecord, error) {
	var r model.EmissionRecord
	err := row.Scan(
		&r.ID, &r.CompanyName, &r.Year, &r.DataPointType,
		&r.FinalAnswer, &r.Explanation, &r.Discrepancy,
		&r.SourceDocuments, &r.CreatedAt,
		&r.ThumbsUpCount, &r.ThumbsDownCount,
	)
	if err != nil {
		return nil, err
	}
	if r.SourceDocuments == nil {
		r.SourceDocuments = []string{}
	}
	return &r, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
