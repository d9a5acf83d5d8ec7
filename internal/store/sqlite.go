package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS questionnaires (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	definition TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS assessments (
	id               TEXT PRIMARY KEY,
	client_name      TEXT NOT NULL,
	questionnaire_id TEXT NOT NULL REFERENCES questionnaires(id),
	responses        TEXT NOT NULL,
	score            TEXT NOT NULL,
	suitability      TEXT NOT NULL,
	confidence       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'scored',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS allocations (
	assessment_id TEXT PRIMARY KEY REFERENCES assessments(id),
	model         TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS portfolios (
	id            TEXT PRIMARY KEY,
	assessment_id TEXT,
	total_value   REAL NOT NULL,
	cash_balance  REAL NOT NULL,
	holdings      TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS securities (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	price       REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_client ON assessments(client_name);
CREATE INDEX IF NOT EXISTS idx_assessments_status ON assessments(status);
CREATE INDEX IF NOT EXISTS idx_securities_class ON securities(asset_class);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveQuestionnaire(ctx context.Context, q *model.Questionnaire) error {
	defJSON, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal questionnaire")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questionnaires (id, name, definition, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, definition = excluded.definition, updated_at = excluded.updated_at`,
		q.ID, q.Name, string(defJSON), now, now,
	)
	return eris.Wrapf(err, "sqlite: save questionnaire %s", q.ID)
}

func (s *SQLiteStore) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	var defJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM questionnaires WHERE id = ?`, id,
	).Scan(&defJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get questionnaire %s", id)
	}
	var q model.Questionnaire
	if err := json.Unmarshal([]byte(defJSON), &q); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal questionnaire")
	}
	return &q, nil
}

func (s *SQLiteStore) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = model.AssessmentScored
	}

	cols, err := marshalAssessment(a)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClientName, a.QuestionnaireID, cols.responses, cols.score, cols.suitability, cols.confidence, string(a.Status), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert assessment %s", a.ID)
}

func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at
		 FROM assessments WHERE id = ?`, id,
	)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) UpdateAssessment(ctx context.Context, a *model.Assessment) error {
	a.UpdatedAt = time.Now().UTC()
	cols, err := marshalAssessment(a)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET suitability = ?, confidence = ?, status = ?, updated_at = ? WHERE id = ?`,
		cols.suitability, cols.confidence, string(a.Status), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update assessment %s", a.ID)
	}
	return checkRowsAffected(res, "assessment", a.ID)
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	query := `SELECT id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at
	          FROM assessments WHERE 1=1`
	var args []any

	if filter.ClientName != "" {
		query += ` AND client_name = ?`
		args = append(args, filter.ClientName)
	}
	if filter.QuestionnaireID != "" {
		query += ` AND questionnaire_id = ?`
		args = append(args, filter.QuestionnaireID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assessments")
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assessments iterate")
}

func (s *SQLiteStore) SaveAllocation(ctx context.Context, assessmentID string, alloc *model.AllocationModel) error {
	modelJSON, err := json.Marshal(alloc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal allocation")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO allocations (assessment_id, model, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (assessment_id) DO UPDATE SET model = excluded.model, created_at = excluded.created_at`,
		assessmentID, string(modelJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save allocation for %s", assessmentID)
}

func (s *SQLiteStore) GetAllocation(ctx context.Context, assessmentID string) (*model.AllocationModel, error) {
	var modelJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT model FROM allocations WHERE assessment_id = ?`, assessmentID,
	).Scan(&modelJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get allocation for %s", assessmentID)
	}
	var m model.AllocationModel
	if err := json.Unmarshal([]byte(modelJSON), &m); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal allocation")
	}
	return &m, nil
}

func (s *SQLiteStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	holdingsJSON, err := json.Marshal(p.Holdings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal holdings")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, assessment_id, total_value, cash_balance, holdings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AssessmentID, p.TotalValue, p.CashBalance, string(holdingsJSON), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert portfolio %s", p.ID)
}

func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var p model.Portfolio
	var holdingsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, assessment_id, total_value, cash_balance, holdings, created_at, updated_at FROM portfolios WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.AssessmentID, &p.TotalValue, &p.CashBalance, &holdingsJSON, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get portfolio %s", id)
	}
	if err := json.Unmarshal([]byte(holdingsJSON), &p.Holdings); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal holdings")
	}
	return &p, nil
}

func (s *SQLiteStore) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	p.UpdatedAt = time.Now().UTC()
	holdingsJSON, err := json.Marshal(p.Holdings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal holdings")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE portfolios SET total_value = ?, cash_balance = ?, holdings = ?, updated_at = ? WHERE id = ?`,
		p.TotalValue, p.CashBalance, string(holdingsJSON), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update portfolio %s", p.ID)
	}
	return checkRowsAffected(res, "portfolio", p.ID)
}

func (s *SQLiteStore) UpsertSecurity(ctx context.Context, sec model.Security) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO securities (id, name, asset_class, price) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, asset_class = excluded.asset_class, price = excluded.price`,
		sec.ID, sec.Name, string(sec.AssetClass), sec.Price,
	)
	return eris.Wrapf(err, "sqlite: upsert security %s", sec.ID)
}

func (s *SQLiteStore) GetSecurity(ctx context.Context, id string) (*model.Security, error) {
	var sec model.Security
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, asset_class, price FROM securities WHERE id = ?`, id,
	).Scan(&sec.ID, &sec.Name, &sec.AssetClass, &sec.Price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get security %s", id)
	}
	return &sec, nil
}

func (s *SQLiteStore) ListSecuritiesByAssetClass(ctx context.Context, class model.AssetClass) ([]model.Security, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, asset_class, price FROM securities WHERE asset_class = ? ORDER BY id`,
		string(class),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list securities")
	}
	defer rows.Close()

	var out []model.Security
	for rows.Next() {
		var sec model.Security
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.AssetClass, &sec.Price); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan security")
		}
		out = append(out, sec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list securities iterate")
}

// helpers

type assessmentColumns struct {
	responses   string
	score       string
	suitability string
	confidence  string
}

func marshalAssessment(a *model.Assessment) (assessmentColumns, error) {
	var cols assessmentColumns
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return cols, eris.Wrap(err, "store: marshal responses")
	}
	score, err := json.Marshal(a.Score)
	if err != nil {
		return cols, eris.Wrap(err, "store: marshal score")
	}
	suitability, err := json.Marshal(a.Suitability)
	if err != nil {
		return cols, eris.Wrap(err, "store: marshal suitability")
	}
	confidence, err := json.Marshal(a.Confidence)
	if err != nil {
		return cols, eris.Wrap(err, "store: marshal confidence")
	}
	cols.responses = string(responses)
	cols.score = string(score)
	cols.suitability = string(suitability)
	cols.confidence = string(confidence)
	return cols, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAssessment(row scannable) (*model.Assessment, error) {
	var a model.Assessment
	var responses, score, suitability, confidence string

	err := row.Scan(&a.ID, &a.ClientName, &a.QuestionnaireID, &responses, &score, &suitability, &confidence, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan assessment")
	}

	if err := json.Unmarshal([]byte(responses), &a.Responses); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal responses")
	}
	if err := json.Unmarshal([]byte(score), &a.Score); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal score")
	}
	if err := json.Unmarshal([]byte(suitability), &a.Suitability); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal suitability")
	}
	if err := json.Unmarshal([]byte(confidence), &a.Confidence); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal confidence")
	}

	// Legacy rows persisted confidence on a 0-1 scale; convert once here so
	// every read site sees the canonical 0-100 scale.
	a.Confidence.FinalConfidence = canonicalScale(a.Confidence.FinalConfidence)
	a.Confidence.ExternalReliability = canonicalScale(a.Confidence.ExternalReliability)
	return &a, nil
}

// canonicalScale maps a possibly 0-1 scaled score onto 0-100. Values already
// above 1 are assumed canonical.
func canonicalScale(v float64) float64 {
	if v > 0 && v <= 1 {
		return v * 100
	}
	return v
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
