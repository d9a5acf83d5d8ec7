package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_assessment": `INSERT INTO assessments (id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"update_assessment": `UPDATE assessments SET suitability = $1, confidence = $2, status = $3, updated_at = $4 WHERE id = $5`,
	"get_assessment":    `SELECT id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at FROM assessments WHERE id = $1`,
	"get_security":      `SELECT id, name, asset_class, price FROM securities WHERE id = $1`,
	"get_portfolio":     `SELECT id, assessment_id, total_value, cash_balance, holdings, created_at, updated_at FROM portfolios WHERE id = $1`,
	"update_portfolio":  `UPDATE portfolios SET total_value = $1, cash_balance = $2, holdings = $3, updated_at = $4 WHERE id = $5`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS questionnaires (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	definition JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assessments (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_name      TEXT NOT NULL,
	questionnaire_id TEXT NOT NULL REFERENCES questionnaires(id),
	responses        JSONB NOT NULL,
	score            JSONB NOT NULL,
	suitability      JSONB NOT NULL,
	confidence       JSONB NOT NULL,
	status           TEXT NOT NULL DEFAULT 'scored',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS allocations (
	assessment_id TEXT PRIMARY KEY REFERENCES assessments(id),
	model         JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS portfolios (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	assessment_id TEXT,
	total_value   DOUBLE PRECISION NOT NULL,
	cash_balance  DOUBLE PRECISION NOT NULL,
	holdings      JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS securities (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_client ON assessments(client_name);
CREATE INDEX IF NOT EXISTS idx_assessments_status ON assessments(status);
CREATE INDEX IF NOT EXISTS idx_securities_class ON securities(asset_class);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveQuestionnaire(ctx context.Context, q *model.Questionnaire) error {
	defJSON, err := json.Marshal(q)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal questionnaire")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questionnaires (id, name, definition, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, definition = $3, updated_at = $5`,
		q.ID, q.Name, defJSON, now, now,
	)
	return eris.Wrapf(err, "postgres: save questionnaire %s", q.ID)
}

func (s *PostgresStore) GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error) {
	var defJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT definition FROM questionnaires WHERE id = $1`, id,
	).Scan(&defJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get questionnaire %s", id)
	}
	var q model.Questionnaire
	if err := json.Unmarshal(defJSON, &q); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal questionnaire")
	}
	return &q, nil
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, a *model.Assessment) error {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ClientName, a.QuestionnaireID, []byte(cols.responses), []byte(cols.score), []byte(cols.suitability), []byte(cols.confidence), string(a.Status), now, now,
	)
	return eris.Wrapf(err, "postgres: insert assessment %s", a.ID)
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at
		 FROM assessments WHERE id = $1`, id,
	)
	a, err := scanPgAssessment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) UpdateAssessment(ctx context.Context, a *model.Assessment) error {
	a.UpdatedAt = time.Now().UTC()
	cols, err := marshalAssessment(a)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE assessments SET suitability = $1, confidence = $2, status = $3, updated_at = $4 WHERE id = $5`,
		[]byte(cols.suitability), []byte(cols.confidence), string(a.Status), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update assessment %s", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("assessment not found: %s", a.ID)
	}
	return nil
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error) {
	query := `SELECT id, client_name, questionnaire_id, responses, score, suitability, confidence, status, created_at, updated_at
	          FROM assessments WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.ClientName != "" {
		query += ` AND client_name = ` + arg(filter.ClientName)
	}
	if filter.QuestionnaireID != "" {
		query += ` AND questionnaire_id = ` + arg(filter.QuestionnaireID)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assessments")
	}
	defer rows.Close()

	var out []model.Assessment
	for rows.Next() {
		a, err := scanPgAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assessments iterate")
}

func (s *PostgresStore) SaveAllocation(ctx context.Context, assessmentID string, alloc *model.AllocationModel) error {
	modelJSON, err := json.Marshal(alloc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal allocation")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO allocations (assessment_id, model, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (assessment_id) DO UPDATE SET model = $2, created_at = $3`,
		assessmentID, modelJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save allocation for %s", assessmentID)
}

func (s *PostgresStore) GetAllocation(ctx context.Context, assessmentID string) (*model.AllocationModel, error) {
	var modelJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT model FROM allocations WHERE assessment_id = $1`, assessmentID,
	).Scan(&modelJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get allocation for %s", assessmentID)
	}
	var m model.AllocationModel
	if err := json.Unmarshal(modelJSON, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal allocation")
	}
	return &m, nil
}

func (s *PostgresStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	holdingsJSON, err := json.Marshal(p.Holdings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal holdings")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO portfolios (id, assessment_id, total_value, cash_balance, holdings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.AssessmentID, p.TotalValue, p.CashBalance, holdingsJSON, now, now,
	)
	return eris.Wrapf(err, "postgres: insert portfolio %s", p.ID)
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var p model.Portfolio
	var holdingsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, assessment_id, total_value, cash_balance, holdings, created_at, updated_at FROM portfolios WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.AssessmentID, &p.TotalValue, &p.CashBalance, &holdingsJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get portfolio %s", id)
	}
	if err := json.Unmarshal(holdingsJSON, &p.Holdings); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal holdings")
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	p.UpdatedAt = time.Now().UTC()
	holdingsJSON, err := json.Marshal(p.Holdings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal holdings")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE portfolios SET total_value = $1, cash_balance = $2, holdings = $3, updated_at = $4 WHERE id = $5`,
		p.TotalValue, p.CashBalance, holdingsJSON, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update portfolio %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("portfolio not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) UpsertSecurity(ctx context.Context, sec model.Security) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO securities (id, name, asset_class, price) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = $2, asset_class = $3, price = $4`,
		sec.ID, sec.Name, string(sec.AssetClass), sec.Price,
	)
	return eris.Wrapf(err, "postgres: upsert security %s", sec.ID)
}

func (s *PostgresStore) GetSecurity(ctx context.Context, id string) (*model.Security, error) {
	var sec model.Security
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, asset_class, price FROM securities WHERE id = $1`, id,
	).Scan(&sec.ID, &sec.Name, &sec.AssetClass, &sec.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get security %s", id)
	}
	return &sec, nil
}

func (s *PostgresStore) ListSecuritiesByAssetClass(ctx context.Context, class model.AssetClass) ([]model.Security, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, asset_class, price FROM securities WHERE asset_class = $1 ORDER BY id`,
		string(class),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list securities")
	}
	defer rows.Close()

	var out []model.Security
	for rows.Next() {
		var sec model.Security
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.AssetClass, &sec.Price); err != nil {
			return nil, eris.Wrap(err, "postgres: scan security")
		}
		out = append(out, sec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list securities iterate")
}

// scanPgAssessment scans one assessment row from pgx, applying the one-time
// legacy scale conversion.
func scanPgAssessment(row pgx.Row) (*model.Assessment, error) {
	var a model.Assessment
	var responses, score, suitability, confidence []byte

	err := row.Scan(&a.ID, &a.ClientName, &a.QuestionnaireID, &responses, &score, &suitability, &confidence, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal responses")
	}
	if err := json.Unmarshal(score, &a.Score); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal score")
	}
	if err := json.Unmarshal(suitability, &a.Suitability); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal suitability")
	}
	if err := json.Unmarshal(confidence, &a.Confidence); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal confidence")
	}

	a.Confidence.FinalConfidence = canonicalScale(a.Confidence.FinalConfidence)
	a.Confidence.ExternalReliability = canonicalScale(a.Confidence.ExternalReliability)
	return &a, nil
}

// placeholder returns the $n positional placeholder for the nth argument.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
