package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
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
	"get_contact":      `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`,
	"get_company":      `SELECT id, name, website, industry, services, created_at, updated_at FROM companies WHERE id = $1`,
	"insert_feedback":  `INSERT INTO contact_feedback (id, contact_id, type, created_at) VALUES ($1, $2, $3, $4)`,
	"confirmed_emails": `SELECT name, email FROM contacts WHERE email <> '' AND lower(split_part(email, '@', 2)) = $1`,
}

const contactColumns = `id, company_id, name, role, email, alternate_emails, probability, ai_confidence, user_score, feedback_count, completed_searches, phone, linkedin_url, last_validated_at, last_enriched_at, created_at, updated_at`

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

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the bulk contact importer).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	website    TEXT NOT NULL DEFAULT '',
	industry   TEXT NOT NULL DEFAULT '',
	services   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name ON companies(lower(name));

CREATE TABLE IF NOT EXISTS contacts (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id         TEXT NOT NULL REFERENCES companies(id),
	name               TEXT NOT NULL,
	role               TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	alternate_emails   JSONB NOT NULL DEFAULT '[]',
	probability        INTEGER NOT NULL DEFAULT 0,
	ai_confidence      INTEGER NOT NULL DEFAULT 0,
	user_score         INTEGER NOT NULL DEFAULT 0,
	feedback_count     INTEGER NOT NULL DEFAULT 0,
	completed_searches JSONB NOT NULL DEFAULT '[]',
	phone              TEXT NOT NULL DEFAULT '',
	linkedin_url       TEXT NOT NULL DEFAULT '',
	last_validated_at  TIMESTAMPTZ,
	last_enriched_at   TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, name)
);

CREATE INDEX IF NOT EXISTS idx_contacts_company_id ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_contacts_email_domain ON contacts(lower(split_part(email, '@', 2))) WHERE email <> '';
CREATE INDEX IF NOT EXISTS idx_contacts_probability ON contacts(probability DESC);

CREATE TABLE IF NOT EXISTS contact_feedback (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contact_feedback_contact_id ON contact_feedback(contact_id);

CREATE TABLE IF NOT EXISTS search_approaches (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT false,
	config     JSONB NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_search_approaches_active ON search_approaches(active) WHERE active;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

func (s *PostgresStore) CreateCompany(ctx context.Context, company *model.Company) (*model.Company, error) {
	c := *company
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, website, industry, services, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Website, c.Industry, c.Services, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert company")
	}
	return &c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, website, industry, services, created_at, updated_at FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Website, &c.Industry, &c.Services, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "company %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) FindCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, website, industry, services, created_at, updated_at FROM companies WHERE lower(name) = lower($1)`,
		name,
	).Scan(&c.ID, &c.Name, &c.Website, &c.Industry, &c.Services, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "company named %q", name)
		}
		return nil, eris.Wrapf(err, "postgres: find company %q", name)
	}
	return &c, nil
}

func (s *PostgresStore) CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	c := *contact
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	altJSON, tagsJSON, err := marshalContactLists(&c)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO contacts (id, company_id, name, role, email, alternate_emails, probability, ai_confidence, user_score, feedback_count, completed_searches, phone, linkedin_url, last_validated_at, last_enriched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.CompanyID, c.Name, c.Role, c.Email, altJSON,
		c.Probability, c.AIConfidence, c.UserScore, c.FeedbackCount, tagsJSON,
		c.Phone, c.LinkedInURL, c.LastValidatedAt, c.LastEnrichedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert contact")
	}
	return &c, nil
}

func (s *PostgresStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`,
		id,
	)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get contact %s", id)
	}
	return c, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (*model.Contact, error) {
	set, args := buildContactPatch(patch)
	args = append(args, id)

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE contacts SET %s WHERE id = $%d RETURNING `+contactColumns, set, len(args)),
		args...,
	)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: update contact %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CompanyID != "" {
		query += fmt.Sprintf(` AND company_id = $%d`, argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}
	if filter.MinProbability > 0 {
		query += fmt.Sprintf(` AND probability >= $%d`, argIdx)
		args = append(args, filter.MinProbability)
		argIdx++
	}
	if filter.HasEmail {
		query += ` AND email <> ''`
	}
	query += ` ORDER BY probability DESC, created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) DeleteContactsByCompany(ctx context.Context, companyID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM contacts WHERE company_id = $1`,
		companyID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete contacts for company %s", companyID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) AddContactFeedback(ctx context.Context, contactID string, ft model.FeedbackType) (*model.Contact, error) {
	if !ft.Valid() {
		return nil, eris.Errorf("postgres: invalid feedback type %q", ft)
	}

	contact, err := s.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO contact_feedback (id, contact_id, type, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), contactID, string(ft), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert feedback for %s", contactID)
	}

	foldFeedback(contact, ft, now)
	return s.UpdateContact(ctx, contactID, model.ContactPatch{
		UserScore:     &contact.UserScore,
		FeedbackCount: &contact.FeedbackCount,
		Probability:   &contact.Probability,
	})
}

func (s *PostgresStore) ListContactFeedback(ctx context.Context, contactID string) ([]model.ContactFeedback, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, contact_id, type, created_at FROM contact_feedback WHERE contact_id = $1 ORDER BY created_at ASC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list feedback for %s", contactID)
	}
	defer rows.Close()

	var events []model.ContactFeedback
	for rows.Next() {
		var f model.ContactFeedback
		if err := rows.Scan(&f.ID, &f.ContactID, &f.Type, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feedback")
		}
		events = append(events, f)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list feedback iterate")
}

func (s *PostgresStore) ConfirmedEmails(ctx context.Context, domain string) ([]provider.PatternExample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, email FROM contacts WHERE email <> '' AND lower(split_part(email, '@', 2)) = $1`,
		domain,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: confirmed emails at %s", domain)
	}
	defer rows.Close()

	var examples []provider.PatternExample
	for rows.Next() {
		var ex provider.PatternExample
		if err := rows.Scan(&ex.Name, &ex.Email); err != nil {
			return nil, eris.Wrap(err, "postgres: scan confirmed email")
		}
		examples = append(examples, ex)
	}
	return examples, eris.Wrap(rows.Err(), "postgres: confirmed emails iterate")
}

func (s *PostgresStore) GetActiveSearchApproach(ctx context.Context) (*model.SearchApproach, error) {
	var a model.SearchApproach
	var configJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, prompt, active, config, updated_at FROM search_approaches WHERE active LIMIT 1`,
	).Scan(&a.ID, &a.Name, &a.Prompt, &a.Active, &configJSON, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(ErrNotFound, "active search approach")
		}
		return nil, eris.Wrap(err, "postgres: get active search approach")
	}
	if err := json.Unmarshal(configJSON, &a.Config); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal approach config")
	}
	return &a, nil
}

func (s *PostgresStore) SaveSearchApproach(ctx context.Context, approach *model.SearchApproach) error {
	if approach.ID == "" {
		approach.ID = uuid.New().String()
	}
	approach.UpdatedAt = time.Now().UTC()

	configJSON, err := json.Marshal(approach.Config)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal approach config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_approaches (id, name, prompt, active, config, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = $2, prompt = $3, active = $4, config = $5, updated_at = $6`,
		approach.ID, approach.Name, approach.Prompt, approach.Active, configJSON, approach.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save search approach")
}

// helpers

func marshalContactLists(c *model.Contact) ([]byte, []byte, error) {
	alt := c.AlternateEmails
	if alt == nil {
		alt = []string{}
	}
	tags := c.CompletedSearches
	if tags == nil {
		tags = []model.SearchTag{}
	}

	altJSON, err := json.Marshal(alt)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal alternate emails")
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal completed searches")
	}
	return altJSON, tagsJSON, nil
}

// buildContactPatch renders the patch's set fields as a SET clause with
// positional args. updated_at is always bumped.
func buildContactPatch(patch model.ContactPatch) (string, []any) {
	var clauses []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Role != nil {
		add("role", *patch.Role)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.AlternateEmails != nil {
		j, _ := json.Marshal(*patch.AlternateEmails)
		add("alternate_emails", j)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.LinkedInURL != nil {
		add("linkedin_url", *patch.LinkedInURL)
	}
	if patch.Probability != nil {
		add("probability", model.ClampScore(*patch.Probability))
	}
	if patch.AIConfidence != nil {
		add("ai_confidence", model.ClampScore(*patch.AIConfidence))
	}
	if patch.UserScore != nil {
		add("user_score", model.ClampScore(*patch.UserScore))
	}
	if patch.FeedbackCount != nil {
		add("feedback_count", *patch.FeedbackCount)
	}
	if patch.CompletedSearches != nil {
		j, _ := json.Marshal(*patch.CompletedSearches)
		add("completed_searches", j)
	}
	if patch.LastValidatedAt != nil {
		add("last_validated_at", *patch.LastValidatedAt)
	}
	if patch.LastEnrichedAt != nil {
		add("last_enriched_at", *patch.LastEnrichedAt)
	}
	add("updated_at", time.Now().UTC())

	return strings.Join(clauses, ", "), args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var altJSON, tagsJSON []byte

	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Role, &c.Email, &altJSON,
		&c.Probability, &c.AIConfidence, &c.UserScore, &c.FeedbackCount, &tagsJSON,
		&c.Phone, &c.LinkedInURL, &c.LastValidatedAt, &c.LastEnrichedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(altJSON) > 0 {
		if err := json.Unmarshal(altJSON, &c.AlternateEmails); err != nil {
			return nil, eris.Wrap(err, "unmarshal alternate emails")
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &c.CompletedSearches); err != nil {
			return nil, eris.Wrap(err, "unmarshal completed searches")
		}
	}
	if len(c.AlternateEmails) == 0 {
		c.AlternateEmails = nil
	}
	if len(c.CompletedSearches) == 0 {
		c.CompletedSearches = nil
	}
	return &c, nil
}
