package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	website    TEXT NOT NULL DEFAULT '',
	industry   TEXT NOT NULL DEFAULT '',
	services   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name ON companies(lower(name));

CREATE TABLE IF NOT EXISTS contacts (
	id                 TEXT PRIMARY KEY,
	company_id         TEXT NOT NULL REFERENCES companies(id),
	name               TEXT NOT NULL,
	role               TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	alternate_emails   TEXT NOT NULL DEFAULT '[]',
	probability        INTEGER NOT NULL DEFAULT 0,
	ai_confidence      INTEGER NOT NULL DEFAULT 0,
	user_score         INTEGER NOT NULL DEFAULT 0,
	feedback_count     INTEGER NOT NULL DEFAULT 0,
	completed_searches TEXT NOT NULL DEFAULT '[]',
	phone              TEXT NOT NULL DEFAULT '',
	linkedin_url       TEXT NOT NULL DEFAULT '',
	last_validated_at  DATETIME,
	last_enriched_at   DATETIME,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, name)
);

CREATE INDEX IF NOT EXISTS idx_contacts_company_id ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_contacts_probability ON contacts(probability DESC);

CREATE TABLE IF NOT EXISTS contact_feedback (
	id         TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contact_feedback_contact_id ON contact_feedback(contact_id);

CREATE TABLE IF NOT EXISTS search_approaches (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 0,
	config     TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, company *model.Company) (*model.Company, error) {
	c := *company
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, website, industry, services, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Website, c.Industry, c.Services, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert company")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	return s.scanCompany(s.db.QueryRowContext(ctx,
		`SELECT id, name, website, industry, services, created_at, updated_at FROM companies WHERE id = ?`,
		id,
	), "company "+id)
}

func (s *SQLiteStore) FindCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	return s.scanCompany(s.db.QueryRowContext(ctx,
		`SELECT id, name, website, industry, services, created_at, updated_at FROM companies WHERE lower(name) = lower(?)`,
		name,
	), fmt.Sprintf("company named %q", name))
}

func (s *SQLiteStore) scanCompany(row *sql.Row, what string) (*model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.Name, &c.Website, &c.Industry, &c.Services, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, what)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", what)
	}
	return &c, nil
}

func (s *SQLiteStore) CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, company_id, name, role, email, alternate_emails, probability, ai_confidence, user_score, feedback_count, completed_searches, phone, linkedin_url, last_validated_at, last_enriched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CompanyID, c.Name, c.Role, c.Email, string(altJSON),
		c.Probability, c.AIConfidence, c.UserScore, c.FeedbackCount, string(tagsJSON),
		c.Phone, c.LinkedInURL, nullableTime(c.LastValidatedAt), nullableTime(c.LastEnrichedAt), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert contact")
	}
	return &c, nil
}

func (s *SQLiteStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`,
		id,
	)
	c, err := scanSQLiteContact(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contact %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (*model.Contact, error) {
	set, args := buildSQLiteContactPatch(patch)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE contacts SET %s WHERE id = ?`, set),
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update contact %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
	}
	return s.GetContact(ctx, id)
}

func (s *SQLiteStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.MinProbability > 0 {
		query += ` AND probability >= ?`
		args = append(args, filter.MinProbability)
	}
	if filter.HasEmail {
		query += ` AND email <> ''`
	}
	query += ` ORDER BY probability DESC, created_at ASC`

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
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanSQLiteContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) DeleteContactsByCompany(ctx context.Context, companyID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE company_id = ?`,
		companyID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete contacts for company %s", companyID)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AddContactFeedback(ctx context.Context, contactID string, ft model.FeedbackType) (*model.Contact, error) {
	if !ft.Valid() {
		return nil, eris.Errorf("sqlite: invalid feedback type %q", ft)
	}

	contact, err := s.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contact_feedback (id, contact_id, type, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), contactID, string(ft), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert feedback for %s", contactID)
	}

	foldFeedback(contact, ft, now)
	return s.UpdateContact(ctx, contactID, model.ContactPatch{
		UserScore:     &contact.UserScore,
		FeedbackCount: &contact.FeedbackCount,
		Probability:   &contact.Probability,
	})
}

func (s *SQLiteStore) ListContactFeedback(ctx context.Context, contactID string) ([]model.ContactFeedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contact_id, type, created_at FROM contact_feedback WHERE contact_id = ? ORDER BY created_at ASC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list feedback for %s", contactID)
	}
	defer rows.Close()

	var events []model.ContactFeedback
	for rows.Next() {
		var f model.ContactFeedback
		if err := rows.Scan(&f.ID, &f.ContactID, &f.Type, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feedback")
		}
		events = append(events, f)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list feedback iterate")
}

func (s *SQLiteStore) ConfirmedEmails(ctx context.Context, domain string) ([]provider.PatternExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, email FROM contacts WHERE email <> '' AND lower(substr(email, instr(email, '@') + 1)) = ?`,
		domain,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: confirmed emails at %s", domain)
	}
	defer rows.Close()

	var examples []provider.PatternExample
	for rows.Next() {
		var ex provider.PatternExample
		if err := rows.Scan(&ex.Name, &ex.Email); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan confirmed email")
		}
		examples = append(examples, ex)
	}
	return examples, eris.Wrap(rows.Err(), "sqlite: confirmed emails iterate")
}

func (s *SQLiteStore) GetActiveSearchApproach(ctx context.Context) (*model.SearchApproach, error) {
	var a model.SearchApproach
	var configJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, prompt, active, config, updated_at FROM search_approaches WHERE active = 1 LIMIT 1`,
	).Scan(&a.ID, &a.Name, &a.Prompt, &a.Active, &configJSON, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "active search approach")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get active search approach")
	}
	if err := json.Unmarshal([]byte(configJSON), &a.Config); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal approach config")
	}
	return &a, nil
}

func (s *SQLiteStore) SaveSearchApproach(ctx context.Context, approach *model.SearchApproach) error {
	if approach.ID == "" {
		approach.ID = uuid.New().String()
	}
	approach.UpdatedAt = time.Now().UTC()

	configJSON, err := json.Marshal(approach.Config)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal approach config")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_approaches (id, name, prompt, active, config, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = ?2, prompt = ?3, active = ?4, config = ?5, updated_at = ?6`,
		approach.ID, approach.Name, approach.Prompt, approach.Active, string(configJSON), approach.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save search approach")
}

// helpers

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// buildSQLiteContactPatch mirrors buildContactPatch with ? placeholders.
func buildSQLiteContactPatch(patch model.ContactPatch) (string, []any) {
	var clauses []string
	var args []any

	add := func(col string, val any) {
		clauses = append(clauses, col+" = ?")
		args = append(args, val)
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
		add("alternate_emails", string(j))
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
		add("completed_searches", string(j))
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

func scanSQLiteContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var altJSON, tagsJSON string
	var validatedAt, enrichedAt sql.NullTime

	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Role, &c.Email, &altJSON,
		&c.Probability, &c.AIConfidence, &c.UserScore, &c.FeedbackCount, &tagsJSON,
		&c.Phone, &c.LinkedInURL, &validatedAt, &enrichedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(altJSON), &c.AlternateEmails); err != nil {
		return nil, eris.Wrap(err, "unmarshal alternate emails")
	}
	if err := json.Unmarshal([]byte(tagsJSON), &c.CompletedSearches); err != nil {
		return nil, eris.Wrap(err, "unmarshal completed searches")
	}
	if len(c.AlternateEmails) == 0 {
		c.AlternateEmails = nil
	}
	if len(c.CompletedSearches) == 0 {
		c.CompletedSearches = nil
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		c.LastValidatedAt = &t
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		c.LastEnrichedAt = &t
	}
	return &c, nil
}
