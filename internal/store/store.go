// Package store persists companies, contacts, feedback, and search
// approaches. Two implementations: Postgres for deployments, SQLite for
// local single-user runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/provider"
	"github.com/sells-group/prospect-cli/internal/score"
)

// ErrNotFound is the sentinel for missing rows. Callers map it to 404s.
var ErrNotFound = eris.New("store: not found")

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ContactFilter specifies criteria for listing contacts.
type ContactFilter struct {
	CompanyID      string `json:"company_id,omitempty"`
	MinProbability int    `json:"min_probability,omitempty"`
	HasEmail       bool   `json:"has_email,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment subsystem.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, company *model.Company) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	FindCompanyByName(ctx context.Context, name string) (*model.Company, error)

	// Contacts
	CreateContact(ctx context.Context, contact *model.Contact) (*model.Contact, error)
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (*model.Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
	DeleteContactsByCompany(ctx context.Context, companyID string) (int, error)

	// Feedback
	AddContactFeedback(ctx context.Context, contactID string, ft model.FeedbackType) (*model.Contact, error)
	ListContactFeedback(ctx context.Context, contactID string) ([]model.ContactFeedback, error)

	// ConfirmedEmails returns name/email pairs of contacts whose primary
	// email sits at the given domain. Feeds pattern inference.
	ConfirmedEmails(ctx context.Context, domain string) ([]provider.PatternExample, error)

	// Search approaches
	GetActiveSearchApproach(ctx context.Context) (*model.SearchApproach, error)
	SaveSearchApproach(ctx context.Context, approach *model.SearchApproach) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// foldFeedback applies one rating to a contact in memory: running-average
// user score, bumped count, refreshed probability. Shared by both backends
// so the arithmetic lives in exactly one place.
func foldFeedback(c *model.Contact, ft model.FeedbackType, now time.Time) {
	c.UserScore, c.FeedbackCount = score.ApplyFeedback(c.UserScore, c.FeedbackCount, ft)
	c.Probability = score.Recompute(c)
	c.UpdatedAt = now
}

// ExemplarSource adapts a Store to the pattern provider's exemplar lookup.
type ExemplarSource struct {
	Store Store
}

func (s ExemplarSource) Examples(ctx context.Context, domain string) ([]provider.PatternExample, error) {
	return s.Store.ConfirmedEmails(ctx, domain)
}
