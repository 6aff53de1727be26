// Package importer loads prospect spreadsheets into the contact store.
package importer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Recognized spreadsheet headers, matched case-insensitively after
// trimming. "company" and "name" are required; the rest are optional.
const (
	colCompany  = "company"
	colWebsite  = "website"
	colName     = "name"
	colRole     = "role"
	colEmail    = "email"
	colPhone    = "phone"
	colLinkedIn = "linkedin"
)

// Importer reconciles spreadsheet rows against the contact store.
type Importer struct {
	store store.Store
	pool  db.Pool
	fold  cases.Caser
}

// Option configures the importer.
type Option func(*Importer)

// WithPool enables the bulk COPY path for Postgres-backed stores. Rows go
// through a temp-table upsert on (company_id, name) instead of per-row
// store calls.
func WithPool(pool db.Pool) Option {
	return func(im *Importer) { im.pool = pool }
}

// New creates an importer writing to st.
func New(st store.Store, opts ...Option) *Importer {
	im := &Importer{store: st, fold: cases.Fold()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Summary reports what one import run did.
type Summary struct {
	Companies int // companies created
	Contacts  int // contact rows written
	Skipped   int // rows missing company or name
}

// contactRow is one parsed spreadsheet row.
type contactRow struct {
	companyID string
	name      string
	role      string
	email     string
	phone     string
	linkedIn  string
}

// ImportXLSX reads the spreadsheet at path and loads its rows. Companies
// are created on first sight (matched case-insensitively by name);
// contacts upsert on (company_id, name) so re-importing the same sheet is
// safe. Spreadsheet values never overwrite an enriched email.
func (im *Importer) ImportXLSX(ctx context.Context, path string, opts XLSXOptions) (*Summary, error) {
	header, rows, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, err
	}
	return im.load(ctx, path, header, rows)
}

// load reconciles parsed rows against the store. Shared by the XLSX and
// CSV entry points.
func (im *Importer) load(ctx context.Context, path string, header []string, rows [][]string) (*Summary, error) {
	idx := indexHeader(header)
	if idx[colCompany] < 0 || idx[colName] < 0 {
		return nil, eris.Errorf("importer: %s: header must contain %q and %q columns", path, colCompany, colName)
	}

	summary := &Summary{}
	companies := make(map[string]string) // folded company name -> id
	var parsed []contactRow

	for _, row := range rows {
		company := strings.TrimSpace(cell(row, idx[colCompany]))
		name := strings.TrimSpace(cell(row, idx[colName]))
		if company == "" || name == "" {
			summary.Skipped++
			continue
		}

		companyID, err := im.companyID(ctx, companies, company, strings.TrimSpace(cell(row, idx[colWebsite])), summary)
		if err != nil {
			return summary, err
		}

		parsed = append(parsed, contactRow{
			companyID: companyID,
			name:      name,
			role:      strings.TrimSpace(cell(row, idx[colRole])),
			email:     strings.TrimSpace(cell(row, idx[colEmail])),
			phone:     strings.TrimSpace(cell(row, idx[colPhone])),
			linkedIn:  strings.TrimSpace(cell(row, idx[colLinkedIn])),
		})
	}

	if im.pool != nil {
		written, err := im.bulkUpsert(ctx, parsed)
		if err != nil {
			return summary, err
		}
		summary.Contacts = written
	} else {
		written, err := im.upsertEach(ctx, parsed)
		if err != nil {
			return summary, err
		}
		summary.Contacts = written
	}

	zap.L().Info("importer: sheet loaded",
		zap.String("path", path),
		zap.Int("companies", summary.Companies),
		zap.Int("contacts", summary.Contacts),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (im *Importer) companyID(ctx context.Context, seen map[string]string, name, website string, summary *Summary) (string, error) {
	key := im.fold.String(name)
	if id, ok := seen[key]; ok {
		return id, nil
	}

	company, err := im.store.FindCompanyByName(ctx, name)
	if err == nil {
		seen[key] = company.ID
		return company.ID, nil
	}
	if !store.IsNotFound(err) {
		return "", eris.Wrapf(err, "importer: find company %q", name)
	}

	created, err := im.store.CreateCompany(ctx, &model.Company{Name: name, Website: website})
	if err != nil {
		return "", eris.Wrapf(err, "importer: create company %q", name)
	}
	seen[key] = created.ID
	summary.Companies++
	return created.ID, nil
}

// bulkUpsert loads all rows in one temp-table COPY + ON CONFLICT pass.
// Email is inserted for new contacts but never updated on conflict, so an
// enriched primary email survives a re-import.
func (im *Importer) bulkUpsert(ctx context.Context, rows []contactRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	args := make([][]any, len(rows))
	for i, r := range rows {
		args[i] = []any{r.companyID, r.name, r.role, r.email, r.phone, r.linkedIn}
	}

	n, err := db.BulkUpsert(ctx, im.pool, db.UpsertConfig{
		Table:        "contacts",
		Columns:      []string{"company_id", "name", "role", "email", "phone", "linkedin_url"},
		ConflictKeys: []string{"company_id", "name"},
		UpdateCols:   []string{"role", "phone", "linkedin_url"},
	}, args)
	if err != nil {
		return 0, eris.Wrap(err, "importer: bulk upsert contacts")
	}
	return int(n), nil
}

// upsertEach is the portable path used when no Postgres pool is available.
func (im *Importer) upsertEach(ctx context.Context, rows []contactRow) (int, error) {
	// Existing contacts per company, keyed by folded name.
	existing := make(map[string]map[string]*model.Contact)
	written := 0

	for _, r := range rows {
		byName, ok := existing[r.companyID]
		if !ok {
			contacts, err := im.store.ListContacts(ctx, store.ContactFilter{CompanyID: r.companyID})
			if err != nil {
				return written, eris.Wrapf(err, "importer: list contacts for %s", r.companyID)
			}
			byName = make(map[string]*model.Contact, len(contacts))
			for i := range contacts {
				byName[im.fold.String(contacts[i].Name)] = &contacts[i]
			}
			existing[r.companyID] = byName
		}

		key := im.fold.String(r.name)
		if current, ok := byName[key]; ok {
			patch := model.ContactPatch{}
			if r.role != "" {
				patch.Role = model.Ptr(r.role)
			}
			if r.phone != "" {
				patch.Phone = model.Ptr(r.phone)
			}
			if r.linkedIn != "" {
				patch.LinkedInURL = model.Ptr(r.linkedIn)
			}
			// The sheet only fills an email gap; it never replaces one.
			if r.email != "" && current.Email == "" {
				patch.Email = model.Ptr(r.email)
			}
			updated, err := im.store.UpdateContact(ctx, current.ID, patch)
			if err != nil {
				return written, eris.Wrapf(err, "importer: update contact %q", r.name)
			}
			byName[key] = updated
			written++
			continue
		}

		created, err := im.store.CreateContact(ctx, &model.Contact{
			CompanyID:   r.companyID,
			Name:        r.name,
			Role:        r.role,
			Email:       r.email,
			Phone:       r.phone,
			LinkedInURL: r.linkedIn,
		})
		if err != nil {
			return written, eris.Wrapf(err, "importer: create contact %q", r.name)
		}
		byName[key] = created
		written++
	}
	return written, nil
}

// indexHeader maps the recognized columns to their positions, -1 when a
// column is absent.
func indexHeader(header []string) map[string]int {
	idx := map[string]int{
		colCompany:  -1,
		colWebsite:  -1,
		colName:     -1,
		colRole:     -1,
		colEmail:    -1,
		colPhone:    -1,
		colLinkedIn: -1,
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		// Tolerate common variants.
		switch key {
		case "linkedin url", "linkedin_url":
			key = colLinkedIn
		case "company name":
			key = colCompany
		case "title", "position":
			key = colRole
		}
		if _, ok := idx[key]; ok && idx[key] < 0 {
			idx[key] = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
