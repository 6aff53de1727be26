package export

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// fakeNotion implements notion.Client with canned behavior.
type fakeNotion struct {
	existingEmails map[string]bool
	created        []*notionapi.PageCreateRequest
	updated        []*notionapi.PageUpdateRequest
	createErr      error
	updateErr      error
}

func (f *fakeNotion) QueryDatabase(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	pf, ok := req.Filter.(notionapi.PropertyFilter)
	if ok && pf.RichText != nil && f.existingEmails[pf.RichText.Equals] {
		return &notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-existing"}},
		}, nil
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (f *fakeNotion) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &notionapi.Page{ID: "page-new"}, nil
}

func (f *fakeNotion) UpdatePage(_ context.Context, _ string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, req)
	return &notionapi.Page{ID: "page-existing"}, nil
}

func TestNotionExport_CreatesPages(t *testing.T) {
	st, company := newExportStore(t)
	seedContact(t, st, &model.Contact{
		CompanyID: company.ID, Name: "Alex Eu", Role: "VP Sales",
		Email: "aeu@teamshares.com", Probability: 85,
		LinkedInURL: "https://linkedin.com/in/alexeu",
	})

	nc := &fakeNotion{}
	summary, err := NewNotion(nc, "db-contacts", st).ExportCompany(context.Background(), company.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	require.Len(t, nc.created, 1)
	props := nc.created[0].Properties

	title := props["Name"].(notionapi.TitleProperty)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Alex Eu", title.Title[0].Text.Content)

	email := props["Email"].(notionapi.EmailProperty)
	assert.Equal(t, "aeu@teamshares.com", email.Email)

	prob := props["Probability"].(notionapi.NumberProperty)
	assert.Equal(t, 85.0, prob.Number)

	linkedin := props["LinkedIn"].(notionapi.URLProperty)
	assert.Equal(t, "https://linkedin.com/in/alexeu", linkedin.URL)

	companyProp := props["Company"].(notionapi.RichTextProperty)
	assert.Equal(t, "Teamshares", companyProp.RichText[0].Text.Content)
}

func TestNotionExport_RefreshesExistingPages(t *testing.T) {
	st, company := newExportStore(t)
	seedContact(t, st, &model.Contact{
		CompanyID: company.ID, Name: "Alex Eu",
		Email: "aeu@teamshares.com", Probability: 85,
	})

	nc := &fakeNotion{existingEmails: map[string]bool{"aeu@teamshares.com": true}}
	summary, err := NewNotion(nc, "db-contacts", st).ExportCompany(context.Background(), company.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Empty(t, nc.created)

	require.Len(t, nc.updated, 1)
	prob := nc.updated[0].Properties["Probability"].(notionapi.NumberProperty)
	assert.Equal(t, 85.0, prob.Number)
}

func TestNotionExport_CountsRefreshFailures(t *testing.T) {
	st, company := newExportStore(t)
	seedContact(t, st, &model.Contact{
		CompanyID: company.ID, Name: "Alex Eu",
		Email: "aeu@teamshares.com", Probability: 85,
	})

	nc := &fakeNotion{
		existingEmails: map[string]bool{"aeu@teamshares.com": true},
		updateErr:      assert.AnError,
	}
	summary, err := NewNotion(nc, "db-contacts", st).ExportCompany(context.Background(), company.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Failed)
}

func TestNotionExport_CountsFailures(t *testing.T) {
	st, company := newExportStore(t)
	seedContact(t, st, &model.Contact{
		CompanyID: company.ID, Name: "Alex Eu",
		Email: "aeu@teamshares.com", Probability: 85,
	})

	nc := &fakeNotion{createErr: assert.AnError}
	summary, err := NewNotion(nc, "db-contacts", st).ExportCompany(context.Background(), company.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Failed)
}

func TestNotionExport_OmitsEmptyOptionalProps(t *testing.T) {
	st, company := newExportStore(t)
	seedContact(t, st, &model.Contact{
		CompanyID: company.ID, Name: "Jane Doe",
		Email: "jane@teamshares.com", Probability: 70,
	})

	nc := &fakeNotion{}
	_, err := NewNotion(nc, "db-contacts", st).ExportCompany(context.Background(), company.ID, 0)
	require.NoError(t, err)

	require.Len(t, nc.created, 1)
	props := nc.created[0].Properties
	_, hasRole := props["Role"]
	_, hasPhone := props["Phone"]
	_, hasLinkedIn := props["LinkedIn"]
	assert.False(t, hasRole)
	assert.False(t, hasPhone)
	assert.False(t, hasLinkedIn)
}
