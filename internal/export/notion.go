package export

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/notion"
)

// NotionExporter pushes a company's enriched contacts into a Notion
// database, one page per contact.
type NotionExporter struct {
	client notion.Client
	dbID   string
	store  store.Store
}

// NewNotion creates a Notion exporter writing to the given database.
func NewNotion(client notion.Client, dbID string, st store.Store) *NotionExporter {
	return &NotionExporter{client: client, dbID: dbID, store: st}
}

// ExportCompany creates a page for every contact at the company with an
// email and a probability of at least minProbability. Contacts whose email
// already has a page get their probability refreshed instead.
func (e *NotionExporter) ExportCompany(ctx context.Context, companyID string, minProbability int) (*Summary, error) {
	company, err := e.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "export: load company %s", companyID)
	}

	contacts, err := e.store.ListContacts(ctx, store.ContactFilter{
		CompanyID:      companyID,
		HasEmail:       true,
		MinProbability: minProbability,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "export: list contacts for %s", companyID)
	}

	summary := &Summary{}
	for _, c := range contacts {
		existing, err := notion.FindPageByEmail(ctx, e.client, e.dbID, c.Email)
		if err != nil {
			return summary, eris.Wrapf(err, "export: check page for %s", c.Email)
		}
		if existing != nil {
			update := &notionapi.PageUpdateRequest{
				Properties: notionapi.Properties{
					"Probability": notionapi.NumberProperty{
						Type:   notionapi.PropertyTypeNumber,
						Number: float64(c.Probability),
					},
				},
			}
			if _, err := e.client.UpdatePage(ctx, string(existing.ID), update); err != nil {
				summary.Failed++
				zap.L().Warn("export: notion page refresh failed",
					zap.String("contact", c.Name),
					zap.Error(err),
				)
				continue
			}
			summary.Updated++
			continue
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(e.dbID),
			},
			Properties: contactProperties(company, &c),
		}
		if _, err := e.client.CreatePage(ctx, req); err != nil {
			summary.Failed++
			zap.L().Warn("export: notion page create failed",
				zap.String("contact", c.Name),
				zap.Error(err),
			)
			continue
		}
		summary.Created++
	}

	zap.L().Info("export: notion done",
		zap.String("company", company.Name),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// contactProperties maps a contact onto the Notion contact database
// schema: Name (title), Company, Role, Email, Phone, Probability,
// LinkedIn.
func contactProperties(company *model.Company, c *model.Contact) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: c.Name}},
			},
		},
		"Company": richText(company.Name),
		"Email": notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: c.Email,
		},
		"Probability": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(c.Probability),
		},
	}
	if c.Role != "" {
		props["Role"] = richText(c.Role)
	}
	if c.Phone != "" {
		props["Phone"] = richText(c.Phone)
	}
	if c.LinkedInURL != "" {
		props["LinkedIn"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  c.LinkedInURL,
		}
	}
	return props
}

func richText(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}
