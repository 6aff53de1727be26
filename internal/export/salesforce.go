// Package export pushes enriched contacts to outside systems: Salesforce
// as Leads and Notion as database pages. Both targets dedupe on email, so
// repeated exports are safe.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/salesforce"
)

// leadSource marks leads created by this tool.
const leadSource = "Prospect Enrichment"

// Summary reports what one export run did.
type Summary struct {
	Created int
	Updated int // existing records refreshed in place
	Failed  int
}

// SalesforceExporter pushes a company's enriched contacts as Leads.
type SalesforceExporter struct {
	sf    salesforce.Client
	store store.Store
}

// NewSalesforce creates a Salesforce exporter.
func NewSalesforce(sf salesforce.Client, st store.Store) *SalesforceExporter {
	return &SalesforceExporter{sf: sf, store: st}
}

// ExportCompany pushes every contact at the company with an email and a
// probability of at least minProbability. Contacts whose email already has
// a Lead get their probability description refreshed instead.
func (e *SalesforceExporter) ExportCompany(ctx context.Context, companyID string, minProbability int) (*Summary, error) {
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
	var records []map[string]any

	for _, c := range contacts {
		existing, err := salesforce.FindLeadByEmail(ctx, e.sf, c.Email)
		if err != nil {
			return summary, eris.Wrapf(err, "export: check lead %s", c.Email)
		}
		if existing != nil {
			err := salesforce.UpdateLead(ctx, e.sf, existing.ID, map[string]any{
				"Description": probabilityNote(&c),
			})
			if err != nil {
				summary.Failed++
				zap.L().Warn("export: lead refresh failed",
					zap.String("email", c.Email),
					zap.Error(err),
				)
				continue
			}
			summary.Updated++
			continue
		}
		records = append(records, leadRecord(company, &c))
	}

	if len(records) == 0 {
		return summary, nil
	}

	results, err := salesforce.BulkInsertLeads(ctx, e.sf, records)
	if err != nil {
		return summary, eris.Wrapf(err, "export: insert leads for %s", company.Name)
	}
	for _, r := range results {
		if r.Success {
			summary.Created++
		} else {
			summary.Failed++
			zap.L().Warn("export: lead insert failed",
				zap.String("company", company.Name),
				zap.Strings("errors", r.Errors),
			)
		}
	}

	zap.L().Info("export: salesforce done",
		zap.String("company", company.Name),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// probabilityNote renders the description field written to each Lead.
func probabilityNote(c *model.Contact) string {
	return fmt.Sprintf("Probability %d/100 (AI %d, %d feedback ratings)",
		c.Probability, c.AIConfidence, c.FeedbackCount)
}

func leadRecord(company *model.Company, c *model.Contact) map[string]any {
	first, last := splitName(c.Name)
	record := map[string]any{
		"LastName":    last,
		"Company":     company.Name,
		"Email":       c.Email,
		"LeadSource":  leadSource,
		"Description": probabilityNote(c),
	}
	if first != "" {
		record["FirstName"] = first
	}
	if c.Role != "" {
		record["Title"] = c.Role
	}
	if c.Phone != "" {
		record["Phone"] = c.Phone
	}
	if company.Website != "" {
		record["Website"] = company.Website
	}
	return record
}

// splitName breaks a full name into first and last. Salesforce requires a
// LastName, so a single-token name becomes the last name.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}
