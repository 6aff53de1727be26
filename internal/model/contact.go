// Package model defines the core domain types for prospect enrichment.
package model

import (
	"time"
)

// SearchTag identifies a provider search that has been attempted for a contact.
type SearchTag string

const (
	SearchTagPattern   SearchTag = "pattern_search"
	SearchTagHunter    SearchTag = "hunter_search"
	SearchTagApollo    SearchTag = "apollo_search"
	SearchTagAeroleads SearchTag = "aeroleads_search"
)

// Contact represents a prospect at a company, enriched over time by
// provider lookups and user feedback.
type Contact struct {
	ID                string      `json:"id"`
	CompanyID         string      `json:"company_id"`
	Name              string      `json:"name"`
	Role              string      `json:"role,omitempty"`
	Email             string      `json:"email,omitempty"`
	AlternateEmails   []string    `json:"alternate_emails,omitempty"`
	Probability       int         `json:"probability"`   // combined score shown to the user
	AIConfidence      int         `json:"ai_confidence"` // AI-derived name/role confidence
	UserScore         int         `json:"user_score"`    // running average of feedback points
	FeedbackCount     int         `json:"feedback_count"`
	CompletedSearches []SearchTag `json:"completed_searches,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	LinkedInURL       string      `json:"linkedin_url,omitempty"`
	LastValidatedAt   *time.Time  `json:"last_validated_at,omitempty"`
	LastEnrichedAt    *time.Time  `json:"last_enriched_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// HasSearch reports whether the given provider search has already been
// attempted for this contact.
func (c *Contact) HasSearch(tag SearchTag) bool {
	for _, t := range c.CompletedSearches {
		if t == tag {
			return true
		}
	}
	return false
}

// RecordSearch appends tag to CompletedSearches if not already present.
func (c *Contact) RecordSearch(tag SearchTag) {
	if !c.HasSearch(tag) {
		c.CompletedSearches = append(c.CompletedSearches, tag)
	}
}

// HasAlternateEmail reports whether email is already recorded as an
// alternate. Matching is case-sensitive exact, per the dedupe contract.
func (c *Contact) HasAlternateEmail(email string) bool {
	for _, e := range c.AlternateEmails {
		if e == email {
			return true
		}
	}
	return false
}

// MergeEmail records a newly discovered email. The primary email is set
// only once; a later distinct discovery lands in AlternateEmails and never
// overwrites the primary. Returns true if anything changed.
func (c *Contact) MergeEmail(email string) bool {
	if email == "" {
		return false
	}
	if c.Email == "" {
		c.Email = email
		return true
	}
	if c.Email == email || c.HasAlternateEmail(email) {
		return false
	}
	c.AlternateEmails = append(c.AlternateEmails, email)
	return true
}

// ClampScore bounds a confidence value to the [0,100] range.
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Company is the enrichment context for a contact. Industry and Services
// steer LLM queries only; they carry no invariants.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Website   string    `json:"website,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Services  string    `json:"services,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackType is a discrete user rating of a contact's quality.
type FeedbackType string

const (
	FeedbackExcellent FeedbackType = "excellent"
	FeedbackOK        FeedbackType = "ok"
	FeedbackTerrible  FeedbackType = "terrible"
)

// Points maps a rating to its score contribution.
func (f FeedbackType) Points() int {
	switch f {
	case FeedbackExcellent:
		return 100
	case FeedbackOK:
		return 50
	case FeedbackTerrible:
		return 0
	default:
		return 0
	}
}

// Valid reports whether f is a known rating.
func (f FeedbackType) Valid() bool {
	switch f {
	case FeedbackExcellent, FeedbackOK, FeedbackTerrible:
		return true
	}
	return false
}

// ContactFeedback is one append-only rating event for a contact.
type ContactFeedback struct {
	ID        string       `json:"id"`
	ContactID string       `json:"contact_id"`
	Type      FeedbackType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

// SearchApproach is an admin-configurable strategy descriptor steering the
// LLM-driven decision-maker search. The enrichment subsystem reads it but
// never mutates it.
type SearchApproach struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Prompt    string         `json:"prompt"`
	Active    bool           `json:"active"`
	Config    ApproachConfig `json:"config"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ApproachConfig holds validation thresholds and enabled sub-searches for
// a search approach.
type ApproachConfig struct {
	MinConfidence   int      `json:"min_confidence"`
	MaxContacts     int      `json:"max_contacts"`
	EnabledSearches []string `json:"enabled_searches,omitempty"`
}
