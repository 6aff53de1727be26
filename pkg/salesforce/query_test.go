package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLeadByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var capturedSoql string
		mc := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				capturedSoql = soql
				leads := out.(*[]Lead)
				*leads = []Lead{{ID: "00Qxx", LastName: "Eu", Email: "aeu@teamshares.com"}}
				return nil
			},
		}

		lead, err := FindLeadByEmail(context.Background(), mc, "aeu@teamshares.com")
		require.NoError(t, err)
		require.NotNil(t, lead)
		assert.Equal(t, "00Qxx", lead.ID)
		assert.Contains(t, capturedSoql, "FROM Lead")
		assert.Contains(t, capturedSoql, "WHERE Email = 'aeu@teamshares.com'")
		assert.Contains(t, capturedSoql, "LIMIT 1")
	})

	t.Run("not found returns nil", func(t *testing.T) {
		mc := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error { return nil },
		}

		lead, err := FindLeadByEmail(context.Background(), mc, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, lead)
	})

	t.Run("escapes quotes", func(t *testing.T) {
		var capturedSoql string
		mc := &mockClient{
			queryFn: func(_ context.Context, soql string, _ any) error {
				capturedSoql = soql
				return nil
			},
		}

		_, err := FindLeadByEmail(context.Background(), mc, "o'brien@example.com")
		require.NoError(t, err)
		assert.Contains(t, capturedSoql, `o\'brien@example.com`)
	})

	t.Run("propagates error", func(t *testing.T) {
		mc := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("api down")
			},
		}

		_, err := FindLeadByEmail(context.Background(), mc, "a@b.com")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "find lead by email")
	})
}

func TestFindLeadsByCompany(t *testing.T) {
	t.Run("returns all", func(t *testing.T) {
		mc := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				assert.Contains(t, soql, "WHERE Company = 'Teamshares'")
				leads := out.(*[]Lead)
				*leads = []Lead{
					{ID: "00Qxx", LastName: "Eu"},
					{ID: "00Qyy", LastName: "Doe"},
				}
				return nil
			},
		}

		leads, err := FindLeadsByCompany(context.Background(), mc, "Teamshares")
		require.NoError(t, err)
		require.Len(t, leads, 2)
	})

	t.Run("propagates error", func(t *testing.T) {
		mc := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("api down")
			},
		}

		_, err := FindLeadsByCompany(context.Background(), mc, "Teamshares")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "find leads by company")
	})
}
