package hunter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email-finder", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "teamshares.com", q.Get("domain"))
		assert.Equal(t, "Alex", q.Get("first_name"))
		assert.Equal(t, "Eu", q.Get("last_name"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": FindEmailResponse{
				Email:    "aeu@teamshares.com",
				Score:    85,
				Position: "VP of Sales",
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.FindEmail(context.Background(), FindEmailRequest{
		Domain:    "teamshares.com",
		FirstName: "Alex",
		LastName:  "Eu",
	})
	require.NoError(t, err)
	assert.Equal(t, "aeu@teamshares.com", resp.Email)
	assert.Equal(t, 85, resp.Score)
}

func TestFindEmail_FullNameAndCompanyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Teamshares", q.Get("company"))
		assert.Equal(t, "Alex Eu", q.Get("full_name"))
		assert.Empty(t, q.Get("domain"))

		json.NewEncoder(w).Encode(map[string]any{"data": FindEmailResponse{}})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.FindEmail(context.Background(), FindEmailRequest{
		Company:  "Teamshares",
		FullName: "Alex Eu",
	})
	require.NoError(t, err)
}

func TestFindEmail_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":429}]}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.FindEmail(context.Background(), FindEmailRequest{Domain: "acme.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, eris.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}
