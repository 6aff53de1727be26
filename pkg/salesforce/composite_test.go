package salesforce

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"LastName": fmt.Sprintf("Person%d", i),
			"Company":  "Teamshares",
		}
	}
	return records
}

func TestBulkInsertLeads(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, _ []map[string]any) ([]CollectionResult, error) {
				t.Fatal("should not be called")
				return nil, nil
			},
		}
		results, err := BulkInsertLeads(context.Background(), mc, nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("single batch", func(t *testing.T) {
		var calls int
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, sObject string, records []map[string]any) ([]CollectionResult, error) {
				calls++
				assert.Equal(t, "Lead", sObject)
				results := make([]CollectionResult, len(records))
				for i := range results {
					results[i] = CollectionResult{ID: fmt.Sprintf("00Q%03d", i), Success: true}
				}
				return results, nil
			},
		}

		results, err := BulkInsertLeads(context.Background(), mc, leadRecords(5))
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		require.Len(t, results, 5)
	})

	t.Run("splits batches of 200", func(t *testing.T) {
		var batchSizes []int
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
				batchSizes = append(batchSizes, len(records))
				return make([]CollectionResult, len(records)), nil
			},
		}

		results, err := BulkInsertLeads(context.Background(), mc, leadRecords(450))
		require.NoError(t, err)
		assert.Equal(t, []int{200, 200, 50}, batchSizes)
		assert.Len(t, results, 450)
	})

	t.Run("validates records up front", func(t *testing.T) {
		records := leadRecords(2)
		records[1]["Company"] = ""

		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, _ []map[string]any) ([]CollectionResult, error) {
				t.Fatal("should not be called")
				return nil, nil
			},
		}
		_, err := BulkInsertLeads(context.Background(), mc, records)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record 1 missing Company")
	})

	t.Run("partial results on batch error", func(t *testing.T) {
		var calls int
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
				calls++
				if calls == 2 {
					return nil, errors.New("api error")
				}
				return make([]CollectionResult, len(records)), nil
			},
		}

		results, err := BulkInsertLeads(context.Background(), mc, leadRecords(300))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 200-300")
		assert.Len(t, results, 200)
	})
}
