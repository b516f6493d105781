package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/analysis"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
)

func TestWriteRoundTrip(t *testing.T) {
	userOne := uuid.MustParse("11111111-0000-0000-0000-000000000000")
	userTwo := uuid.MustParse("22222222-0000-0000-0000-000000000000")

	result := &analysis.Result{
		UsersSummary: []analysis.UserSummary{
			{UserID: userOne, TotalIncome: decimal.RequireFromString("100"), TotalExpense: decimal.RequireFromString("-30")},
			{UserID: userTwo, TotalIncome: decimal.Zero, TotalExpense: decimal.Zero},
		},
		TopCategories: []analysis.CategoryCount{
			{Category: "Groceries", TransactionsCount: 3},
			{Category: "Transport", TransactionsCount: 2},
		},
		HighestSpender: analysis.SpenderTotal{UserID: userOne, TotalSpent: decimal.RequireFromString("70")},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	err := Write(context.Background(), source.NewLocalFile(path), result)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var parsed analysis.Result
	require.NoError(t, json.Unmarshal(data, &parsed))

	require.Len(t, parsed.UsersSummary, 2)
	assert.Equal(t, userOne, parsed.UsersSummary[0].UserID)
	assert.True(t, parsed.UsersSummary[0].TotalIncome.Equal(result.UsersSummary[0].TotalIncome))
	assert.True(t, parsed.UsersSummary[0].TotalExpense.Equal(result.UsersSummary[0].TotalExpense))
	assert.Equal(t, result.TopCategories, parsed.TopCategories)
	assert.Equal(t, userOne, parsed.HighestSpender.UserID)
	assert.True(t, parsed.HighestSpender.TotalSpent.Equal(result.HighestSpender.TotalSpent))
}

func TestWriteShapeAndIndentation(t *testing.T) {
	result := &analysis.Result{
		UsersSummary:  []analysis.UserSummary{},
		TopCategories: []analysis.CategoryCount{},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	err := Write(context.Background(), source.NewLocalFile(path), result)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "\n  \"UsersSummary\"")
	assert.Contains(t, text, "\n  \"TopCategories\"")
	assert.Contains(t, text, "\n  \"HighestSpender\"")
	assert.Contains(t, text, "\"UserId\"")
	assert.Contains(t, text, "\"TotalSpent\"")
}
