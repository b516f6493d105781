// Package analysis computes aggregate statistics over an immutable snapshot
// of stored transactions. The three computations are independent and run
// concurrently; results are joined before reporting.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
)

// TopCategoriesCount is how many categories the ranking keeps.
const TopCategoriesCount = 3

// UserSummary holds per-user income and expense totals. Expense keeps its
// negative sign.
type UserSummary struct {
	UserID       uuid.UUID       `json:"UserId"`
	TotalIncome  decimal.Decimal `json:"TotalIncome"`
	TotalExpense decimal.Decimal `json:"TotalExpense"`
}

// CategoryCount is one entry of the category ranking.
type CategoryCount struct {
	Category          string `json:"Category"`
	TransactionsCount int    `json:"TransactionsCount"`
}

// SpenderTotal identifies the user with the largest summed amount. An empty
// snapshot yields the zero value rather than an error.
type SpenderTotal struct {
	UserID     uuid.UUID       `json:"UserId"`
	TotalSpent decimal.Decimal `json:"TotalSpent"`
}

// Result bundles the three aggregates written to the report.
type Result struct {
	UsersSummary   []UserSummary   `json:"UsersSummary"`
	TopCategories  []CategoryCount `json:"TopCategories"`
	HighestSpender SpenderTotal    `json:"HighestSpender"`
}

// Analyze runs the three aggregate computations concurrently over the same
// snapshot and joins the results. Each goroutine writes a distinct field, so
// no synchronization beyond the join is needed.
func Analyze(ctx context.Context, snapshot []domain.Transaction) (*Result, error) {
	result := &Result{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.UsersSummary = UserSummaries(snapshot)
		return nil
	})
	g.Go(func() error {
		result.TopCategories = TopCategories(snapshot, TopCategoriesCount)
		return nil
	})
	g.Go(func() error {
		result.HighestSpender = HighestSpender(snapshot)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	return result, nil
}

// UserSummaries groups the snapshot by user and sums positive amounts as
// income and negative amounts as expense. Unspecified amounts contribute to
// neither sum, but still place their user in the result. Entries are ordered
// by user identifier so repeated runs produce identical reports.
func UserSummaries(snapshot []domain.Transaction) []UserSummary {
	byUser := make(map[uuid.UUID]*UserSummary)
	for _, rec := range snapshot {
		s, ok := byUser[rec.UserID]
		if !ok {
			s = &UserSummary{UserID: rec.UserID}
			byUser[rec.UserID] = s
		}
		if !rec.Amount.Valid {
			continue
		}
		switch {
		case rec.Amount.Decimal.IsPositive():
			s.TotalIncome = s.TotalIncome.Add(rec.Amount.Decimal)
		case rec.Amount.Decimal.IsNegative():
			s.TotalExpense = s.TotalExpense.Add(rec.Amount.Decimal)
		}
	}

	summaries := make([]UserSummary, 0, len(byUser))
	for _, s := range byUser {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UserID.String() < summaries[j].UserID.String()
	})
	return summaries
}

// TopCategories groups the snapshot by category and returns the n largest
// groups by member count. Equal counts are ordered by category name so the
// ranking is stable across runs.
func TopCategories(snapshot []domain.Transaction, n int) []CategoryCount {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, rec := range snapshot {
		counts[rec.Category]++
	}

	ranking := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		ranking = append(ranking, CategoryCount{Category: category, TransactionsCount: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].TransactionsCount != ranking[j].TransactionsCount {
			return ranking[i].TransactionsCount > ranking[j].TransactionsCount
		}
		return ranking[i].Category < ranking[j].Category
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// HighestSpender sums each user's amounts, treating unspecified as zero, and
// returns the user with the largest total. Equal totals resolve to the
// smaller user identifier. An empty snapshot returns the zero value.
func HighestSpender(snapshot []domain.Transaction) SpenderTotal {
	if len(snapshot) == 0 {
		return SpenderTotal{}
	}

	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, rec := range snapshot {
		total := totals[rec.UserID]
		if rec.Amount.Valid {
			total = total.Add(rec.Amount.Decimal)
		}
		totals[rec.UserID] = total
	}

	users := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].String() < users[j].String()
	})

	top := SpenderTotal{UserID: users[0], TotalSpent: totals[users[0]]}
	for _, id := range users[1:] {
		if totals[id].GreaterThan(top.TotalSpent) {
			top = SpenderTotal{UserID: id, TotalSpent: totals[id]}
		}
	}
	return top
}
