package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-ledger/internal/domain"
)

// DefaultOverdueThresholdDays separates regular customers from bad ones.
const DefaultOverdueThresholdDays = 30

// Tab names one of the customer listing views.
type Tab string

const (
	TabRegular     Tab = "regular"
	TabBadCustomer Tab = "bad_customer"
	TabMissing     Tab = "missing"
)

// ParseTab accepts the tab names, with empty meaning all tabs.
func ParseTab(s string) (Tab, bool, error) {
	switch Tab(s) {
	case "":
		return "", false, nil
	case TabRegular, TabBadCustomer, TabMissing:
		return Tab(s), true, nil
	}
	return "", false, fmt.Errorf("unknown tab %q", s)
}

// Categories partitions one listing. The three slices are disjoint and
// together hold every input record exactly once.
type Categories struct {
	Regular     []domain.CustomerSummary `json:"regular"`
	BadCustomer []domain.CustomerSummary `json:"bad_customer"`
	Missing     []domain.CustomerSummary `json:"missing"`
}

// Tab returns the view for tab, or nil for an unknown tab.
func (c Categories) Tab(tab Tab) []domain.CustomerSummary {
	switch tab {
	case TabRegular:
		return c.Regular
	case TabBadCustomer:
		return c.BadCustomer
	case TabMissing:
		return c.Missing
	}
	return nil
}

// Categorize splits customers using DefaultOverdueThresholdDays.
func Categorize(customers []domain.CustomerSummary) Categories {
	return CategorizeWithThreshold(customers, DefaultOverdueThresholdDays)
}

// CategorizeWithThreshold splits customers into missing, bad (overdue longer
// than thresholdDays) and regular. Missing takes precedence over overdue.
// Regular keeps input order except that Inactive loans move to the end.
func CategorizeWithThreshold(customers []domain.CustomerSummary, thresholdDays int) Categories {
	c := Categories{
		Regular:     []domain.CustomerSummary{},
		BadCustomer: []domain.CustomerSummary{},
		Missing:     []domain.CustomerSummary{},
	}

	for _, customer := range customers {
		switch {
		case customer.IsMissing:
			c.Missing = append(c.Missing, customer)
		case customer.OverdueDays > thresholdDays:
			c.BadCustomer = append(c.BadCustomer, customer)
		default:
			c.Regular = append(c.Regular, customer)
		}
	}

	sort.SliceStable(c.Regular, func(i, j int) bool {
		return !isInactive(c.Regular[i]) && isInactive(c.Regular[j])
	})

	return c
}

func isInactive(c domain.CustomerSummary) bool {
	return c.LoanStatus == domain.LoanStatusInactive
}

// SummarizeAnalytics passes the aggregates through, substituting zeros when
// the lending api omitted them.
func SummarizeAnalytics(a *domain.LineAnalytics) domain.LineAnalytics {
	if a == nil {
		return domain.LineAnalytics{
			TotalPendingAmount: decimal.Zero,
			TotalPendingPoints: decimal.Zero,
			OverdueAmount:      decimal.Zero,
			OverduePoints:      decimal.Zero,
		}
	}
	return *a
}
