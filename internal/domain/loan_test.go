package domain

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

func validBase() LoanBase {
	return LoanBase{
		LoanID:               42,
		PrincipalAmount:      decimal.NewFromInt(10000),
		PreCharges:           decimal.NewFromInt(200),
		NumberOfInstallments: 12,
		LendingDate:          civil.Date{Year: 2025, Month: 4, Day: 1},
		Repayments: []RepaymentRecord{
			{Amount: decimal.NewFromInt(1000), Type: RepaymentTypeEMI, Date: civil.Date{Year: 2025, Month: 5, Day: 1}},
		},
	}
}

func TestNewInstallmentLoan(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(b *LoanBase, t *InstallmentTerms)
		expectedField string
	}{
		{
			name:   "valid loan",
			modify: func(b *LoanBase, t *InstallmentTerms) {},
		},
		{
			name:          "negative principal",
			modify:        func(b *LoanBase, t *InstallmentTerms) { b.PrincipalAmount = decimal.NewFromInt(-1) },
			expectedField: "principal_amount",
		},
		{
			name:          "negative principal below float precision",
			modify:        func(b *LoanBase, t *InstallmentTerms) { b.PrincipalAmount = decimal.New(-1, -400) },
			expectedField: "principal_amount",
		},
		{
			name:          "zero installments",
			modify:        func(b *LoanBase, t *InstallmentTerms) { b.NumberOfInstallments = 0 },
			expectedField: "number_of_installments",
		},
		{
			name:          "negative pre-charges",
			modify:        func(b *LoanBase, t *InstallmentTerms) { b.PreCharges = decimal.NewFromInt(-5) },
			expectedField: "pre_charges",
		},
		{
			name:          "missing lending date",
			modify:        func(b *LoanBase, t *InstallmentTerms) { b.LendingDate = civil.Date{} },
			expectedField: "lending_date",
		},
		{
			name: "negative repayment amount",
			modify: func(b *LoanBase, t *InstallmentTerms) {
				b.Repayments[0].Amount = decimal.NewFromInt(-10)
			},
			expectedField: "repayments[0].amount",
		},
		{
			name: "negative amount paid",
			modify: func(b *LoanBase, t *InstallmentTerms) {
				t.TotalAmountPaid = decimal.NewFromInt(-1)
			},
			expectedField: "total_amount_paid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := validBase()
			terms := InstallmentTerms{
				RepaymentAmountPerInstallment: decimal.NewFromInt(1000),
				TotalAmountPaid:               decimal.NewFromInt(1000),
			}
			tt.modify(&base, &terms)

			s, err := NewInstallmentLoan(base, terms)

			if tt.expectedField != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)

				var validationErr *apperrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tt.expectedField, validationErr.Field)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, LoanTypeInstallment, s.Type())
			assert.Equal(t, DefaultRepaymentFrequency, s.RepaymentFrequency())

			_, ok := s.InterestOnly()
			assert.False(t, ok)
			got, ok := s.Installment()
			require.True(t, ok)
			assert.True(t, got.RepaymentAmountPerInstallment.Equal(decimal.NewFromInt(1000)))
		})
	}
}

func TestNewInterestOnlyLoan(t *testing.T) {
	t.Run("valid loan", func(t *testing.T) {
		base := validBase()
		base.RepaymentFrequency = "Weekly"

		s, err := NewInterestOnlyLoan(base, InterestOnlyTerms{
			RateOfInterestPercent: decimal.NewFromInt(2),
			TotalPrincipalPaid:    decimal.Zero,
		})

		require.NoError(t, err)
		assert.Equal(t, LoanTypeInterestOnly, s.Type())
		assert.Equal(t, "Weekly", s.RepaymentFrequency())
		_, ok := s.Installment()
		assert.False(t, ok)
	})

	t.Run("negative rate", func(t *testing.T) {
		_, err := NewInterestOnlyLoan(validBase(), InterestOnlyTerms{
			RateOfInterestPercent: decimal.NewFromInt(-2),
		})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestLoanSnapshot_Immutable(t *testing.T) {
	base := validBase()
	s, err := NewInstallmentLoan(base, InstallmentTerms{RepaymentAmountPerInstallment: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	base.Repayments[0].Comment = "changed by caller"
	got := s.Repayments()
	got[0].Comment = "changed by reader"

	assert.Empty(t, s.Repayments()[0].Comment)
	assert.Empty(t, s.Base().Repayments[0].Comment)
}

func TestLoanSnapshot_ZeroValue(t *testing.T) {
	var s LoanSnapshot

	assert.Equal(t, LoanType(""), s.Type())
	assert.Nil(t, s.Terms())
	_, ok := s.Installment()
	assert.False(t, ok)
}

func TestNewLoanSnapshot(t *testing.T) {
	record := LoanRecord{
		LoanID:                        9,
		LoanType:                      LoanTypeInterestOnly,
		PrincipalAmount:               decimal.NewFromInt(50000),
		RateOfInterestPercent:         decimal.NewFromInt(2),
		RepaymentAmountPerInstallment: decimal.NewFromInt(999),
		NumberOfInstallments:          1,
		TotalPrincipalPaid:            decimal.NewFromInt(10000),
		LendingDate:                   civil.Date{Year: 2025, Month: 1, Day: 15},
	}

	t.Run("dispatches on loan type", func(t *testing.T) {
		s, err := NewLoanSnapshot(record)
		require.NoError(t, err)

		terms, ok := s.InterestOnly()
		require.True(t, ok)
		assert.True(t, terms.TotalPrincipalPaid.Equal(decimal.NewFromInt(10000)))

		// the installment field of the other branch is dropped
		assert.True(t, s.Record().RepaymentAmountPerInstallment.IsZero())
	})

	t.Run("unknown loan type", func(t *testing.T) {
		r := record
		r.LoanType = "BalloonLoan"

		_, err := NewLoanSnapshot(r)

		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "loan_type", validationErr.Field)
	})
}

func TestLoanSnapshot_JSON(t *testing.T) {
	s, err := NewInstallmentLoan(validBase(), InstallmentTerms{
		RepaymentAmountPerInstallment: decimal.NewFromInt(1000),
		TotalAmountPaid:               decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"loan_type":"InstallmentLoan"`)
	assert.Contains(t, string(data), `"lending_date":"2025-04-01"`)

	var decoded LoanSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, s.LoanID(), decoded.LoanID())
	assert.Equal(t, s.Type(), decoded.Type())
	assert.Equal(t, s.LendingDate(), decoded.LendingDate())
	assert.True(t, s.PrincipalAmount().Equal(decoded.PrincipalAmount()))
	require.Len(t, decoded.Repayments(), 1)
	assert.True(t, decoded.Repayments()[0].Amount.Equal(decimal.NewFromInt(1000)))

	t.Run("invalid cached record is rejected", func(t *testing.T) {
		bad := `{"loan_id":1,"loan_type":"InstallmentLoan","principal_amount":"100","number_of_installments":0,"lending_date":"2025-04-01"}`

		var snapshot LoanSnapshot
		err := json.Unmarshal([]byte(bad), &snapshot)

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestParseLoanType(t *testing.T) {
	got, err := ParseLoanType("InterestOnlyLoan")
	require.NoError(t, err)
	assert.Equal(t, LoanTypeInterestOnly, got)

	_, err = ParseLoanType("Installment Loan")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
