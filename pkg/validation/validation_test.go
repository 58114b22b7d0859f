package validation

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

type sample struct {
	Amount decimal.Decimal `json:"amount" validate:"dgt=0"`
	Fee    decimal.Decimal `json:"fee" validate:"dgte=0,dlte=100"`
	Date   civil.Date      `json:"date" validate:"required"`
	Email  string          `json:"email" validate:"omitempty,email"`
	Items  []item          `json:"items" validate:"dive"`
}

type item struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

func TestStruct(t *testing.T) {
	valid := sample{
		Amount: decimal.RequireFromString("0.01"),
		Date:   civil.Date{Year: 2025, Month: 4, Day: 1},
		Items:  []item{{Quantity: 1}},
	}

	tests := []struct {
		name           string
		modify         func(s *sample)
		expectedField  string
		expectedReason string
	}{
		{
			name:   "valid",
			modify: func(s *sample) {},
		},
		{
			name:           "zero amount",
			modify:         func(s *sample) { s.Amount = decimal.Zero },
			expectedField:  "amount",
			expectedReason: "must be greater than 0",
		},
		{
			name:   "amount below float precision",
			modify:         func(s *sample) { s.Amount = decimal.New(1, -400) },
		},
		{
			name:           "negative fee below float precision",
			modify:         func(s *sample) { s.Fee = decimal.New(-1, -400) },
			expectedField:  "fee",
			expectedReason: "must be greater than or equal to 0",
		},
		{
			name:           "fee above bound",
			modify:         func(s *sample) { s.Fee = decimal.RequireFromString("100.000000000000000001") },
			expectedField:  "fee",
			expectedReason: "must be less than or equal to 100",
		},
		{
			name:           "unset date",
			modify:         func(s *sample) { s.Date = civil.Date{} },
			expectedField:  "date",
			expectedReason: "is required",
		},
		{
			name:           "impossible date",
			modify:         func(s *sample) { s.Date = civil.Date{Year: 2025, Month: 2, Day: 30} },
			expectedField:  "date",
			expectedReason: "is required",
		},
		{
			name:           "bad email",
			modify:         func(s *sample) { s.Email = "not-an-email" },
			expectedField:  "email",
			expectedReason: "must be a valid email address",
		},
		{
			name:           "nested field",
			modify:         func(s *sample) { s.Items = []item{{Quantity: 1}, {Quantity: 0}} },
			expectedField:  "items[1].quantity",
			expectedReason: "must be greater than or equal to 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Items = append([]item(nil), valid.Items...)
			tt.modify(&s)

			err := Struct(s)

			if tt.expectedField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var validationErr *apperrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.expectedField, validationErr.Field)
			assert.Equal(t, tt.expectedReason, validationErr.Reason)
		})
	}
}
