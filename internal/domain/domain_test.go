package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input   string
		want    TransactionType
		wantErr bool
	}{
		{"income", Income, false},
		{" Expense ", Expense, false},
		{"transfer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTransactionType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransaction_Signed(t *testing.T) {
	in := Transaction{Type: Income, Amount: decimal.NewFromInt(100)}
	out := Transaction{Type: Expense, Amount: decimal.NewFromInt(30)}

	assert.True(t, in.Signed().Equal(decimal.NewFromInt(100)))
	assert.True(t, out.Signed().Equal(decimal.NewFromInt(-30)))
}

func TestCategory_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		wantErr bool
	}{
		{"valid", Category{Name: " Salario ", Type: Income, Color: "#3B82F6"}, false},
		{"default color", Category{Name: "Comida", Type: Expense}, false},
		{"blank name", Category{Name: "   ", Type: Expense}, true},
		{"bad type", Category{Name: "Otros", Type: "transfer"}, true},
		{"color outside palette", Category{Name: "Otros", Type: Expense, Color: "#000000"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cat
			c.Normalize()
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemberships_Contains(t *testing.T) {
	ms := Memberships{
		{Association: Association{ID: "a1", Name: "Casa"}, DisplayName: "Ana"},
	}
	assert.True(t, ms.Contains("a1"))
	assert.False(t, ms.Contains("a2"))
}
