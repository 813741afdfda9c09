package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKind_Label(t *testing.T) {
	assert.Equal(t, "Receita", KindRevenue.Label())
	assert.Equal(t, "Despesa", KindExpense.Label())
	assert.Equal(t, "Adiantamento", KindAdvance.Label())

	// Stray codes from old imports render as advances.
	assert.Equal(t, "Adiantamento", Kind(0).Label())
	assert.Equal(t, "Adiantamento", Kind(9).Label())
}

func TestEntry_SignedBalance(t *testing.T) {
	e := Entry{Balance: decimal.NewFromInt(100), BalanceSign: SignPositive}
	assert.True(t, e.SignedBalance().Equal(decimal.NewFromInt(100)))

	e.BalanceSign = SignNegative
	assert.True(t, e.SignedBalance().Equal(decimal.NewFromInt(-100)))

	// Anything that is not P negates.
	e.BalanceSign = ""
	assert.True(t, e.SignedBalance().Equal(decimal.NewFromInt(-100)))
}
