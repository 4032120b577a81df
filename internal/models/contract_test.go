package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionContract(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{ContractStatusPending, ContractStatusActive, true},
		{ContractStatusPending, ContractStatusCancelled, true},
		{ContractStatusPending, ContractStatusCompleted, false},
		{ContractStatusActive, ContractStatusCompleted, true},
		{ContractStatusActive, ContractStatusCancelled, true},
		{ContractStatusActive, ContractStatusPending, false},
		{ContractStatusCompleted, ContractStatusActive, false},
		{ContractStatusCompleted, ContractStatusCancelled, false},
		{ContractStatusCancelled, ContractStatusActive, false},
		{ContractStatusCancelled, ContractStatusPending, false},
		{"unknown", ContractStatusActive, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransitionContract(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSplitCommission(t *testing.T) {
	rate := decimal.RequireFromString("0.05")

	total := decimal.NewFromInt(1000)
	commission, farmer := SplitCommission(total, rate)
	assert.True(t, commission.Equal(decimal.NewFromInt(50)), "commission = %s", commission)
	assert.True(t, farmer.Equal(decimal.NewFromInt(950)), "farmer = %s", farmer)

	// Сумма долей всегда равна исходной сумме, без потери копеек.
	for _, raw := range []string{"45", "0.01", "99.99", "1234.56", "333.33"} {
		total := decimal.RequireFromString(raw)
		commission, farmer := SplitCommission(total, rate)
		assert.True(t, commission.Add(farmer).Equal(total), "split of %s leaks", raw)
	}
}

func TestSplitCommission_ZeroRate(t *testing.T) {
	commission, farmer := SplitCommission(decimal.NewFromInt(500), decimal.Zero)
	assert.True(t, commission.IsZero())
	assert.True(t, farmer.Equal(decimal.NewFromInt(500)))
}
