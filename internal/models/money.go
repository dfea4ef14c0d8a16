package models

import "github.com/shopspring/decimal"

// Currency of every amount in the marketplace.
const Currency = "ZAR"

var (
	// AmountTolerance is the largest difference between a claimed and a stored
	// amount that is still treated as rounding noise. Half a cent.
	AmountTolerance = decimal.New(5, -3)

	// CommissionRate is the marketplace's cut of each line item.
	CommissionRate = decimal.New(8, -2)
)

// ToCents converts a rand amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// AmountsMatch reports whether claimed is within AmountTolerance of stored.
func AmountsMatch(stored, claimed decimal.Decimal) bool {
	return stored.Sub(claimed).Abs().LessThanOrEqual(AmountTolerance)
}

// LineTotals prices one line: item total and its commission, both to 2dp.
func LineTotals(unitPrice decimal.Decimal, qty int) (itemTotal, commission decimal.Decimal) {
	itemTotal = unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	commission = itemTotal.Mul(CommissionRate).Round(2)
	return itemTotal, commission
}
