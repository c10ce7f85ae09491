package domain

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// CalculateEMI 按标准等额本息公式计算月供：P·r·(1+r)^n / ((1+r)^n − 1)，
// 其中 r 为月利率 = 年利率/12/100。利率为 0 时退化为本金按期平均。
// 本金或期限非正时返回 0，视为数据未齐而非错误。纯函数，无副作用。
func CalculateEMI(principal, annualRatePct decimal.Decimal, months int) decimal.Decimal {
	if principal.Sign() <= 0 || months <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(months))
	if annualRatePct.Sign() == 0 {
		return principal.DivRound(n, 2)
	}
	r := annualRatePct.Div(twelve).Div(hundred)
	factor := one.Add(r).Pow(n)
	return principal.Mul(r).Mul(factor).DivRound(factor.Sub(one), 2)
}

// ComputeAffordabilityRatio 偿付比 = 月供 / 月收入。月收入非正时返回 0。
func ComputeAffordabilityRatio(emi, monthlyIncome decimal.Decimal) decimal.Decimal {
	if monthlyIncome.Sign() <= 0 {
		return decimal.Zero
	}
	return emi.DivRound(monthlyIncome, 4)
}

// FOIRBand 按 FOIR 百分比给出负担区间，仅用于解释性展示，不参与审批决策
func FOIRBand(ratio decimal.Decimal) string {
	pct := ratio.Mul(hundred)
	switch {
	case pct.LessThan(decimal.NewFromInt(30)):
		return "comfortable"
	case pct.LessThan(decimal.NewFromInt(50)):
		return "stretched"
	case pct.LessThan(decimal.NewFromInt(60)):
		return "risky"
	default:
		return "rejected"
	}
}
