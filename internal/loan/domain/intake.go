package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// 开案必备字段的固定采集优先级
const (
	FieldAmount         = "amount"
	FieldTenure         = "tenure_months"
	FieldPurpose        = "purpose"
	FieldEmploymentType = "employment_type"
	FieldMonthlyIncome  = "monthly_income"
)

// IntakeFieldOrder 开案字段固定优先级：金额 → 期限 → 用途 → 雇佣类型 → 月收入
var IntakeFieldOrder = []string{
	FieldAmount,
	FieldTenure,
	FieldPurpose,
	FieldEmploymentType,
	FieldMonthlyIncome,
}

// ExtractedFields 抽取边界产出的可选字段集合。
// 类型强制与格式校验在抽取层完成一次，业务规则不再做二次转换。
type ExtractedFields struct {
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	TenureMonths   *int             `json:"tenure_months,omitempty"`
	Purpose        *string          `json:"purpose,omitempty"`
	EmploymentType *string          `json:"employment_type,omitempty"`
	MonthlyIncome  *decimal.Decimal `json:"monthly_income,omitempty"`

	FullName *string `json:"full_name,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Email    *string `json:"email,omitempty"`
	PAN      *string `json:"pan,omitempty"`
	Aadhaar  *string `json:"aadhaar,omitempty"`
	Address  *string `json:"address,omitempty"`
	Consent  *bool   `json:"consent,omitempty"`
}

// IsEmpty 是否未抽取到任何字段
func (f ExtractedFields) IsEmpty() bool {
	return f.Amount == nil && f.TenureMonths == nil && f.Purpose == nil &&
		f.EmploymentType == nil && f.MonthlyIncome == nil &&
		f.FullName == nil && f.Mobile == nil && f.Email == nil &&
		f.PAN == nil && f.Aadhaar == nil && f.Address == nil &&
		f.Consent == nil
}

// MergeExtracted 非破坏性合并抽取结果：仅填充尚为空的字段，
// 越界或类型不合法的值逐字段丢弃，绝不中断本轮处理。
func (a *LoanApplication) MergeExtracted(f ExtractedFields) {
	if f.Amount != nil && a.Amount == nil && f.Amount.Sign() > 0 {
		v := *f.Amount
		a.Amount = &v
	}
	if f.TenureMonths != nil && a.TenureMonths == nil && *f.TenureMonths > 0 {
		v := *f.TenureMonths
		a.TenureMonths = &v
	}
	if f.Purpose != nil && a.Purpose == nil && *f.Purpose != "" {
		v := *f.Purpose
		a.Purpose = &v
		profile := AnalyzePurpose(v)
		a.PurposeProfile = &profile
	}
	if f.EmploymentType != nil && a.EmploymentType == nil && validEmployment(*f.EmploymentType) {
		v := *f.EmploymentType
		a.EmploymentType = &v
	}
	if f.MonthlyIncome != nil && a.MonthlyIncome == nil && f.MonthlyIncome.Sign() >= 0 {
		v := *f.MonthlyIncome
		a.MonthlyIncome = &v
	}

	if f.FullName != nil && a.FullName == "" {
		a.FullName = *f.FullName
	}
	if f.Mobile != nil && a.Mobile == "" {
		a.Mobile = *f.Mobile
	}
	if f.Email != nil && a.Email == "" {
		a.Email = *f.Email
	}
	if f.PAN != nil && a.PAN == "" {
		a.PAN = *f.PAN
	}
	if f.Aadhaar != nil && a.Aadhaar == "" {
		a.Aadhaar = *f.Aadhaar
	}
	if f.Address != nil && a.Address == "" {
		a.Address = *f.Address
	}
	if f.Consent != nil && a.KYCConsent == nil {
		v := *f.Consent
		a.KYCConsent = &v
	}
	a.touch()
}

// MissingIntakeFields 按固定优先级返回尚缺的开案字段
func (a *LoanApplication) MissingIntakeFields() []string {
	var missing []string
	if a.Amount == nil {
		missing = append(missing, FieldAmount)
	}
	if a.TenureMonths == nil {
		missing = append(missing, FieldTenure)
	}
	if a.Purpose == nil {
		missing = append(missing, FieldPurpose)
	}
	if a.EmploymentType == nil {
		missing = append(missing, FieldEmploymentType)
	}
	if a.MonthlyIncome == nil {
		missing = append(missing, FieldMonthlyIncome)
	}
	return missing
}

// IntakeComplete 五项开案字段是否齐备
func (a *LoanApplication) IntakeComplete() bool {
	return len(a.MissingIntakeFields()) == 0
}

func validEmployment(v string) bool {
	switch v {
	case EmploymentSalaried, EmploymentSelfEmployed, EmploymentFreelancer, EmploymentUnemployed:
		return true
	}
	return false
}

// PurposeProfile 贷款用途画像，仅用于话术与展示，不参与审批决策
type PurposeProfile struct {
	Category              string `json:"category"`
	RiskProfile           string `json:"risk_profile"`
	Urgency               string `json:"urgency"`
	SuggestedTenureMonths int    `json:"suggested_tenure_months"`
}

var purposeProfiles = []struct {
	keyword string
	profile PurposeProfile
}{
	{"debt_consolidation", PurposeProfile{Category: "debt_consolidation", RiskProfile: "low", Urgency: "high", SuggestedTenureMonths: 36}},
	{"medical", PurposeProfile{Category: "medical", RiskProfile: "medium", Urgency: "critical", SuggestedTenureMonths: 12}},
	{"wedding", PurposeProfile{Category: "wedding", RiskProfile: "medium", Urgency: "high", SuggestedTenureMonths: 24}},
	{"education", PurposeProfile{Category: "education", RiskProfile: "low", Urgency: "medium", SuggestedTenureMonths: 60}},
	{"business", PurposeProfile{Category: "business", RiskProfile: "high", Urgency: "medium", SuggestedTenureMonths: 48}},
	{"home_renovation", PurposeProfile{Category: "home_renovation", RiskProfile: "low", Urgency: "low", SuggestedTenureMonths: 84}},
}

// AnalyzePurpose 按关键词归类贷款用途，未命中归入 other
func AnalyzePurpose(purpose string) PurposeProfile {
	lower := strings.ToLower(purpose)
	for _, p := range purposeProfiles {
		if strings.Contains(lower, p.keyword) || strings.Contains(lower, strings.ReplaceAll(p.keyword, "_", " ")) {
			return p.profile
		}
	}
	return PurposeProfile{Category: "other", RiskProfile: "medium", Urgency: "medium", SuggestedTenureMonths: 36}
}
