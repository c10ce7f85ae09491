// Package extraction 提供确定性的正则字段抽取器。
// 作为抽取边界的默认实现与降级兜底：无外部依赖、结果可复现。
package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

var (
	numberPattern  = regexp.MustCompile(`([0-9][0-9,]*\.?[0-9]*)`)
	monthsPattern  = regexp.MustCompile(`(\d+)\s*(?:months|month|mos)\b`)
	yearsPattern   = regexp.MustCompile(`(\d+)\s*(?:years|year|yrs|yr)\b`)
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	panPattern     = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	aadhaarPattern = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)
	mobilePattern  = regexp.MustCompile(`\b\d{10}\b`)
	otpPattern     = regexp.MustCompile(`^\d{6}$`)
)

type regexExtractor struct{}

// NewRegexExtractor 创建正则抽取器
func NewRegexExtractor() domain.FieldExtractor {
	return &regexExtractor{}
}

// Extract 从单条消息抽取字段。裸数字按检查点中断声明的期望字段归位，
// 无中断上下文时按关键词线索归位，两者皆无则放弃该数字。
func (x *regexExtractor) Extract(_ context.Context, _ []domain.Message, app *domain.LoanApplication, message string) (domain.ExtractedFields, error) {
	var fields domain.ExtractedFields
	text := strings.TrimSpace(message)
	if text == "" {
		return fields, nil
	}
	lowered := strings.ToLower(text)

	// 身份类字段格式明确，可无条件抽取
	if pan := panPattern.FindString(strings.ToUpper(text)); pan != "" {
		fields.PAN = &pan
	}
	if email := emailPattern.FindString(text); email != "" {
		fields.Email = &email
	}
	if aadhaar := aadhaarPattern.FindString(text); aadhaar != "" {
		clean := strings.ReplaceAll(aadhaar, " ", "")
		fields.Aadhaar = &clean
	}
	if fields.Aadhaar == nil {
		if mobile := mobilePattern.FindString(text); mobile != "" {
			fields.Mobile = &mobile
		}
	}
	if emp := extractEmployment(lowered); emp != "" {
		fields.EmploymentType = &emp
	}
	if app != nil && app.Interrupt != nil && app.Interrupt.Kind == domain.InterruptKYCConsent {
		if consent, ok := extractConsent(lowered); ok {
			fields.Consent = &consent
		}
	}
	// 整条消息即 6 位验证码时由验签评估器直接消费原文，不占用任何抽取字段
	isOTP := otpPattern.MatchString(text)

	if months, ok := extractTenureMonths(lowered); ok {
		fields.TenureMonths = &months
	}

	// 数值字段按中断声明的期望字段归位
	expect := expectedField(app)
	if amount, ok := extractAmount(lowered); ok && fields.Aadhaar == nil && fields.Mobile == nil && !isOTP {
		switch {
		case expect == domain.FieldAmount || strings.Contains(lowered, "loan") || strings.Contains(lowered, "borrow"):
			fields.Amount = &amount
		case expect == domain.FieldMonthlyIncome || strings.Contains(lowered, "income") || strings.Contains(lowered, "salary") || strings.Contains(lowered, "earn"):
			fields.MonthlyIncome = &amount
		case expect == domain.FieldTenure:
			// 期限已由专用模式处理
		}
	}

	if expect == domain.FieldPurpose && fields.IsEmpty() {
		purpose := text
		fields.Purpose = &purpose
	}
	if expectsIdentityField(app, "full_name") && fields.IsEmpty() && looksLikeName(text) {
		fields.FullName = &text
	}

	return fields, nil
}

// expectedField 读取检查点中断声明的首个期望字段
func expectedField(app *domain.LoanApplication) string {
	if app == nil || app.Interrupt == nil || len(app.Interrupt.Fields) == 0 {
		return ""
	}
	return app.Interrupt.Fields[0]
}

func expectsIdentityField(app *domain.LoanApplication, field string) bool {
	if app == nil || app.Interrupt == nil {
		return false
	}
	if app.Interrupt.Kind != domain.InterruptVerificationInput {
		return false
	}
	for _, f := range app.Interrupt.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// extractAmount 解析金额，支持 lakh/lac 与 crore 量词
func extractAmount(lowered string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("₹", "", "rs.", "", "rs", "", "inr", "").Replace(lowered)
	match := numberPattern.FindString(cleaned)
	if match == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	switch {
	case strings.Contains(lowered, "crore"):
		value = value.Mul(decimal.NewFromInt(10000000))
	case strings.Contains(lowered, "lakh") || strings.Contains(lowered, "lac"):
		value = value.Mul(decimal.NewFromInt(100000))
	}
	if value.Sign() <= 0 {
		return decimal.Zero, false
	}
	return value, true
}

// extractTenureMonths 解析期限，年按 12 个月折算
func extractTenureMonths(lowered string) (int, bool) {
	if m := monthsPattern.FindStringSubmatch(lowered); m != nil {
		return atoi(m[1]), true
	}
	if m := yearsPattern.FindStringSubmatch(lowered); m != nil {
		return atoi(m[1]) * 12, true
	}
	return 0, false
}

func extractEmployment(lowered string) string {
	switch {
	case strings.Contains(lowered, "salaried"):
		return domain.EmploymentSalaried
	case strings.Contains(lowered, "self") && strings.Contains(lowered, "employ"):
		return domain.EmploymentSelfEmployed
	case strings.Contains(lowered, "freelanc"):
		return domain.EmploymentFreelancer
	case strings.Contains(lowered, "unemploy"):
		return domain.EmploymentUnemployed
	}
	return ""
}

// extractConsent 仅在授权问答上下文内解析肯定/否定回答
func extractConsent(lowered string) (bool, bool) {
	trimmed := strings.TrimSpace(strings.Trim(lowered, ".!"))
	switch trimmed {
	case "yes", "y", "sure", "ok", "okay", "i consent", "i agree", "agreed":
		return true, true
	case "no", "n", "nope", "i do not consent", "i don't consent":
		return false, true
	}
	if strings.Contains(lowered, "consent") || strings.Contains(lowered, "agree") {
		if strings.Contains(lowered, "not") || strings.Contains(lowered, "n't") {
			return false, true
		}
		return true, true
	}
	return false, false
}

// looksLikeName 无数字、1~4 个词视为姓名回答
func looksLikeName(text string) bool {
	if strings.ContainsAny(text, "0123456789@") {
		return false
	}
	words := strings.Fields(text)
	return len(words) >= 1 && len(words) <= 4
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
