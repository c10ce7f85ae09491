package extraction

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

func extract(t *testing.T, app *domain.LoanApplication, message string) domain.ExtractedFields {
	t.Helper()
	fields, err := NewRegexExtractor().Extract(context.Background(), nil, app, message)
	require.NoError(t, err)
	return fields
}

func appExpecting(kind domain.InterruptKind, field string) *domain.LoanApplication {
	app := domain.NewApplication("x1")
	app.Interrupt = domain.NewFieldInterrupt(kind, field)
	return app
}

func TestExtractAmountVariants(t *testing.T) {
	app := appExpecting(domain.InterruptSalesInput, domain.FieldAmount)

	cases := []struct {
		message string
		want    int64
	}{
		{"300000", 300000},
		{"3,00,000", 300000},
		{"₹5 lakh", 500000},
		{"2 lac please", 200000},
		{"1 crore", 10000000},
		{"rs. 50000", 50000},
	}
	for _, tc := range cases {
		fields := extract(t, app, tc.message)
		require.NotNil(t, fields.Amount, "message %q", tc.message)
		require.True(t, fields.Amount.Equal(decimal.NewFromInt(tc.want)),
			"message %q: got %s", tc.message, fields.Amount)
	}
}

func TestExtractBareNumberFollowsExpectedField(t *testing.T) {
	income := appExpecting(domain.InterruptSalesInput, domain.FieldMonthlyIncome)
	fields := extract(t, income, "80000")
	require.Nil(t, fields.Amount)
	require.NotNil(t, fields.MonthlyIncome)
	require.True(t, fields.MonthlyIncome.Equal(decimal.NewFromInt(80000)))

	// 无中断上下文时按关键词线索归位
	fields = extract(t, nil, "my salary is 80000")
	require.NotNil(t, fields.MonthlyIncome)
	fields = extract(t, nil, "I want to borrow 200000")
	require.NotNil(t, fields.Amount)

	// 两者皆无则放弃该数字
	fields = extract(t, nil, "80000")
	require.Nil(t, fields.Amount)
	require.Nil(t, fields.MonthlyIncome)
}

func TestExtractTenure(t *testing.T) {
	fields := extract(t, nil, "24 months")
	require.NotNil(t, fields.TenureMonths)
	require.Equal(t, 24, *fields.TenureMonths)

	fields = extract(t, nil, "3 years")
	require.NotNil(t, fields.TenureMonths)
	require.Equal(t, 36, *fields.TenureMonths)
}

func TestExtractIdentityFields(t *testing.T) {
	fields := extract(t, nil, "my pan is abcde1234f and email rohan@example.com")
	require.NotNil(t, fields.PAN)
	require.Equal(t, "ABCDE1234F", *fields.PAN)
	require.NotNil(t, fields.Email)
	require.Equal(t, "rohan@example.com", *fields.Email)

	fields = extract(t, nil, "1234 5678 9012")
	require.NotNil(t, fields.Aadhaar)
	require.Equal(t, "123456789012", *fields.Aadhaar)
	// 12 位数字优先视为 Aadhaar，不再当手机号
	require.Nil(t, fields.Mobile)

	fields = extract(t, nil, "call me at 9876543210")
	require.NotNil(t, fields.Mobile)
	require.Equal(t, "9876543210", *fields.Mobile)
}

func TestExtractWholeMessageOTPNotBoundAsAmount(t *testing.T) {
	app := appExpecting(domain.InterruptSalesInput, domain.FieldAmount)

	// 整条消息即 6 位验证码时不得误认为金额
	fields := extract(t, app, "482913")
	require.True(t, fields.IsEmpty())

	// 带上下文的数字仍按金额归位
	fields = extract(t, app, "amount 482913")
	require.NotNil(t, fields.Amount)
	require.True(t, fields.Amount.Equal(decimal.NewFromInt(482913)))
}

func TestExtractEmployment(t *testing.T) {
	cases := map[string]string{
		"I am salaried":        domain.EmploymentSalaried,
		"self employed":        domain.EmploymentSelfEmployed,
		"I'm self-employed":    domain.EmploymentSelfEmployed,
		"freelancing gigs":     domain.EmploymentFreelancer,
		"currently unemployed": domain.EmploymentUnemployed,
	}
	for message, want := range cases {
		fields := extract(t, nil, message)
		require.NotNil(t, fields.EmploymentType, "message %q", message)
		require.Equal(t, want, *fields.EmploymentType)
	}
}

func TestExtractConsentOnlyDuringConsentInterrupt(t *testing.T) {
	// 未处于授权问答时，“yes” 不得当作授权
	fields := extract(t, nil, "yes")
	require.Nil(t, fields.Consent)

	app := appExpecting(domain.InterruptKYCConsent, "kyc_consent")
	fields = extract(t, app, "yes")
	require.NotNil(t, fields.Consent)
	require.True(t, *fields.Consent)

	fields = extract(t, app, "I do not consent")
	require.NotNil(t, fields.Consent)
	require.False(t, *fields.Consent)
}

func TestExtractPurposeAndName(t *testing.T) {
	purpose := appExpecting(domain.InterruptSalesInput, domain.FieldPurpose)
	fields := extract(t, purpose, "home renovation")
	require.NotNil(t, fields.Purpose)
	require.Equal(t, "home renovation", *fields.Purpose)

	name := appExpecting(domain.InterruptVerificationInput, "full_name")
	fields = extract(t, name, "Rohan Sharma")
	require.NotNil(t, fields.FullName)
	require.Equal(t, "Rohan Sharma", *fields.FullName)

	// 含数字的回答不视为姓名
	fields = extract(t, name, "Rohan 42")
	require.Nil(t, fields.FullName)
}
