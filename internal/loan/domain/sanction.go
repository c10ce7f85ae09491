package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SanctionLetter 批贷函：审批通过后的最终放款条件摘要
type SanctionLetter struct {
	Reference     string          `json:"reference"`
	ApplicationID string          `json:"application_id"`
	ApplicantName string          `json:"applicant_name"`
	Amount        decimal.Decimal `json:"amount"`
	TenureMonths  int             `json:"tenure_months"`
	AnnualRatePct decimal.Decimal `json:"annual_rate_pct"`
	EMI           decimal.Decimal `json:"emi"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	DocumentHash  string          `json:"document_hash"`
	GeneratedAt   time.Time       `json:"generated_at"`
	ValidUntil    time.Time       `json:"valid_until"`
}

// SanctionGenerator 批贷函生成器。确定性推导，不做审批决策；
// 引擎在每次批准迁移中恰好调用一次。
type SanctionGenerator struct {
	annualRatePct decimal.Decimal
	validity      time.Duration
}

// NewSanctionGenerator 创建批贷函生成器
func NewSanctionGenerator(annualRatePct float64, validityDays int) *SanctionGenerator {
	if validityDays <= 0 {
		validityDays = 30
	}
	return &SanctionGenerator{
		annualRatePct: decimal.NewFromFloat(annualRatePct),
		validity:      time.Duration(validityDays) * 24 * time.Hour,
	}
}

// Generate 基于申请记录推导批贷函。金额或期限缺失时返回错误。
func (g *SanctionGenerator) Generate(app *LoanApplication) (*SanctionLetter, error) {
	if app.Amount == nil || app.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if app.TenureMonths == nil || *app.TenureMonths <= 0 {
		return nil, ErrInvalidTenure
	}

	amount := *app.Amount
	months := *app.TenureMonths
	emi := CalculateEMI(amount, g.annualRatePct, months)
	totalPayable := emi.Mul(decimal.NewFromInt(int64(months)))
	totalInterest := totalPayable.Sub(amount)
	if totalInterest.Sign() < 0 {
		totalInterest = decimal.Zero
	}

	now := time.Now()
	ref := newSanctionReference()
	return &SanctionLetter{
		Reference:     ref,
		ApplicationID: app.ID,
		ApplicantName: app.FullName,
		Amount:        amount,
		TenureMonths:  months,
		AnnualRatePct: g.annualRatePct,
		EMI:           emi,
		TotalPayable:  totalPayable,
		TotalInterest: totalInterest,
		ProcessingFee: decimal.Zero,
		DocumentHash:  sanctionDocumentHash(ref, app.ID, now),
		GeneratedAt:   now,
		ValidUntil:    now.Add(g.validity),
	}, nil
}

// newSanctionReference 生成批贷函编号：SL- 前缀加 8 位大写十六进制
func newSanctionReference() string {
	return "SL-" + strings.ToUpper(uuid.New().String()[:8])
}

// sanctionDocumentHash 防篡改指纹：编号、申请号与生成时间拼接后 base64 截断。
// 仅用于一致性比对，不具备密码学强度。
func sanctionDocumentHash(reference, applicationID string, at time.Time) string {
	raw := fmt.Sprintf("%s-%s-%d", reference, applicationID, at.Unix())
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	if len(encoded) > 32 {
		encoded = encoded[:32]
	}
	return encoded
}
