package domain

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
)

// KYC 核验状态
const (
	KYCStatusVerified = "verified"
	KYCStatusFailed   = "failed"
)

// FraudRequest 反欺诈评估入参
type FraudRequest struct {
	UserID   string
	DeviceID string
	IP       string
	Phone    string
}

// FraudAssessment 反欺诈评估结果
type FraudAssessment struct {
	RiskScore int
	Flags     []string
}

// KYCResult KYC 核验结果
type KYCResult struct {
	Status string
	Reason string
}

// PreApprovedOffer 预授信报价
type PreApprovedOffer struct {
	CustomerID       string
	PreApprovedLimit decimal.Decimal
}

// DocumentCheck 材料校验结果
type DocumentCheck struct {
	Verified bool
	Reason   string
}

// FraudOracle 反欺诈外部判定
type FraudOracle interface {
	Assess(ctx context.Context, req FraudRequest) (*FraudAssessment, error)
}

// KYCOracle KYC/CRM 外部核验
type KYCOracle interface {
	Verify(ctx context.Context, phone, address string) (*KYCResult, error)
}

// CreditBureauOracle 征信外部取数
type CreditBureauOracle interface {
	Score(ctx context.Context, pan, aadhaar string, monthlyIncome decimal.Decimal) (int, error)
}

// OfferOracle 预授信名单查询，按 PAN → 手机号 → 姓名优先级首个命中生效；
// 未命中返回 (nil, nil)。
type OfferOracle interface {
	Lookup(ctx context.Context, pan, phone, name string) (*PreApprovedOffer, error)
}

// DocumentValidator 材料真实性校验
type DocumentValidator interface {
	Validate(ctx context.Context, doc Document, app *LoanApplication) (*DocumentCheck, error)
}

// DocumentStore 材料存储。同一份上传幂等，核心仅保存返回的路径。
type DocumentStore interface {
	Put(ctx context.Context, applicationID, docType, fileName string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

// FieldExtractor 自由文本字段抽取边界。
// 抽取失败或空产出时核心须继续工作，回退到确定性抽取器。
type FieldExtractor interface {
	Extract(ctx context.Context, history []Message, app *LoanApplication, message string) (ExtractedFields, error)
}
