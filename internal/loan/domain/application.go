// Package domain 包含贷款申请工作流的核心领域模型：
// 申请聚合、阶段状态机、中断信号、规则表、EMI 与批贷函推导。
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrApplicationNotFound  = errors.New("loan application not found")
	ErrApplicationClosed    = errors.New("loan application already finalized")
	ErrReasonRequired       = errors.New("rejection reason is required")
	ErrInvalidAmount        = errors.New("requested amount must be positive")
	ErrInvalidTenure        = errors.New("tenure months out of range")
	ErrCreditScoreCached    = errors.New("credit score already cached")
	ErrSanctionAlreadySet   = errors.New("sanction letter already generated")
	ErrSanctionNotAvailable = errors.New("sanction letter not available")
	ErrInterruptOnTerminal  = errors.New("cannot suspend a finalized application")
)

// Stage 工作流阶段
type Stage string

const (
	StageDiscovery         Stage = "discovery"
	StageVerification      Stage = "verification"
	StageUnderwriting      Stage = "underwriting"
	StageAwaitingDocuments Stage = "awaiting_documents"
	StageClosure           Stage = "closure"
	StageRejected          Stage = "rejected"
)

// Status 申请状态
type Status string

const (
	StatusInProgress        Status = "in_progress"
	StatusAwaitingDocuments Status = "awaiting_documents"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusManualReview      Status = "manual_review"
)

// IsTerminal 判断状态是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusManualReview
}

// 雇佣类型
const (
	EmploymentSalaried     = "salaried"
	EmploymentSelfEmployed = "self_employed"
	EmploymentFreelancer   = "freelancer"
	EmploymentUnemployed   = "unemployed"
)

// 材料类型
const (
	DocBankStatement = "bank_statement"
	DocAddressProof  = "address_proof"
	DocSelfiePAN     = "selfie_pan"
	DocSalarySlip    = "salary_slip"
)

// Message 会话消息
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Document 已上传的申请材料
type Document struct {
	Type        string     `json:"type"`
	FileName    string     `json:"file_name"`
	StoragePath string     `json:"storage_path"`
	SizeBytes   int64      `json:"size_bytes"`
	Verified    bool       `json:"verified"`
	Reason      string     `json:"reason,omitempty"`
	ReceivedAt  time.Time  `json:"received_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

// DocumentRequest 待补充材料请求
type DocumentRequest struct {
	Type        string    `json:"type"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// LoanApplication 贷款申请聚合根，按线程/会话 id 唯一。
// 所有状态变更仅通过工作流引擎在单个逻辑事务内完成。
type LoanApplication struct {
	ID     string `json:"id"`
	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`

	// 贷款要素
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	TenureMonths   *int             `json:"tenure_months,omitempty"`
	Purpose        *string          `json:"purpose,omitempty"`
	PurposeProfile *PurposeProfile  `json:"purpose_profile,omitempty"`
	EmploymentType *string          `json:"employment_type,omitempty"`
	MonthlyIncome  *decimal.Decimal `json:"monthly_income,omitempty"`

	// 身份要素（一经写入不再覆盖，仅允许填充空值）
	FullName    string `json:"full_name,omitempty"`
	Mobile      string `json:"mobile,omitempty"`
	Email       string `json:"email,omitempty"`
	PAN         string `json:"pan,omitempty"`
	Aadhaar     string `json:"aadhaar,omitempty"`
	Address     string `json:"address,omitempty"`
	OTPVerified bool   `json:"otp_verified"`
	KYCConsent  *bool  `json:"kyc_consent,omitempty"`

	// 风控画像
	KYCStatus        string           `json:"kyc_status,omitempty"`
	KYCReason        string           `json:"kyc_reason,omitempty"`
	FraudScore       *int             `json:"fraud_score,omitempty"`
	FraudFlags       []string         `json:"fraud_flags,omitempty"`
	CreditScore      *int             `json:"credit_score,omitempty"`
	PreApprovedLimit *decimal.Decimal `json:"pre_approved_limit,omitempty"`
	CustomerID       string           `json:"customer_id,omitempty"`

	// 派生指标
	EMI                decimal.Decimal `json:"emi"`
	AffordabilityRatio decimal.Decimal `json:"affordability_ratio"`

	// 材料
	Documents          map[string]*Document `json:"documents,omitempty"`
	RequestedDocuments []DocumentRequest    `json:"requested_documents,omitempty"`

	// 决策
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Sanction        *SanctionLetter `json:"sanction,omitempty"`

	// 控制字段
	Interrupt   *Interrupt `json:"interrupt,omitempty"`
	Reflections int        `json:"reflections"`
	Messages    []Message  `json:"messages,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewApplication 以默认控制字段创建一条新的申请记录
func NewApplication(id string) *LoanApplication {
	now := time.Now()
	return &LoanApplication{
		ID:        id,
		Stage:     StageDiscovery,
		Status:    StatusInProgress,
		Documents: make(map[string]*Document),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal 申请是否已到终态
func (a *LoanApplication) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// touch 更新修改时间
func (a *LoanApplication) touch() {
	a.UpdatedAt = time.Now()
}

// AppendMessage 追加会话消息
func (a *LoanApplication) AppendMessage(role, content string) {
	a.Messages = append(a.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	a.touch()
}

// RecentMessages 返回最近 n 条消息
func (a *LoanApplication) RecentMessages(n int) []Message {
	if n <= 0 || len(a.Messages) <= n {
		return a.Messages
	}
	return a.Messages[len(a.Messages)-n:]
}

// Suspend 挂起申请等待外部输入。中断与终态互斥。
func (a *LoanApplication) Suspend(sig *Interrupt) error {
	if a.IsTerminal() {
		return ErrInterruptOnTerminal
	}
	a.Interrupt = sig
	if sig != nil && sig.Kind == InterruptDocumentUpload {
		a.Status = StatusAwaitingDocuments
		a.Stage = StageAwaitingDocuments
	}
	a.touch()
	return nil
}

// ClearInterrupt 恢复处理时清除中断信号，与状态迁移原子执行
func (a *LoanApplication) ClearInterrupt() {
	if a.Interrupt == nil {
		return
	}
	a.Interrupt = nil
	if a.Status == StatusAwaitingDocuments {
		a.Status = StatusInProgress
	}
	a.touch()
}

// Approve 批准申请并挂载批贷函。引擎在每次批准迁移中只调用一次。
func (a *LoanApplication) Approve(letter *SanctionLetter) error {
	if a.IsTerminal() {
		return ErrApplicationClosed
	}
	if a.Sanction != nil {
		return ErrSanctionAlreadySet
	}
	a.Status = StatusApproved
	a.Stage = StageClosure
	a.Sanction = letter
	a.Interrupt = nil
	a.touch()
	return nil
}

// Reject 拒绝申请。拒绝理由一经写入不可变更。
func (a *LoanApplication) Reject(reason string) error {
	if a.IsTerminal() {
		return ErrApplicationClosed
	}
	if reason == "" {
		return ErrReasonRequired
	}
	a.Status = StatusRejected
	a.Stage = StageRejected
	a.RejectionReason = reason
	a.Interrupt = nil
	a.touch()
	return nil
}

// MarkManualReview 转人工审核
func (a *LoanApplication) MarkManualReview() error {
	if a.IsTerminal() {
		return ErrApplicationClosed
	}
	a.Status = StatusManualReview
	a.Interrupt = nil
	a.touch()
	return nil
}

// SetCreditScore 缓存征信分。同一申请生命周期内只允许取数一次。
func (a *LoanApplication) SetCreditScore(score int) error {
	if a.CreditScore != nil {
		return ErrCreditScoreCached
	}
	a.CreditScore = &score
	a.touch()
	return nil
}

// SetPreApprovedOffer 缓存预授信额度与客户号
func (a *LoanApplication) SetPreApprovedOffer(limit decimal.Decimal, customerID string) {
	a.PreApprovedLimit = &limit
	a.CustomerID = customerID
	a.touch()
}

// SetFraudResult 记录反欺诈评估结果
func (a *LoanApplication) SetFraudResult(score int, flags []string) {
	a.FraudScore = &score
	a.FraudFlags = flags
	a.touch()
}

// SetKYCResult 记录 KYC 核验结果
func (a *LoanApplication) SetKYCResult(status, reason string) {
	a.KYCStatus = status
	a.KYCReason = reason
	a.touch()
}

// UpsertDocument 按材料类型幂等写入：重复上传覆盖而非追加
func (a *LoanApplication) UpsertDocument(doc Document) {
	if a.Documents == nil {
		a.Documents = make(map[string]*Document)
	}
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}
	d := doc
	a.Documents[doc.Type] = &d
	a.touch()
}

// MarkDocumentVerified 写入材料校验结果
func (a *LoanApplication) MarkDocumentVerified(docType string, verified bool, reason string) {
	doc, ok := a.Documents[docType]
	if !ok {
		return
	}
	now := time.Now()
	doc.Verified = verified
	doc.Reason = reason
	doc.VerifiedAt = &now
	a.touch()
}

// RequestDocuments 登记待补充材料清单（同类型不重复登记）
func (a *LoanApplication) RequestDocuments(types []string, reason string) {
	now := time.Now()
	for _, t := range types {
		exists := false
		for _, r := range a.RequestedDocuments {
			if r.Type == t {
				exists = true
				break
			}
		}
		if !exists {
			a.RequestedDocuments = append(a.RequestedDocuments, DocumentRequest{
				Type:        t,
				Reason:      reason,
				RequestedAt: now,
			})
		}
	}
	a.touch()
}

// SetAffordability 写入派生的月供与偿付比
func (a *LoanApplication) SetAffordability(emi, ratio decimal.Decimal) {
	a.EMI = emi
	a.AffordabilityRatio = ratio
	a.touch()
}

// IncReflection 反思计数自增，返回自增后的值
func (a *LoanApplication) IncReflection() int {
	a.Reflections++
	a.touch()
	return a.Reflections
}

// IdentityComplete 身份采集（含 OTP 与授权）是否全部完成
func (a *LoanApplication) IdentityComplete() bool {
	return a.FullName != "" &&
		a.Mobile != "" &&
		a.OTPVerified &&
		a.Email != "" &&
		a.PAN != "" &&
		a.Aadhaar != "" &&
		a.KYCConsent != nil && *a.KYCConsent
}

// InUnderwritingPhase 是否已进入授信/待补材料阶段
func (a *LoanApplication) InUnderwritingPhase() bool {
	return a.Stage == StageUnderwriting || a.Stage == StageAwaitingDocuments
}
