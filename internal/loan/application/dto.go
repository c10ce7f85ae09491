// Package application 实现贷款申请工作流的用例层：
// 轮次引擎、阶段评估器与对外的轮次响应契约。
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// 轮次响应状态
const (
	TurnStatusRunning       = "running"
	TurnStatusAwaitingInput = "awaiting_input"
	TurnStatusApproved      = "approved"
	TurnStatusRejected      = "rejected"
	TurnStatusManualReview  = "manual_review"
)

// TurnInput 一次入站事件
type TurnInput struct {
	Message string
}

// TurnResult 引擎处理完一个事件后的响应契约
type TurnResult struct {
	ApplicationID   string            `json:"application_id"`
	Reply           string            `json:"reply"`
	Status          string            `json:"status"`
	Interrupt       *domain.Interrupt `json:"interrupt,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	SanctionRef     string            `json:"sanction_ref,omitempty"`
	Snapshot        *Snapshot         `json:"snapshot,omitempty"`
}

// Snapshot 申请记录的只读投影
type Snapshot struct {
	ApplicationID      string                 `json:"application_id"`
	Stage              domain.Stage           `json:"stage"`
	Status             domain.Status          `json:"status"`
	Amount             *decimal.Decimal       `json:"amount,omitempty"`
	TenureMonths       *int                   `json:"tenure_months,omitempty"`
	Purpose            *string                `json:"purpose,omitempty"`
	PurposeProfile     *domain.PurposeProfile `json:"purpose_profile,omitempty"`
	EmploymentType     *string                `json:"employment_type,omitempty"`
	MonthlyIncome      *decimal.Decimal       `json:"monthly_income,omitempty"`
	FullName           string                 `json:"full_name,omitempty"`
	Mobile             string                 `json:"mobile,omitempty"`
	Email              string                 `json:"email,omitempty"`
	PAN                string                 `json:"pan,omitempty"`
	Aadhaar            string                 `json:"aadhaar,omitempty"`
	OTPVerified        bool                   `json:"otp_verified"`
	KYCConsent         *bool                  `json:"kyc_consent,omitempty"`
	KYCStatus          string                 `json:"kyc_status,omitempty"`
	FraudScore         *int                   `json:"fraud_score,omitempty"`
	CreditScore        *int                   `json:"credit_score,omitempty"`
	PreApprovedLimit   *decimal.Decimal       `json:"pre_approved_limit,omitempty"`
	EMI                decimal.Decimal        `json:"emi"`
	AffordabilityRatio decimal.Decimal        `json:"affordability_ratio"`
	FOIRBand           string                 `json:"foir_band,omitempty"`
	Documents          []domain.Document      `json:"documents,omitempty"`
	RequestedDocuments []string               `json:"requested_documents,omitempty"`
	Messages           []domain.Message       `json:"messages,omitempty"`
	RejectionReason    string                 `json:"rejection_reason,omitempty"`
	Sanction           *domain.SanctionLetter `json:"sanction,omitempty"`
	Reflections        int                    `json:"reflections"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// NewSnapshot 从聚合构建投影
func NewSnapshot(app *domain.LoanApplication) *Snapshot {
	s := &Snapshot{
		ApplicationID:      app.ID,
		Stage:              app.Stage,
		Status:             app.Status,
		Amount:             app.Amount,
		TenureMonths:       app.TenureMonths,
		Purpose:            app.Purpose,
		PurposeProfile:     app.PurposeProfile,
		EmploymentType:     app.EmploymentType,
		MonthlyIncome:      app.MonthlyIncome,
		FullName:           app.FullName,
		Mobile:             app.Mobile,
		Email:              app.Email,
		PAN:                app.PAN,
		Aadhaar:            app.Aadhaar,
		OTPVerified:        app.OTPVerified,
		KYCConsent:         app.KYCConsent,
		KYCStatus:          app.KYCStatus,
		FraudScore:         app.FraudScore,
		CreditScore:        app.CreditScore,
		PreApprovedLimit:   app.PreApprovedLimit,
		EMI:                app.EMI,
		AffordabilityRatio: app.AffordabilityRatio,
		RejectionReason:    app.RejectionReason,
		Sanction:           app.Sanction,
		Reflections:        app.Reflections,
		CreatedAt:          app.CreatedAt,
		UpdatedAt:          app.UpdatedAt,
	}
	if app.AffordabilityRatio.Sign() > 0 {
		s.FOIRBand = domain.FOIRBand(app.AffordabilityRatio)
	}
	for _, doc := range app.Documents {
		s.Documents = append(s.Documents, *doc)
	}
	for _, req := range app.RequestedDocuments {
		s.RequestedDocuments = append(s.RequestedDocuments, req.Type)
	}
	s.Messages = append(s.Messages, app.Messages...)
	return s
}

// statusOf 将记录状态映射为轮次响应状态
func statusOf(app *domain.LoanApplication) string {
	switch app.Status {
	case domain.StatusApproved:
		return TurnStatusApproved
	case domain.StatusRejected:
		return TurnStatusRejected
	case domain.StatusManualReview:
		return TurnStatusManualReview
	}
	if app.Interrupt != nil {
		return TurnStatusAwaitingInput
	}
	return TurnStatusRunning
}
