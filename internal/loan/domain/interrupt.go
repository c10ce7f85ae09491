package domain

// InterruptKind 中断信号类型
type InterruptKind string

const (
	InterruptOTPRequired       InterruptKind = "otp_required"
	InterruptKYCConsent        InterruptKind = "kyc_consent"
	InterruptSalesInput        InterruptKind = "sales_input_required"
	InterruptVerificationInput InterruptKind = "verification_input_required"
	InterruptDocumentUpload    InterruptKind = "document_upload"
)

// Interrupt 工作流暂停描述符。中断在场即表示引擎正等待其描述的外部输入，
// 恢复处理时随状态迁移一并原子清除。
type Interrupt struct {
	Kind                InterruptKind     `json:"kind"`
	Fields              []string          `json:"fields,omitempty"`
	RequiredDocuments   []string          `json:"required_documents,omitempty"`
	MissingDocuments    []string          `json:"missing_documents,omitempty"`
	UnverifiedDocuments []string          `json:"unverified_documents,omitempty"`
	Reasons             map[string]string `json:"reasons,omitempty"`
}

// NewFieldInterrupt 构造等待字段输入的中断
func NewFieldInterrupt(kind InterruptKind, fields ...string) *Interrupt {
	return &Interrupt{Kind: kind, Fields: fields}
}

// NewDocumentInterrupt 构造等待材料上传的中断
func NewDocumentInterrupt(required, missing, unverified []string, reasons map[string]string) *Interrupt {
	return &Interrupt{
		Kind:                InterruptDocumentUpload,
		RequiredDocuments:   required,
		MissingDocuments:    missing,
		UnverifiedDocuments: unverified,
		Reasons:             reasons,
	}
}
