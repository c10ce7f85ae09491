// Package docverify 实现申请材料的真实性校验：
// 文件在场性、PDF 魔数以及与申请人身份要素的一致性匹配。
package docverify

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

var (
	panPattern     = regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`)
	aadhaarPattern = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)
	pdfMagic       = []byte("%PDF-")
)

// 校验读取的内容上限，防止超大文件拖垮校验
const maxScanBytes = 4 << 20

type validator struct {
	store  domain.DocumentStore
	strict bool
}

// NewValidator 创建材料校验器。strict 关闭时身份一致性匹配降级为在场性检查。
func NewValidator(store domain.DocumentStore, strict bool) domain.DocumentValidator {
	return &validator{store: store, strict: strict}
}

func (v *validator) Validate(ctx context.Context, doc domain.Document, app *domain.LoanApplication) (*domain.DocumentCheck, error) {
	if doc.SizeBytes <= 0 {
		return &domain.DocumentCheck{Verified: false, Reason: "File missing or empty."}, nil
	}

	switch doc.Type {
	case domain.DocSalarySlip, domain.DocBankStatement:
		// 流水与工资单仅做在场性检查
		return &domain.DocumentCheck{Verified: true}, nil
	case domain.DocAddressProof:
		return v.validateAddressProof(ctx, doc, app)
	case domain.DocSelfiePAN:
		return v.validateSelfiePAN(ctx, doc, app)
	}
	return &domain.DocumentCheck{Verified: true}, nil
}

func (v *validator) validateAddressProof(ctx context.Context, doc domain.Document, app *domain.LoanApplication) (*domain.DocumentCheck, error) {
	if !v.strict {
		return &domain.DocumentCheck{Verified: true, Reason: "Strict identity match disabled."}, nil
	}
	expected := strings.ReplaceAll(app.Aadhaar, " ", "")
	if expected == "" {
		return &domain.DocumentCheck{Verified: false, Reason: "Address proof does not match provided Aadhaar."}, nil
	}

	text := v.readText(ctx, doc)
	for _, m := range aadhaarPattern.FindAllString(text, -1) {
		if strings.ReplaceAll(m, " ", "") == expected {
			return &domain.DocumentCheck{Verified: true}, nil
		}
	}
	// 文件名尾号匹配作为无 OCR 场景的兜底
	suffix := expected
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	if strings.Contains(strings.ToUpper(doc.FileName), suffix) {
		return &domain.DocumentCheck{Verified: true}, nil
	}
	return &domain.DocumentCheck{Verified: false, Reason: "Address proof does not match provided Aadhaar."}, nil
}

func (v *validator) validateSelfiePAN(ctx context.Context, doc domain.Document, app *domain.LoanApplication) (*domain.DocumentCheck, error) {
	if !v.strict {
		return &domain.DocumentCheck{Verified: true, Reason: "Strict identity match disabled."}, nil
	}
	expected := strings.ToUpper(strings.TrimSpace(app.PAN))
	if expected == "" {
		return &domain.DocumentCheck{Verified: false, Reason: "Selfie PAN could not be verified against PAN."}, nil
	}

	text := v.readText(ctx, doc)
	for _, m := range panPattern.FindAllString(text, -1) {
		if m == expected {
			return &domain.DocumentCheck{Verified: true}, nil
		}
	}
	if strings.Contains(strings.ToUpper(doc.FileName), expected) {
		return &domain.DocumentCheck{Verified: true}, nil
	}
	if isImage(doc.FileName) {
		// 图片自拍无 OCR 能力时软通过
		return &domain.DocumentCheck{Verified: true, Reason: "Image OCR unavailable; accepted for review."}, nil
	}
	return &domain.DocumentCheck{Verified: false, Reason: "Selfie PAN could not be verified against PAN."}, nil
}

// readText 仅从 PDF 内容提取大写文本，非 PDF 或读取失败返回空串
func (v *validator) readText(ctx context.Context, doc domain.Document) string {
	if !strings.EqualFold(filepath.Ext(doc.FileName), ".pdf") {
		return ""
	}
	rc, err := v.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return ""
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxScanBytes))
	if err != nil {
		return ""
	}
	// 伪装成 .pdf 的文件不参与文本匹配
	if !bytes.HasPrefix(raw, pdfMagic) {
		return ""
	}
	return strings.ToUpper(string(raw))
}

func isImage(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}
