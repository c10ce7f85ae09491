package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MandatoryDocuments 授信审查必备材料集合：
// 基础集 {bank_statement, address_proof, selfie_pan}；受薪申请人追加 salary_slip；
// 超过大额阈值的申请无论雇佣类型都必须包含 address_proof 与 selfie_pan。
func (a *LoanApplication) MandatoryDocuments(largeAmountThreshold decimal.Decimal) []string {
	set := map[string]struct{}{
		DocBankStatement: {},
		DocAddressProof:  {},
		DocSelfiePAN:     {},
	}
	if a.EmploymentType != nil && *a.EmploymentType == EmploymentSalaried {
		set[DocSalarySlip] = struct{}{}
	}
	if a.Amount != nil && largeAmountThreshold.Sign() > 0 && a.Amount.GreaterThan(largeAmountThreshold) {
		set[DocAddressProof] = struct{}{}
		set[DocSelfiePAN] = struct{}{}
	}

	docs := make([]string, 0, len(set))
	for t := range set {
		docs = append(docs, t)
	}
	sort.Strings(docs)
	return docs
}

// MissingDocuments 必备材料中尚未收到的类型
func (a *LoanApplication) MissingDocuments(required []string) []string {
	var missing []string
	for _, t := range required {
		if _, ok := a.Documents[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// UnverifiedDocuments 已收到但未通过校验的必备材料及其原因
func (a *LoanApplication) UnverifiedDocuments(required []string) ([]string, map[string]string) {
	var unverified []string
	reasons := make(map[string]string)
	for _, t := range required {
		doc, ok := a.Documents[t]
		if !ok || doc.Verified {
			continue
		}
		unverified = append(unverified, t)
		if doc.Reason != "" {
			reasons[t] = doc.Reason
		}
	}
	return unverified, reasons
}
