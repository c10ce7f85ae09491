package oracle

import (
	"context"
	"strings"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

type crmKYC struct{}

// NewCRMKYC 创建 CRM KYC 核验桩：占位数据（"0000" 结尾手机号、
// 含 "test" 的地址）判失败，其余判通过。
func NewCRMKYC() domain.KYCOracle {
	return &crmKYC{}
}

func (c *crmKYC) Verify(_ context.Context, phone, address string) (*domain.KYCResult, error) {
	if strings.HasSuffix(phone, "0000") || strings.Contains(strings.ToLower(address), "test") {
		return &domain.KYCResult{
			Status: domain.KYCStatusFailed,
			Reason: "KYC mismatch in CRM",
		}, nil
	}
	return &domain.KYCResult{Status: domain.KYCStatusVerified}, nil
}
