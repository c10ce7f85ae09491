// Package oracle 实现外部风控判定的确定性桩：征信、KYC、反欺诈与预授信名单。
// 所有实现按入参确定性产出，便于重放与测试；替换为真实机构接入时仅需
// 实现 domain 层对应端口。
package oracle

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/utils"
)

type creditBureau struct{}

// NewCreditBureau 创建确定性征信桩：按 PAN/Aadhaar/收入哈希播种，
// 产出 650~900 区间的征信分。
func NewCreditBureau() domain.CreditBureauOracle {
	return &creditBureau{}
}

func (b *creditBureau) Score(_ context.Context, pan, aadhaar string, monthlyIncome decimal.Decimal) (int, error) {
	seed := pan + ":" + aadhaar + ":" + monthlyIncome.String()
	digest := utils.MD5Hash(seed)
	base, err := strconv.ParseInt(digest[:2], 16, 64)
	if err != nil {
		return 0, err
	}
	score := 650 + int(float64(base)/255*250)
	if score > 900 {
		score = 900
	}
	if score < 550 {
		score = 550
	}
	return score, nil
}
