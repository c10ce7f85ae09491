package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/cache"
)

// offerRecord 预授信名单种子记录
type offerRecord struct {
	CustomerID       string          `json:"customer_id"`
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	PAN              string          `json:"pan"`
	City             string          `json:"city"`
	CreditScore      int             `json:"credit_score"`
	PreApprovedLimit decimal.Decimal `json:"preapproved_limit"`
}

// OfferMart 预授信名单查询。名单从 JSON 种子文件加载到内存，
// 命中结果可选写入 Redis 以供其他服务消费。
type OfferMart struct {
	offers []offerRecord
	cache  *cache.RedisCache
	ttl    time.Duration
}

// NewOfferMart 从种子文件加载预授信名单。redisCache 可为 nil。
func NewOfferMart(seedPath string, redisCache *cache.RedisCache) (*OfferMart, error) {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("load offer seed %s: %w", seedPath, err)
	}
	var offers []offerRecord
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, fmt.Errorf("parse offer seed %s: %w", seedPath, err)
	}
	return &OfferMart{offers: offers, cache: redisCache, ttl: time.Hour}, nil
}

// Lookup 按 PAN → 手机号 → 姓名优先级查询，未命中返回 (nil, nil)
func (m *OfferMart) Lookup(ctx context.Context, pan, phone, name string) (*domain.PreApprovedOffer, error) {
	panNorm := strings.ToUpper(strings.TrimSpace(pan))
	phoneNorm := strings.TrimSpace(phone)
	nameNorm := strings.ToLower(strings.TrimSpace(name))

	if offer := m.fromCache(ctx, panNorm); offer != nil {
		return offer, nil
	}

	var hit *offerRecord
	switch {
	case panNorm != "" && m.find(func(o offerRecord) bool { return strings.ToUpper(o.PAN) == panNorm }, &hit):
	case phoneNorm != "" && m.find(func(o offerRecord) bool { return o.Phone == phoneNorm }, &hit):
	case nameNorm != "" && m.find(func(o offerRecord) bool { return strings.ToLower(o.Name) == nameNorm }, &hit):
	}
	if hit == nil {
		return nil, nil
	}

	offer := &domain.PreApprovedOffer{
		CustomerID:       hit.CustomerID,
		PreApprovedLimit: hit.PreApprovedLimit,
	}
	m.toCache(ctx, panNorm, offer)
	return offer, nil
}

func (m *OfferMart) find(match func(offerRecord) bool, out **offerRecord) bool {
	for i := range m.offers {
		if match(m.offers[i]) {
			*out = &m.offers[i]
			return true
		}
	}
	return false
}

func (m *OfferMart) fromCache(ctx context.Context, pan string) *domain.PreApprovedOffer {
	if m.cache == nil || pan == "" {
		return nil
	}
	var offer domain.PreApprovedOffer
	if err := m.cache.GetJSON(ctx, offerCacheKey(pan), &offer); err != nil {
		return nil
	}
	return &offer
}

func (m *OfferMart) toCache(ctx context.Context, pan string, offer *domain.PreApprovedOffer) {
	if m.cache == nil || pan == "" {
		return
	}
	// 缓存写失败不影响查询结果
	_ = m.cache.SetJSON(ctx, offerCacheKey(pan), offer, m.ttl)
}

func offerCacheKey(pan string) string {
	return "loan:offer:" + pan
}
