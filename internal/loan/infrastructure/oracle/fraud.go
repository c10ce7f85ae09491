package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// graphFraud 基于内存共享关系图的反欺诈桩。
// 每次评估先登记申请的设备/IP/手机号指纹，再按共享度打分：
// 设备被多人共用、IP 聚集、手机号关联已知欺诈者分别累加风险分。
type graphFraud struct {
	mu         sync.Mutex
	deviceRefs map[string]map[string]struct{}
	ipRefs     map[string]map[string]struct{}
	fraudsters map[string]struct{}
}

// NewGraphFraud 创建反欺诈桩。knownFraudsterPhones 为已知欺诈者手机号名单。
func NewGraphFraud(knownFraudsterPhones []string) domain.FraudOracle {
	f := &graphFraud{
		deviceRefs: make(map[string]map[string]struct{}),
		ipRefs:     make(map[string]map[string]struct{}),
		fraudsters: make(map[string]struct{}),
	}
	for _, phone := range knownFraudsterPhones {
		f.fraudsters[phone] = struct{}{}
	}
	return f
}

func (f *graphFraud) Assess(_ context.Context, req domain.FraudRequest) (*domain.FraudAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	device := req.DeviceID
	if device == "" {
		device = "device-" + req.UserID
	}
	ip := req.IP
	if ip == "" {
		ip = "unknown"
	}
	f.register(f.deviceRefs, device, req.UserID)
	f.register(f.ipRefs, ip, req.UserID)

	sharedDevice := len(f.deviceRefs[device]) - 1
	sharedIP := len(f.ipRefs[ip]) - 1

	score := 0
	var flags []string
	if sharedDevice > 2 {
		score += 40
		flags = append(flags, fmt.Sprintf("High Risk: Device shared with %d other users.", sharedDevice))
	}
	if sharedIP > 5 {
		score += 20
		flags = append(flags, fmt.Sprintf("Medium Risk: IP used by %d users (Possible VPN/Bot).", sharedIP))
	}
	if _, ok := f.fraudsters[req.Phone]; ok && req.Phone != "" {
		score += 100
		flags = append(flags, "CRITICAL: Linked to known fraudster via Phone Number.")
	}
	if score > 100 {
		score = 100
	}
	return &domain.FraudAssessment{RiskScore: score, Flags: flags}, nil
}

func (f *graphFraud) register(refs map[string]map[string]struct{}, key, userID string) {
	if refs[key] == nil {
		refs[key] = make(map[string]struct{})
	}
	refs[key][userID] = struct{}{}
}
