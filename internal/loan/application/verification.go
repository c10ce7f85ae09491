package application

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// 身份字段的固定追问话术
var verificationPrompts = map[string]string{
	"full_name": "Great! Now I need some personal details. What is your full name?",
	"mobile":    "Please enter your mobile number:",
	"email":     "What is your email address?",
	"pan":       "Please enter your PAN number:",
	"aadhaar":   "Please enter your Aadhaar number:",
}

// VerificationEvaluator 身份核验阶段评估器。
// 固定采集顺序：姓名 → 手机号 → OTP → 邮箱 → PAN → Aadhaar → 授权；
// 全部齐备后依次调用反欺诈与 KYC 判定，并查询预授信名单。
type VerificationEvaluator struct {
	fraud  domain.FraudOracle
	kyc    domain.KYCOracle
	offers domain.OfferOracle
	logger *slog.Logger
}

// NewVerificationEvaluator 创建身份核验评估器
func NewVerificationEvaluator(fraud domain.FraudOracle, kyc domain.KYCOracle, offers domain.OfferOracle, logger *slog.Logger) *VerificationEvaluator {
	return &VerificationEvaluator{fraud: fraud, kyc: kyc, offers: offers, logger: logger}
}

// Evaluate 处理一轮身份核验。rawMessage 用于识别 OTP 输入。
func (v *VerificationEvaluator) Evaluate(ctx context.Context, app *domain.LoanApplication, rawMessage string) (outcome, error) {
	// 重入防护：已进入授信阶段且身份要素齐备时直接短路回授信，
	// 避免每次材料上传轮重复追问或重复调用风控判定。
	if app.InUnderwritingPhase() && app.IdentityComplete() {
		return outcome{next: domain.StageUnderwriting}, nil
	}

	// 6 位数字消息视为 OTP 回填
	if !app.OTPVerified && app.Mobile != "" && otpPattern.MatchString(strings.TrimSpace(rawMessage)) {
		app.OTPVerified = true
	}

	if app.FullName == "" {
		return v.askField(app, "full_name"), nil
	}
	if app.Mobile == "" {
		return v.askField(app, "mobile"), nil
	}
	if !app.OTPVerified {
		return outcome{
			reply:   "We've sent a 6-digit OTP to " + app.Mobile + ". Please enter it to verify:",
			suspend: domain.NewFieldInterrupt(domain.InterruptOTPRequired, "mobile"),
		}, nil
	}
	if app.Email == "" {
		return v.askField(app, "email"), nil
	}
	if app.PAN == "" {
		return v.askField(app, "pan"), nil
	}
	if app.Aadhaar == "" {
		return v.askField(app, "aadhaar"), nil
	}
	if app.KYCConsent == nil {
		return outcome{
			reply:   "Do you consent to KYC verification and credit bureau checks? This is required to process your loan application.",
			suspend: domain.NewFieldInterrupt(domain.InterruptKYCConsent, "kyc_consent"),
		}, nil
	}
	if !*app.KYCConsent {
		if err := app.Reject("KYC consent not provided."); err != nil {
			return outcome{}, err
		}
		return outcome{reply: "We're sorry, but KYC consent is mandatory to proceed."}, nil
	}

	// 反欺诈判定失败时按谨慎推进处理，不自动重试
	if assessment, err := v.fraud.Assess(ctx, domain.FraudRequest{
		UserID: app.ID,
		Phone:  app.Mobile,
	}); err != nil {
		v.logger.WarnContext(ctx, "fraud assessment unavailable, proceeding with caution",
			"application_id", app.ID, "error", err)
	} else {
		app.SetFraudResult(assessment.RiskScore, assessment.Flags)
	}

	// KYC 判定不可用时保守拒绝
	result, err := v.kyc.Verify(ctx, app.Mobile, app.Address)
	if err != nil {
		v.logger.WarnContext(ctx, "kyc verification unavailable, failing closed",
			"application_id", app.ID, "error", err)
		result = &domain.KYCResult{Status: domain.KYCStatusFailed}
	}
	app.SetKYCResult(result.Status, result.Reason)

	if result.Status != domain.KYCStatusVerified {
		reason := result.Reason
		if reason == "" {
			reason = "KYC verification failed."
		}
		if err := app.Reject(reason); err != nil {
			return outcome{}, err
		}
		return outcome{reply: "We could not verify your KYC details. Please contact support."}, nil
	}

	if app.FraudScore != nil && *app.FraudScore > 70 {
		if err := app.Reject("High fraud risk detected."); err != nil {
			return outcome{}, err
		}
		return outcome{reply: "We cannot proceed due to risk signals in verification checks."}, nil
	}

	// 预授信名单按 PAN → 手机号 → 姓名优先级查询；查询失败不阻断本轮，
	// 授信评估器会在需要时重新解析
	if offer, err := v.offers.Lookup(ctx, app.PAN, app.Mobile, app.FullName); err != nil {
		v.logger.WarnContext(ctx, "offer lookup unavailable",
			"application_id", app.ID, "error", err)
	} else if offer != nil {
		app.SetPreApprovedOffer(offer.PreApprovedLimit, offer.CustomerID)
	}

	return outcome{
		reply: "Verification completed. Proceeding to underwriting.",
		next:  domain.StageUnderwriting,
	}, nil
}

func (v *VerificationEvaluator) askField(app *domain.LoanApplication, field string) outcome {
	prompt, ok := verificationPrompts[field]
	if !ok {
		prompt = "Please share the next required detail."
	}
	return outcome{
		reply:   prompt,
		suspend: domain.NewFieldInterrupt(domain.InterruptVerificationInput, field),
	}
}
