package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

func newVerificationEvaluator(fraud *fraudStub, kyc *kycStub, offers *offerStub) *VerificationEvaluator {
	if fraud == nil {
		fraud = &fraudStub{}
	}
	if kyc == nil {
		kyc = &kycStub{result: domain.KYCResult{Status: domain.KYCStatusVerified}}
	}
	if offers == nil {
		offers = &offerStub{}
	}
	return NewVerificationEvaluator(fraud, kyc, offers, testLogger())
}

func TestVerificationAsksIdentityFieldsInOrder(t *testing.T) {
	eval := newVerificationEvaluator(nil, nil, nil)
	app := domain.NewApplication("v1")
	app.Stage = domain.StageVerification

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Contains(t, out.reply, "full name")

	app.FullName = "Rohan Sharma"
	out, err = eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, "Please enter your mobile number:", out.reply)

	app.Mobile = "9876543210"
	out, err = eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, "We've sent a 6-digit OTP to 9876543210. Please enter it to verify:", out.reply)
	require.Equal(t, domain.InterruptOTPRequired, out.suspend.Kind)
}

func TestVerificationAcceptsOTPFromRawMessage(t *testing.T) {
	eval := newVerificationEvaluator(nil, nil, nil)
	app := domain.NewApplication("v2")
	app.Stage = domain.StageVerification
	app.FullName = "Rohan Sharma"
	app.Mobile = "9876543210"

	out, err := eval.Evaluate(context.Background(), app, "482913")
	require.NoError(t, err)
	require.True(t, app.OTPVerified)
	require.Equal(t, "What is your email address?", out.reply)
}

func TestVerificationConsentDeclinedRejects(t *testing.T) {
	eval := newVerificationEvaluator(nil, nil, nil)
	app := domain.NewApplication("v3")
	app.Stage = domain.StageVerification
	completedIdentity(app)
	declined := false
	app.KYCConsent = &declined

	out, err := eval.Evaluate(context.Background(), app, "no")
	require.NoError(t, err)
	require.Equal(t, "We're sorry, but KYC consent is mandatory to proceed.", out.reply)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "KYC consent not provided.", app.RejectionReason)
}

func TestVerificationKYCFailureRejects(t *testing.T) {
	kyc := &kycStub{result: domain.KYCResult{Status: domain.KYCStatusFailed, Reason: "KYC mismatch in CRM"}}
	eval := newVerificationEvaluator(nil, kyc, nil)
	app := domain.NewApplication("v4")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, "We could not verify your KYC details. Please contact support.", out.reply)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "KYC mismatch in CRM", app.RejectionReason)
}

func TestVerificationKYCErrorFailsClosed(t *testing.T) {
	kyc := &kycStub{err: errors.New("crm timeout")}
	eval := newVerificationEvaluator(nil, kyc, nil)
	app := domain.NewApplication("v5")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	_, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "KYC verification failed.", app.RejectionReason)
}

func TestVerificationHighFraudScoreRejects(t *testing.T) {
	fraud := &fraudStub{score: 100, flags: []string{"CRITICAL: Linked to known fraudster via Phone Number."}}
	eval := newVerificationEvaluator(fraud, nil, nil)
	app := domain.NewApplication("v6")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, "We cannot proceed due to risk signals in verification checks.", out.reply)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "High fraud risk detected.", app.RejectionReason)
}

func TestVerificationFraudErrorProceedsWithCaution(t *testing.T) {
	fraud := &fraudStub{err: errors.New("graph unavailable")}
	eval := newVerificationEvaluator(fraud, nil, nil)
	app := domain.NewApplication("v7")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, app.Status)
	require.Equal(t, domain.StageUnderwriting, out.next)
}

func TestVerificationSuccessAttachesOfferAndAdvances(t *testing.T) {
	limit := decimal.NewFromInt(400000)
	offers := &offerStub{offer: &domain.PreApprovedOffer{CustomerID: "CUST-1001", PreApprovedLimit: limit}}
	eval := newVerificationEvaluator(nil, nil, offers)
	app := domain.NewApplication("v8")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, "Verification completed. Proceeding to underwriting.", out.reply)
	require.Equal(t, domain.StageUnderwriting, out.next)
	require.NotNil(t, app.PreApprovedLimit)
	require.True(t, app.PreApprovedLimit.Equal(limit))
	require.Equal(t, "CUST-1001", app.CustomerID)
	require.Equal(t, domain.KYCStatusVerified, app.KYCStatus)
}

func TestVerificationOfferLookupErrorDoesNotBlock(t *testing.T) {
	offers := &offerStub{err: errors.New("offer mart down")}
	eval := newVerificationEvaluator(nil, nil, offers)
	app := domain.NewApplication("v9")
	app.Stage = domain.StageVerification
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, domain.StageUnderwriting, out.next)
	require.Nil(t, app.PreApprovedLimit)
}

func TestVerificationReentryShortCircuits(t *testing.T) {
	// 已进入授信阶段后重入不得重复调用风控判定
	kyc := &kycStub{err: errors.New("must not be called")}
	eval := newVerificationEvaluator(nil, kyc, nil)
	app := domain.NewApplication("v10")
	app.Stage = domain.StageAwaitingDocuments
	completedIdentity(app)

	out, err := eval.Evaluate(context.Background(), app, "")
	require.NoError(t, err)
	require.Equal(t, domain.StageUnderwriting, out.next)
	require.Empty(t, out.reply)
	require.Equal(t, domain.StatusInProgress, app.Status)
}
