package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

func TestCreditBureauIsDeterministic(t *testing.T) {
	bureau := NewCreditBureau()
	income := decimal.NewFromInt(80000)

	first, err := bureau.Score(context.Background(), "ABCDE1234F", "123412341234", income)
	require.NoError(t, err)
	second, err := bureau.Score(context.Background(), "ABCDE1234F", "123412341234", income)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := bureau.Score(context.Background(), "KLMNO9012P", "987698769876", income)
	require.NoError(t, err)
	// 不同种子大概率不同分；至少各自仍在区间内
	require.GreaterOrEqual(t, other, 550)
	require.LessOrEqual(t, other, 900)
}

func TestCreditBureauScoreRange(t *testing.T) {
	bureau := NewCreditBureau()
	for i := 0; i < 50; i++ {
		pan := fmt.Sprintf("ABCDE%04dF", i)
		score, err := bureau.Score(context.Background(), pan, "123412341234", decimal.NewFromInt(int64(10000+i)))
		require.NoError(t, err)
		require.GreaterOrEqual(t, score, 650)
		require.LessOrEqual(t, score, 900)
	}
}

func TestCRMKYCVerdicts(t *testing.T) {
	kyc := NewCRMKYC()

	res, err := kyc.Verify(context.Background(), "9876540000", "12 MG Road, Pune")
	require.NoError(t, err)
	require.Equal(t, domain.KYCStatusFailed, res.Status)
	require.Equal(t, "KYC mismatch in CRM", res.Reason)

	res, err = kyc.Verify(context.Background(), "9876543210", "Test Colony, Delhi")
	require.NoError(t, err)
	require.Equal(t, domain.KYCStatusFailed, res.Status)

	res, err = kyc.Verify(context.Background(), "9876543210", "12 MG Road, Pune")
	require.NoError(t, err)
	require.Equal(t, domain.KYCStatusVerified, res.Status)
	require.Empty(t, res.Reason)
}

func TestGraphFraudKnownFraudsterPhone(t *testing.T) {
	fraud := NewGraphFraud([]string{"9000000001"})

	res, err := fraud.Assess(context.Background(), domain.FraudRequest{
		UserID: "u1",
		Phone:  "9000000001",
	})
	require.NoError(t, err)
	require.Equal(t, 100, res.RiskScore)
	require.Contains(t, res.Flags, "CRITICAL: Linked to known fraudster via Phone Number.")

	res, err = fraud.Assess(context.Background(), domain.FraudRequest{
		UserID: "u2",
		Phone:  "9876543210",
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.RiskScore)
	require.Empty(t, res.Flags)
}

func TestGraphFraudSharedDevice(t *testing.T) {
	fraud := NewGraphFraud(nil)

	var last *domain.FraudAssessment
	for i := 0; i < 4; i++ {
		res, err := fraud.Assess(context.Background(), domain.FraudRequest{
			UserID:   fmt.Sprintf("u%d", i),
			DeviceID: "dev-shared",
		})
		require.NoError(t, err)
		last = res
	}
	// 第 4 个用户登记同一设备后共享数超过阈值
	require.Equal(t, 40, last.RiskScore)
	require.Len(t, last.Flags, 1)
}

func writeOfferSeed(t *testing.T) string {
	t.Helper()
	seed := `[
  {"customer_id":"CUST-1001","name":"Rohan Sharma","phone":"9876543210","pan":"ABCDE1234F","city":"Pune","credit_score":780,"preapproved_limit":500000},
  {"customer_id":"CUST-1002","name":"Priya Nair","phone":"9812345678","pan":"FGHIJ5678K","city":"Kochi","credit_score":740,"preapproved_limit":300000}
]`
	path := filepath.Join(t.TempDir(), "offers.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))
	return path
}

func TestOfferMartLookupPriority(t *testing.T) {
	mart, err := NewOfferMart(writeOfferSeed(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	// PAN 命中优先，即使手机号指向另一条记录
	offer, err := mart.Lookup(ctx, "fghij5678k", "9876543210", "")
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.Equal(t, "CUST-1002", offer.CustomerID)
	require.True(t, offer.PreApprovedLimit.Equal(decimal.NewFromInt(300000)))

	offer, err = mart.Lookup(ctx, "", "9876543210", "")
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.Equal(t, "CUST-1001", offer.CustomerID)

	offer, err = mart.Lookup(ctx, "", "", "priya nair")
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.Equal(t, "CUST-1002", offer.CustomerID)

	offer, err = mart.Lookup(ctx, "ZZZZZ0000Z", "9000000000", "Nobody")
	require.NoError(t, err)
	require.Nil(t, offer)
}

func TestOfferMartMissingSeedFile(t *testing.T) {
	_, err := NewOfferMart(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.Error(t, err)
}
