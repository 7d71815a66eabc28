package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

func TestIsPayment(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"RCPO-1234 CASH 500.00", true},
		{"Paid by UPI", true},
		{"utr 412345678901", true},
		{"Receipt No RCPT/2231", true},
		{"Advance payment received", true},
		{"Paracetamol 500mg 45.00", false},
		{"Cardiology consultation 800.00", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPayment(tt.text))
		})
	}
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"RCPO-1234 CASH 500.00", "RCPO-1234", true},
		{"rcpo-77ab paid", "RCPO-77AB", true},
		{"UPI payment UTR: 412345678901", "UTR-412345678901", true},
		{"txn#AB12CD34 card", "TXN-AB12CD34", true},
		{"UTR 123", "", false},
		{"Cash paid", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractReference(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaymentMode(t *testing.T) {
	m, ok := PaymentMode("paid via net  banking")
	require.True(t, ok)
	assert.Equal(t, "NET BANKING", m)

	m, ok = PaymentMode("Advance (upi)")
	require.True(t, ok)
	assert.Equal(t, "UPI", m)

	_, ok = PaymentMode("Advance received")
	assert.False(t, ok)
}

func TestCheckPaymentLeak(t *testing.T) {
	clean := []entity.LineItem{
		{ItemID: "a", Description: "Paracetamol 500mg", Amount: 45, Category: constants.Medicines},
	}
	require.NoError(t, CheckPaymentLeak(clean))
	require.NoError(t, CheckPaymentLeak(nil))

	leaked := append(clean, entity.LineItem{ItemID: "b", Description: "refund rcpo-991", Amount: 10, Category: constants.Other, Page: 2})
	err := CheckPaymentLeak(leaked)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPaymentLeak))

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAYMENT_LEAK", appErr.Code)
}
