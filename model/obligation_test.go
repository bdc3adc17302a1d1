package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObligationPaymentStatus(t *testing.T) {
	ob := &Obligation{TotalDue: MustMoney("1500.00")}
	assert.Equal(t, PaymentUnpaid, ob.PaymentStatus())
	assert.True(t, ob.Open())

	ob.TotalAllocated = MustMoney("500.00")
	assert.Equal(t, PaymentPartiallyPaid, ob.PaymentStatus())
	assert.True(t, ob.Open())

	ob.TotalAllocated = MustMoney("1500.00")
	assert.Equal(t, PaymentPaid, ob.PaymentStatus())
	assert.False(t, ob.Open())

	// A cent short of the total counts as paid: bank fee drift.
	ob.TotalAllocated = MustMoney("1499.99")
	assert.Equal(t, PaymentPaid, ob.PaymentStatus())
	assert.False(t, ob.Open())

	ob.TotalAllocated = MustMoney("1600.00")
	assert.Equal(t, PaymentOverpaid, ob.PaymentStatus())
	assert.True(t, ob.RemainingDue().IsNegative())
	assert.False(t, ob.Open())
}

func TestMergedObligationIsClosed(t *testing.T) {
	ob := &Obligation{TotalDue: MustMoney("1000.00"), IsMerged: true}
	assert.False(t, ob.Open())
}

func TestRemainingDueNeverClamps(t *testing.T) {
	ob := &Obligation{
		TotalDue:       MustMoney("200.00"),
		TotalAllocated: MustMoney("350.00"),
	}
	assert.True(t, ob.RemainingDue().Equal(MustMoney("-150.00")))
}

func TestPeriod(t *testing.T) {
	p, err := NewPeriod(2025, 12)
	assert.NoError(t, err)
	assert.Equal(t, "2025-12", p.String())
	assert.Equal(t, Period{Year: 2026, Month: 1}, p.Next())
	assert.True(t, p.Before(p.Next()))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), p.Start())

	_, err = NewPeriod(2025, 13)
	assert.Error(t, err)
	_, err = NewPeriod(1980, 6)
	assert.Error(t, err)

	assert.Equal(t, Period{Year: 2025, Month: 3}, PeriodOf(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)))
}

func TestObligationDescribe(t *testing.T) {
	bill := &Obligation{Kind: ObligationCustomerBill, Period: Period{2025, 7}, OwnerPartyID: "pty_1"}
	assert.Contains(t, bill.Describe(), "bill 2025-07")

	adj := &Obligation{Kind: ObligationAdjustment, Description: "deposit carried over"}
	assert.Equal(t, "deposit carried over", adj.Describe())
}
