package order

import (
	"errors"
	"testing"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	ledger := NewLedger(NewResolver(testPolicy()))
	order := &model.Order{ID: 1, CourseID: testCourse, Method: model.MethodCard, Amount: 5000}

	t.Run("credited ignores voided refunds", func(t *testing.T) {
		refunds := []*model.Refund{
			{Status: model.StatusCredit, Amount: 1000},
			{Status: model.StatusVoid, Amount: 2000},
			{Status: model.StatusCredit, Amount: 500},
		}
		assert.Equal(t, int64(1500), ledger.Credited(refunds))
		assert.Equal(t, int64(3500), ledger.Refundable(order, refunds))
	})

	t.Run("refundable never negative", func(t *testing.T) {
		refunds := []*model.Refund{{Status: model.StatusCredit, Amount: 6000}}
		assert.Equal(t, int64(0), ledger.Refundable(order, refunds))
	})

	t.Run("full balance accepted", func(t *testing.T) {
		assert.NoError(t, ledger.CheckRefund(order, nil, 5000))
	})

	t.Run("exceeding balance rejected", func(t *testing.T) {
		err := ledger.CheckRefund(order, nil, 5001)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.True(t, errors.Is(err, ErrRefundExceedsBalance))
		assert.Contains(t, err.Error(), "refund exceeds remaining balance")
	})

	t.Run("partial refunds reduce balance", func(t *testing.T) {
		refunds := []*model.Refund{{Status: model.StatusCredit, Amount: 4000}}
		assert.NoError(t, ledger.CheckRefund(order, refunds, 1000))
		assert.ErrorIs(t, ledger.CheckRefund(order, refunds, 1001), ErrRefundExceedsBalance)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		assert.ErrorIs(t, ledger.CheckRefund(order, nil, 0), ErrInvalidRefundAmount)
		assert.ErrorIs(t, ledger.CheckRefund(order, nil, -5), ErrInvalidRefundAmount)
	})

	t.Run("history resolves each refund", func(t *testing.T) {
		settled := testNow.Add(-time.Hour)
		refunds := []*model.Refund{
			{ID: 1, OrderID: 1, TransID: "10", Status: model.StatusCredit, Amount: 100, SettleTime: &settled, CreatedAt: testNow.Add(-48 * time.Hour)},
			{ID: 2, OrderID: 1, TransID: "11", Status: model.StatusCredit, Amount: 200, CreatedAt: testNow.Add(-time.Hour)},
			{ID: 3, OrderID: 1, TransID: "12", Status: model.StatusVoid, Amount: 300, CreatedAt: testNow.Add(-time.Hour)},
		}

		views := ledger.History(order, refunds, testNow, manager())
		require.Len(t, views, 3)
		assert.Equal(t, model.DisplaySettled, views[0].Status)
		assert.Empty(t, views[0].Actions)
		assert.Equal(t, model.DisplayRefunded, views[1].Status)
		assert.Equal(t, model.NewActionSet(model.ActionVoid), views[1].Actions)
		assert.Equal(t, model.DisplayCancelled, views[2].Status)
	})
}

func TestLedger_CreditedNeverExceedsAmount(t *testing.T) {
	ledger := NewLedger(NewResolver(testPolicy()))
	order := &model.Order{ID: 1, Amount: 5000}

	var refunds []*model.Refund
	for _, amount := range []int64{1200, 3000, 900, 800, 1, 1} {
		if err := ledger.CheckRefund(order, refunds, amount); err != nil {
			continue
		}
		refunds = append(refunds, &model.Refund{Status: model.StatusCredit, Amount: amount})
		assert.LessOrEqual(t, ledger.Credited(refunds), order.Amount)
	}
	assert.Equal(t, int64(5000), ledger.Credited(refunds))
}
