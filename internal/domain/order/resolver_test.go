package order

import (
	"testing"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/utils/cutoff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var (
	testNow    = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testCourse = uuid.MustParse("6f1c5a0e-3b7d-4c1e-9a55-2d0c1b7e9f10")
	testPayer  = uuid.MustParse("0b8f3e2a-91c4-4d5e-8f6a-7c2d1e0b9a33")
)

func testPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		ExpiryWindow:          30 * 24 * time.Hour,
		NewOrderGrace:         2 * time.Minute,
		Cutoff:                cutoff.Schedule{Hour: 0, Minute: 5, Location: time.UTC},
		ReviewFailedDeletable: true,
	})
}

func manager() model.Capability {
	return model.Capability{UserID: uuid.New(), ManagedCourses: []uuid.UUID{testCourse}}
}

func payer() model.Capability {
	return model.Capability{UserID: testPayer}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func record(status model.RawStatus, transID string, age time.Duration) model.Record {
	return model.Record{
		Status:    status,
		TransID:   transID,
		Method:    model.MethodCard,
		CourseID:  testCourse,
		CreatedAt: testNow.Add(-age),
	}
}

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver(testPolicy())

	settledCapture := record(model.StatusAuthCapture, "555", 48*time.Hour)
	settledCapture.SettleTime = ptrTime(testNow.Add(-time.Hour))

	pendingCapture := record(model.StatusAuthCapture, "555", time.Hour)
	pendingCapture.SettleTime = ptrTime(testNow.Add(12 * time.Hour))

	echeckPending := pendingCapture
	echeckPending.Method = model.MethodECheck

	echeckNoDetail := settledCapture
	echeckNoDetail.Method = model.MethodECheck

	echeckWithDetail := echeckNoDetail
	echeckWithDetail.MaskedDetail = "6789"

	settledCredit := record(model.StatusCredit, "556", 48*time.Hour)
	settledCredit.SettleTime = ptrTime(testNow.Add(-time.Hour))

	pendingCredit := record(model.StatusCredit, "556", time.Hour)

	tests := []struct {
		name    string
		rec     model.Record
		status  model.DisplayStatus
		actions model.ActionSet
	}{
		{"new order within grace", record(model.StatusNew, "0", 10*time.Second), model.DisplayNew, nil},
		{"new order past grace is a test", record(model.StatusNew, "0", 150*time.Second), model.DisplayTested, model.NewActionSet(model.ActionDelete)},
		{"empty trans id past grace", record(model.StatusAuth, "", time.Hour), model.DisplayTested, model.NewActionSet(model.ActionDelete)},
		{"new with transaction", record(model.StatusNew, "555", time.Hour), model.DisplayNew, nil},
		{"authorization", record(model.StatusAuth, "555", time.Hour), model.DisplayAuthorizedPendingCapture, model.NewActionSet(model.ActionCapture, model.ActionVoid)},
		{"expired authorization", record(model.StatusAuth, "555", 31*24*time.Hour), model.DisplayExpired, model.NewActionSet(model.ActionDelete)},
		{"settled card capture", settledCapture, model.DisplaySettled, model.NewActionSet(model.ActionRefund)},
		{"settled echeck without detail", echeckNoDetail, model.DisplaySettled, nil},
		{"settled echeck with detail", echeckWithDetail, model.DisplaySettled, model.NewActionSet(model.ActionRefund)},
		{"card capture pending settlement", pendingCapture, model.DisplayCapturedPendingSettle, model.NewActionSet(model.ActionVoid)},
		{"echeck capture pending settlement", echeckPending, model.DisplayCapturedPendingSettle, nil},
		{"settled credit", settledCredit, model.DisplaySettled, nil},
		{"pending credit", pendingCredit, model.DisplayRefunded, model.NewActionSet(model.ActionVoid)},
		{"void", record(model.StatusVoid, "555", time.Hour), model.DisplayCancelled, nil},
		{"expire", record(model.StatusExpire, "555", time.Hour), model.DisplayExpired, model.NewActionSet(model.ActionDelete)},
		{"under review", record(model.StatusUnderReview, "555", time.Hour), model.DisplayUnderReview, nil},
		{"approved review", record(model.StatusApprovedReview, "555", time.Hour), model.DisplayApprovedReview, nil},
		{"review failed", record(model.StatusReviewFailed, "555", time.Hour), model.DisplayReviewFailed, model.NewActionSet(model.ActionDelete)},
		{"unknown status", record(model.RawStatus("chargeback"), "555", time.Hour), model.DisplayUnderReview, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolver.Resolve(tt.rec, testNow, manager())
			assert.Equal(t, tt.status, res.Status)
			if len(tt.actions) == 0 {
				assert.Empty(t, res.Actions)
			} else {
				assert.Equal(t, tt.actions, res.Actions)
			}
		})
	}
}

func TestResolver_Capability(t *testing.T) {
	resolver := NewResolver(testPolicy())

	t.Run("without manage payments no actions", func(t *testing.T) {
		for _, status := range model.AllRawStatuses() {
			res := resolver.Resolve(record(status, "555", 31*24*time.Hour), testNow, payer())
			assert.Empty(t, res.Actions, status)
		}
	})

	t.Run("manager of another course", func(t *testing.T) {
		other := model.Capability{UserID: uuid.New(), ManagedCourses: []uuid.UUID{uuid.New()}}
		res := resolver.Resolve(record(model.StatusAuth, "555", time.Hour), testNow, other)
		assert.Equal(t, model.DisplayAuthorizedPendingCapture, res.Status)
		assert.Empty(t, res.Actions)
	})

	t.Run("manage all", func(t *testing.T) {
		res := resolver.Resolve(record(model.StatusAuth, "555", time.Hour), testNow, model.Capability{ManageAll: true})
		assert.Equal(t, model.NewActionSet(model.ActionCapture, model.ActionVoid), res.Actions)
	})
}

func TestResolver_SubOrder(t *testing.T) {
	resolver := NewResolver(testPolicy())
	parent := &model.Order{ID: 7, CourseID: testCourse, Method: model.MethodCard, CreatedAt: testNow.Add(-72 * time.Hour)}

	t.Run("pending credit can be voided", func(t *testing.T) {
		r := &model.Refund{ID: 1, OrderID: 7, TransID: "556", Status: model.StatusCredit, Amount: 100, CreatedAt: testNow.Add(-time.Hour)}
		res := resolver.Resolve(r.Record(parent), testNow, manager())
		assert.Equal(t, model.DisplayRefunded, res.Status)
		assert.Equal(t, model.NewActionSet(model.ActionVoid), res.Actions)
	})

	t.Run("old refund without transaction is never deletable", func(t *testing.T) {
		r := &model.Refund{ID: 2, OrderID: 7, TransID: "0", Status: model.StatusCredit, CreatedAt: testNow.Add(-time.Hour)}
		res := resolver.Resolve(r.Record(parent), testNow, manager())
		assert.Equal(t, model.DisplayTested, res.Status)
		assert.Empty(t, res.Actions)
	})

	t.Run("voided refund", func(t *testing.T) {
		r := &model.Refund{ID: 3, OrderID: 7, TransID: "557", Status: model.StatusVoid, CreatedAt: testNow.Add(-time.Hour)}
		res := resolver.Resolve(r.Record(parent), testNow, manager())
		assert.Equal(t, model.DisplayCancelled, res.Status)
		assert.Empty(t, res.Actions)
	})
}

func TestResolver_ReviewFailedNotDeletable(t *testing.T) {
	policy := NewPolicy(PolicyConfig{Cutoff: cutoff.Schedule{Hour: 0, Minute: 5}})
	resolver := NewResolver(policy)

	res := resolver.Resolve(record(model.StatusReviewFailed, "555", time.Hour), testNow, manager())
	assert.Equal(t, model.DisplayReviewFailed, res.Status)
	assert.Empty(t, res.Actions)

	// Without a transaction nothing was ever held, so delete stays available.
	res = resolver.Resolve(record(model.StatusReviewFailed, "0", time.Hour), testNow, manager())
	assert.Equal(t, model.DisplayTested, res.Status)
	assert.Equal(t, model.NewActionSet(model.ActionDelete), res.Actions)
}

func TestResolver_Properties(t *testing.T) {
	resolver := NewResolver(testPolicy())

	t.Run("total over raw statuses", func(t *testing.T) {
		for _, status := range model.AllRawStatuses() {
			for _, transID := range []string{"0", "555"} {
				res := resolver.Resolve(record(status, transID, time.Hour), testNow, manager())
				assert.NotEmpty(t, res.Status.String(), status)
				assert.NotEmpty(t, res.Status.Label(), status)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, status := range model.AllRawStatuses() {
			rec := record(status, "555", 40*24*time.Hour)
			first := resolver.Resolve(rec, testNow, manager())
			second := resolver.Resolve(rec, testNow, manager())
			assert.Equal(t, first, second, status)
		}
	})

	t.Run("aged authorization is always expired", func(t *testing.T) {
		ages := []time.Duration{DefaultExpiryWindow, DefaultExpiryWindow + time.Second, DefaultExpiryWindow + 11*time.Hour + 54*time.Minute}
		for days := 31; days <= 400; days += 17 {
			ages = append(ages, time.Duration(days)*24*time.Hour)
		}
		for _, age := range ages {
			rec := record(model.StatusAuth, "555", age)

			res := resolver.Resolve(rec, testNow, manager())
			assert.Equal(t, model.DisplayExpired, res.Status, age)
			assert.Equal(t, model.NewActionSet(model.ActionDelete), res.Actions, age)

			res = resolver.Resolve(rec, testNow, payer())
			assert.Equal(t, model.DisplayExpired, res.Status, age)
			assert.Empty(t, res.Actions, age)
		}
	})
}
