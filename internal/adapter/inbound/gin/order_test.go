package gin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coursepay/server/internal/domain/order"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/utils/metrics"
	"github.com/coursepay/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockOrderDomain struct {
	mock.Mock
}

func (m *MockOrderDomain) CreateOrder(ctx context.Context, payerID uuid.UUID, input *model.CreateOrderInput) (*model.Order, error) {
	args := m.Called(ctx, payerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderDomain) RecordAuthorization(ctx context.Context, orderID int64, outcome *model.RecordAuthorizationRequest, capability model.Capability) (*model.OrderView, error) {
	args := m.Called(ctx, orderID, outcome, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderView), args.Error(1)
}

func (m *MockOrderDomain) GetOrder(ctx context.Context, orderID int64, capability model.Capability) (*model.OrderDetail, error) {
	args := m.Called(ctx, orderID, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderDetail), args.Error(1)
}

func (m *MockOrderDomain) ListOrders(ctx context.Context, query *model.ListQuery, capability model.Capability) (*model.PaginatedResponse[model.OrderView], error) {
	args := m.Called(ctx, query, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaginatedResponse[model.OrderView]), args.Error(1)
}

func (m *MockOrderDomain) RequestAction(ctx context.Context, intent *model.ActionIntent, capability model.Capability) (*model.ConfirmationTicket, error) {
	args := m.Called(ctx, intent, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConfirmationTicket), args.Error(1)
}

func (m *MockOrderDomain) actionResult(args mock.Arguments) (*model.ActionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActionResult), args.Error(1)
}

func (m *MockOrderDomain) Capture(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return m.actionResult(m.Called(ctx, req, capability))
}

func (m *MockOrderDomain) Refund(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return m.actionResult(m.Called(ctx, req, capability))
}

func (m *MockOrderDomain) Void(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return m.actionResult(m.Called(ctx, req, capability))
}

func (m *MockOrderDomain) Delete(ctx context.Context, req *model.ConfirmedAction, capability model.Capability) (*model.ActionResult, error) {
	return m.actionResult(m.Called(ctx, req, capability))
}

func (m *MockOrderDomain) Reconcile(ctx context.Context, opts order.ReconcileOptions) (*model.ReconcileReport, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileReport), args.Error(1)
}

var _ order.OrderDomain = (*MockOrderDomain)(nil)

type testEnv struct {
	router     *gin.Engine
	domain     *MockOrderDomain
	metrics    *metrics.Metrics
	capability model.Capability
}

func newTestEnv(t *testing.T, capability *model.Capability) *testEnv {
	t.Helper()
	env := &testEnv{
		domain:  new(MockOrderDomain),
		metrics: metrics.NewWithRegisterer("handler_test", prometheus.NewRegistry()),
	}
	if capability != nil {
		env.capability = *capability
	}

	env.router = gin.New()
	api := env.router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if capability != nil {
			c.Set(middleware.UserIDKey, capability.UserID)
			c.Set(middleware.CapabilityKey, *capability)
		}
	})
	RegisterOrderRoutes(api, NewOrderHandler(env.domain, env.metrics))
	RegisterAdminRoutes(api, NewAdminHandler(env.domain, env.metrics), middleware.RequireManageAll())
	t.Cleanup(func() { env.domain.AssertExpectations(t) })
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func manager() *model.Capability {
	return &model.Capability{UserID: uuid.New(), ManageAll: true}
}

func TestOrderHandler_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do("GET", "/api/v1/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("parses query", func(t *testing.T) {
		env := newTestEnv(t, manager())
		course := uuid.New()

		env.domain.On("ListOrders", mock.Anything, mock.MatchedBy(func(q *model.ListQuery) bool {
			return q.Filter == model.PendingGroup() &&
				q.SearchField == model.SearchLastFour &&
				q.SearchValue == "42" &&
				q.CourseID != nil && *q.CourseID == course &&
				q.Page == 2 && q.PageSize == 10
		}), env.capability).Return(model.NewPaginatedResponse([]model.OrderView{{ID: 9}}, 11, 2, 10), nil)

		w := env.do("GET", fmt.Sprintf("/api/v1/orders?status=pending&search_field=last_four&q=42&course_id=%s&page=2&page_size=10", course), "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp model.PaginatedResponse[model.OrderView]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(11), resp.Total)
		assert.Equal(t, 2, resp.TotalPages)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, int64(9), resp.Data[0].ID)
	})

	t.Run("unknown status", func(t *testing.T) {
		env := newTestEnv(t, manager())
		w := env.do("GET", "/api/v1/orders?status=captured", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_status", decodeError(t, w).Code)
	})

	t.Run("bad course id", func(t *testing.T) {
		env := newTestEnv(t, manager())
		w := env.do("GET", "/api/v1/orders?course_id=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid search", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("ListOrders", mock.Anything, mock.Anything, env.capability).
			Return(nil, &order.ValidationError{Err: order.ErrInvalidSearch, Detail: "order id must be a positive integer"})

		w := env.do("GET", "/api/v1/orders?search_field=order_id&q=x", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_search", decodeError(t, w).Code)
	})
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	env := newTestEnv(t, &model.Capability{UserID: uuid.New()})
	course := uuid.New()

	env.domain.On("CreateOrder", mock.Anything, env.capability.UserID, &model.CreateOrderInput{
		CourseID:     course,
		Method:       model.MethodCard,
		Amount:       4999,
		Currency:     "usd",
		MaskedDetail: "4242",
	}).Return(&model.Order{ID: 1, CourseID: course, Amount: 4999, Status: model.StatusNew}, nil)

	w := env.do("POST", "/api/v1/orders", fmt.Sprintf(
		`{"course_id":%q,"method":"card","amount":"49.99","currency":"usd","masked_detail":"4242"}`, course))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":4999`)

	w = env.do("POST", "/api/v1/orders", fmt.Sprintf(
		`{"course_id":%q,"method":"card","amount":"49.999","currency":"usd"}`, course))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", decodeError(t, w).Code)

	w = env.do("POST", "/api/v1/orders", `{"method":"cash"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_RecordAuthorization(t *testing.T) {
	env := newTestEnv(t, manager())

	env.domain.On("RecordAuthorization", mock.Anything, int64(5), &model.RecordAuthorizationRequest{
		Result: model.ResultApproved, TransID: "60001",
	}, env.capability).Return(&model.OrderView{ID: 5, RawStatus: model.StatusAuth}, nil).Once()
	env.domain.On("RecordAuthorization", mock.Anything, int64(6), mock.Anything, env.capability).
		Return(nil, order.ErrOrderAlreadyAuthorized).Once()

	w := env.do("POST", "/api/v1/orders/5/authorization", `{"result":"APPROVED","trans_id":"60001"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("POST", "/api/v1/orders/6/authorization", `{"result":"APPROVED","trans_id":"60002"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do("POST", "/api/v1/orders/7/authorization", `{"result":"MAYBE"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_GetOrder(t *testing.T) {
	env := newTestEnv(t, manager())

	env.domain.On("GetOrder", mock.Anything, int64(3), env.capability).
		Return(&model.OrderDetail{Order: model.OrderView{ID: 3}, Refundable: 1000}, nil)
	env.domain.On("GetOrder", mock.Anything, int64(4), env.capability).
		Return(nil, order.ErrOrderNotFound)

	w := env.do("GET", "/api/v1/orders/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refundable":1000`)

	w = env.do("GET", "/api/v1/orders/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "order_not_found", decodeError(t, w).Code)

	w = env.do("GET", "/api/v1/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", decodeError(t, w).Code)
}

func TestOrderHandler_RequestAction(t *testing.T) {
	t.Run("refund amount in order currency", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("GetOrder", mock.Anything, int64(8), env.capability).
			Return(&model.OrderDetail{Order: model.OrderView{ID: 8, Currency: "jpy"}}, nil)
		env.domain.On("RequestAction", mock.Anything, &model.ActionIntent{
			OrderID: 8, Action: model.ActionRefund, Amount: 1500,
		}, env.capability).Return(&model.ConfirmationTicket{
			Token: "tok", OrderID: 8, Action: model.ActionRefund, Amount: 1500, ExpiresAt: time.Now().Add(time.Minute),
		}, nil)

		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"refund","amount":"1500"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token":"tok"`)
		assert.Contains(t, w.Body.String(), `"action":"refund"`)
	})

	t.Run("void of a refund", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("RequestAction", mock.Anything, &model.ActionIntent{
			OrderID: 8, RefundID: 2, Action: model.ActionVoid,
		}, env.capability).Return(&model.ConfirmationTicket{Token: "tok"}, nil)

		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"void","refund_id":2}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		env := newTestEnv(t, manager())
		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"settle"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_action", decodeError(t, w).Code)
	})

	t.Run("refund without amount", func(t *testing.T) {
		env := newTestEnv(t, manager())
		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"refund"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("capability required", func(t *testing.T) {
		env := newTestEnv(t, &model.Capability{UserID: uuid.New()})
		env.domain.On("RequestAction", mock.Anything, mock.Anything, env.capability).
			Return(nil, &order.ValidationError{Err: order.ErrCapabilityRequired})

		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"capture"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "forbidden", decodeError(t, w).Code)
	})

	t.Run("action not allowed", func(t *testing.T) {
		env := newTestEnv(t, manager())
		current := model.Resolution{Status: model.DisplaySettled, Actions: model.NewActionSet(model.ActionRefund)}
		env.domain.On("RequestAction", mock.Anything, mock.Anything, env.capability).
			Return(nil, &order.ConsistencyError{Action: model.ActionVoid, Current: current})

		w := env.do("POST", "/api/v1/orders/8/actions", `{"action":"void"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "action_not_allowed", resp.Code)
		assert.NotNil(t, resp.Details)
	})
}

func TestOrderHandler_ConfirmedActions(t *testing.T) {
	t.Run("capture", func(t *testing.T) {
		env := newTestEnv(t, manager())
		status := model.DisplayCapturedPendingSettle
		env.domain.On("Capture", mock.Anything, &model.ConfirmedAction{OrderID: 5, Token: "tok"}, env.capability).
			Return(&model.ActionResult{OrderID: 5, Action: model.ActionCapture, Status: &status, TransID: "60001"}, nil)

		w := env.do("POST", "/api/v1/orders/5/capture", `{"token":"tok"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"trans_id":"60001"`)
		assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.OrderActionsTotal.WithLabelValues("capture", "committed")))
	})

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t, manager())
		w := env.do("POST", "/api/v1/orders/5/capture", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "confirmation_required", decodeError(t, w).Code)
	})

	t.Run("refund", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("GetOrder", mock.Anything, int64(5), env.capability).
			Return(&model.OrderDetail{Order: model.OrderView{ID: 5, Currency: "usd"}}, nil)
		env.domain.On("Refund", mock.Anything, &model.ConfirmedAction{
			OrderID: 5, Amount: 1250, RevokeAccess: true, Token: "tok",
		}, env.capability).Return(&model.ActionResult{OrderID: 5, RefundID: 11, Action: model.ActionRefund}, nil)

		w := env.do("POST", "/api/v1/orders/5/refund", `{"token":"tok","amount":"12.50","revoke_access":true}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"refund_id":11`)
	})

	t.Run("void refund declined", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("Void", mock.Anything, &model.ConfirmedAction{OrderID: 5, RefundID: 11, Token: "tok"}, env.capability).
			Return(nil, &order.GatewayError{Gateway: "aim", Code: model.ResultDeclined, Message: "This transaction cannot be voided."})

		w := env.do("POST", "/api/v1/orders/5/void", `{"token":"tok","refund_id":11}`)
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "gateway_declined", resp.Code)
		assert.Equal(t, "This transaction cannot be voided.", resp.Message)
		assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.OrderActionsTotal.WithLabelValues("void", "declined")))
	})

	t.Run("delete with token in query", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("Delete", mock.Anything, &model.ConfirmedAction{OrderID: 5, Token: "tok"}, env.capability).
			Return(&model.ActionResult{OrderID: 5, Action: model.ActionDelete}, nil)

		w := env.do("DELETE", "/api/v1/orders/5?token=tok", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandleOrderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		outcome string
	}{
		{"not found", order.ErrOrderNotFound, http.StatusNotFound, "order_not_found", outcomeRejected},
		{"refund not found", order.ErrRefundNotFound, http.StatusNotFound, "refund_not_found", outcomeRejected},
		{"invalid token", &order.ValidationError{Err: order.ErrInvalidConfirmation}, http.StatusBadRequest, "invalid_confirmation", outcomeRejected},
		{"over balance", &order.ValidationError{Err: order.ErrRefundExceedsBalance}, http.StatusBadRequest, "invalid_amount", outcomeRejected},
		{"consistency", &order.ConsistencyError{Action: model.ActionCapture}, http.StatusConflict, "action_not_allowed", outcomeRejected},
		{"declined", &order.GatewayError{Gateway: "aim", Code: model.ResultDeclined}, http.StatusPaymentRequired, "gateway_declined", outcomeDeclined},
		{"unavailable", &order.GatewayError{Gateway: "aim", Code: model.ResultError, Err: outbound.ErrGatewayUnavailable}, http.StatusServiceUnavailable, "gateway_unavailable", outcomeGatewayError},
		{"timeout", &order.GatewayError{Gateway: "aim", Code: model.ResultError, Err: fmt.Errorf("%w: slow", outbound.ErrGatewayTimeout)}, http.StatusGatewayTimeout, "gateway_timeout", outcomeGatewayError},
		{"gateway error", &order.GatewayError{Gateway: "aim", Code: model.ResultError, Message: "bad"}, http.StatusBadGateway, "gateway_error", outcomeGatewayError},
		{"reconciliation", &order.ReconciliationError{OrderID: 1, Action: model.ActionRefund, Err: errors.New("db down")}, http.StatusInternalServerError, "reconciliation_required", outcomeReconciliation},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", outcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", nil)

			handleOrderError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
			assert.Equal(t, tt.outcome, actionOutcome(tt.err))
		})
	}
}

func TestAdminHandler_Reconcile(t *testing.T) {
	t.Run("requires manage all", func(t *testing.T) {
		env := newTestEnv(t, &model.Capability{UserID: uuid.New(), ManagedCourses: []uuid.UUID{uuid.New()}})
		w := env.do("POST", "/api/v1/admin/reconcile", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("runs a pass", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("Reconcile", mock.Anything, order.ReconcileOptions{BatchSize: 50}).
			Return(&model.ReconcileReport{Checked: 4, Settled: 2, Expired: 1, Failures: 1}, nil)

		w := env.do("POST", "/api/v1/admin/reconcile?batch_size=50", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"settled":2`)
		assert.Equal(t, float64(2), testutil.ToFloat64(env.metrics.ReconcileRecordsTotal.WithLabelValues("settled")))
	})

	t.Run("dry run records nothing", func(t *testing.T) {
		env := newTestEnv(t, manager())
		env.domain.On("Reconcile", mock.Anything, order.ReconcileOptions{DryRun: true}).
			Return(&model.ReconcileReport{Checked: 4, Settled: 2}, nil)

		w := env.do("POST", "/api/v1/admin/reconcile?dry_run=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), testutil.ToFloat64(env.metrics.ReconcileRecordsTotal.WithLabelValues("settled")))
	})
}
