package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/coursepay/server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStripeServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *stripeGateway {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewStripeGateway(srv.Client(), StripeOptions{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
		Now:       func() time.Time { return testNow },
	}).(*stripeGateway)
}

func jsonReply(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestStripeGateway_Capture(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeded", func(t *testing.T) {
		var amount string
		g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/v1/payment_intents/pi_1/capture": func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				amount = r.PostForm.Get("amount_to_capture")
				jsonReply(http.StatusOK, `{"id":"pi_1","object":"payment_intent","status":"succeeded"}`)(w, r)
			},
		})

		res, err := g.Process(ctx, &model.GatewayRequest{Action: model.GatewayPriorAuthCapture, TransID: "pi_1", Amount: 5000})
		require.NoError(t, err)
		assert.Equal(t, model.ResultApproved, res.Code)
		assert.Equal(t, "pi_1", res.TransID)
		assert.Nil(t, res.SettlesAt)
		assert.Equal(t, "5000", amount)
	})

	t.Run("card error is a decline", func(t *testing.T) {
		g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/v1/payment_intents/pi_1/capture": jsonReply(http.StatusPaymentRequired,
				`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`),
		})

		res, err := g.Process(ctx, &model.GatewayRequest{Action: model.GatewayPriorAuthCapture, TransID: "pi_1"})
		require.NoError(t, err)
		assert.Equal(t, model.ResultDeclined, res.Code)
		assert.Equal(t, "Your card was declined.", res.Message)
	})

	t.Run("server error leaves the outcome unknown", func(t *testing.T) {
		g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
			"/v1/payment_intents/pi_1/capture": jsonReply(http.StatusInternalServerError,
				`{"error":{"type":"api_error","message":"boom"}}`),
		})

		_, err := g.Process(ctx, &model.GatewayRequest{Action: model.GatewayPriorAuthCapture, TransID: "pi_1"})
		assert.Error(t, err)
	})
}

func TestStripeGateway_CreditAndVoid(t *testing.T) {
	ctx := context.Background()
	var refundForm map[string]string
	g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/v1/refunds": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			refundForm = map[string]string{
				"payment_intent": r.PostForm.Get("payment_intent"),
				"amount":         r.PostForm.Get("amount"),
			}
			jsonReply(http.StatusOK, `{"id":"re_1","object":"refund","status":"pending","amount":1500}`)(w, r)
		},
		"/v1/refunds/re_1/cancel":         jsonReply(http.StatusOK, `{"id":"re_1","object":"refund","status":"canceled"}`),
		"/v1/payment_intents/pi_1/cancel": jsonReply(http.StatusOK, `{"id":"pi_1","object":"payment_intent","status":"canceled"}`),
	})

	res, err := g.Process(ctx, &model.GatewayRequest{Action: model.GatewayCredit, TransID: "pi_1", Amount: 1500})
	require.NoError(t, err)
	assert.Equal(t, model.ResultApproved, res.Code)
	assert.Equal(t, "re_1", res.TransID)
	assert.Equal(t, "pi_1", refundForm["payment_intent"])
	assert.Equal(t, "1500", refundForm["amount"])

	res, err = g.Process(ctx, &model.GatewayRequest{Action: model.GatewayVoid, RefundID: 7, TransID: "re_1"})
	require.NoError(t, err)
	assert.Equal(t, model.ResultApproved, res.Code)

	res, err = g.Process(ctx, &model.GatewayRequest{Action: model.GatewayVoid, TransID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, model.ResultApproved, res.Code)
}

func TestStripeGateway_Settled(t *testing.T) {
	ctx := context.Background()
	g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/v1/payment_intents/pi_1": jsonReply(http.StatusOK,
			`{"id":"pi_1","object":"payment_intent","status":"succeeded","latest_charge":{"id":"ch_1","object":"charge","balance_transaction":{"id":"txn_1","object":"balance_transaction","status":"available"}}}`),
		"/v1/refunds/re_1": jsonReply(http.StatusOK,
			`{"id":"re_1","object":"refund","status":"succeeded","balance_transaction":{"id":"txn_2","object":"balance_transaction","status":"pending"}}`),
	})

	settled, err := g.Settled(ctx, &model.GatewayTransaction{TransID: "pi_1", Status: model.StatusAuthCapture})
	require.NoError(t, err)
	assert.True(t, settled)

	settled, err = g.Settled(ctx, &model.GatewayTransaction{TransID: "re_1", Status: model.StatusCredit})
	require.NoError(t, err)
	assert.False(t, settled)

	settled, err = g.Settled(ctx, &model.GatewayTransaction{TransID: "pi_1", Status: model.StatusAuth})
	require.NoError(t, err)
	assert.False(t, settled)
}

func TestStripeGateway_Expired(t *testing.T) {
	ctx := context.Background()
	old := testNow.AddDate(0, 0, -8).Unix()
	g := newStripeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"/v1/payment_intents/pi_old": jsonReply(http.StatusOK,
			`{"id":"pi_old","object":"payment_intent","status":"requires_capture","created":`+strconv.FormatInt(old, 10)+`}`),
		"/v1/payment_intents/pi_auto": jsonReply(http.StatusOK,
			`{"id":"pi_auto","object":"payment_intent","status":"canceled","cancellation_reason":"automatic"}`),
		"/v1/payment_intents/pi_new": jsonReply(http.StatusOK,
			`{"id":"pi_new","object":"payment_intent","status":"requires_capture","created":`+strconv.FormatInt(testNow.Unix(), 10)+`}`),
	})

	for id, want := range map[string]bool{"pi_old": true, "pi_auto": true, "pi_new": false} {
		expired, err := g.Expired(ctx, &model.GatewayTransaction{TransID: id, Status: model.StatusAuth})
		require.NoError(t, err)
		assert.Equal(t, want, expired, id)
	}
}
