package s3

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/shared/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoint string) *s3.Client {
	return s3.New(s3.Options{
		BaseEndpoint:               aws.String(endpoint),
		UsePathStyle:               true,
		Region:                     "auto",
		Credentials:                credentials.NewStaticCredentialsProvider("key", "secret", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})
}

func testIncident() *model.ReconciliationIncident {
	return &model.ReconciliationIncident{
		ID:             uuid.MustParse("6f1c2a0e-6a5e-4f60-9a55-3f1f3c1d2b10"),
		OrderID:        42,
		Action:         "refund",
		Gateway:        "aim",
		GatewayTransID: "777",
		Amount:         1500,
		Error:          "commit failed",
		GatewayFields:  []string{"1", "1", "1", "approved"},
		CreatedAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestIncidentArchive_Key(t *testing.T) {
	a := NewIncidentArchive(nil, "bucket", "incidents/")
	assert.Equal(t, "incidents/2026/03/10/order-42/6f1c2a0e-6a5e-4f60-9a55-3f1f3c1d2b10.json", a.Key(testIncident()))
}

func TestIncidentArchive_Put(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewIncidentArchive(newTestClient(srv.URL), "coursepay", "incidents")
	require.NoError(t, a.Put(context.Background(), testIncident()))

	assert.Equal(t, "/coursepay/incidents/2026/03/10/order-42/6f1c2a0e-6a5e-4f60-9a55-3f1f3c1d2b10.json", gotPath)
	assert.Equal(t, "application/json", gotType)

	var decoded model.ReconciliationIncident
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, int64(42), decoded.OrderID)
	assert.Equal(t, "777", decoded.GatewayTransID)
	assert.Equal(t, []string{"1", "1", "1", "approved"}, []string(decoded.GatewayFields))
}

func TestIncidentArchive_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	}))
	defer srv.Close()

	a := NewIncidentArchive(newTestClient(srv.URL), "coursepay", "incidents")
	assert.Error(t, a.Put(context.Background(), testIncident()))
}

func TestNewClient_IncompleteConfig(t *testing.T) {
	_, err := NewClient(context.Background(), &config.StorageConfig{Endpoint: "http://localhost"})
	assert.Error(t, err)
}
