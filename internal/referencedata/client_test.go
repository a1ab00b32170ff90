package referencedata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlmis/buq/pkg/utils"
)

func fastConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      time.Second,
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestHTTPClient_GetFacility(t *testing.T) {
	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/facilities/"+id.String(), r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		json.NewEncoder(w).Encode(Facility{ID: id, Code: "F001", Name: "Lurio Health Center"})
	}))
	defer server.Close()

	client := NewHTTPClient(fastConfig(server.URL))
	facility, err := client.GetFacility(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, facility.ID)
	assert.Equal(t, "F001", facility.Code)
	assert.Equal(t, "Lurio Health Center", facility.Name)
}

func TestHTTPClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(fastConfig(server.URL))
	_, err := client.GetProgram(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, utils.IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	id := uuid.New()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ProcessingPeriod{
			ID:      id,
			Name:    "AnnualPeriod2026",
			EndDate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		})
	}))
	defer server.Close()

	client := NewHTTPClient(fastConfig(server.URL))
	period, err := client.GetProcessingPeriod(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "AnnualPeriod2026", period.Name)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTTPClient_ExhaustedRetriesReportUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(fastConfig(server.URL))
	_, err := client.GetFacility(context.Background(), uuid.New())

	require.Error(t, err)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.CodeServiceUnavailable, appErr.Code)
	assert.EqualValues(t, 3, calls.Load(), "initial attempt plus two retries")
}

func TestHTTPClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 1
	config.FailureThreshold = 2
	client := NewHTTPClient(config)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.GetFacility(ctx, uuid.New())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	// While open, requests fail fast without hitting the wire.
	_, err := client.GetFacility(ctx, uuid.New())
	require.Error(t, err)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.CodeServiceUnavailable, appErr.Code)
}

func TestHTTPClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.FailureThreshold = 2
	client := NewHTTPClient(config)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.GetFacility(ctx, uuid.New())
		require.True(t, utils.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())
}

func TestHTTPClient_GetApprovedProducts(t *testing.T) {
	facilityID := uuid.New()
	programID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/facilities/"+facilityID.String()+"/approvedProducts", r.URL.Path)
		assert.Equal(t, programID.String(), r.URL.Query().Get("programId"))
		json.NewEncoder(w).Encode([]*ApprovedProduct{
			{OrderableID: uuid.New(), ProductCode: "C100", FullProductName: "Paracetamol 500mg"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(fastConfig(server.URL))
	products, err := client.GetApprovedProducts(context.Background(), facilityID, programID)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "C100", products[0].ProductCode)
}
