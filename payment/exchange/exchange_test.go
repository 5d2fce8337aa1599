package exchange

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestConvertUsesFetchedRates(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"NGN":1600,"GBP":0.8,"XYZ":0}}`))
	}))
	defer srv.Close()

	c := NewConverter(srv.URL, quietLogger())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	got, err := c.Convert(ctx, 10, "usd", "NGN")
	require.NoError(t, err)
	assert.InDelta(t, 16000, got, 1e-6)

	got, err = c.Convert(ctx, 8, "GBP", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 10, got, 1e-9)

	// currencies missing upstream fall back to defaults
	_, err = c.Convert(ctx, 1, "GHS", "NGN")
	require.NoError(t, err)

	_, err = c.Convert(ctx, 1, "XYZ", "NGN")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	now = now.Add(cacheDuration + time.Second)
	_, err = c.Convert(ctx, 1, "USD", "NGN")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestConvertFallsBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewConverter(srv.URL, quietLogger())
	got, err := c.Convert(context.Background(), 1, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = c.Convert(context.Background(), 1, "GBP", "USD")
	require.NoError(t, err)
	assert.InDelta(t, defaultRates["GBP"], got, 1e-9)
}
