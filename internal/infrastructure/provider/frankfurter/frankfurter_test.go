package frankfurter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		if r.URL.Query().Get("to") != "PLN" {
			_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2026-03-02","rates":{}}`))
			return
		}
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2026-03-02","rates":{"PLN":3.9812}}`))
	}))
	defer srv.Close()
	s := New(srv.URL, time.Second, 0)

	r, err := s.Rate(context.Background(), "usd", "pln")
	require.NoError(t, err)
	assert.Equal(t, "3.9812", r.Rate.String())
	assert.Equal(t, "USD", r.Base)
	assert.Equal(t, "2026-03-02", r.AsOf.Format(time.DateOnly))

	_, err = s.Rate(context.Background(), "USD", "XAU")
	assert.ErrorContains(t, err, "not quoted")
}
