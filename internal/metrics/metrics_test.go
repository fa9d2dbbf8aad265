package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":            nil,
		"validation":    models.NewValidationError("create", "bad", nil),
		"conflict":      models.NewConflictError("sell", models.ErrInsufficientStock, "no"),
		"not_found":     &models.Error{Kind: models.ErrNotFound},
		"not_confirmed": &models.Error{Kind: models.ErrNotConfirmed},
		"network":       &models.Error{Kind: models.ErrNetwork},
		"server":        &models.Error{Kind: models.ErrServer},
		"error":         context.Canceled,
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err), "error %v", err)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveMutation("sell", nil)
	m.ObserveMutation("sell", models.NewConflictError("sell", models.ErrInsufficientStock, "no"))
	m.ObserveMutation("sell", nil)
	m.ObserveList(errors.New("boom"))
	m.QueueDepth(3)
	m.JobFinished(time.Millisecond, 2*time.Millisecond, nil)

	body := scrape(t, m)
	assert.Contains(t, body, `partsdesk_mutations_total{op="sell",outcome="ok"} 2`)
	assert.Contains(t, body, `partsdesk_mutations_total{op="sell",outcome="conflict"} 1`)
	assert.Contains(t, body, `partsdesk_list_requests_total{outcome="error"} 1`)
	assert.Contains(t, body, "partsdesk_mutation_queue_depth 3")
	assert.Contains(t, body, "partsdesk_mutation_queue_wait_seconds_count 1")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveMutation("delete", nil)

	body := scrape(t, m)
	assert.Contains(t, body, `partsdesk_mutations_total{op="delete",outcome="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
