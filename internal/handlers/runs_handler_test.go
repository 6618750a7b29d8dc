package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestTriggerRunsHandler_RejectsOverlappingRun(t *testing.T) {
	h := NewRunsHandler(nil, nil, arbor.NewLogger())

	// Occupy the single-flight slot as an in-progress run would.
	h.running <- struct{}{}

	req := httptest.NewRequest("POST", "/api/runs", nil)
	rec := httptest.NewRecorder()
	h.TriggerRunsHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")

	// The rejected request must not have consumed or released the slot.
	select {
	case <-h.running:
	default:
		t.Fatal("single-flight slot was released by the rejected request")
	}
}

func TestTriggerRunsHandler_RequiresPost(t *testing.T) {
	h := NewRunsHandler(nil, nil, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/runs", nil)
	rec := httptest.NewRecorder()
	h.TriggerRunsHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	// A rejected method must leave the slot free for a real trigger.
	select {
	case h.running <- struct{}{}:
	default:
		t.Fatal("single-flight slot was consumed by a rejected request")
	}
}
