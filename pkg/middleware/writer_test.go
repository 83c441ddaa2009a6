package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusWriter_RecordsStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newStatusWriter(rec)

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"data":{}}`))

	assert.Equal(t, http.StatusCreated, w.status)
	assert.Equal(t, 11, w.bytes)
	assert.False(t, w.streaming)
}

func TestStatusWriter_DetectsEventStream(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newStatusWriter(rec)
	calls := 0
	w.onStream = func() { calls++ }

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Flush()
	_, _ = w.Write([]byte("retry: 3000\n\n"))

	assert.True(t, w.streaming)
	assert.Equal(t, 1, calls)
	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, w.status)
}

func TestStatusWriter_NestedFlushAndUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	outer := newStatusWriter(newStatusWriter(rec))

	outer.Flush()
	assert.True(t, rec.Flushed)
	assert.NotNil(t, outer.Unwrap())
}
