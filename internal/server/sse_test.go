package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainWriter is a ResponseWriter without Flush.
type plainWriter struct {
	header http.Header
}

func (p *plainWriter) Header() http.Header {
	return p.header
}

func (p *plainWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func (p *plainWriter) WriteHeader(int) {}

func TestNewSSEWriter_RequiresFlusher(t *testing.T) {
	_, err := NewSSEWriter(&plainWriter{header: http.Header{}})
	assert.Error(t, err)
}

func TestSSEWriter_Events(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := NewSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.WriteSnapshot(editor.Snapshot{Revision: 3, Completion: 40}))
	require.NoError(t, sse.WriteComment("keep-alive"))
	sse.WriteError("render failed")

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t,
		"event: snapshot\ndata: {\"revision\":3,\"completion\":40}\n\n"+
			": keep-alive\n\n"+
			"event: error\ndata: {\"error\":\"render failed\"}\n\n",
		w.Body.String())
	assert.True(t, w.Flushed)
}
