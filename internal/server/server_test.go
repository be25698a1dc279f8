package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/resume-builder/internal/assist"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/proxy"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fakePDF(_ context.Context, html string, _ rendering.PDFOptions) ([]byte, error) {
	if !strings.Contains(html, "<!DOCTYPE html>") {
		return nil, errors.New("not a page")
	}
	return []byte("%PDF-1.4 fake"), nil
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *editor.Session) {
	t.Helper()

	logger := quietLogger()
	session := editor.NewSession(nil, editor.RenderFunc(rendering.Render), logger)
	limiter := ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	t.Cleanup(limiter.Stop)

	cfg := Config{
		Session: session,
		Limiter: limiter,
		Logger:  logger,
		PDF:     fakePDF,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s, session
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNew_RequiresSession(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTemplates(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodGet, "/templates", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[map[string][]string](t, w)
	assert.Contains(t, resp["templates"], "professional")
	assert.Contains(t, resp["templates"], "modern")
}

func TestGetDocument(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodGet, "/document", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[DocumentResponse](t, w)
	assert.Equal(t, "John Doe", resp.Document.Name)
	assert.Equal(t, uint64(1), resp.Revision)
	assert.Positive(t, resp.Completion)
}

func TestSetField(t *testing.T) {
	s, session := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodPatch, "/document/fields", `{"field":"name","value":"Jane Roe"}`)

	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeBody[editor.Snapshot](t, w)
	assert.Equal(t, uint64(2), snap.Revision)
	assert.Contains(t, snap.Markup, "Jane Roe")
	assert.Equal(t, "Jane Roe", session.Document().Name)

	w = do(t, s.Handler(), http.MethodGet, "/document/form", "")
	require.Equal(t, http.StatusOK, w.Code)
	form := decodeBody[map[string]string](t, w)
	assert.Equal(t, "Jane Roe", form["name"])
	assert.Equal(t, "professional", form["template"])
}

func TestSetField_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "unknown field", body: `{"field":"nickname","value":"x"}`, status: http.StatusBadRequest},
		{name: "missing field", body: `{"value":"x"}`, status: http.StatusBadRequest},
		{name: "invalid json", body: `{"field":`, status: http.StatusBadRequest},
		{name: "trailing data", body: `{"field":"name","value":"a"} {}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, session := newTestServer(t, nil)

			w := do(t, s.Handler(), http.MethodPatch, "/document/fields", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.Equal(t, "John Doe", session.Document().Name)
		})
	}
}

func TestEntryLifecycle(t *testing.T) {
	s, session := newTestServer(t, nil)
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/document/experience", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Fields  []string         `json:"fields"`
		Entries []editor.Control `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "TechNova", list.Entries[0].Fields["company"])
	assert.Equal(t, []string{"company", "role", "start", "end", "desc"}, list.Fields)

	w = do(t, h, http.MethodPost, "/document/experience", "")
	require.Equal(t, http.StatusCreated, w.Code)
	added := decodeBody[AddEntryResponse](t, w)
	assert.Equal(t, 1, added.Index)
	require.NotEmpty(t, added.ID)

	w = do(t, h, http.MethodPatch, "/document/experience/"+added.ID, `{"field":"role","value":"CTO"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CTO", session.Document().Experience[1].Role)

	w = do(t, h, http.MethodPatch, "/document/experience/"+added.ID, `{"field":"salary","value":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/document/experience/"+added.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, session.Document().Experience, 1)

	// The entry is gone; late edits and repeat deletes miss.
	w = do(t, h, http.MethodDelete, "/document/experience/"+added.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodPatch, "/document/experience/"+added.ID, `{"field":"role","value":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntries_UnknownKind(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/document/projects"},
		{http.MethodPost, "/document/projects"},
		{http.MethodDelete, "/document/projects/abc"},
	} {
		w := do(t, s.Handler(), tc.method, tc.path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestReorder(t *testing.T) {
	s, session := newTestServer(t, nil)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/document/education", "")
	require.Equal(t, http.StatusCreated, w.Code)

	controls, err := session.Controls(editor.KindEducation)
	require.NoError(t, err)
	require.Len(t, controls, 2)

	body, err := json.Marshal(ReorderRequest{Rows: []editor.Row{
		{ID: controls[1].ID, Fields: map[string]string{"school": "Night School", "degree": "", "year": ""}},
		{ID: controls[0].ID, Fields: controls[0].Fields},
	}})
	require.NoError(t, err)

	w = do(t, h, http.MethodPut, "/document/education/order", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	doc := session.Document()
	require.Len(t, doc.Education, 2)
	assert.Equal(t, "Night School", doc.Education[0].School)
	assert.Equal(t, "University of Tech", doc.Education[1].School)

	reordered, err := session.Controls(editor.KindEducation)
	require.NoError(t, err)
	assert.Equal(t, controls[1].ID, reordered[0].ID)
}

func TestSkills(t *testing.T) {
	s, session := newTestServer(t, nil)
	h := s.Handler()
	before := len(session.Document().Skills)

	w := do(t, h, http.MethodPost, "/document/skills", `{"text":"  Go  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[AddSkillResponse](t, w).Added)
	skills := session.Document().Skills
	require.Len(t, skills, before+1)
	assert.Equal(t, "Go", skills[len(skills)-1])

	w = do(t, h, http.MethodPost, "/document/skills", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[AddSkillResponse](t, w).Added)
	assert.Len(t, session.Document().Skills, before+1)

	w = do(t, h, http.MethodDelete, "/document/skills/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, session.Document().Skills, before)

	w = do(t, h, http.MethodDelete, "/document/skills/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/document/skills/first", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportExport(t *testing.T) {
	s, session := newTestServer(t, nil)
	h := s.Handler()

	w := do(t, h, http.MethodPut, "/document", `{"name":"Ada Lovelace","skills":["Math"],"template":"modern"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[DocumentResponse](t, w)
	assert.Equal(t, "Ada Lovelace", resp.Document.Name)
	assert.Empty(t, resp.Document.Experience)

	w = do(t, h, http.MethodGet, "/document/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="resume.json"`, w.Header().Get("Content-Disposition"))
	exported := decodeBody[map[string]any](t, w)
	assert.Equal(t, "Ada Lovelace", exported["name"])
	assert.Equal(t, "modern", exported["template"])

	revision := session.Snapshot().Revision
	for _, bad := range []string{`{"name":`, `{"skills":"not a list"}`, `[1,2]`} {
		w = do(t, h, http.MethodPut, "/document", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
	assert.Equal(t, revision, session.Snapshot().Revision)
	assert.Equal(t, "Ada Lovelace", session.Document().Name)
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{"/", "/preview"} {
		w := do(t, s.Handler(), http.MethodGet, path, "")

		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "John Doe")
		assert.Contains(t, w.Body.String(), "/preview/stream")
	}
}

func TestPDF(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodGet, "/document/pdf", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
}

func TestPDF_Failure(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.PDF = func(context.Context, string, rendering.PDFOptions) ([]byte, error) {
			return nil, errors.New("chrome not found")
		}
	})

	w := do(t, s.Handler(), http.MethodGet, "/document/pdf", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"PDF export failed"}`, w.Body.String())
}

func withAssist(completer assist.Completer) func(*Config) {
	return func(cfg *Config) {
		view := assist.NewViewState()
		cfg.View = view
		cfg.Assist = assist.NewController(cfg.Session, completer,
			assist.WithView(view),
			assist.WithLogger(quietLogger()),
		)
	}
}

func TestAssist_Summary(t *testing.T) {
	completer := assist.CompleterFunc(func(context.Context, string, float64, int) (string, error) {
		return "  Seasoned founder who ships.  ", nil
	})
	s, session := newTestServer(t, withAssist(completer))

	w := do(t, s.Handler(), http.MethodPost, "/assist",
		`{"target":{"kind":"summary"},"tone":"professional","keywords":"growth"}`)

	require.Equal(t, http.StatusOK, w.Code)
	result := decodeBody[assist.Result](t, w)
	assert.Equal(t, assist.SourceAI, result.Source)
	assert.True(t, result.Applied)
	assert.Equal(t, "Seasoned founder who ships.", result.Text)
	assert.Equal(t, "Seasoned founder who ships.", session.Document().Summary)

	w = do(t, s.Handler(), http.MethodGet, "/assist", "")
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeBody[map[string]any](t, w)
	assert.Equal(t, "idle", state["state"])
	assert.Equal(t, "success", state["last_outcome"])
	assert.Equal(t, false, state["dialog_open"])
	assert.Equal(t, assist.IdleLabel, state["label"])
}

func TestAssist_FallbackOnFailure(t *testing.T) {
	completer := assist.CompleterFunc(func(context.Context, string, float64, int) (string, error) {
		return "", errors.New("proxy down")
	})
	s, session := newTestServer(t, withAssist(completer))

	controls, err := session.Controls(editor.KindExperience)
	require.NoError(t, err)

	w := do(t, s.Handler(), http.MethodPost, "/assist",
		`{"target":{"kind":"experience","id":"`+controls[0].ID+`"},"tone":"energetic"}`)

	require.Equal(t, http.StatusOK, w.Code)
	result := decodeBody[assist.Result](t, w)
	assert.Equal(t, assist.SourceFallback, result.Source)
	assert.NotEmpty(t, result.Text)
	assert.Equal(t, result.Text, session.Document().Experience[0].Desc)

	w = do(t, s.Handler(), http.MethodGet, "/assist", "")
	state := decodeBody[struct {
		Notices []assist.Notice `json:"notices"`
	}](t, w)
	require.Len(t, state.Notices, 1)
	assert.Equal(t, assist.FallbackNotice, state.Notices[0].Message)
}

func TestAssist_Errors(t *testing.T) {
	s, _ := newTestServer(t, withAssist(nil))

	w := do(t, s.Handler(), http.MethodPost, "/assist", `{"target":{"kind":"education","id":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s.Handler(), http.MethodPost, "/assist", `{"target":{"kind":"experience"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	disabled, _ := newTestServer(t, nil)
	w = do(t, disabled.Handler(), http.MethodPost, "/assist", `{"target":{"kind":"summary"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s.Handler(), http.MethodOptions, "/document/fields", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestToken(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) { cfg.Token = "editor-secret" })
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/document", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/document", nil)
	req.Header.Set("Authorization", "Bearer editor-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Limiter = ratelimit.NewLimiter(&ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  2,
			DefaultWindow: time.Minute,
		})
		t.Cleanup(cfg.Limiter.Stop)
	})
	h := s.Handler()

	for i := 0; i < 2; i++ {
		w := do(t, h, http.MethodGet, "/document/form", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := do(t, h, http.MethodGet, "/document/form", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// The health check is never limited.
	w = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProxyMount(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: proxy.Path, Method: http.MethodPost, Limit: 3, Window: time.Minute},
		},
	})
	t.Cleanup(limiter.Stop)

	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Limiter = limiter
		cfg.Token = "editor-secret"
		cfg.Proxy = proxy.New(proxy.Options{Limiter: limiter, Logger: quietLogger()})
	})
	h := s.Handler()

	// The editor token does not apply to the proxy, and the server does not
	// count proxy requests a second time.
	for i := 0; i < 3; i++ {
		w := do(t, h, http.MethodPost, proxy.Path, `{"prompt":"Write a summary"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"API key not configured on the server."}`, w.Body.String())
	}
	w := do(t, h, http.MethodPost, proxy.Path, `{"prompt":"Write a summary"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = do(t, h, http.MethodOptions, proxy.Path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))

	w = do(t, h, http.MethodGet, proxy.Path, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestPreviewStream(t *testing.T) {
	s, session := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/preview/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	require.Equal(t, "snapshot", event)
	var first editor.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &first))
	assert.Equal(t, uint64(1), first.Revision)
	assert.Contains(t, first.Markup, "John Doe")

	_, err = session.SetField("name", "Grace Hopper")
	require.NoError(t, err)

	event, data = readEvent(t, reader)
	require.Equal(t, "snapshot", event)
	var next editor.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &next))
	assert.Equal(t, uint64(2), next.Revision)
	assert.Contains(t, next.Markup, "Grace Hopper")
}
