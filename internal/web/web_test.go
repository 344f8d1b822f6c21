package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), dataset.DefaultPath)
	require.NoError(t, dataset.WriteCSV(path, dataset.RawHeader, dataset.Synthetic(200, 42), true))

	opts := pipeline.DefaultOptions()
	opts.NEstimators = 10
	return NewRouter(pipeline.NewSession(path, opts))
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestIndex(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	html := w.Body.String()
	assert.Contains(t, html, "Body Performance Classification App")
	assert.Contains(t, html, `name="sit_and_bend_forward_cm" min="-50" max="50"`)
	assert.Contains(t, html, `<option value="Male" selected>`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestData(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/data?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{200.0, 13.0}, body["shape"])
	assert.Len(t, body["rows"], 5)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rows"], 200)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/data?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decode(t, w)["field"])
}

func TestEDA(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/eda", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	describe, ok := body["describe"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, describe)

	corr := body["correlation"].(map[string]any)
	cols := corr["columns"].([]any)
	values := corr["values"].([]any)
	assert.Len(t, values, len(cols))
}

func TestHeatmap(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/eda/heatmap.png", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestEvaluation(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/evaluation", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Contains(t, body["report"], "weighted avg")
	acc := body["accuracy"].(float64)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)
	assert.NotEmpty(t, body["estimator_id"])
}

func TestPredict_Form(t *testing.T) {
	r := newTestRouter(t)
	form := url.Values{
		"age":       {"30"},
		"gender":    {"Female"},
		"height_cm": {"160.5"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Contains(t, []any{"A", "B", "C", "D"}, body["performance"])
	probs := body["probabilities"].(map[string]any)
	sum := 0.0
	for _, p := range probs {
		sum += p.(float64)
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestPredict_JSON(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/predict",
		strings.NewReader(`{"age": 40, "gender": "Male", "grip_force": 45.5}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPredict_OutOfRange(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/predict",
		strings.NewReader(`{"broad_jump_cm": 301}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(r, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "broad_jump_cm", decode(t, w)["field"])
}

func TestRefresh(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/api/data", nil)).Code)

	w := do(r, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["changed"])
}

func TestMissingDataset(t *testing.T) {
	s := pipeline.NewSession(filepath.Join(t.TempDir(), "absent.csv"), pipeline.DefaultOptions())
	r := NewRouter(s)

	for _, path := range []string{"/api/data", "/api/eda", "/api/evaluation"} {
		w := do(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Contains(t, decode(t, w)["error"], "absent.csv")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
