package quotations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Service, *stubConverter) {
	t.Helper()
	svc, _, conv, _ := newTestService()
	r := chi.NewRouter()
	r.Route("/quotations", NewHandler(nil, svc).MountRoutes)
	return r, svc, conv
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
	"client_id": 1,
	"project_title": "Mobile app",
	"estimate_date": "2025-01-10",
	"expiry_date": "2025-02-10",
	"discount": 0,
	"subtotal": 1000000, "tax": 90000, "total": 1090000,
	"items": [{"item_id": null, "description": "App build", "qty": 2, "price": 500000, "tax_id": null, "tax_rate": 9}],
	"terms": [
		{"term_number": 1, "nominal": 545000, "term_percentage": 50, "term_estimate": "2025-03-01"},
		{"term_number": 2, "nominal": 545000, "term_percentage": 50, "term_estimate": "2025-04-01"}
	]
}`

func TestHandlerCreateAndShow(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/quotations", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created Quotation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusDraft, created.Status)
	assert.Equal(t, "1090000", created.Total.String())

	rec = doJSON(t, h, http.MethodGet, "/quotations/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"project_title":"Mobile app"`)

	rec = doJSON(t, h, http.MethodGet, "/quotations/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCreateValidation(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/quotations", `{"project_title":"x","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "client_id")

	rec = doJSON(t, h, http.MethodPost, "/quotations", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTransitions(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	q, err := svc.Create(context.Background(), sampleRequest())
	require.NoError(t, err)
	base := "/quotations/" + strconv.FormatInt(q.ID, 10)

	rec := doJSON(t, h, http.MethodPut, base+"/approve", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPut, base+"/send", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"sent"`)

	rec = doJSON(t, h, http.MethodPut, base, createBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPut, base+"/reject", `{"note":"budget"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"rejected"`)
}

func TestHandlerDeleteDraft(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	q, err := svc.Create(context.Background(), sampleRequest())
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodDelete, "/quotations/"+strconv.FormatInt(q.ID, 10), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerConvert(t *testing.T) {
	h, _, conv := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/quotations/3/convert-to-invoice", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"invoice_id":7,"invoice_number":"INV-00001","invoice_status":"Draft"}`, rec.Body.String())
	assert.Equal(t, []int64{3}, conv.calls)
}
