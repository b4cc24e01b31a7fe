package invoices

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
	"github.com/xuri/excelize/v2"

	"github.com/track-invoice/track-invoice/internal/quotations"
)

func newTestRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/invoices", NewHandler(nil, f.svc).MountRoutes)
	return r, f
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/invoices/from-quotation/1", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conv quotations.Conversion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "Draft", conv.InvoiceStatus)
	base := "/invoices/" + strconv.FormatInt(conv.InvoiceID, 10)

	rec = doJSON(t, h, http.MethodPost, "/invoices/from-quotation/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/pay-term", `{"term_number": 1, "nominal": 545000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "draft invoices are not payable")

	rec = doJSON(t, h, http.MethodPut, base+"/publish", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var published publishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &published))
	assert.Equal(t, StatusIssued, published.Invoice.Status)

	rec = doJSON(t, h, http.MethodPost, base+"/pay-term", `{"term_number": 1, "nominal": 545000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Equal(t, StatusPartiallyPaid, paid.InvoiceStatus)
	assert.Equal(t, "Termin 1 berhasil dibayar", paid.Message)

	rec = doJSON(t, h, http.MethodPost, base+"/pay-term", `{"term_number": 3, "nominal": 545000}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/pay-term", `{"term_number": 2, "nominal": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/invoices?status=Partially%20Paid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, 1, list.Pagination.Total)
}

func TestHandlerPayTermValidation(t *testing.T) {
	h, f := newTestRouter(t)
	id := f.issued(t)
	base := "/invoices/" + strconv.FormatInt(id, 10)

	rec := doJSON(t, h, http.MethodPost, base+"/pay-term", `{"nominal": 545000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/pay-term", `{"term_number": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/invoices/abc/pay-term", `{"term_number": 1, "nominal": 545000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/pay-term", bytes.NewReader([]byte(`{"term_number": 1, "nominal": 545000}`)))
	req.Header.Set("Idempotency-Key", "pay-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, base+"/pay-term", bytes.NewReader([]byte(`{"term_number": 2, "nominal": 545000}`)))
	req.Header.Set("Idempotency-Key", "pay-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerExport(t *testing.T) {
	h, f := newTestRouter(t)
	id := f.issued(t)
	_, err := f.svc.PayTerm(context.Background(), id, PayTermRequest{TermNumber: 1, Nominal: d("545000")}, "")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/invoices/"+strconv.FormatInt(id, 10)+"/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "INV-00001.xlsx")

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{summarySheet, itemsSheet, termsSheet}, wb.GetSheetList())
	number, err := wb.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "INV-00001", number)

	rows, err := wb.GetRows(termsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "paid", rows[1][4])
	assert.Equal(t, "unpaid", rows[2][4])
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(d("1090000")), "1.090.000")
}
