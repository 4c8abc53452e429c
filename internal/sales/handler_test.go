package sales

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/config"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/server"
	"salestrack-backend/internal/spreadsheet"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(f *fixture) *fiber.App {
	app := server.NewApp(config.GetLogger(), "")
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/sales", ListSalesHandler(f.svc))
	api.Post("/sales", CreateSaleHandler(f.svc))
	api.Post("/sales/import", ImportSalesHandler(f.svc))
	api.Get("/sales/export", ExportSalesHandler(f.svc))
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, "user-1", "user@example.com", models.RoleStaff, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sales/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateSaleHandler(t *testing.T) {
	app := newTestApp(newFixture(t, nil))

	resp, body := send(t, app, jsonRequest(t, http.MethodPost, "/api/sales", map[string]any{
		"product": "Widget", "category": "Tools", "date": "2024-01-05", "quantity": 3, "price": "2.50",
	}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sale models.Sale
	require.NoError(t, json.Unmarshal(body, &sale))
	assert.Equal(t, "7.5", sale.Total.String())

	resp, body = send(t, app, jsonRequest(t, http.MethodPost, "/api/sales", map[string]any{
		"product": "", "category": "Tools", "date": "2024-01-05", "quantity": -2, "price": 1,
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(body, &verr))
	assert.Equal(t, map[string]string{"product": "required", "quantity": "gte"}, verr.Fields)

	resp, body = send(t, app, jsonRequest(t, http.MethodPost, "/api/sales", map[string]any{
		"product": "Widget", "category": "Tools", "date": "05.01.2024", "quantity": 1, "price": 1,
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"date":"date"`)
}

func TestListSalesHandler(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f)
	for i, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		f.add(t, "Widget", "Tools", day(t, d), i+1)
	}
	f.add(t, "Ball", "Toys", day(t, "2024-01-03"), 10)

	resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/api/sales?category=tools&from=2024-01-02&page_size=2", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list ListSalesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, 4, list.Items[0].Quantity, "newest first by default")
	assert.Equal(t, 3, list.Items[1].Quantity)
	assert.Equal(t, 3, list.Pagination.TotalItems)
	assert.Equal(t, 3, list.Summary.Count)
	assert.Equal(t, 9, list.Summary.Quantity)

	for _, bad := range []string{"?from=01-02-2024", "?to=x", "?from=2024-02-01&to=2024-01-01", "?order=sideways"} {
		resp, _ = send(t, app, httptest.NewRequest(http.MethodGet, "/api/sales"+bad, nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestListSalesHandler_HugePage(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f)
	f.add(t, "Widget", "Tools", day(t, "2024-01-01"), 1)

	resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/api/sales?page=100000000000000000&page_size=100", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list ListSalesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Items)
	assert.Equal(t, 1, list.Pagination.TotalItems)
}

func TestImportSalesHandler(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f)

	good := salesWorkbook(t,
		[]any{"2024-01-05", "Widget", "Tools", 2, 3, ""},
		[]any{"2024-01-06", "Ball", "Toys", 1, 10, 9},
	).Bytes()
	resp, body := send(t, app, uploadRequest(t, "january.XLSX", good))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var res ImportResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 2, res.Summary.Count)

	bad := salesWorkbook(t,
		[]any{"2024-01-05", "Widget", "Tools", 2, 3},
		[]any{"someday", "Widget", "Tools", 2, 3},
	).Bytes()
	resp, body = send(t, app, uploadRequest(t, "bad.xlsx", bad))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var rejected struct {
		Rows []spreadsheet.RowError `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(body, &rejected))
	require.Len(t, rejected.Rows, 1)
	assert.Equal(t, 3, rejected.Rows[0].Row)

	huge := salesWorkbook(t,
		[]any{"2024-01-05", "Widget", "Tools", "18446744073709551615", 3},
	).Bytes()
	resp, _ = send(t, app, uploadRequest(t, "huge.xlsx", huge))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = send(t, app, uploadRequest(t, "sales.csv", []byte("a,b")))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, app, uploadRequest(t, "broken.xlsx", []byte("not a zip")))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	all, err := f.sales.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 2, "rejected files add nothing")
}

func TestExportSalesHandler(t *testing.T) {
	f := newFixture(t, nil)
	app := newTestApp(f)
	f.add(t, "Widget", "Tools", day(t, "2024-01-05").Add(9*time.Hour), 2)
	f.add(t, "Widget", "Tools", day(t, "2024-02-05"), 1)

	resp, body := send(t, app, httptest.NewRequest(http.MethodGet, "/api/sales/export?from=2024-01-01&to=2024-01-31&order=asc", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sales-2024-01-01_2024-01-31.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.GreaterOrEqual(t, len(rows[1]), 6)
	assert.Equal(t, []string{"2024-01-05 09:00", "Widget", "Tools", "2", "3", "6"}, rows[1][:6])

	total, err := wb.GetCellValue("Summary", "C2")
	require.NoError(t, err)
	assert.Equal(t, "6", total)
}
