package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/service"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/forms/testutil"
	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   float64
	}{
		{"not found kind", sheet.NewError(sheet.NotFound, "worksheet", "Data", errors.New("missing")), 404, 40400},
		{"repository miss", fmt.Errorf("find: %w", repository.ErrNotFound), 404, 40400},
		{"required sheet", sheet.NewError(sheet.RequiredSheetMissing, "detect_sheets", "", errors.New("x")), 422, 42200},
		{"upstream", sheet.Upstream("list_worksheets", errors.New("503")), 502, 50200},
		{"bad url", fmt.Errorf("%w: %q", graph.ErrInvalidURL, "ftp://x"), 400, 40000},
		{"bad kind", service.ErrInvalidKind, 400, 40000},
		{"no storage", service.ErrStorageNotConfigured, 503, 50300},
		{"other", errors.New("db down"), 500, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, testutil.ParseResponse(w)["code"])
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	HandleError(c, &service.ValidationError{Violations: []service.Violation{{Field: "Age", Rule: "max", Message: "must be at most 150"}}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	vs := data["violations"].([]interface{})
	require.Len(t, vs, 1)
	assert.Equal(t, "max", vs[0].(map[string]interface{})["rule"])
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		query          string
		page, pageSize int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=0&page_size=500", 1, 20},
		{"?page=x", 1, 20},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/forms"+tt.query, nil)
		page, size := GetPagination(c)
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.pageSize, size, tt.query)
	}
	assert.Equal(t, &Pagination{Page: 2, PageSize: 20, Total: 41, TotalPages: 3}, NewPagination(2, 20, 41))
}

func TestRoutesHealthAndAuth(t *testing.T) {
	router := testutil.SetupRouter()
	hub := sse.NewHub(nil)
	h := NewHandlers(&service.Services{}, hub)
	ready := errors.New("redis down")
	RegisterRoutes(router, h, RouteOptions{
		JWTSecret: testutil.JWTSecret,
		Version:   "1.2.3",
		Ready:     func(context.Context) error { return ready },
	})

	w := testutil.DoRequest(router, "GET", "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(router, "GET", "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	ready = nil
	w = testutil.DoRequest(router, "GET", "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(router, "GET", "/version", nil, "")
	assert.Equal(t, "1.2.3", testutil.ParseResponse(w)["version"])

	w = testutil.DoRequest(router, "GET", "/api/v1/forms", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// sync and approve need the admin role
	w = testutil.DoRequest(router, "POST", "/api/v1/forms/f1/sync", nil, testutil.UserToken("u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutil.DoRequest(router, "POST", "/api/v1/forms/f1/versions/entry/1/approve", nil, testutil.UserToken("u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(router, "GET", "/api/v1/nothing", nil, testutil.UserToken("u1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSheetHandlerRequiresQuery(t *testing.T) {
	router := testutil.SetupRouter()
	h := NewSheetHandler(nil)
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/sheets/worksheets", h.Worksheets)
	api.GET("/sheets/cell-metadata", h.CellMetadata)
	api.GET("/sheets/snapshots", h.Snapshot)

	token := testutil.UserToken("u1")
	for _, path := range []string{"/api/v1/sheets/worksheets", "/api/v1/sheets/cell-metadata?url=x", "/api/v1/sheets/snapshots?worksheet=y"} {
		w := testutil.DoRequest(router, "GET", path, nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}
