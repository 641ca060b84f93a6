package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/service"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/forms/testutil"
	"github.com/bitfantasy/sheetform/internal/sheet/accessor"
	"github.com/bitfantasy/sheetform/internal/sheet/sheettest"
)

func setupFormsTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	hub := sse.NewHub(nil)
	svc := service.NewServices(accessor.NewLocal(nil), repos, nil, "", hub, nil)
	RegisterRoutes(router, NewHandlers(svc, hub), RouteOptions{JWTSecret: testutil.JWTSecret})

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := testutil.ParseResponse(w)
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %s", w.Body.String())
	}
	return data
}

func TestFormLifecycle(t *testing.T) {
	env := setupFormsTest(t)
	admin := testutil.AdminToken()
	user := testutil.UserToken("user-001")
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	// Create
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms",
		map[string]interface{}{"sharepoint_url": path, "form_name": "Staff"}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := dataOf(t, w)
	formID := created["form_id"].(string)
	if created["display_version"] != float64(1) || created["entry_version"] != float64(1) {
		t.Errorf("Expected v1/v1, got %v", created)
	}

	// Get
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID, nil, user)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	form := dataOf(t, w)["form"].(map[string]interface{})
	if form["form_name"] != "Staff" {
		t.Errorf("Expected form_name Staff, got %v", form["form_name"])
	}

	// List
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms?page=1&page_size=10", nil, user)
	list := dataOf(t, w)
	if items := list["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 form, got %d", len(items))
	}

	// Metadata
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID+"/metadata/entry", nil, user)
	entry := dataOf(t, w)["entry"].(map[string]interface{})
	records := entry["data"].([]interface{})
	if len(records) != 2 || records[0].(map[string]interface{})["Name"] != "Bob" {
		t.Errorf("Unexpected entry records: %v", records)
	}
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID+"/metadata/bogus", nil, user)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad kind, got %d", w.Code)
	}

	// Submitting before approval is rejected
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/submissions",
		map[string]interface{}{"values": map[string]interface{}{"Name": "Dan", "Age": 33}}, user)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before approval, got %d: %s", w.Code, w.Body.String())
	}

	// Approve (admin only)
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/versions/entry/1/approve", nil, user)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for plain user, got %d", w.Code)
	}
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/versions/entry/1/approve", nil, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if dataOf(t, w)["approved"] != true {
		t.Errorf("Expected approved version")
	}

	// Submit
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/submissions",
		map[string]interface{}{"values": map[string]interface{}{"Name": "Dan", "Age": 33}}, user)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if dataOf(t, w)["history_version"] != float64(1) {
		t.Errorf("Expected history version 1")
	}

	// Rules from the config sheet: Age max 150
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/submissions",
		map[string]interface{}{"values": map[string]interface{}{"Name": "Dan", "Age": 200}}, user)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for rule violation, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID+"/submissions/history", nil, user)
	if items := dataOf(t, w)["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 history row, got %d", len(items))
	}

	// Sync without changes creates nothing
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms/"+formID+"/sync", nil, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if updated := dataOf(t, w)["versions_updated"].([]interface{}); len(updated) != 0 {
		t.Errorf("Expected no new versions, got %v", updated)
	}

	// Versions
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/forms/"+formID+"/versions/display", nil, user)
	if items := dataOf(t, w)["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 display version, got %d", len(items))
	}
}

func TestCreateFormMissingSheets(t *testing.T) {
	env := setupFormsTest(t)

	f := excelize.NewFile()
	defer f.Close()
	f.NewSheet("Data")
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/forms",
		map[string]interface{}{"sharepoint_url": path, "form_name": "Plain"}, testutil.AdminToken())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	env.DB.Table("forms").Count(&count)
	if count != 0 {
		t.Errorf("Expected no forms stored, got %d", count)
	}

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/forms", map[string]interface{}{"form_name": "x"}, testutil.AdminToken())
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without url, got %d", w.Code)
	}
}

func TestSheetEndpoints(t *testing.T) {
	env := setupFormsTest(t)
	token := testutil.UserToken("user-001")
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))
	q := "url=" + url.QueryEscape(path) + "&worksheet=" + url.QueryEscape(sheettest.DisplaySheet)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/sheets/worksheets?url="+url.QueryEscape(path), nil, token)
	if items := dataOf(t, w)["items"].([]interface{}); len(items) != 3 {
		t.Errorf("Expected 3 worksheets, got %d", len(items))
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/sheets/snapshots?"+q, nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any snapshot, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/sheets/cell-metadata?"+q, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cells := dataOf(t, w)["cells"].([]interface{}); len(cells) != 15 {
		t.Errorf("Expected 15 cells, got %d", len(cells))
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/sheets/snapshots?"+q, nil, token)
	if w.Code != http.StatusOK {
		t.Errorf("Expected saved snapshot, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/sheets/cell-metadata?url="+url.QueryEscape(path)+"&worksheet=Nope", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing worksheet, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/sheets/schema", map[string]interface{}{
		"sharepoint_url":    path,
		"main_sheet_name":   sheettest.EntrySheet,
		"config_sheet_name": sheettest.ConfigSheet,
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fields := dataOf(t, w)["fields"].([]interface{}); len(fields) == 0 {
		t.Errorf("Expected schema fields")
	}
}

func TestUploadWithoutStorage(t *testing.T) {
	router := testutil.SetupRouter()
	h := NewUploadHandler(service.NewAttachmentService(nil, ""))
	testutil.AuthGroup(router, "/api/v1").POST("/uploads", h.Upload)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "cv.pdf")
	fw.Write([]byte("%PDF"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testutil.UserToken("user-001"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d: %s", w.Code, w.Body.String())
	}

	// no file part
	w = testutil.DoRequest(router, "POST", "/api/v1/uploads", nil, testutil.UserToken("user-001"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}
