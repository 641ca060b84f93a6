package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/accessor"
	"github.com/bitfantasy/sheetform/internal/sheet/sheettest"
)

func infos(names ...string) []sheet.WorksheetInfo {
	out := make([]sheet.WorksheetInfo, len(names))
	for i, n := range names {
		out[i] = sheet.WorksheetInfo{Name: n, Position: i}
	}
	return out
}

func TestDetectSheets(t *testing.T) {
	n, err := DetectSheets(infos("Cover", "DISPLAY page", "entry data", "Config"))
	require.NoError(t, err)
	assert.Equal(t, SheetNames{Display: "DISPLAY page", Entry: "entry data", Config: "Config"}, n)

	// a name containing both words is the display sheet
	n, err = DetectSheets(infos("display entry", "Entry"))
	require.NoError(t, err)
	assert.Equal(t, "display entry", n.Display)
	assert.Equal(t, "Entry", n.Entry)

	n, err = DetectSheets(infos("Display A", "Display B", "Entry"))
	require.NoError(t, err)
	assert.Equal(t, "Display A", n.Display)
	assert.Empty(t, n.Config)
}

func TestDetectSheetsMissing(t *testing.T) {
	_, err := DetectSheets(infos("Sheet1", "Data"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrRequiredSheetMissing))
	assert.Contains(t, err.Error(), "Sheet1, Data")

	_, err = DetectSheets(infos("Display"))
	assert.True(t, errors.Is(err, sheet.ErrRequiredSheetMissing))
}

func newExtraction(t *testing.T) (*ExtractionService, *memStore, *memSnapshots, *sse.Hub) {
	t.Helper()
	store := newMemStore()
	snaps := &memSnapshots{}
	hub := sse.NewHub(nil)
	return NewExtractionService(accessor.NewLocal(nil), store, snaps, hub, nil), store, snaps, hub
}

func listen(t *testing.T, hub *sse.Hub) *sse.Client {
	t.Helper()
	c := &sse.Client{ID: "c1", UserID: "u1", Events: make(chan sse.Event, 16)}
	hub.Register(c)
	t.Cleanup(func() { hub.Unregister(c.ID) })
	return c
}

func TestCreateForm(t *testing.T) {
	svc, store, _, hub := newExtraction(t)
	events := listen(t, hub)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	res, err := svc.CreateForm(context.Background(), CreateFormRequest{SharePointURL: path, FormName: "Staff"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.DisplayVersion)
	assert.Equal(t, 1, res.EntryVersion)
	assert.Equal(t, []string{"display", "entry"}, res.VersionsUpdated)
	assert.Equal(t, SheetNames{Display: sheettest.DisplaySheet, Entry: sheettest.EntrySheet, Config: sheettest.ConfigSheet}, res.Worksheets)

	form, err := store.FindForm(context.Background(), res.FormID)
	require.NoError(t, err)
	assert.Equal(t, "Staff", form.Name)
	assert.Equal(t, SourceSharePoint, form.Source)
	assert.Len(t, form.ID, 32)

	var rules map[string]sheet.FieldConfig
	require.NoError(t, json.Unmarshal(form.FieldRules, &rules))
	require.Contains(t, rules, "age")
	assert.True(t, rules["age"].Required)
	assert.Equal(t, 150, *rules["age"].Validation.Max)

	entryV, _ := store.LatestVersion(context.Background(), res.FormID, entity.KindEntry)
	require.NotNil(t, entryV)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(entryV.Payload, &records))
	assert.Equal(t, []map[string]any{
		{"Name": "Bob", "Age": 25.0},
		{"Name": "Carol", "Age": ""},
	}, records)

	displayV, _ := store.LatestVersion(context.Background(), res.FormID, entity.KindDisplay)
	require.NotNil(t, displayV)
	var md sheet.WorksheetMetadata
	require.NoError(t, json.Unmarshal(displayV.Payload, &md))
	assert.Equal(t, sheettest.DisplaySheet, md.WorksheetName)
	assert.Len(t, md.Cells, 15)

	ev := <-events.Events
	assert.Equal(t, "form_update", ev.EventType)
	assert.Contains(t, ev.Data, `"created"`)
}

func TestCreateFormMissingSheetPersistsNothing(t *testing.T) {
	svc, store, _, _ := newExtraction(t)

	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err = svc.CreateForm(context.Background(), CreateFormRequest{SharePointURL: path, FormName: "X"}, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrRequiredSheetMissing))
	assert.Empty(t, store.forms)
	assert.Empty(t, store.versions)
}

func TestCreateFormRollsBackOnVersionFailure(t *testing.T) {
	svc, store, _, _ := newExtraction(t)
	store.failCreateVersion = errors.New("boom")
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	_, err := svc.CreateForm(context.Background(), CreateFormRequest{SharePointURL: path, FormName: "X"}, "admin")
	require.Error(t, err)
	assert.Empty(t, store.forms)
}

func TestCreateFormCancelled(t *testing.T) {
	svc, store, _, _ := newExtraction(t)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateForm(ctx, CreateFormRequest{SharePointURL: path, FormName: "X"}, "admin")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.forms)
}

func TestSyncForm(t *testing.T) {
	ctx := context.Background()
	svc, store, _, hub := newExtraction(t)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	created, err := svc.CreateForm(ctx, CreateFormRequest{SharePointURL: path, FormName: "Staff"}, "admin")
	require.NoError(t, err)

	// nothing changed
	res, err := svc.SyncForm(ctx, created.FormID, "admin")
	require.NoError(t, err)
	assert.Empty(t, res.VersionsUpdated)
	assert.Equal(t, 1, res.DisplayVersion)
	assert.Equal(t, 1, res.EntryVersion)
	assert.Len(t, store.versions, 2)
	assert.Contains(t, store.locked, created.FormID)

	// only the entry sheet changes
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheettest.EntrySheet, "B3", 41))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	events := listen(t, hub)
	res, err = svc.SyncForm(ctx, created.FormID, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"entry"}, res.VersionsUpdated)
	assert.Equal(t, 1, res.DisplayVersion)
	assert.Equal(t, 2, res.EntryVersion)

	ev := <-events.Events
	assert.Contains(t, ev.Data, `"version_created"`)
	assert.Contains(t, ev.Data, `"entry"`)
}

func TestSyncFormUnknown(t *testing.T) {
	svc, _, _, _ := newExtraction(t)
	_, err := svc.SyncForm(context.Background(), "missing", "admin")
	assert.True(t, errors.Is(err, sheet.ErrNotFound))
}

func TestGenerateSchema(t *testing.T) {
	svc, _, _, _ := newExtraction(t)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	fs, err := svc.GenerateSchema(context.Background(), SchemaRequest{
		SharePointURL:   path,
		MainSheetName:   sheettest.EntrySheet,
		ConfigSheetName: sheettest.ConfigSheet,
	})
	require.NoError(t, err)
	require.NotEmpty(t, fs.Fields)

	byName := map[string]sheet.FormField{}
	for _, f := range fs.Fields {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}
	assert.Equal(t, "number", byName["Age"].Type)
	assert.True(t, byName["Age"].Required)
	assert.Equal(t, "Years", byName["Age"].Placeholder)
	assert.True(t, byName["Name"].Required)

	// an unreadable config sheet is ignored
	fs, err = svc.GenerateSchema(context.Background(), SchemaRequest{
		SharePointURL:   path,
		MainSheetName:   sheettest.EntrySheet,
		ConfigSheetName: "Nope",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fs.Fields)
}

func TestCellMetadataSavesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _, snaps, _ := newExtraction(t)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	_, err := svc.Snapshot(ctx, path, sheettest.DisplaySheet)
	assert.True(t, errors.Is(err, sheet.ErrNotFound))

	md, err := svc.CellMetadata(ctx, path, sheettest.DisplaySheet)
	require.NoError(t, err)
	assert.Equal(t, sheet.Dimensions{Rows: 5, Columns: 3}, md.Dimensions)

	snap, err := svc.Snapshot(ctx, path, sheettest.DisplaySheet)
	require.NoError(t, err)
	var saved sheet.WorksheetMetadata
	require.NoError(t, json.Unmarshal(snap.Metadata, &saved))
	assert.Equal(t, md.Dimensions, saved.Dimensions)

	// a failed save does not fail the read
	snaps.err = errors.New("db down")
	_, err = svc.CellMetadata(ctx, path, sheettest.DisplaySheet)
	assert.NoError(t, err)
}

func TestCellMetadataMissingWorksheet(t *testing.T) {
	svc, _, _, _ := newExtraction(t)
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))
	_, err := svc.CellMetadata(context.Background(), path, "Nope")
	assert.True(t, errors.Is(err, sheet.ErrNotFound))
}
