package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

func approvedForm(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	seedForm(t, store)
	f := store.forms["f1"]
	f.FieldRules = datatypes.JSON(`{"age":{"required":true,"validation":{"min":0,"max":150}},"name":{"required":false,"validation":{"minLength":2}}}`)
	store.forms["f1"] = f
	_, err := NewFormService(store, nil).Approve(context.Background(), "f1", "entry", 2, "boss")
	require.NoError(t, err)
	return store
}

func TestSubmit(t *testing.T) {
	store := approvedForm(t)
	hub := sse.NewHub(nil)
	events := listen(t, hub)
	svc := NewSubmissionService(store, store, hub, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, "f1", "u1", SubmitRequest{Values: map[string]any{"Name": "Al", "Age": 40.0}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.HistoryVersion)
	assert.Equal(t, 2, res.EntryVersion)
	assert.Equal(t, "e2", res.Submission.EntryVersionID)
	assert.JSONEq(t, `{}`, string(res.Submission.Files))

	ev := <-events.Events
	assert.Contains(t, ev.Data, `"submitted"`)

	res, err = svc.Submit(ctx, "f1", "u1", SubmitRequest{Values: map[string]any{"Name": "Alan", "Age": 41.0}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.HistoryVersion)

	latest, err := svc.List(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	var values map[string]any
	require.NoError(t, json.Unmarshal(latest[0].Values, &values))
	assert.Equal(t, "Alan", values["Name"])

	hist, err := svc.History(ctx, "f1", "u1")
	require.NoError(t, err)
	assert.Len(t, hist, 2)

	_, err = svc.History(ctx, "nope", "u1")
	assert.True(t, errors.Is(err, sheet.ErrNotFound))
}

func TestSubmitViolations(t *testing.T) {
	store := approvedForm(t)
	svc := NewSubmissionService(store, store, nil, nil)

	_, err := svc.Submit(context.Background(), "f1", "u1", SubmitRequest{
		Values: map[string]any{"Name": "A", "Age": 200.0, "Salary": 1},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	rules := map[string]string{}
	for _, v := range verr.Violations {
		rules[v.Field] = v.Rule
	}
	assert.Equal(t, map[string]string{"Salary": "unknown_field", "Age": "max", "Name": "minLength"}, rules)
}

func TestSubmitRequiresApprovedEntry(t *testing.T) {
	store := newMemStore()
	seedForm(t, store)
	svc := NewSubmissionService(store, store, nil, nil)

	_, err := svc.Submit(context.Background(), "f1", "u1", SubmitRequest{Values: map[string]any{"Name": "Al"}})
	assert.True(t, errors.Is(err, sheet.ErrNotFound))
	assert.Empty(t, store.history)

	_, err = svc.Submit(context.Background(), "nope", "u1", SubmitRequest{Values: map[string]any{}})
	assert.True(t, errors.Is(err, sheet.ErrNotFound))
}

func TestEntryFields(t *testing.T) {
	assert.Equal(t, map[string]bool{"Name": true, "Age": true}, entryFields([]byte(`[{"Name":"Bob"},{"Age":1}]`)))
	assert.Empty(t, entryFields([]byte(`[]`)))
	assert.Nil(t, entryFields([]byte(`{"not":"records"}`)))
}

func TestSubmitWithoutRulesOrHeaders(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.CreateForm(ctx, &entity.Form{ID: "f2"}))
	require.NoError(t, store.CreateVersion(ctx, &entity.FormVersion{
		ID: "v1", FormID: "f2", Kind: entity.KindEntry, Version: 1, Approved: true, Payload: datatypes.JSON(`[]`),
	}))

	res, err := NewSubmissionService(store, store, nil, nil).Submit(ctx, "f2", "u1", SubmitRequest{
		Values: map[string]any{"Anything": "goes"},
		Files:  map[string]string{"cv": "attachments/u1/2026/10/15/abcd1234.pdf"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cv":"attachments/u1/2026/10/15/abcd1234.pdf"}`, string(res.Submission.Files))
}
