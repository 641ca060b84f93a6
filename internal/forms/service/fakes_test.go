package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/repository"
)

// memStore is an in-memory FormStore and SubmissionStore. Transaction
// restores the previous state when fn fails.
type memStore struct {
	mu       sync.Mutex
	forms    map[string]entity.Form
	versions []entity.FormVersion
	latest   map[string]entity.FormData
	history  []entity.FormDataHistory

	failCreateVersion error
	locked            []string
}

func newMemStore() *memStore {
	return &memStore{forms: map[string]entity.Form{}, latest: map[string]entity.FormData{}}
}

var (
	_ repository.FormStore       = (*memStore)(nil)
	_ repository.SubmissionStore = (*memStore)(nil)
)

func (m *memStore) CreateForm(_ context.Context, f *entity.Form) error {
	if _, ok := m.forms[f.ID]; ok {
		return errors.New("duplicate form")
	}
	m.forms[f.ID] = *f
	return nil
}

func (m *memStore) UpdateForm(_ context.Context, f *entity.Form) error {
	m.forms[f.ID] = *f
	return nil
}

func (m *memStore) FindForm(_ context.Context, id string) (*entity.Form, error) {
	f, ok := m.forms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &f, nil
}

func (m *memStore) ListForms(_ context.Context, page, pageSize int) ([]entity.Form, int64, error) {
	all := make([]entity.Form, 0, len(m.forms))
	for _, f := range m.forms {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := min(start+pageSize, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m *memStore) LatestVersion(_ context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error) {
	return m.latestWhere(formID, kind, false), nil
}

func (m *memStore) LatestApproved(_ context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error) {
	return m.latestWhere(formID, kind, true), nil
}

func (m *memStore) latestWhere(formID string, kind entity.VersionKind, approved bool) *entity.FormVersion {
	var best *entity.FormVersion
	for i := range m.versions {
		v := m.versions[i]
		if v.FormID != formID || v.Kind != kind || (approved && !v.Approved) {
			continue
		}
		if best == nil || v.Version > best.Version {
			best = &v
		}
	}
	return best
}

func (m *memStore) FindVersion(_ context.Context, formID string, kind entity.VersionKind, version int) (*entity.FormVersion, error) {
	for _, v := range m.versions {
		if v.FormID == formID && v.Kind == kind && v.Version == version {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListVersions(_ context.Context, formID string, kind entity.VersionKind) ([]entity.FormVersion, error) {
	var out []entity.FormVersion
	for _, v := range m.versions {
		if v.FormID == formID && v.Kind == kind {
			v.Payload = nil
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memStore) CreateVersion(_ context.Context, v *entity.FormVersion) error {
	if m.failCreateVersion != nil {
		return m.failCreateVersion
	}
	for _, o := range m.versions {
		if o.FormID == v.FormID && o.Kind == v.Kind && o.Version == v.Version {
			return errors.New("duplicate version")
		}
	}
	m.versions = append(m.versions, *v)
	return nil
}

func (m *memStore) SaveVersion(_ context.Context, v *entity.FormVersion) error {
	for i, o := range m.versions {
		if o.ID == v.ID {
			m.versions[i] = *v
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) Transaction(ctx context.Context, lockFormID string, fn func(tx repository.FormStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lockFormID != "" {
		if _, ok := m.forms[lockFormID]; !ok {
			return repository.ErrNotFound
		}
		m.locked = append(m.locked, lockFormID)
	}

	forms := make(map[string]entity.Form, len(m.forms))
	for k, v := range m.forms {
		forms[k] = v
	}
	versions := append([]entity.FormVersion(nil), m.versions...)
	if err := fn(m); err != nil {
		m.forms, m.versions = forms, versions
		return err
	}
	return nil
}

func (m *memStore) Save(_ context.Context, data *entity.FormData) (*entity.FormDataHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.forms[data.FormID]; !ok {
		return nil, repository.ErrNotFound
	}
	key := data.FormID + "/" + data.CreatedBy
	if prev, ok := m.latest[key]; ok {
		data.ID = prev.ID
	} else {
		data.ID = "data-" + key
	}
	m.latest[key] = *data

	next := 1
	for _, h := range m.history {
		if h.FormID == data.FormID && h.CreatedBy == data.CreatedBy && h.Version >= next {
			next = h.Version + 1
		}
	}
	h := entity.FormDataHistory{
		FormID:         data.FormID,
		EntryVersionID: data.EntryVersionID,
		Values:         data.Values,
		Files:          data.Files,
		Version:        next,
		CreatedBy:      data.CreatedBy,
	}
	m.history = append(m.history, h)
	return &h, nil
}

func (m *memStore) ListLatest(_ context.Context, formID string) ([]entity.FormData, error) {
	var out []entity.FormData
	for _, d := range m.latest {
		if d.FormID == formID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) History(_ context.Context, formID, userID string) ([]entity.FormDataHistory, error) {
	var out []entity.FormDataHistory
	for _, h := range m.history {
		if h.FormID == formID && h.CreatedBy == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

// memSnapshots is an in-memory SnapshotStore.
type memSnapshots struct {
	items map[string]entity.WorksheetSnapshot
	err   error
}

func (s *memSnapshots) Upsert(_ context.Context, snap *entity.WorksheetSnapshot) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = map[string]entity.WorksheetSnapshot{}
	}
	s.items[snap.URL+"#"+snap.Worksheet] = *snap
	return nil
}

func (s *memSnapshots) Find(_ context.Context, url, worksheet string) (*entity.WorksheetSnapshot, error) {
	snap, ok := s.items[url+"#"+worksheet]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &snap, nil
}
