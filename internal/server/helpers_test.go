package server

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"vetrian/internal/registration"
	"vetrian/internal/storage"
	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal registrant store keyed by id.
type memStore struct {
	mu      sync.Mutex
	records map[string]*types.Registrant
	codes   map[string]string
	pingErr error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*types.Registrant{}, codes: map[string]string{}}
}

func keyOf(r *types.Registrant, field string) string {
	switch field {
	case "email":
		return r.Email
	case "phone":
		return utils.PtrString(r.Phone)
	case "rollNumber":
		return utils.PtrString(r.RollNumber)
	}
	return ""
}

func copyOf(r *types.Registrant) *types.Registrant {
	out := *r
	out.Fields = maps.Clone(r.Fields)
	return &out
}

func (s *memStore) find(match func(*types.Registrant) bool) (*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if match(r) {
			return copyOf(r), nil
		}
	}
	return nil, types.ErrRegistrantNotFound
}

func (s *memStore) Registrant(_ context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	return s.find(func(r *types.Registrant) bool {
		return r.ID == id && r.ResourceType == rt && r.Stage == stage
	})
}

func (s *memStore) RegistrantByEmail(_ context.Context, rt types.ResourceType, stage types.Stage, email string) (*types.Registrant, error) {
	return s.find(func(r *types.Registrant) bool {
		return r.Email == email && r.ResourceType == rt && r.Stage == stage
	})
}

func (s *memStore) Registrants(_ context.Context, rt types.ResourceType, stage types.Stage) ([]*types.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Registrant, 0)
	for _, r := range s.records {
		if r.ResourceType == rt && r.Stage == stage {
			out = append(out, copyOf(r))
		}
	}
	slices.SortFunc(out, func(a, b *types.Registrant) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *memStore) MatchRegistrant(_ context.Context, rt types.ResourceType, stage types.Stage, match map[string]string) (*types.Registrant, error) {
	return s.find(func(r *types.Registrant) bool {
		if r.ResourceType != rt || r.Stage != stage {
			return false
		}
		for field, want := range match {
			if keyOf(r, field) == want {
				return true
			}
		}
		return false
	})
}

func (s *memStore) CreateRegistrant(_ context.Context, r *types.Registrant, code *types.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.records {
		if other.ResourceType == r.ResourceType && other.Stage == r.Stage && other.Email == r.Email {
			return &types.UniqueViolation{Field: "email"}
		}
	}

	s.records[r.ID] = copyOf(r)
	if code != nil {
		s.codes[code.Code] = code.RegistrantID
	}
	return nil
}

func (s *memStore) UpdateRegistrant(_ context.Context, r *types.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; !ok {
		return types.ErrRegistrantNotFound
	}
	s.records[r.ID] = copyOf(r)
	return nil
}

func (s *memStore) DeleteRegistrant(_ context.Context, _ types.ResourceType, _ types.Stage, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return types.ErrRegistrantNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *memStore) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.codes[code]
	return ok, nil
}

func (s *memStore) Referrer(_ context.Context, code string) (*types.Referrer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.codes[code]
	if !ok {
		return nil, types.ErrReferralCodeNotFound
	}
	referrer := &types.Referrer{Code: code, RegistrantID: id}
	if owner, ok := s.records[id]; ok {
		referrer.Name = owner.Fields.String("name")
		referrer.Email = owner.Email
	}
	return referrer, nil
}

func (s *memStore) Ping(context.Context) error {
	return s.pingErr
}

type harness struct {
	handler http.Handler
	store   *memStore
	disk    *storage.Disk
	root    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()
	root := t.TempDir()

	disk, err := storage.NewDisk(root)
	require.NoError(t, err)

	files := storage.NewManager(logger, storage.BackendDisk, disk, nil)
	st := newMemStore()

	registrations := registration.New(registration.Options{
		Logger:    logger,
		Store:     st,
		Referrals: st,
		Files:     files,
	})

	config := &types.Config{
		ServerPort:      0,
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 5,
		AllowedOrigins:  []string{"http://localhost:3000"},
		Storage: types.StorageConfig{
			Backend:    storage.BackendDisk,
			UploadRoot: root,
		},
	}

	s, err := New(config, logger, registrations, files, st)
	require.NoError(t, err)

	return &harness{handler: s.Handler(), store: st, disk: disk, root: root}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type upload struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, method, target string, values map[string]string, file *upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func careerForm() map[string]string {
	return map[string]string{
		"fullName":             "Ravi Kumar",
		"email":                "a@x.com",
		"phone":                "9000000000",
		"city":                 "Madurai",
		"position":             "Backend Engineer",
		"experienceType":       "fresher",
		"highestQualification": "B.Tech",
		"degree":               "IT",
		"domain":               "Web Development",
		"heardFrom":            "LinkedIn",
		"interestReason":       "I like building services",
	}
}
