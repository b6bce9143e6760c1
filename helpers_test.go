package goSecretQ

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"
)

type mockStore struct {
	mu      sync.Mutex
	next    int
	records map[string]CredentialRecord
	err     error

	listCalls int
}

func newMockStore() *mockStore {
	return &mockStore{records: map[string]CredentialRecord{}}
}

func (s *mockStore) GetByID(_ context.Context, id string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CredentialRecord{}, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return CredentialRecord{}, ErrCredentialNotFound
	}
	return rec, nil
}

func (s *mockStore) ListByType(_ context.Context, userID, credentialType string) ([]CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	var out []CredentialRecord
	for _, rec := range s.records {
		if rec.UserID == userID && rec.Type == credentialType {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *mockStore) Create(_ context.Context, userID string, rec CredentialRecord) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CredentialRecord{}, s.err
	}
	s.next++
	rec.ID = fmt.Sprintf("cred-%03d", s.next)
	rec.UserID = userID
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *mockStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *mockStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *mockStore) put(rec CredentialRecord) {
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
}

type deviceRegistration struct {
	UserID, Name, CPUID, VisitorID string
}

type mockDevices struct {
	mu    sync.Mutex
	names map[string]deviceRegistration
	err   error
}

func newMockDevices() *mockDevices {
	return &mockDevices{names: map[string]deviceRegistration{}}
}

func (d *mockDevices) CreateDeviceCredential(_ context.Context, userID, deviceName, cpuid, visitorID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	key := userID + "/" + deviceName
	if _, ok := d.names[key]; ok {
		return ErrDeviceNameTaken
	}
	d.names[key] = deviceRegistration{userID, deviceName, cpuid, visitorID}
	return nil
}

func (d *mockDevices) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}

type captureRenderer struct {
	mu    sync.Mutex
	forms []Form
	err   error
}

func (r *captureRenderer) RenderForm(_ context.Context, form Form) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.forms = append(r.forms, form)
	return form.TemplateID, nil
}

func (r *captureRenderer) last(t *testing.T) Form {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.forms) == 0 {
		t.Fatal("no form rendered")
	}
	return r.forms[len(r.forms)-1]
}

func (r *captureRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

type testEngine struct {
	*Engine
	store    *mockStore
	devices  *mockDevices
	renderer *captureRenderer
	logs     *syncBuffer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()

	te := &testEngine{
		store:    newMockStore(),
		devices:  newMockDevices(),
		renderer: &captureRenderer{},
		logs:     &syncBuffer{},
	}
	engine, err := New().
		WithConfig(cfg).
		WithStore(te.store).
		WithDeviceCredentials(te.devices).
		WithRenderer(te.renderer).
		WithLogger(log.New(te.logs, "", 0)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	te.Engine = engine
	return te
}

func (te *testEngine) enroll(t *testing.T, userID, question, answer string, createdAt time.Time) CredentialRecord {
	t.Helper()
	rec, err := te.CreateCredential(context.Background(), userID, question, answer)
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	rec.CreatedAt = createdAt
	te.store.put(rec)
	return rec
}

func answerRequest(userID, answer string) StepRequest {
	return StepRequest{
		UserID:  userID,
		Realm:   "acme",
		BaseURI: "https://id.example.com/auth",
		Form:    url.Values{FieldAnswer: {answer}},
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(v))
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
