package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSecretQ/internal/codec"
)

var (
	errTestNotFound = errors.New("test not found")
	errTestStore    = errors.New("test store unavailable")
	errTestMalform  = errors.New("test malformed")
)

type memStore struct {
	mu      sync.Mutex
	next    int
	records map[string]Credential
	failAll error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]Credential{}}
}

func (m *memStore) get(_ context.Context, id string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return Credential{}, m.failAll
	}
	rec, ok := m.records[id]
	if !ok {
		return Credential{}, errTestNotFound
	}
	return rec, nil
}

func (m *memStore) list(_ context.Context, userID, typ string) ([]Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []Credential
	for _, rec := range m.records {
		if rec.UserID == userID && rec.Type == typ {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) create(_ context.Context, _ string, rec Credential) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return Credential{}, m.failAll
	}
	m.next++
	rec.ID = fmt.Sprintf("cred-%d", m.next)
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memStore) remove(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	_, ok := m.records[id]
	delete(m.records, id)
	return ok, nil
}

func (m *memStore) put(t *testing.T, id, userID, question, secret string, createdAt time.Time) {
	t.Helper()
	pub, err := codec.EncodeQuestion(question)
	if err != nil {
		t.Fatalf("EncodeQuestion failed: %v", err)
	}
	sec, err := codec.EncodeSecret(secret)
	if err != nil {
		t.Fatalf("EncodeSecret failed: %v", err)
	}
	m.mu.Lock()
	m.records[id] = Credential{
		ID:         id,
		UserID:     userID,
		Type:       "secret-question",
		CreatedAt:  createdAt,
		PublicData: pub,
		SecretData: sec,
	}
	m.mu.Unlock()
}

type recorder struct {
	mu       sync.Mutex
	counts   map[int]int
	events   []string
	logLines []string
}

func newRecorder() *recorder {
	return &recorder{counts: map[int]int{}}
}

func (r *recorder) inc(id int) {
	r.mu.Lock()
	r.counts[id]++
	r.mu.Unlock()
}

func (r *recorder) audit(_ context.Context, event string, _ bool, _ string, _ string, _ error, _ func() map[string]string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) count(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func (r *recorder) hasEvent(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == name {
			return true
		}
	}
	return false
}

const (
	mAnswerSuccess = iota + 1
	mAnswerFailure
	mMalformed
	mLatency
	mCreated
	mDeleted
	mChallenge
	mBypass
	mMarker
	mBound
	mBindFailed
)

func testCredentialDeps(store *memStore, rec *recorder) CredentialDeps {
	return CredentialDeps{
		CredentialType: "secret-question",
		GetByID:        store.get,
		ListByType:     store.list,
		Create:         store.create,
		DeleteByID:     store.remove,
		PrepareAnswer:  func(a string) (string, error) { return a, nil },
		MatchAnswer:    func(stored, submitted string) (bool, error) { return stored == submitted, nil },
		LogMalformed: func(id string, err error) {
			rec.mu.Lock()
			rec.logLines = append(rec.logLines, fmt.Sprintf("malformed credential id=%s: %v", id, err))
			rec.mu.Unlock()
		},
		MetricInc: rec.inc,
		EmitAudit: rec.audit,
		Metrics: CredentialMetrics{
			AnswerSuccess:       mAnswerSuccess,
			AnswerFailure:       mAnswerFailure,
			MalformedCredential: mMalformed,
			ValidateLatency:     mLatency,
			CredentialCreated:   mCreated,
			CredentialDeleted:   mDeleted,
		},
		Events: CredentialEvents{
			AnswerSuccess:     "success",
			AnswerFailure:     "failure",
			Malformed:         "malformed",
			CredentialCreated: "enrolled",
			CredentialDeleted: "deleted",
		},
		Errors: CredentialErrors{
			NotFound:         errTestNotFound,
			StoreUnavailable: errTestStore,
			Malformed:        errTestMalform,
		},
	}
}

func TestValidateAnswerDefaultCredential(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	base := time.Unix(1000, 0)
	store.put(t, "b", "u1", "Q1", "blue", base)
	store.put(t, "a", "u1", "Q2", "red", base.Add(time.Minute))

	deps := testCredentialDeps(store, rec)

	ok, err := RunValidateAnswer(context.Background(), "u1", "", "blue", deps)
	if err != nil || !ok {
		t.Fatalf("expected default credential match, got ok=%v err=%v", ok, err)
	}
	ok, err = RunValidateAnswer(context.Background(), "u1", "", "red", deps)
	if err != nil || ok {
		t.Fatalf("expected mismatch against default credential, got ok=%v err=%v", ok, err)
	}
	ok, err = RunValidateAnswer(context.Background(), "u1", "a", "red", deps)
	if err != nil || !ok {
		t.Fatalf("expected explicit selector match, got ok=%v err=%v", ok, err)
	}
	if rec.count(mAnswerSuccess) != 2 || rec.count(mAnswerFailure) != 1 {
		t.Fatalf("unexpected counters: %+v", rec.counts)
	}
}

func TestDefaultCredentialTieBreaksOnID(t *testing.T) {
	store := newMemStore()
	at := time.Unix(5000, 0)
	store.put(t, "zz", "u1", "Q1", "x", at)
	store.put(t, "aa", "u1", "Q2", "y", at)

	got, err := RunDefaultCredential(context.Background(), "u1", testCredentialDeps(store, newRecorder()))
	if err != nil {
		t.Fatalf("RunDefaultCredential failed: %v", err)
	}
	if got.ID != "aa" {
		t.Fatalf("expected aa, got %s", got.ID)
	}
}

func TestValidateAnswerForeignAndUnknownSelector(t *testing.T) {
	store := newMemStore()
	store.put(t, "c1", "owner", "Q", "blue", time.Unix(1, 0))
	deps := testCredentialDeps(store, newRecorder())

	ok, err := RunValidateAnswer(context.Background(), "intruder", "c1", "blue", deps)
	if err != nil || ok {
		t.Fatalf("foreign credential must not validate, got ok=%v err=%v", ok, err)
	}
	ok, err = RunValidateAnswer(context.Background(), "owner", "missing", "blue", deps)
	if err != nil || ok {
		t.Fatalf("unknown credential must not validate, got ok=%v err=%v", ok, err)
	}
	ok, err = RunValidateAnswer(context.Background(), "nobody", "", "blue", deps)
	if err != nil || ok {
		t.Fatalf("user with no credential must not validate, got ok=%v err=%v", ok, err)
	}
}

func TestValidateAnswerMalformedSecret(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	store.records["c1"] = Credential{
		ID:         "c1",
		UserID:     "u1",
		Type:       "secret-question",
		PublicData: []byte(`{"question":"Q"}`),
		SecretData: []byte(`not json`),
	}

	ok, err := RunValidateAnswer(context.Background(), "u1", "c1", "blue", testCredentialDeps(store, rec))
	if ok {
		t.Fatal("malformed credential must not validate")
	}
	if !errors.Is(err, errTestMalform) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if rec.count(mMalformed) != 1 || rec.count(mAnswerFailure) != 0 {
		t.Fatalf("unexpected counters: %+v", rec.counts)
	}
	if len(rec.logLines) != 1 || !strings.Contains(rec.logLines[0], "id=c1") {
		t.Fatalf("expected malformed log line, got %v", rec.logLines)
	}
}

func TestValidateAnswerStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failAll = errors.New("connection refused")

	_, err := RunValidateAnswer(context.Background(), "u1", "c1", "x", testCredentialDeps(store, newRecorder()))
	if !errors.Is(err, errTestStore) {
		t.Fatalf("expected store unavailable, got %v", err)
	}

	_, err = RunIsConfigured(context.Background(), "u1", testCredentialDeps(store, newRecorder()))
	if !errors.Is(err, errTestStore) {
		t.Fatalf("expected store unavailable from RunIsConfigured, got %v", err)
	}
}

func TestValidateAnswerUserRequired(t *testing.T) {
	deps := testCredentialDeps(newMemStore(), newRecorder())
	deps.Errors.UserRequired = errors.New("user required")

	if _, err := RunValidateAnswer(context.Background(), "", "", "x", deps); !errors.Is(err, deps.Errors.UserRequired) {
		t.Fatalf("expected user required, got %v", err)
	}
}

func TestCreateAndDeleteCredential(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	deps := testCredentialDeps(store, rec)
	deps.Now = func() time.Time { return time.Unix(42, 0) }

	created, err := RunCreateCredential(context.Background(), "u1", "Pet?", "", deps)
	if err != nil {
		t.Fatalf("RunCreateCredential failed: %v", err)
	}
	if created.ID == "" || !created.CreatedAt.Equal(time.Unix(42, 0)) {
		t.Fatalf("unexpected created record: %+v", created)
	}
	if string(created.SecretData) != `{"secret":""}` {
		t.Fatalf("unexpected secret payload %s", created.SecretData)
	}

	configured, err := RunIsConfigured(context.Background(), "u1", deps)
	if err != nil || !configured {
		t.Fatalf("expected configured, got %v %v", configured, err)
	}
	ok, err := RunValidateAnswer(context.Background(), "u1", created.ID, "", deps)
	if err != nil || !ok {
		t.Fatalf("empty answer should match empty secret, got ok=%v err=%v", ok, err)
	}

	deleted, err := RunDeleteCredential(context.Background(), "someone-else", created.ID, deps)
	if err != nil || deleted {
		t.Fatalf("foreign delete must be refused, got %v %v", deleted, err)
	}
	deleted, err = RunDeleteCredential(context.Background(), "u1", created.ID, deps)
	if err != nil || !deleted {
		t.Fatalf("owner delete failed: %v %v", deleted, err)
	}
	if !rec.hasEvent("enrolled") || !rec.hasEvent("deleted") {
		t.Fatalf("missing audit events: %v", rec.events)
	}
}

func TestRunQuestion(t *testing.T) {
	store := newMemStore()
	store.put(t, "c1", "u1", "你姓什么？", "李", time.Unix(1, 0))
	deps := testCredentialDeps(store, newRecorder())

	q, err := RunQuestion(context.Background(), "u1", "", deps)
	if err != nil {
		t.Fatalf("RunQuestion failed: %v", err)
	}
	if q != "你姓什么？" {
		t.Fatalf("unexpected question %q", q)
	}
	if _, err := RunQuestion(context.Background(), "u2", "c1", deps); !errors.Is(err, errTestNotFound) {
		t.Fatalf("expected not found for foreign credential, got %v", err)
	}
}

func TestConcurrentValidate(t *testing.T) {
	store := newMemStore()
	rec := newRecorder()
	store.put(t, "c1", "u1", "Q", "blue", time.Unix(1, 0))
	deps := testCredentialDeps(store, rec)
	deps.LogMalformed = func(id string, _ error) { t.Errorf("unexpected malformed credential %s", id) }

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answer := "blue"
			if i%2 == 1 {
				answer = "green"
			}
			ok, err := RunValidateAnswer(context.Background(), "u1", "", answer, deps)
			if err != nil {
				t.Errorf("validate failed: %v", err)
			}
			if ok != (i%2 == 0) {
				t.Errorf("goroutine %d: unexpected result %v", i, ok)
			}
		}(i)
	}
	wg.Wait()

	if rec.count(mAnswerSuccess) != 16 || rec.count(mAnswerFailure) != 16 {
		t.Fatalf("unexpected counters: %+v", rec.counts)
	}
}
