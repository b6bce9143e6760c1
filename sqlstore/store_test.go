package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "secretq.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestCredentialLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := s.Create(ctx, "u1", goSecretQ.CredentialRecord{
			Type:       goSecretQ.CredentialType,
			CreatedAt:  base.Add(time.Duration(2-i) * time.Minute),
			PublicData: []byte(fmt.Sprintf(`{"question":"Q%d"}`, i)),
			SecretData: []byte(`{"secret":"A"}`),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	recs, err := s.ListByType(ctx, "u1", goSecretQ.CredentialType)
	if err != nil {
		t.Fatalf("ListByType failed: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != ids[2] || recs[2].ID != ids[0] {
		t.Fatalf("expected oldest-first order, got %+v", recs)
	}

	got, err := s.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UserID != "u1" || string(got.PublicData) != `{"question":"Q1"}` || !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected record %+v", got)
	}

	deleted, err := s.DeleteByID(ctx, ids[1])
	if err != nil || !deleted {
		t.Fatalf("expected delete, got (%v, %v)", deleted, err)
	}
	deleted, err = s.DeleteByID(ctx, ids[1])
	if err != nil || deleted {
		t.Fatalf("expected idempotent delete, got (%v, %v)", deleted, err)
	}
	if _, err := s.GetByID(ctx, ids[1]); !errors.Is(err, goSecretQ.ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestDeviceUniquePerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateDeviceCredential(ctx, "u1", "laptop", "c1", "v1"); err != nil {
		t.Fatalf("CreateDeviceCredential failed: %v", err)
	}
	if err := s.CreateDeviceCredential(ctx, "u1", "laptop", "c2", "v2"); !errors.Is(err, goSecretQ.ErrDeviceNameTaken) {
		t.Fatalf("expected ErrDeviceNameTaken, got %v", err)
	}
	if err := s.CreateDeviceCredential(ctx, "u2", "laptop", "c3", "v3"); err != nil {
		t.Fatalf("same name for another user must succeed, got %v", err)
	}

	devs, err := s.Devices(ctx, "u1")
	if err != nil {
		t.Fatalf("Devices failed: %v", err)
	}
	if len(devs) != 1 || devs[0].CPUID != "c1" || devs[0].VisitorID != "v1" {
		t.Fatalf("unexpected devices %+v", devs)
	}
}

func TestOpenDBRejectsUnknownType(t *testing.T) {
	if _, err := OpenDB(context.Background(), "oracle", "dsn"); err == nil {
		t.Fatal("expected unsupported database type error")
	}
}

func TestOpenDBSQLite(t *testing.T) {
	s, err := OpenDB(context.Background(), DBSQLite, filepath.Join(t.TempDir(), "secretq.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestIsUniqueViolationAcrossDrivers(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql duplicate", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: device_credentials.user_id"), true},
		{"plain", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: isUniqueViolation = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	s := openTestStore(t)
	_ = s.Close()

	if _, err := s.ListByType(context.Background(), "u1", goSecretQ.CredentialType); !errors.Is(err, goSecretQ.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEngineOverSQLite(t *testing.T) {
	s := openTestStore(t)

	engine, err := goSecretQ.New().
		WithStore(s).
		WithDeviceCredentials(s).
		WithRenderer(goSecretQ.RendererFunc(func(_ context.Context, f goSecretQ.Form) (any, error) {
			return f, nil
		})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	res, err := engine.EnrollAction(ctx, goSecretQ.StepRequest{
		UserID: "u1",
		Form:   url.Values{goSecretQ.FieldAnswer: {"Smith"}},
	})
	if err != nil || res.Status != goSecretQ.StepSuccess {
		t.Fatalf("EnrollAction failed: (%+v, %v)", res, err)
	}

	res, err = engine.Action(ctx, goSecretQ.StepRequest{
		UserID:  "u1",
		Realm:   "acme",
		BaseURI: "http://localhost:8080",
		Form:    url.Values{goSecretQ.FieldAnswer: {"Smith"}},
		Notes:   goSecretQ.MapNotes{goSecretQ.NoteRegisteringDevice: "true", goSecretQ.NoteDeviceName: "desk"},
	})
	if err != nil || res.Status != goSecretQ.StepSuccess {
		t.Fatalf("Action failed: (%+v, %v)", res, err)
	}
	devs, err := s.Devices(ctx, "u1")
	if err != nil || len(devs) != 1 || devs[0].Name != "desk" {
		t.Fatalf("expected bound device, got (%+v, %v)", devs, err)
	}

	res, err = engine.Action(ctx, goSecretQ.StepRequest{
		UserID:  "u1",
		Realm:   "acme",
		BaseURI: "http://localhost:8080",
		Form:    url.Values{goSecretQ.FieldAnswer: {"smith"}},
	})
	if err != nil || res.Status != goSecretQ.StepFailureChallenge {
		t.Fatalf("expected re-challenge, got (%+v, %v)", res, err)
	}
}
