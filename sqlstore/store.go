package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Database types accepted by [OpenDB].
const (
	DBSQLite   = "sqlite"
	DBPostgres = "postgres"
	DBMySQL    = "mysql"
)

// Store implements [goSecretQ.CredentialStore] and
// [goSecretQ.DeviceCredentialCreator] over bun.
type Store struct {
	db    *bun.DB
	now   func() time.Time
	newID func() string
}

// New wraps an existing bun database.
func New(db *bun.DB) *Store {
	return &Store{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Open connects to the SQLite database at dsn with the pure-Go driver and
// runs [Store.Migrate].
func Open(ctx context.Context, dsn string) (*Store, error) {
	return OpenDB(ctx, DBSQLite, dsn)
}

// OpenDB connects to dsn using the driver and bun dialect for dbType and runs
// [Store.Migrate]. Postgres goes through pgx's database/sql driver.
func OpenDB(ctx context.Context, dbType, dsn string) (*Store, error) {
	driverName := dbType
	if dbType == DBPostgres {
		driverName = "pgx"
	}
	switch dbType {
	case DBSQLite, DBPostgres, DBMySQL:
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	var db *bun.DB
	switch dbType {
	case DBPostgres:
		db = bun.NewDB(sqlDB, pgdialect.New())
	case DBMySQL:
		db = bun.NewDB(sqlDB, mysqldialect.New())
	default:
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Migrate creates tables and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, model := range []interface{}{(*credentialModel)(nil), (*deviceModel)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	if _, err := s.db.NewCreateIndex().
		Model((*credentialModel)(nil)).
		Index("idx_credentials_user_type").
		Column("user_id", "type").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*deviceModel)(nil)).
		Unique().
		Index("idx_device_credentials_user_name").
		Column("user_id", "name").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// GetByID returns the record stored under id, or an error matching
// [goSecretQ.ErrCredentialNotFound].
func (s *Store) GetByID(ctx context.Context, id string) (goSecretQ.CredentialRecord, error) {
	var m credentialModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goSecretQ.CredentialRecord{}, goSecretQ.ErrCredentialNotFound
		}
		return goSecretQ.CredentialRecord{}, unavailable(err)
	}
	return credentialFromModel(m), nil
}

// ListByType returns the user's records of credentialType ordered by
// creation time, then ID.
func (s *Store) ListByType(ctx context.Context, userID, credentialType string) ([]goSecretQ.CredentialRecord, error) {
	var rows []credentialModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("type = ?", credentialType).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(err)
	}

	out := make([]goSecretQ.CredentialRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, credentialFromModel(m))
	}
	return out, nil
}

// Create assigns a fresh ID and inserts rec for userID.
func (s *Store) Create(ctx context.Context, userID string, rec goSecretQ.CredentialRecord) (goSecretQ.CredentialRecord, error) {
	rec.ID = s.newID()
	rec.UserID = userID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	m := credentialToModel(rec)
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return goSecretQ.CredentialRecord{}, unavailable(err)
	}
	return rec, nil
}

// DeleteByID removes the record and reports whether it existed.
func (s *Store) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.NewDelete().Model((*credentialModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// CreateDeviceCredential registers deviceName for userID. A duplicate name
// for the same user yields [goSecretQ.ErrDeviceNameTaken].
func (s *Store) CreateDeviceCredential(ctx context.Context, userID, deviceName, cpuid, visitorID string) error {
	if userID == "" {
		return goSecretQ.ErrUserRequired
	}
	if deviceName == "" {
		return goSecretQ.ErrDeviceNameRequired
	}

	m := deviceModel{
		ID:        s.newID(),
		UserID:    userID,
		Name:      deviceName,
		CPUID:     cpuid,
		VisitorID: visitorID,
		CreatedAt: s.now().UnixNano(),
	}
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", goSecretQ.ErrDeviceNameTaken, deviceName)
		}
		return unavailable(err)
	}
	return nil
}

// Devices lists userID's devices ordered by name.
func (s *Store) Devices(ctx context.Context, userID string) ([]Device, error) {
	var rows []deviceModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("name ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(err)
	}

	out := make([]Device, 0, len(rows))
	for _, m := range rows {
		out = append(out, deviceFromModel(m))
	}
	return out, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
}

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
