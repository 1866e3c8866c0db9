package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrationRunner struct {
	upErr      error
	version    uint
	dirty      bool
	versionErr error
	closeErr   error
}

func (f *fakeMigrationRunner) Up() error { return f.upErr }

func (f *fakeMigrationRunner) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}

func (f *fakeMigrationRunner) Close() (error, error) { return nil, f.closeErr }

func stubMigrate(t *testing.T, runner *fakeMigrationRunner, err error) *string {
	t.Helper()
	orig := newMigrate
	t.Cleanup(func() { newMigrate = orig })
	var source string
	newMigrate = func(sourceURL, databaseURL string) (migrationRunner, error) {
		source = sourceURL
		if err != nil {
			return nil, err
		}
		return runner, nil
	}
	return &source
}

func TestNewMigrator_UsesFileSource(t *testing.T) {
	source := stubMigrate(t, &fakeMigrationRunner{}, nil)

	if _, err := NewMigrator("postgres://x", "migrations"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *source != "file://migrations" {
		t.Fatalf("unexpected source url %q", *source)
	}
}

func TestNewMigrator_Error(t *testing.T) {
	stubMigrate(t, nil, errors.New("no driver"))

	_, err := NewMigrator("postgres://x", "migrations")
	if err == nil || !strings.Contains(err.Error(), "creating migrate instance") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestMigrator_UpNoChangeIsNotError(t *testing.T) {
	m := &Migrator{m: &fakeMigrationRunner{upErr: migrate.ErrNoChange}}
	if err := m.Up(); err != nil {
		t.Fatalf("expected nil for no change, got %v", err)
	}
}

func TestMigrator_UpError(t *testing.T) {
	boom := errors.New("boom")
	m := &Migrator{m: &fakeMigrationRunner{upErr: boom}}
	if err := m.Up(); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestMigrator_VersionNilVersion(t *testing.T) {
	m := &Migrator{m: &fakeMigrationRunner{versionErr: migrate.ErrNilVersion}}
	version, dirty, err := m.Version()
	if err != nil || version != 0 || dirty {
		t.Fatalf("unexpected version result: %d %v %v", version, dirty, err)
	}
}

func TestMigrator_CloseJoinsErrors(t *testing.T) {
	boom := errors.New("close failed")
	m := &Migrator{m: &fakeMigrationRunner{closeErr: boom}}
	if err := m.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected close error, got %v", err)
	}
}
