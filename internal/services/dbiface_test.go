package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.scanFunc == nil {
		return fmt.Errorf("scanFunc not set")
	}
	return f.scanFunc(dest...)
}

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (f *fakeRows) Close() {
	f.closed = true
}

func (f *fakeRows) Err() error {
	return f.err
}

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.idx == 0 || f.idx > len(f.rows) {
		return fmt.Errorf("scan called without active row")
	}
	return assignRow(dest, f.rows[f.idx-1])
}

type fakeDB struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return fakeRow{scanFunc: func(dest ...any) error {
		return fmt.Errorf("queryRowFunc not set")
	}}
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return nil, fmt.Errorf("beginFunc not set")
}

type fakeTx struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return fakeRow{scanFunc: func(dest ...any) error {
		return fmt.Errorf("queryRowFunc not set")
	}}
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc != nil {
		return f.CommitFunc(ctx)
	}
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.RollbackFunc != nil {
		return f.RollbackFunc(ctx)
	}
	return nil
}

func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignRow(dest, values)
	}}
}

func rowWithError(err error) Row {
	return fakeRow{scanFunc: func(dest ...any) error { return err }}
}

func assignRow(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan dest mismatch: got %d want %d", len(dest), len(values))
	}
	for i, value := range values {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Ptr || dv.IsNil() {
			return fmt.Errorf("dest %d not pointer", i)
		}
		if value == nil {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		vv := reflect.ValueOf(value)
		if vv.Type().AssignableTo(dv.Elem().Type()) {
			dv.Elem().Set(vv)
			continue
		}
		if vv.Type().ConvertibleTo(dv.Elem().Type()) {
			dv.Elem().Set(vv.Convert(dv.Elem().Type()))
			continue
		}
		return fmt.Errorf("cannot assign %T to %s", value, dv.Elem().Type())
	}
	return nil
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	var committed, rolledBack bool
	tx := &fakeTx{
		CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil }}

	if err := runInTx(context.Background(), db, func(Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !committed || rolledBack {
		t.Fatalf("expected commit without rollback, committed=%v rolledBack=%v", committed, rolledBack)
	}
}

func TestRunInTx_RollsBackAndKeepsSentinel(t *testing.T) {
	var rolledBack bool
	tx := &fakeTx{
		CommitFunc: func(ctx context.Context) error {
			t.Fatal("did not expect commit")
			return nil
		},
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil }}

	err := runInTx(context.Background(), db, func(Tx) error { return ErrUserNotFound })
	if err != ErrUserNotFound {
		t.Fatalf("expected sentinel unchanged, got %v", err)
	}
	if !rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestRunInTx_CommitErrorRollsBack(t *testing.T) {
	var rolledBack bool
	tx := &fakeTx{
		CommitFunc:   func(ctx context.Context) error { return errors.New("commit failed") },
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return tx, nil }}

	if err := runInTx(context.Background(), db, func(Tx) error { return nil }); err == nil {
		t.Fatal("expected commit error")
	}
	if !rolledBack {
		t.Fatal("expected rollback after failed commit")
	}
}

func TestRunInTx_BeginError(t *testing.T) {
	db := &fakeDB{BeginFunc: func(ctx context.Context) (Tx, error) { return nil, context.DeadlineExceeded }}

	err := runInTx(context.Background(), db, func(Tx) error {
		t.Fatal("fn should not run")
		return nil
	})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}
