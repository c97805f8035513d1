package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeLockConn — соединение с управляемым результатом блокировки и пинга.
type fakeLockConn struct {
	granted  bool
	pingErr  error
	released bool
	unlocked bool
}

func (c *fakeLockConn) QueryRow(context.Context, string, ...any) pgx.Row {
	return boolRow(c.granted)
}

func (c *fakeLockConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	c.unlocked = true
	return pgconn.CommandTag{}, nil
}

func (c *fakeLockConn) Ping(context.Context) error { return c.pingErr }

func (c *fakeLockConn) Release() { c.released = true }

type boolRow bool

func (r boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = bool(r)
	return nil
}

func newTestLock(conns ...*fakeLockConn) (*AdvisoryLock, *int) {
	calls := 0
	return &AdvisoryLock{
		key: SchedulerLockKey,
		acquire: func(context.Context) (lockConn, error) {
			if calls >= len(conns) {
				return nil, errors.New("pool exhausted")
			}
			c := conns[calls]
			calls++
			return c, nil
		},
	}, &calls
}

func TestAdvisoryLock_HeldWhileConnectionAlive(t *testing.T) {
	conn := &fakeLockConn{granted: true}
	lock, calls := newTestLock(conn)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := lock.TryAcquire(ctx)
		if err != nil || !ok {
			t.Fatalf("attempt %d: expected leadership, got %v %v", i, ok, err)
		}
	}
	if *calls != 1 {
		t.Errorf("expected a single acquire, got %d", *calls)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conn.unlocked || !conn.released {
		t.Errorf("expected unlock and release, got %+v", conn)
	}
}

func TestAdvisoryLock_DeadConnectionReacquires(t *testing.T) {
	first := &fakeLockConn{granted: true}
	second := &fakeLockConn{granted: false}
	lock, calls := newTestLock(first, second)
	ctx := context.Background()

	if ok, _ := lock.TryAcquire(ctx); !ok {
		t.Fatal("expected leadership")
	}

	// сессия оборвалась, блокировку забрал другой экземпляр
	first.pingErr = errors.New("conn closed")

	ok, err := lock.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected leadership to be lost")
	}
	if !first.released {
		t.Error("expected dead connection to be released")
	}
	if *calls != 2 {
		t.Errorf("expected re-acquire, got %d acquires", *calls)
	}
	if !second.released {
		t.Error("expected connection without lock to be released")
	}
}
