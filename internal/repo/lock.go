package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchedulerLockKey — ключ advisory lock лидера планировщика.
const SchedulerLockKey int64 = 424242

// lockConn — соединение, которое держит сессионную блокировку.
// *pgxpool.Conn удовлетворяет ему.
type lockConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Release()
}

// AdvisoryLock — сессионный pg_advisory_lock на выделенном соединении.
//
// Блокировка держится соединением, поэтому оно берётся из пула
// при первом успешном захвате и возвращается в Release. Если соединение
// оборвалось, блокировка потеряна вместе с сессией и захватывается заново.
type AdvisoryLock struct {
	acquire func(ctx context.Context) (lockConn, error)
	key     int64

	mu   sync.Mutex
	conn lockConn
}

// NewAdvisoryLock создаёт блокировку с ключом key.
func NewAdvisoryLock(pool *pgxpool.Pool, key int64) *AdvisoryLock {
	return &AdvisoryLock{
		acquire: func(ctx context.Context) (lockConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		key: key,
	}
}

// TryAcquire пытается стать владельцем блокировки.
// Уже захваченная блокировка подтверждается пингом держащего соединения.
func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		if err := l.conn.Ping(ctx); err == nil {
			return true, nil
		}
		// сессия умерла, блокировка уже свободна для других экземпляров
		l.conn.Release()
		l.conn = nil
	}

	conn, err := l.acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release снимает блокировку, если она захвачена.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Release()
		l.conn = nil
	}()

	if _, err := l.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", l.key); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}
