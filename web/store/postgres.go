package store

import (
	"context"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	pgUniqueViolation = "23505"

	createUserTableSQL = `CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL
)`
	selectPasswordSQL = `SELECT password FROM users WHERE username = $1 LIMIT 1`
	insertUserSQL     = `INSERT INTO users (username, password) VALUES ($1, $2)`
)

type pgConn struct {
	conn *pgxpool.Conn
}

func (pc *pgConn) GetPassword(ctx context.Context, user string) (string, error) {
	var pwd string
	err := pc.conn.QueryRow(ctx, selectPasswordSQL, user).Scan(&pwd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.NewNotFoundErr()
		}
		return "", errs.NewStoreQueryErr().WithErr(err)
	}
	return pwd, nil
}

func (pc *pgConn) CreateUser(ctx context.Context, user, hash string) error {
	if _, err := pc.conn.Exec(ctx, insertUserSQL, user, hash); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errs.NewUserExistErr()
		}
		return errs.NewStoreQueryErr().WithErr(err)
	}
	return nil
}

// PostgresPool 连接上限由 pool_size 决定，借还交给 pgxpool
type PostgresPool struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string, size int) (*PostgresPool, error) {
	if dsn == "" || size <= 0 {
		return nil, errs.NewInvalidParamErr()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.NewOpenStoreErr().WithErr(err)
	}
	cfg.MaxConns = int32(size)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errs.NewOpenStoreErr().WithErr(err)
	}
	if _, err = pool.Exec(ctx, createUserTableSQL); err != nil {
		pool.Close()
		return nil, errs.NewOpenStoreErr().WithErr(err)
	}
	return &PostgresPool{pool: pool}, nil
}

func (p *PostgresPool) Acquire(ctx context.Context) (IConn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.NewStoreQueryErr().WithErr(err)
	}
	return &pgConn{conn: conn}, nil
}

func (p *PostgresPool) Release(conn IConn) {
	pc, ok := conn.(*pgConn)
	if !ok || pc == nil || pc.conn == nil {
		return
	}
	pc.conn.Release()
	pc.conn = nil
}

func (p *PostgresPool) FreeCount() int {
	stat := p.pool.Stat()
	return int(stat.MaxConns() - stat.AcquiredConns())
}

func (p *PostgresPool) Close() error {
	p.pool.Close()
	return nil
}
