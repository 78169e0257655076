package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"marketplace/config"
	"marketplace/log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	// Pure Go sqlite driver registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"
)

var (
	db     *sql.DB
	dbMu   sync.RWMutex
	locker uint32

	driver string
	dsn    string
	d      *dialect
)

// Init connects to the configured database and creates missing tables.
func Init() {
	if err := InitWith(config.GetDriver(), config.GetDbConnStr()); err != nil {
		panic(err)
	}
}

// InitWith connects to the given driver and data source.
func InitWith(driverName, dataSource string) error {
	dl, err := dialectOf(driverName)
	if err != nil {
		return err
	}

	conn, err := open(dl, dataSource)
	if err != nil {
		return err
	}

	if err := createSchema(conn, dl); err != nil {
		conn.Close()
		return err
	}

	dbMu.Lock()
	db, driver, dsn, d = conn, driverName, dataSource, dl
	dbMu.Unlock()

	return nil
}

// Close closes the connection pool.
func Close() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db == nil {
		return nil
	}

	err := db.Close()
	db = nil
	return err
}

func open(dl *dialect, dataSource string) (*sql.DB, error) {
	conn, err := sql.Open(dl.driver, dl.dsn(dataSource))
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection serializes transactions.
	if dl.singleConn {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func handle() *sql.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

func reconnect() {
	if !atomic.CompareAndSwapUint32(&locker, 0, 1) {
		for {
			// Lock was held by others, wait till lock released.
			time.Sleep(20 * time.Millisecond)
			// Lock was released.
			if atomic.LoadUint32(&locker) != 1 {
				return
			}
		}
	}

	defer atomic.StoreUint32(&locker, 0)

	for {
		log.Printf("Try Reconnecting to database...")
		conn, err := open(d, dsn)
		if err == nil {
			dbMu.Lock()
			db = conn
			dbMu.Unlock()
			return
		}

		log.Printf("Wait for few seconds to reconnect again")
		time.Sleep(5 * time.Second)
	}
}

func wrappedQuery(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	for {
		rows, err := handle().QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}

		if !connErr(err) {
			return nil, err
		}

		reconnect()
	}
}

func wrappedQueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return handle().QueryRowContext(ctx, query, args...)
}

// ErrCommitUnknown is returned when the connection was lost while committing,
// so the unit may or may not have been applied. Such a unit is never replayed.
type ErrCommitUnknown struct {
	Err error
}

func (e ErrCommitUnknown) Error() string {
	return fmt.Sprintf("commit outcome unknown: %s", e.Err)
}

func (e ErrCommitUnknown) Unwrap() error { return e.Err }

// commit is replaced in tests.
var commit = func(tx *sql.Tx) error { return tx.Commit() }

// Transact runs txFunc inside one database transaction. Any returned error
// or panic rolls back every write made through the Tx. A unit that lost its
// connection or was chosen as a deadlock victim before commit is replayed.
func Transact(ctx context.Context, txFunc func(*Tx) error) error {
	for attempt := 1; ; attempt++ {
		committing, err := transact(ctx, txFunc)
		switch {
		case err == nil:
			return nil
		case committing && connErr(err):
			return ErrCommitUnknown{Err: err}
		case committing:
			return err
		case deadlock(err):
			if err := backoff(ctx, attempt); err != nil {
				return err
			}
		case connErr(err):
			reconnect()
		default:
			return err
		}
	}
}

func transact(ctx context.Context, txFunc func(*Tx) error) (committing bool, err error) {
	sqlTx, err := handle().BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		} else if err != nil {
			sqlTx.Rollback()
		} else {
			committing = true
			err = commit(sqlTx)
		}
	}()

	tx := &Tx{tx: sqlTx, d: d, lock: d.lock}

	if n, ok := nonceFrom(ctx); ok {
		if err := tx.useNonce(ctx, n); err != nil {
			return false, err
		}
	}

	return false, txFunc(tx)
}

func backoff(ctx context.Context, attempt int) error {
	if attempt > 10 {
		attempt = 10
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		return nil
	}
}

// View runs fn inside a transaction that is always rolled back. Reads do not
// take row locks.
func View(ctx context.Context, fn func(*Tx) error) error {
	for {
		err := view(ctx, fn)
		if !connErr(err) {
			return err
		}

		reconnect()
	}
}

func view(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := handle().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	return fn(&Tx{tx: sqlTx, d: d})
}

func connErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, mysql.ErrInvalidConn) ||
		strings.HasSuffix(err.Error(), "operation timed out") ||
		strings.HasSuffix(err.Error(), "Server shutdown in progress") ||
		strings.HasPrefix(err.Error(), "Error 1290") {
		log.Println(err)
		return true
	}

	return false
}

// deadlock reports whether InnoDB rolled the unit back to break a deadlock
// or a lock wait timeout.
func deadlock(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
