package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const (
	driverName     = "postgres"
	connectTimeout = 5 * time.Second

	// https://www.postgresql.org/docs/current/errcodes-appendix.html
	codeInvalidCatalogName = "3D000"
	codeUniqueViolation    = "23505"
)

// OpenDb connects to the db of the given url. With autoCreate the db is
// created first if it doesn't exist yet.
func OpenDb(dsn string, autoCreate bool) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil && autoCreate && hasCode(err, codeInvalidCatalogName) {
		log.Info("postgres db does not exist, creating it...")
		if err := createDb(ctx, dsn); err != nil {
			// nolint:all
			db.Close()
			return nil, fmt.Errorf("failed to create postgres db: %v", err)
		}
		err = db.PingContext(ctx)
	}
	if err != nil {
		// nolint:all
		db.Close()
		return nil, fmt.Errorf("unable to establish connection with db: %v", err)
	}
	return db, nil
}

// createDb connects to the server without selecting a db and creates the one
// named in the url path.
func createDb(ctx context.Context, dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("db auto creation requires a url formatted dsn")
	}
	serverUrl, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	dbName := strings.TrimPrefix(serverUrl.Path, "/")
	if dbName == "" {
		return fmt.Errorf("missing db name in dsn")
	}
	serverUrl.Path = ""

	server, err := sql.Open(driverName, serverUrl.String())
	if err != nil {
		return err
	}
	// nolint:all
	defer server.Close()

	_, err = server.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	return err
}

func hasCode(err error, code pq.ErrorCode) bool {
	var dbErr *pq.Error
	return errors.As(err, &dbErr) && dbErr.Code == code
}

func isUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func joinList(list []string) string {
	return strings.Join(list, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
