package source

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const selectEndpointQuery = `
	SELECT endpoint_uri
	FROM tier_configs
	WHERE partner_id = $1 AND service_name = $2
`

// RowQuerier is the subset of *sql.DB used by PostgresSource.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresSource resolves tier configs with a point query on tier_configs.
type PostgresSource struct {
	db      RowQuerier
	timeout time.Duration
}

// NewPostgresSource creates a source backed by db. A positive timeout bounds
// each query.
func NewPostgresSource(db RowQuerier, timeout time.Duration) *PostgresSource {
	return &PostgresSource{db: db, timeout: timeout}
}

// Lookup selects the endpoint stored for the pair.
func (s *PostgresSource) Lookup(ctx context.Context, partnerID, serviceName string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return scanEndpoint(ctx, s.db.QueryRowContext(ctx, selectEndpointQuery, partnerID, serviceName))
}

type endpointRow interface {
	Scan(dest ...any) error
}

func scanEndpoint(ctx context.Context, row endpointRow) (string, error) {
	var endpoint sql.NullString
	if err := row.Scan(&endpoint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", transportError(ctx, KindPostgres, "query tier config", err)
	}
	if !endpoint.Valid || endpoint.String == "" {
		return "", NewLookupError(CategoryBadData, KindPostgres, "stored endpoint is empty", nil)
	}
	return endpoint.String, nil
}
