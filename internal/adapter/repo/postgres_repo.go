package repo

import (
	"context"
	"errors"

	"github.com/example/nft-listing-service/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresListingRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresListingRepo(pool *pgxpool.Pool) *PostgresListingRepo {
	return &PostgresListingRepo{Pool: pool}
}

func (r *PostgresListingRepo) Insert(ctx context.Context, key domain.AssetKey, l domain.Listing) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO listings(collection_id, token_id, seller, price)
        VALUES($1, $2, $3, $4)`, key.CollectionID, key.TokenID, string(l.Seller), int64(l.Price))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrAlreadyListed
	}
	return err
}

func (r *PostgresListingRepo) Update(ctx context.Context, key domain.AssetKey, l domain.Listing) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE listings SET seller = $3, price = $4
        WHERE collection_id = $1 AND token_id = $2`, key.CollectionID, key.TokenID, string(l.Seller), int64(l.Price))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresListingRepo) Delete(ctx context.Context, key domain.AssetKey) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM listings WHERE collection_id = $1 AND token_id = $2`,
		key.CollectionID, key.TokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresListingRepo) LoadAll(ctx context.Context, fn func(key domain.AssetKey, l domain.Listing) error) error {
	rows, err := r.Pool.Query(ctx, `SELECT collection_id, token_id, seller, price FROM listings`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key    domain.AssetKey
			seller string
			price  int64
		)
		if err := rows.Scan(&key.CollectionID, &key.TokenID, &seller, &price); err != nil {
			return err
		}
		if err := fn(key, domain.Listing{Seller: domain.AccountID(seller), Price: uint64(price)}); err != nil {
			return err
		}
	}
	return rows.Err()
}

var _ domain.ListingRepository = (*PostgresListingRepo)(nil)

// EnsureSchema: создать необходимые таблицы, если отсутствуют.
// Цена хранится как bigint: значения выше math.MaxInt64 не поддерживаются этим бэкендом.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS listings (
  collection_id text NOT NULL,
  token_id text NOT NULL,
  seller text NOT NULL,
  price bigint NOT NULL CHECK (price >= 0),
  PRIMARY KEY (collection_id, token_id)
);`)
	return err
}
