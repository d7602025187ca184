package discovery

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/agora-market/agora/internal/market/types"

	"cosmossdk.io/math"
)

const listingSchema = `
CREATE TABLE IF NOT EXISTS listings (
	id           BIGINT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	price        NUMERIC(78, 0) NOT NULL,
	active       BOOLEAN NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	total_sales  BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_listings_active ON listings (active, id);

CREATE TABLE IF NOT EXISTS reputations (
	provider          TEXT PRIMARY KEY,
	rating_count      BIGINT NOT NULL,
	average_scaled    BIGINT NOT NULL,
	settlement_count  BIGINT NOT NULL
);
`

// PGStore persists the discovery mirror in Postgres so read replicas survive
// daemon restarts without replaying the whole journal.
type PGStore struct {
	db *sql.DB
}

// NewPGStore connects to Postgres and ensures the mirror schema exists.
func NewPGStore(dsn string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.Exec(listingSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create mirror schema: %w", err)
	}
	return &PGStore{db: db}, nil
}

// UpsertListing stores a listing snapshot.
func (s *PGStore) UpsertListing(listing types.Listing) error {
	_, err := s.db.Exec(`
		INSERT INTO listings (id, owner_id, name, description, price, active, created_at, total_sales)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			active = EXCLUDED.active,
			total_sales = EXCLUDED.total_sales`,
		listing.ID, listing.Owner, listing.Name, listing.Description,
		listing.Price.String(), listing.Active, listing.CreatedAt, listing.TotalSales,
	)
	return err
}

// Listing returns the mirrored listing by id.
func (s *PGStore) Listing(id uint64) (types.Listing, bool, error) {
	var (
		listing  types.Listing
		priceStr string
	)
	err := s.db.QueryRow(`
		SELECT id, owner_id, name, description, price, active, created_at, total_sales
		FROM listings WHERE id = $1`, id,
	).Scan(&listing.ID, &listing.Owner, &listing.Name, &listing.Description,
		&priceStr, &listing.Active, &listing.CreatedAt, &listing.TotalSales)
	if err == sql.ErrNoRows {
		return types.Listing{}, false, nil
	}
	if err != nil {
		return types.Listing{}, false, err
	}
	price, ok := math.NewIntFromString(priceStr)
	if !ok {
		return types.Listing{}, false, fmt.Errorf("corrupt price %q for listing %d", priceStr, id)
	}
	listing.Price = price
	return listing, true, nil
}

// ActiveListings pages over mirrored active listings ordered by id.
func (s *PGStore) ActiveListings(offset, limit int) ([]types.Listing, bool, error) {
	if offset < 0 || limit < 0 {
		return []types.Listing{}, false, nil
	}
	// Fetch one extra row to compute hasMore without a second query.
	rows, err := s.db.Query(`
		SELECT id, owner_id, name, description, price, active, created_at, total_sales
		FROM listings WHERE active ORDER BY id LIMIT $1 OFFSET $2`,
		limit+1, offset,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]types.Listing, 0, limit)
	for rows.Next() {
		var (
			listing  types.Listing
			priceStr string
		)
		if err := rows.Scan(&listing.ID, &listing.Owner, &listing.Name, &listing.Description,
			&priceStr, &listing.Active, &listing.CreatedAt, &listing.TotalSales); err != nil {
			return nil, false, err
		}
		price, ok := math.NewIntFromString(priceStr)
		if !ok {
			return nil, false, fmt.Errorf("corrupt price %q for listing %d", priceStr, listing.ID)
		}
		listing.Price = price
		out = append(out, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

// UpsertReputation stores a reputation snapshot.
func (s *PGStore) UpsertReputation(rec types.ReputationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO reputations (provider, rating_count, average_scaled, settlement_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider) DO UPDATE SET
			rating_count = EXCLUDED.rating_count,
			average_scaled = EXCLUDED.average_scaled,
			settlement_count = EXCLUDED.settlement_count`,
		rec.Provider, rec.RatingCount, rec.AverageScaled, rec.SettlementCount,
	)
	return err
}

// Reputation returns the mirrored reputation record for provider.
func (s *PGStore) Reputation(provider string) (types.ReputationRecord, bool, error) {
	var rec types.ReputationRecord
	err := s.db.QueryRow(`
		SELECT provider, rating_count, average_scaled, settlement_count
		FROM reputations WHERE provider = $1`, provider,
	).Scan(&rec.Provider, &rec.RatingCount, &rec.AverageScaled, &rec.SettlementCount)
	if err == sql.ErrNoRows {
		return types.ReputationRecord{}, false, nil
	}
	if err != nil {
		return types.ReputationRecord{}, false, err
	}
	return rec, true, nil
}

// Close releases the database handle.
func (s *PGStore) Close() error {
	return s.db.Close()
}
