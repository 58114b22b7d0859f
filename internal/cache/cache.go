// Package cache keeps the last fetched loan snapshots and line listings in
// redis, each with the refresh state that decides whether it may be served.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loan-ledger/internal/domain"
	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

const keyPrefix = "ledger"

// Kind is the type of view a key caches.
type Kind string

const (
	KindLoan Kind = "loan"
	KindLine Kind = "line"
)

// Key addresses one cached view. Keys are scoped by user so one lender's
// data is never served to another.
type Key struct {
	UserID int64
	Kind   Kind
	ID     int64
}

func LoanKey(userID, loanID int64) Key { return Key{UserID: userID, Kind: KindLoan, ID: loanID} }
func LineKey(userID, lineID int64) Key { return Key{UserID: userID, Kind: KindLine, ID: lineID} }

func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s:%d", keyPrefix, k.UserID, k.Kind, k.ID)
}

func (k Key) stateKey() string {
	return k.String() + ":state"
}

// LoanEntry is a cached loan snapshot.
type LoanEntry struct {
	Snapshot  domain.LoanSnapshot `json:"snapshot"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// LineEntry is a cached line listing.
type LineEntry struct {
	Listing   domain.LineListing `json:"listing"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// DefaultLoadingTTL bounds how long a Loading state survives a fetch that
// never reported back. Once it expires the key reads as Stale again.
const DefaultLoadingTTL = 2 * time.Minute

type Cache struct {
	client     *redis.Client
	ttl        time.Duration
	loadingTTL time.Duration
}

// New wraps client. Entries and their states expire after ttl; zero keeps
// them forever. Loading states expire after DefaultLoadingTTL.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, loadingTTL: DefaultLoadingTTL}
}

// WithLoadingTTL overrides DefaultLoadingTTL.
func (c *Cache) WithLoadingTTL(ttl time.Duration) *Cache {
	c.loadingTTL = ttl
	return c
}

// stateTTL is the expiry written with state.
func (c *Cache) stateTTL(state domain.RefreshState) time.Duration {
	if state == domain.RefreshLoading && c.loadingTTL > 0 && (c.ttl == 0 || c.loadingTTL < c.ttl) {
		return c.loadingTTL
	}
	return c.ttl
}

// Connect opens a client from a redis:// URL, or from addr when url is empty,
// and pings it.
func Connect(ctx context.Context, url, addr, password string, db int) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	if url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to reach redis: %w", err)
	}
	return client, nil
}

func (c *Cache) GetLoan(ctx context.Context, userID, loanID int64) (LoanEntry, error) {
	var entry LoanEntry
	if err := c.get(ctx, LoanKey(userID, loanID), &entry); err != nil {
		return LoanEntry{}, err
	}
	return entry, nil
}

func (c *Cache) PutLoan(ctx context.Context, userID int64, entry LoanEntry) error {
	return c.put(ctx, LoanKey(userID, entry.Snapshot.LoanID()), entry)
}

func (c *Cache) GetLine(ctx context.Context, userID, lineID int64) (LineEntry, error) {
	var entry LineEntry
	if err := c.get(ctx, LineKey(userID, lineID), &entry); err != nil {
		return LineEntry{}, err
	}
	return entry, nil
}

func (c *Cache) PutLine(ctx context.Context, userID int64, entry LineEntry) error {
	return c.put(ctx, LineKey(userID, entry.Listing.LineID), entry)
}

// Delete drops a cached view and its state.
func (c *Cache) Delete(ctx context.Context, key Key) error {
	if err := c.client.Del(ctx, key.String(), key.stateKey()).Err(); err != nil {
		return apperrors.WrapCacheError(err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key Key, dest interface{}) error {
	data, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotCached, key)
	}
	if err != nil {
		return apperrors.WrapCacheError(err)
	}

	// An entry that no longer decodes is treated as absent.
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrSnapshotNotCached, key, err)
	}
	return nil
}

func (c *Cache) put(ctx context.Context, key Key, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key.String(), data, c.ttl).Err(); err != nil {
		return apperrors.WrapCacheError(err)
	}
	return nil
}
