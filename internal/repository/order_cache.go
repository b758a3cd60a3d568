package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalogdesk/internal/model"

	"github.com/redis/go-redis/v9"
)

// Redis keys of the order cache. The list and the refresh stamp are separate
// keys so the status endpoint does not have to load the list.
const (
	KeyOrders          = "orders:list"
	KeyOrdersRefreshed = "orders:last_refreshed"
	KeyOrdersGen       = "orders:generation"
	KeyOrdersDropped   = "orders:dropped"
	keyOrdersTicket    = "orders:generation:seq"
)

// OrderSnapshot is one complete ingestion of the order feed.
type OrderSnapshot struct {
	Orders      []model.Order
	RefreshedAt time.Time
	Dropped     int
	Generation  int64
}

// OrderStatus describes the cached snapshot without its orders.
type OrderStatus struct {
	RefreshedAt *time.Time
	Count       int64
	Dropped     int
	Generation  int64
}

// OrderCache holds the latest order snapshot. Refreshes take a ticket from
// Begin before fetching; Store only commits if no refresh with a later ticket
// has committed in the meantime.
type OrderCache interface {
	Begin(ctx context.Context) (int64, error)
	Store(ctx context.Context, snap OrderSnapshot) (bool, error)
	Load(ctx context.Context) (*OrderSnapshot, error)
	Status(ctx context.Context) (*OrderStatus, error)
}

type redisOrderCache struct{ rdb *redis.Client }

func NewOrderCache(rdb *redis.Client) OrderCache { return &redisOrderCache{rdb: rdb} }

// storeScript: KEYS = gen, list, refreshed, dropped; ARGV = gen, list, refreshed, dropped.
var storeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if tonumber(ARGV[1]) <= current then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SET', KEYS[3], ARGV[3])
redis.call('SET', KEYS[4], ARGV[4])
return 1
`)

func (c *redisOrderCache) Begin(ctx context.Context) (int64, error) {
	return c.rdb.Incr(ctx, keyOrdersTicket).Result()
}

func (c *redisOrderCache) Store(ctx context.Context, snap OrderSnapshot) (bool, error) {
	orders := snap.Orders
	if orders == nil {
		orders = []model.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return false, fmt.Errorf("order cache: encode: %w", err)
	}
	n, err := storeScript.Run(ctx, c.rdb,
		[]string{KeyOrdersGen, KeyOrders, KeyOrdersRefreshed, KeyOrdersDropped},
		snap.Generation, data, snap.RefreshedAt.UTC().Format(time.RFC3339Nano), snap.Dropped,
	).Int()
	if err != nil {
		return false, fmt.Errorf("order cache: store: %w", err)
	}
	return n == 1, nil
}

// Load returns an empty snapshot when nothing was stored yet.
func (c *redisOrderCache) Load(ctx context.Context) (*OrderSnapshot, error) {
	vals, err := c.rdb.MGet(ctx, KeyOrders, KeyOrdersRefreshed, KeyOrdersDropped, KeyOrdersGen).Result()
	if err != nil {
		return nil, fmt.Errorf("order cache: load: %w", err)
	}
	snap := &OrderSnapshot{Orders: []model.Order{}}
	if s, ok := vals[0].(string); ok && s != "" {
		if err := json.Unmarshal([]byte(s), &snap.Orders); err != nil {
			return nil, fmt.Errorf("order cache: decode: %w", err)
		}
	}
	if s, ok := vals[1].(string); ok {
		snap.RefreshedAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	if s, ok := vals[2].(string); ok {
		_, _ = fmt.Sscan(s, &snap.Dropped)
	}
	if s, ok := vals[3].(string); ok {
		_, _ = fmt.Sscan(s, &snap.Generation)
	}
	return snap, nil
}

func (c *redisOrderCache) Status(ctx context.Context) (*OrderStatus, error) {
	st := &OrderStatus{}

	refreshed, err := c.rdb.Get(ctx, KeyOrdersRefreshed).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("order cache: status: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, refreshed); err == nil {
		st.RefreshedAt = &t
	}
	st.Dropped, _ = c.rdb.Get(ctx, KeyOrdersDropped).Int()
	st.Generation, _ = c.rdb.Get(ctx, KeyOrdersGen).Int64()

	// The list is a JSON array; counting needs a decode.
	raw, err := c.rdb.Get(ctx, KeyOrders).Bytes()
	if err == nil {
		var orders []json.RawMessage
		if json.Unmarshal(raw, &orders) == nil {
			st.Count = int64(len(orders))
		}
	}
	return st, nil
}
