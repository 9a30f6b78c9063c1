package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save persists a cart to Redis with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key := keyPrefix + cart.UserID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// saveIfVersionScript compares the stored cart's version against the
// expected one and swaps in the new payload atomically.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local cart = cjson.decode(current)
	if cart.version ~= tonumber(ARGV[2]) then
		return 0
	end
elseif tonumber(ARGV[2]) ~= 0 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// SaveIfVersion persists a cart only if the stored version still matches
// expectedVersion. The cart's version is bumped before writing so a
// successful save is visible to other writers.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	key := keyPrefix + cart.UserID

	cart.Version = expectedVersion + 1
	data, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client, []string{key}, data, expectedVersion, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis save cart: %w", err)
	}
	if res == 0 {
		cart.Version = expectedVersion
		return false, nil
	}

	return true, nil
}

// Delete removes a cart from Redis by user ID.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	key := keyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
