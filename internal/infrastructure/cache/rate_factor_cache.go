// Package cache fronts the rate table with Redis. Every cache failure falls
// back to the wrapped repository; the cache never turns a readable rate
// table into an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
)

// The hash tag keeps every key in one cluster slot so the scripts below can
// touch them together.
const keyPrefix = "credit:{rate_factor}:"

func idKey(id string) string { return keyPrefix + "id:" + id }

func tenorKey(tenor int) string { return keyPrefix + "tenor:" + strconv.Itoa(tenor) }

// floorKey holds the lowest version the cache may store for an entry.
func floorKey(id string) string { return keyPrefix + "floor:" + id }

// putScript stores an entry unless the floor or an already cached copy is
// newer. KEYS: id, tenor, floor. ARGV: version, document, id, ttl ms.
var putScript = redis.NewScript(`
local v = tonumber(ARGV[1])
if v < tonumber(redis.call('GET', KEYS[3]) or '0') then
	return 0
end
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and type(doc) == 'table' and tonumber(doc.version) and tonumber(doc.version) > v then
		return 0
	end
end
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
	redis.call('SET', KEYS[2], ARGV[3], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[2])
	redis.call('SET', KEYS[2], ARGV[3])
end
return 1
`)

// fenceScript raises the floor and drops the cached copy and tenor index.
// KEYS: floor, id, tenor. ARGV: version, ttl ms.
var fenceScript = redis.NewScript(`
local v = tonumber(ARGV[1])
if v > tonumber(redis.call('GET', KEYS[1]) or '0') then
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
	else
		redis.call('SET', KEYS[1], ARGV[1])
	end
end
redis.call('DEL', KEYS[2], KEYS[3])
return 1
`)

type rateFactorDoc struct {
	ID                  string          `json:"id"`
	TenorMonths         int             `json:"tenor_months"`
	TermFactor          decimal.Decimal `json:"term_factor"`
	RateFactor          decimal.Decimal `json:"rate_factor"`
	LastInstallmentFree bool            `json:"last_installment_free"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func encode(rf model.RateFactor) ([]byte, error) {
	return json.Marshal(rateFactorDoc{
		ID:                  rf.ID(),
		TenorMonths:         rf.TenorMonths(),
		TermFactor:          rf.TermFactor(),
		RateFactor:          rf.RateFactor(),
		LastInstallmentFree: rf.LastInstallmentFree(),
		Version:             rf.Version(),
		CreatedAt:           rf.CreatedAt(),
		UpdatedAt:           rf.UpdatedAt(),
	})
}

func decode(raw []byte) (model.RateFactor, error) {
	var d rateFactorDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.RateFactor{}, err
	}
	return model.ReconstructRateFactor(
		d.ID, d.TenorMonths, d.TermFactor, d.RateFactor,
		d.LastInstallmentFree, d.Version, d.CreatedAt, d.UpdatedAt,
	), nil
}

// RateFactorRepository decorates a port.RateFactorRepository with a
// read-through Redis cache. Entries are keyed by id; the tenor key only
// indexes the id, so a stale tenor mapping is detected on read.
//
// Every change raises a per-entry version floor before the cached copy is
// dropped. A read that loaded the previous version from the database before
// the change cannot write it back afterwards.
type RateFactorRepository struct {
	next   port.RateFactorRepository
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ port.RateFactorRepository = (*RateFactorRepository)(nil)

// NewRateFactorRepository wraps next. A non-positive ttl keeps entries
// until they are invalidated.
func NewRateFactorRepository(next port.RateFactorRepository, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RateFactorRepository {
	if ttl < 0 {
		ttl = 0
	}
	return &RateFactorRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func (r *RateFactorRepository) FindByID(ctx context.Context, id string) (model.RateFactor, error) {
	if rf, ok := r.get(ctx, id); ok {
		return rf, nil
	}
	rf, err := r.next.FindByID(ctx, id)
	if err != nil {
		return model.RateFactor{}, err
	}
	r.put(ctx, rf)
	return rf, nil
}

func (r *RateFactorRepository) FindByTenor(ctx context.Context, tenorMonths int) (model.RateFactor, error) {
	id, err := r.client.Get(ctx, tenorKey(tenorMonths)).Result()
	switch {
	case err == nil:
		if rf, ok := r.get(ctx, id); ok && rf.TenorMonths() == tenorMonths {
			return rf, nil
		}
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "rate factor cache read failed", "tenor_months", tenorMonths, "error", err)
	}

	rf, err := r.next.FindByTenor(ctx, tenorMonths)
	if err != nil {
		return model.RateFactor{}, err
	}
	r.put(ctx, rf)
	return rf, nil
}

// List always reads through; the admin listing is not on a hot path.
func (r *RateFactorRepository) List(ctx context.Context) ([]model.RateFactor, error) {
	return r.next.List(ctx)
}

// Save writes through and drops the cached copy. The previous tenor is
// dropped as well so an entry moved to a new tenor stops answering the old one.
func (r *RateFactorRepository) Save(ctx context.Context, rf model.RateFactor) error {
	previous, findErr := r.next.FindByID(ctx, rf.ID())
	if err := r.next.Save(ctx, rf); err != nil {
		return err
	}
	floor := rf.Version()
	if findErr == nil {
		floor = previous.Version() + 1
		if previous.TenorMonths() != rf.TenorMonths() {
			r.Invalidate(ctx, rf.ID(), previous.TenorMonths(), floor)
		}
	}
	r.Invalidate(ctx, rf.ID(), rf.TenorMonths(), floor)
	return nil
}

func (r *RateFactorRepository) Delete(ctx context.Context, rf model.RateFactor) error {
	if err := r.next.Delete(ctx, rf); err != nil {
		return err
	}
	r.Invalidate(ctx, rf.ID(), rf.TenorMonths(), rf.Version()+1)
	return nil
}

// Invalidate drops the cached entry for id and the tenor index, and refuses
// later writes of any version below minVersion. It is also called when
// another instance announces a change.
func (r *RateFactorRepository) Invalidate(ctx context.Context, id string, tenorMonths, minVersion int) {
	if id == "" {
		if err := r.client.Del(ctx, tenorKey(tenorMonths)).Err(); err != nil {
			r.logger.WarnContext(ctx, "rate factor cache invalidation failed", "tenor_months", tenorMonths, "error", err)
		}
		return
	}
	keys := []string{floorKey(id), idKey(id), tenorKey(tenorMonths)}
	if err := fenceScript.Run(ctx, r.client, keys, minVersion, r.ttl.Milliseconds()).Err(); err != nil {
		r.logger.WarnContext(ctx, "rate factor cache invalidation failed", "rate_factor_id", id, "error", err)
	}
}

func (r *RateFactorRepository) get(ctx context.Context, id string) (model.RateFactor, bool) {
	raw, err := r.client.Get(ctx, idKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnContext(ctx, "rate factor cache read failed", "rate_factor_id", id, "error", err)
		}
		return model.RateFactor{}, false
	}
	rf, err := decode(raw)
	if err != nil {
		r.logger.WarnContext(ctx, "discarding undecodable cache entry", "rate_factor_id", id, "error", err)
		return model.RateFactor{}, false
	}
	return rf, true
}

func (r *RateFactorRepository) put(ctx context.Context, rf model.RateFactor) {
	raw, err := encode(rf)
	if err != nil {
		r.logger.WarnContext(ctx, "rate factor cache encode failed", "rate_factor_id", rf.ID(), "error", err)
		return
	}
	keys := []string{idKey(rf.ID()), tenorKey(rf.TenorMonths()), floorKey(rf.ID())}
	stored, err := putScript.Run(ctx, r.client, keys, rf.Version(), raw, rf.ID(), r.ttl.Milliseconds()).Int()
	if err != nil {
		r.logger.WarnContext(ctx, "rate factor cache write failed", "rate_factor_id", rf.ID(), "error", fmt.Errorf("put script: %w", err))
		return
	}
	if stored == 0 {
		r.logger.DebugContext(ctx, "skipped caching a superseded rate factor", "rate_factor_id", rf.ID(), "version", rf.Version())
	}
}
