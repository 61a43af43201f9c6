package viewcache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-request-service/internal/config"
)

// Resource class cadence: how often viewers poll and how old a cached
// view may be before it counts as unknown. Lists refresh slowly, the
// thread a viewer is focused on refreshes fast.
type Policy struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
}

// Policies bundles the per-class cadence.
type Policies struct {
	List   Policy
	Thread Policy
	Stats  Policy
}

// PoliciesFromConfig maps env configuration onto cache policies.
func PoliciesFromConfig(cfg config.SyncConfig) Policies {
	return Policies{
		List: Policy{
			PollInterval: time.Duration(cfg.ListPollSeconds) * time.Second,
			StaleAfter:   time.Duration(cfg.ListStaleSeconds) * time.Second,
		},
		Thread: Policy{
			PollInterval: time.Duration(cfg.ThreadPollSeconds) * time.Second,
			StaleAfter:   time.Duration(cfg.ThreadStaleSeconds) * time.Second,
		},
		Stats: Policy{
			PollInterval: time.Duration(cfg.StatsPollSeconds) * time.Second,
			StaleAfter:   time.Duration(cfg.StatsStaleSeconds) * time.Second,
		},
	}
}

// statsPeriods lists the cacheable stats windows, keyed by period token.
var statsPeriods = []string{"", "24h", "7d", "30d"}

// Views implements the pull-with-invalidation consistency layer. Cached
// values live no longer than their staleness tolerance; every mutation
// synchronously drops the views derived from the mutated request, so the
// mutating viewer's next read goes to the store (read-your-writes) while
// other viewers converge within one poll interval.
//
// List views are keyed under a generation counter instead of being
// deleted: filterable list keys are unbounded, and bumping the generation
// orphans every prior list entry at once.
type Views struct {
	cache    Cache
	policies Policies
	logger   *zap.Logger
}

// New constructs the view layer.
func New(cache Cache, policies Policies, logger *zap.Logger) *Views {
	return &Views{cache: cache, policies: policies, logger: logger}
}

// Policies exposes the per-class cadence so pollers and clients can
// schedule refreshes.
func (v *Views) Policies() Policies {
	return v.policies
}

const listGenKey = "gen:requests"

func (v *Views) listKey(ctx context.Context, filterHash string) string {
	gen, err := v.cache.Counter(ctx, listGenKey)
	if err != nil {
		v.warn("list generation read failed", err)
		gen = -1
	}
	return fmt.Sprintf("view:requests:g%d:%s", gen, filterHash)
}

func threadGenKey(requestID string) string {
	return "gen:thread:" + requestID
}

func (v *Views) threadKey(ctx context.Context, requestID, variant string) string {
	gen, err := v.cache.Counter(ctx, threadGenKey(requestID))
	if err != nil {
		v.warn("thread generation read failed", err)
		gen = -1
	}
	return fmt.Sprintf("view:thread:%s:g%d:%s", requestID, gen, variant)
}

func detailKey(requestID string) string {
	return "view:request:" + requestID
}

func statsKey(period string) string {
	return "view:stats:" + period
}

// GetRequestList returns a cached list view younger than the list
// staleness tolerance. Cache failures degrade to a miss.
func (v *Views) GetRequestList(ctx context.Context, filterHash string) ([]byte, bool) {
	return v.get(ctx, v.listKey(ctx, filterHash))
}

// PutRequestList stores a list view for the staleness window.
func (v *Views) PutRequestList(ctx context.Context, filterHash string, value []byte) {
	v.put(ctx, v.listKey(ctx, filterHash), value, v.policies.List.StaleAfter)
}

// GetRequestDetail returns a cached request detail view.
func (v *Views) GetRequestDetail(ctx context.Context, requestID string) ([]byte, bool) {
	return v.get(ctx, detailKey(requestID))
}

// PutRequestDetail stores a request detail view.
func (v *Views) PutRequestDetail(ctx context.Context, requestID string, value []byte) {
	v.put(ctx, detailKey(requestID), value, v.policies.List.StaleAfter)
}

// GetThread returns a cached thread page. variant encodes role and paging
// so customer and agent views never share an entry.
func (v *Views) GetThread(ctx context.Context, requestID, variant string) ([]byte, bool) {
	return v.get(ctx, v.threadKey(ctx, requestID, variant))
}

// PutThread stores a thread page for the thread staleness window.
func (v *Views) PutThread(ctx context.Context, requestID, variant string, value []byte) {
	v.put(ctx, v.threadKey(ctx, requestID, variant), value, v.policies.Thread.StaleAfter)
}

// GetStats returns a cached stats snapshot.
func (v *Views) GetStats(ctx context.Context, period string) ([]byte, bool) {
	return v.get(ctx, statsKey(period))
}

// PutStats stores a stats snapshot for the stats staleness window.
func (v *Views) PutStats(ctx context.Context, period string, value []byte) {
	v.put(ctx, statsKey(period), value, v.policies.Stats.StaleAfter)
}

// InvalidateRequest drops every view derived from the request: its detail
// view, its thread pages, every list view and the stats snapshots. Called
// synchronously after lifecycle mutations commit.
func (v *Views) InvalidateRequest(ctx context.Context, requestID string) {
	if v == nil {
		return
	}
	if err := v.cache.Delete(ctx, detailKey(requestID)); err != nil {
		v.warn("detail invalidation failed", err)
	}
	if _, err := v.cache.Incr(ctx, threadGenKey(requestID)); err != nil {
		v.warn("thread invalidation failed", err)
	}
	if _, err := v.cache.Incr(ctx, listGenKey); err != nil {
		v.warn("list invalidation failed", err)
	}
	v.InvalidateStats(ctx)
}

// InvalidateThread drops the thread pages and the list entry of the
// parent request (last_message_at and unread counts change), leaving
// stats untouched. Called after postMessage and markRead.
func (v *Views) InvalidateThread(ctx context.Context, requestID string) {
	if v == nil {
		return
	}
	if _, err := v.cache.Incr(ctx, threadGenKey(requestID)); err != nil {
		v.warn("thread invalidation failed", err)
	}
	if err := v.cache.Delete(ctx, detailKey(requestID)); err != nil {
		v.warn("detail invalidation failed", err)
	}
	if _, err := v.cache.Incr(ctx, listGenKey); err != nil {
		v.warn("list invalidation failed", err)
	}
}

// InvalidateStats drops every cached stats window.
func (v *Views) InvalidateStats(ctx context.Context) {
	if v == nil {
		return
	}
	keys := make([]string, 0, len(statsPeriods))
	for _, period := range statsPeriods {
		keys = append(keys, statsKey(period))
	}
	if err := v.cache.Delete(ctx, keys...); err != nil {
		v.warn("stats invalidation failed", err)
	}
}

func (v *Views) get(ctx context.Context, key string) ([]byte, bool) {
	if v == nil {
		return nil, false
	}
	value, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		v.warn("cache read failed", err)
		return nil, false
	}
	return value, ok
}

func (v *Views) put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if v == nil {
		return
	}
	if ttl <= 0 {
		return
	}
	if err := v.cache.Set(ctx, key, value, ttl); err != nil {
		v.warn("cache write failed", err)
	}
}

func (v *Views) warn(msg string, err error) {
	if v.logger != nil {
		v.logger.Warn(msg, zap.Error(err))
	}
}
