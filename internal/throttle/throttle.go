// Package throttle implements the shared token-bucket throttler: a
// rate.Limiter memoized by (operation class, credentials identity, region)
// so that every ProviderClient adapter minted for the same principal shares
// one bucket instead of each adapter instance throttling independently.
//
// Follows the memoize-a-rate.Limiter-per-peer-plus-background-cleanup shape
// used for other per-connection rate limiters: a limiter (no concurrency
// semaphore) is memoized per key, with a background cleanup loop evicting idle
// entries. The per-peer identity becomes the (operation, principal, region)
// tuple here; the idle-cleanup loop is kept because a multi-hour crawl across
// hundreds of accounts would otherwise grow the limiter map without bound for accounts
// visited early and never revisited.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class names the fixed operation classes of throttle table.
type Class string

const (
	ClassAppRegistry Class = "app-registry"
	ClassOrganizationsList Class = "organizations-list"
	ClassGatewayPaginator Class = "gateway-paginator"
	ClassGatewayTotalOps Class = "gateway-total-ops"
	ClassAppSyncList Class = "appsync-list"
	ClassConfigSelectAggregate Class = "config-select-aggregate"
	ClassConfigBatchGet Class = "config-batch-get-aggregate"
	ClassECSClusterReads Class = "ecs-cluster-reads"
	ClassEKSDescribeNodegroup Class = "eks-describe-nodegroup"
	ClassELBDescribes Class = "elb-describes"
	ClassMediaConnectList Class = "mediaconnect-list"
	ClassDynamoStreamsDescribe Class = "dynamodb-streams-describe"
)

// limit/interval pairs transcribed verbatim from.
var classLimits = map[Class]struct {
	n int
	interval time.Duration
}{
	ClassAppRegistry: {5, time.Second},
	ClassOrganizationsList: {1, time.Second},
	ClassGatewayPaginator: {5, 2 * time.Second},
	ClassGatewayTotalOps: {10, time.Second},
	ClassAppSyncList: {5, time.Second},
	ClassConfigSelectAggregate: {8, time.Second},
	ClassConfigBatchGet: {15, time.Second},
	ClassECSClusterReads: {20, time.Second},
	ClassEKSDescribeNodegroup: {5, time.Second},
	ClassELBDescribes: {10, time.Second},
	ClassMediaConnectList: {5, time.Second},
	ClassDynamoStreamsDescribe: {8, time.Second},
}

func limiterFor(class Class) *rate.Limiter {
	lim, ok := classLimits[class]
	if !ok {
		// Conservative default for any class the table above doesn't name.
		lim = struct {
			n int
			interval time.Duration
		}{5, time.Second}
	}
	every := lim.interval / time.Duration(lim.n)
	return rate.NewLimiter(rate.Every(every), lim.n)
}

type entry struct {
	limiter *rate.Limiter
	lastUsed time.Time
}

// Registry memoizes throttlers by (class, principal, region) so that
// multiple service adapters minted for the same assumed-role session share a
// single bucket, per.
type Registry struct {
	mu sync.Mutex
	entries map[string]*entry
	stopCh chan struct{}
}

func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		stopCh: make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Wait blocks until a token is available for the given (class, principal,
// region) bucket, or ctx is cancelled. This is the throttler suspension point
// calls out: "Throttlers further suspend a caller until a bucket
// token is available."
func (r *Registry) Wait(ctx context.Context, class Class, principal, region string) error {
	key := string(class) + "|" + principal + "|" + region

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{limiter: limiterFor(class)}
		r.entries[key] = e
	}
	e.lastUsed = time.Now()
	r.mu.Unlock()

	return e.limiter.Wait(ctx)
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			for key, e := range r.entries {
				if time.Since(e.lastUsed) > 30*time.Minute {
					delete(r.entries, key)
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) Close() {
	close(r.stopCh)
}

// Size returns the number of memoized buckets; exposed for tests and the
// crawl-summary metrics.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
