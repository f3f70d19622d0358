package rbac

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
)

const cacheName = "rbac"

// Checker answers permission questions for a role. ADMIN is always allowed;
// other roles are allowed when either the policy file or the permissions
// table grants the action. Table lookups are cached per role.
type Checker struct {
	mu      sync.RWMutex
	policy  *Policy
	source  PermissionSource
	cache   *lru.LRU[auth.Role, map[Permission]struct{}]
	metrics *observability.Metrics
}

// CheckerConfig configures the per-role cache.
type CheckerConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// NewChecker creates a checker. source may be nil to use only the policy.
func NewChecker(policy *Policy, source PermissionSource, cfg CheckerConfig, metrics *observability.Metrics) *Checker {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 16
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Checker{
		policy:  policy,
		source:  source,
		cache:   lru.NewLRU[auth.Role, map[Permission]struct{}](cfg.CacheSize, nil, cfg.CacheTTL),
		metrics: metrics,
	}
}

// Allowed reports whether role may perform action on resource.
func (c *Checker) Allowed(ctx context.Context, role auth.Role, resource Resource, action Action) (bool, error) {
	if bypass(role) {
		return true, nil
	}

	c.mu.RLock()
	policy := c.policy
	c.mu.RUnlock()
	if policy.Allows(role, resource, action) {
		return true, nil
	}

	granted, err := c.stored(ctx, role)
	if err != nil {
		return false, err
	}
	_, ok := granted[Permission{Resource: resource, Action: action}]
	return ok, nil
}

// EffectivePermissions returns the sorted union of policy and stored grants.
// ADMIN gets every permission.
func (c *Checker) EffectivePermissions(ctx context.Context, role auth.Role) ([]Permission, error) {
	set := map[Permission]struct{}{}
	if bypass(role) {
		for _, r := range Resources {
			for _, a := range Actions {
				set[Permission{Resource: r, Action: a}] = struct{}{}
			}
		}
	} else {
		c.mu.RLock()
		for _, p := range c.policy.Permissions(role) {
			set[p] = struct{}{}
		}
		c.mu.RUnlock()

		stored, err := c.stored(ctx, role)
		if err != nil {
			return nil, err
		}
		for p := range stored {
			set[p] = struct{}{}
		}
	}

	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].String() < perms[j].String() })
	return perms, nil
}

func (c *Checker) stored(ctx context.Context, role auth.Role) (map[Permission]struct{}, error) {
	if c.source == nil {
		return nil, nil
	}
	if granted, ok := c.cache.Get(role); ok {
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.WithLabelValues(cacheName).Inc()
		}
		return granted, nil
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
	}

	perms, err := c.source.PermissionsForRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions for %s: %w", role, err)
	}
	granted := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		granted[p] = struct{}{}
	}
	c.cache.Add(role, granted)
	return granted, nil
}

// Policy returns the active policy.
func (c *Checker) Policy() *Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// SetPolicy swaps the active policy and drops cached grants.
func (c *Checker) SetPolicy(p *Policy) {
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
	c.cache.Purge()
}

// InvalidateRole drops the cached grants for role.
func (c *Checker) InvalidateRole(role auth.Role) {
	c.cache.Remove(role)
}
