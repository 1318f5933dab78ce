// Package ratelimit tracks per-shop remote API budgets and turns them
// into throttle decisions: the delay a caller must wait before the next
// write, and the dead-letter signal once a shop keeps failing.
package ratelimit

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/stockbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockbridge-backend/pkg/errors"
)

// RESTUsage is the parsed form of the REST call-limit header.
type RESTUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// ParseRESTHeader parses a "<used>/<limit>" call-limit header. A
// malformed or absent header is reported as not-ok, never as an error:
// the caller simply learns nothing new about the budget.
func ParseRESTHeader(header string) (RESTUsage, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), "/", 2)
	if len(parts) != 2 {
		return RESTUsage{}, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return RESTUsage{}, false
	}
	limit, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || limit <= 0 || used < 0 {
		return RESTUsage{}, false
	}
	return RESTUsage{Used: used, Limit: limit, Remaining: limit - used}, true
}

// CostBudget is the cost-based throttle extension reported alongside
// bulk mutations.
type CostBudget struct {
	CurrentlyAvailable float64 `json:"currentlyAvailable"`
	RestoreRate        float64 `json:"restoreRate"`
	MaximumAvailable   float64 `json:"maximumAvailable"`
}

// Status classifies the budget. lowWaterFraction is the share of the
// maximum budget under which a shop counts as approaching its limit; a
// budget below one restore tick is approaching regardless of fraction.
func (b CostBudget) Status(lowWaterFraction float64) enums.RateLimitStatus {
	if b.CurrentlyAvailable <= 0 {
		return enums.RateLimitThrottled
	}
	if b.MaximumAvailable > 0 && b.CurrentlyAvailable <= b.MaximumAvailable*lowWaterFraction {
		return enums.RateLimitApproaching
	}
	if b.RestoreRate > 0 && b.CurrentlyAvailable < b.RestoreRate {
		return enums.RateLimitApproaching
	}
	return enums.RateLimitOK
}

// Options tunes the controller. Zero values fall back to defaults.
type Options struct {
	BackoffBase         time.Duration
	BackoffMax          time.Duration
	DeadLetterThreshold int
	LowWaterFraction    float64
}

func (o *Options) applyDefaults() {
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = time.Minute
	}
	if o.DeadLetterThreshold <= 0 {
		o.DeadLetterThreshold = 5
	}
	if o.LowWaterFraction <= 0 {
		o.LowWaterFraction = 0.1
	}
}

// Snapshot is a read-only view of one shop's throttle state, exposed to
// operators.
type Snapshot struct {
	ShopID            string                `json:"shop_id"`
	Status            enums.RateLimitStatus `json:"status"`
	Usage             *RESTUsage            `json:"usage,omitempty"`
	Budget            *CostBudget           `json:"budget,omitempty"`
	ConsecutiveErrors int                   `json:"consecutive_errors"`
	RequiredDelay     time.Duration         `json:"required_delay"`
	DeadLettered      bool                  `json:"dead_lettered"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type shopState struct {
	status            enums.RateLimitStatus
	usage             *RESTUsage
	budget            *CostBudget
	consecutiveErrors int
	updatedAt         time.Time
}

// Controller holds the per-shop throttle map. Safe for concurrent use:
// the direct-write path and the flush loop both mutate it.
type Controller struct {
	mu    sync.Mutex
	opts  Options
	shops map[string]*shopState

	now    func() time.Time
	jitter func() float64
}

func NewController(opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		opts:   opts,
		shops:  make(map[string]*shopState),
		now:    time.Now,
		jitter: rand.Float64,
	}
}

func (c *Controller) state(shopID string) *shopState {
	st, ok := c.shops[shopID]
	if !ok {
		st = &shopState{status: enums.RateLimitOK}
		c.shops[shopID] = st
	}
	return st
}

// ObserveRESTHeader folds a REST call-limit header into the shop's
// state. Malformed headers leave the state untouched.
func (c *Controller) ObserveRESTHeader(shopID, header string) {
	usage, ok := ParseRESTHeader(header)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	st.usage = &usage
	st.updatedAt = c.now()
	if usage.Remaining <= 0 {
		st.status = enums.RateLimitThrottled
	} else if float64(usage.Remaining) <= float64(usage.Limit)*c.opts.LowWaterFraction {
		st.status = enums.RateLimitApproaching
	} else {
		st.status = enums.RateLimitOK
	}
}

// ObserveCost folds a cost-based budget report into the shop's state.
func (c *Controller) ObserveCost(shopID string, budget CostBudget) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	st.budget = &budget
	st.status = budget.Status(c.opts.LowWaterFraction)
	st.updatedAt = c.now()
}

// RecordSuccess clears the error streak after any successful write.
func (c *Controller) RecordSuccess(shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	st.consecutiveErrors = 0
	st.updatedAt = c.now()
}

// RecordThrottle counts one 429-equivalent response.
func (c *Controller) RecordThrottle(shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	st.consecutiveErrors++
	st.status = enums.RateLimitThrottled
	st.updatedAt = c.now()
}

// RequiredDelay returns how long the caller must wait before the next
// write to this shop, and whether the shop has crossed the dead-letter
// threshold. A healthy shop waits zero; a dead-lettered shop must not
// be retried automatically at all.
func (c *Controller) RequiredDelay(shopID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	if st.consecutiveErrors >= c.opts.DeadLetterThreshold {
		return 0, true
	}
	if st.consecutiveErrors == 0 {
		return 0, false
	}
	return c.backoff(st.consecutiveErrors), false
}

// ShouldDeadLetter reports whether the shop's error streak has reached
// the dead-letter threshold.
func (c *Controller) ShouldDeadLetter(shopID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(shopID).consecutiveErrors >= c.opts.DeadLetterThreshold
}

// Status returns the shop's last observed budget classification.
func (c *Controller) Status(shopID string) enums.RateLimitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(shopID).status
}

// Snapshot returns the shop's full throttle state for operator views.
func (c *Controller) Snapshot(shopID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(shopID)
	snap := Snapshot{
		ShopID:            shopID,
		Status:            st.status,
		ConsecutiveErrors: st.consecutiveErrors,
		DeadLettered:      st.consecutiveErrors >= c.opts.DeadLetterThreshold,
		UpdatedAt:         st.updatedAt,
	}
	if st.usage != nil {
		u := *st.usage
		snap.Usage = &u
	}
	if st.budget != nil {
		b := *st.budget
		snap.Budget = &b
	}
	if !snap.DeadLettered && st.consecutiveErrors > 0 {
		snap.RequiredDelay = c.backoff(st.consecutiveErrors)
	}
	return snap
}

// Snapshots lists every tracked shop.
func (c *Controller) Snapshots() []Snapshot {
	c.mu.Lock()
	ids := make([]string, 0, len(c.shops))
	for id := range c.shops {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		snaps = append(snaps, c.Snapshot(id))
	}
	return snaps
}

// Reset restores a shop to defaults: full budget, zero errors, zero
// delay. Operator escape hatch for a dead-lettered shop.
func (c *Controller) Reset(shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shops[shopID] = &shopState{status: enums.RateLimitOK, updatedAt: c.now()}
}

// DeadLetterError builds the error recorded when a shop is routed to
// the dead-letter path.
func (c *Controller) DeadLetterError(shopID string) error {
	c.mu.Lock()
	errs := c.state(shopID).consecutiveErrors
	c.mu.Unlock()
	return pkgerrors.New(pkgerrors.CodeDeadLettered, "shop "+shopID+" dead-lettered after "+strconv.Itoa(errs)+" consecutive errors")
}

// backoff computes min(max, base * 2^(attempt-1)) with ±25% jitter.
// Caller holds c.mu.
func (c *Controller) backoff(attempt int) time.Duration {
	base := float64(c.opts.BackoffBase) * math.Pow(2, float64(attempt-1))
	if base > float64(c.opts.BackoffMax) {
		base = float64(c.opts.BackoffMax)
	}
	factor := 0.75 + 0.5*c.jitter()
	d := time.Duration(base * factor)
	if d > c.opts.BackoffMax {
		d = c.opts.BackoffMax
	}
	return d
}
