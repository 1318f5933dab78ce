package enums

// UpdateReason explains why a pending inventory update was produced.
type UpdateReason string

const (
	ReasonOrderEvent   UpdateReason = "order_event"
	ReasonInventorySet UpdateReason = "inventory_set"
	ReasonProductSync  UpdateReason = "product_sync"
	ReasonManual       UpdateReason = "manual"
)

// OutcomeKind classifies an audit-log row for a sync attempt.
type OutcomeKind string

const (
	OutcomeSuccess    OutcomeKind = "success"
	OutcomeFailure    OutcomeKind = "failure"
	OutcomeDrift      OutcomeKind = "drift"
	OutcomeDeadLetter OutcomeKind = "dead_letter"
	OutcomeSkipped    OutcomeKind = "skipped"
)

// RateLimitStatus summarizes a destination shop's remote API budget.
type RateLimitStatus string

const (
	RateLimitOK          RateLimitStatus = "ok"
	RateLimitApproaching RateLimitStatus = "approaching"
	RateLimitThrottled   RateLimitStatus = "throttled"
)
