package enums

// ResourceType classifies the upstream resource a webhook refers to.
type ResourceType string

const (
	ResourceProduct   ResourceType = "product"
	ResourceInventory ResourceType = "inventory"
	ResourceOrder     ResourceType = "order"
	ResourceApp       ResourceType = "app"
)

// EventPriority orders inbound events by business urgency.
type EventPriority int

const (
	PriorityLow EventPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p EventPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}
