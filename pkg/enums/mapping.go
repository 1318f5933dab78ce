package enums

// MappingStatus is the lifecycle state of a variant mapping.
type MappingStatus string

const (
	MappingActive   MappingStatus = "active"
	MappingConflict MappingStatus = "conflict"
	MappingArchived MappingStatus = "archived"
)

// ShopRole distinguishes the inventory owner from resellers.
type ShopRole string

const (
	ShopRoleSource      ShopRole = "source"
	ShopRoleDestination ShopRole = "destination"
)
