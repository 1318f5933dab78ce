package enums

import "fmt"

// WebhookTopic is the notification topic delivered by the upstream platform.
type WebhookTopic string

const (
	TopicProductsCreate        WebhookTopic = "products/create"
	TopicProductsUpdate        WebhookTopic = "products/update"
	TopicProductsDelete        WebhookTopic = "products/delete"
	TopicOrdersCreate          WebhookTopic = "orders/create"
	TopicOrdersPaid            WebhookTopic = "orders/paid"
	TopicOrdersCancelled       WebhookTopic = "orders/cancelled"
	TopicOrdersEdited          WebhookTopic = "orders/edited"
	TopicRefundsCreate         WebhookTopic = "refunds/create"
	TopicInventoryLevelsUpdate WebhookTopic = "inventory_levels/update"
	TopicAppUninstalled        WebhookTopic = "app/uninstalled"
)

var validWebhookTopics = []WebhookTopic{
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicProductsDelete,
	TopicOrdersCreate,
	TopicOrdersPaid,
	TopicOrdersCancelled,
	TopicOrdersEdited,
	TopicRefundsCreate,
	TopicInventoryLevelsUpdate,
	TopicAppUninstalled,
}

// IsValid reports whether the topic is one the engine understands.
func (t WebhookTopic) IsValid() bool {
	for _, candidate := range validWebhookTopics {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWebhookTopic converts raw input into a WebhookTopic.
func ParseWebhookTopic(value string) (WebhookTopic, error) {
	for _, candidate := range validWebhookTopics {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook topic %q", value)
}
