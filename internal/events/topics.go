package events

// Topic constants for cart events emitted by the storefront.
const (
	TopicCartLineAdded   = "cart.line_added"
	TopicCartLineUpdated = "cart.line_updated"
	TopicCartLineRemoved = "cart.line_removed"
	TopicCartCleared     = "cart.cleared"
)

// DefaultTopics returns the topics mirrored to the backend cart.
func DefaultTopics() []string {
	return []string{
		TopicCartLineAdded,
		TopicCartLineUpdated,
		TopicCartLineRemoved,
	}
}
