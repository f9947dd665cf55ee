package events

// Topic constants for domain events emitted by the platform.
const (
	TopicDocumentCreated       = "document.created"
	TopicDocumentUpdated       = "document.updated"
	TopicDocumentDeleted       = "document.deleted"
	TopicDocumentSubmitted     = "document.submitted"
	TopicDocumentStatusChanged = "document.status_changed"
)

// DefaultTopics returns the canonical list of topics that support webhook deliveries.
func DefaultTopics() []string {
	return []string{
		TopicDocumentCreated,
		TopicDocumentUpdated,
		TopicDocumentDeleted,
		TopicDocumentSubmitted,
		TopicDocumentStatusChanged,
	}
}
