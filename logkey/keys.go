package logkey

const (
	Service   = "service"
	Component = "component"

	Namespace       = "namespace"
	NamespaceParent = "namespace.parent"

	PropertiesRemoved = "properties.removed"
	PropertiesMissing = "properties.missing"
	PropertiesUpdated = "properties.updated"

	EventID      = "event.id"
	EventType    = "event.type"
	EventSubject = "event.subject"

	SubscriberID = "subscriber.id"

	StorageDriver = "storage.driver"
)

const (
	WebSocketID          = "websocket.id"
	WebSocketCloseCode   = "websocket.close_code"
	WebSocketCloseReason = "websocket.close_reason"
)
