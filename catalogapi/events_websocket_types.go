package catalogapi

// StreamEventsRequest scopes an event stream to a namespace and its
// descendants. An empty Namespace streams every event.
type StreamEventsRequest struct {
	Namespace string `query:"namespace"`
}

func (r StreamEventsRequest) Validate() error {
	return nil
}
