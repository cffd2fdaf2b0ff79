package ingest

// FakeClient records subscriptions and lets tests inject messages without a
// broker.
type FakeClient struct {
	// Subscriptions maps topic filters to their handlers.
	Subscriptions map[string]func(topic string, payload []byte)

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{Subscriptions: make(map[string]func(topic string, payload []byte))}
}

// Subscribe records the handler.
func (f *FakeClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions[topic] = handler
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() {
	f.Closed = true
}

// Inject delivers a message to the handler registered for the filter.
func (f *FakeClient) Inject(filter, topic string, payload []byte) {
	if handler, ok := f.Subscriptions[filter]; ok {
		handler(topic, payload)
	}
}
