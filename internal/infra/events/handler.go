package events

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Handler consumes the event types it lists.
type Handler interface {
	Handles() []string
	Handle(event Event) error
}

type handlerFunc struct {
	types []string
	fn    func(Event) error
}

// NewHandlerFunc subscribes fn to eventTypes.
func NewHandlerFunc(eventTypes []string, fn func(Event) error) Handler {
	return &handlerFunc{types: eventTypes, fn: fn}
}

func (h *handlerFunc) Handles() []string { return h.types }
func (h *handlerFunc) Handle(event Event) error { return h.fn(event) }
