package sim

// Handler processes events. Events are plain data and handlers use a type
// switch to tell them apart.
//
//	func (c *Comp) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *instructionEvent:
//	        return c.execute(e)
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	}
type Handler interface {
	Handle(event any) error
}

// ScheduledEvent is the engine-facing wrapper around a user-defined event.
type ScheduledEvent struct {
	// ID identifies the event in hooks and traces. The engine fills it in if
	// it is left empty.
	ID string

	// Event is the payload delivered to the handler.
	Event any

	// Time is when the event should be processed.
	Time VTime

	// Handler is the component that processes the event.
	Handler Handler
}
