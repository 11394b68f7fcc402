package hub

// Conn is one live client attachment the hub can push events to. The
// websocket handler provides the production implementation; tests
// substitute an in-memory fake. Send must preserve the order of calls
// for a given connection.
type Conn interface {
	ID() string
	Send(Event) error
}
