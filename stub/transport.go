package stub

import "errors"

// ErrNoTransport is returned when neither the decorator nor the receiver supplies a
// transport.
var ErrNoTransport = errors.New("stub: no transport available")

// Transport moves envelope text. ReceiveText blocks until a reply is available.
type Transport interface {
	SendText(text string) error
	ReceiveText() (string, error)
}

// TransportFuncs adapts a pair of functions to Transport.
type TransportFuncs struct {
	Send    func(text string) error
	Receive func() (string, error)
}

func (f TransportFuncs) SendText(text string) error {
	return f.Send(text)
}

func (f TransportFuncs) ReceiveText() (string, error) {
	return f.Receive()
}

// TransportProvider is implemented by receivers that own their connection. A decorator
// built without a transport asks the call's receiver for one.
type TransportProvider interface {
	Transport() Transport
}
