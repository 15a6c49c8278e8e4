// Package stub turns a declared call into a remote request/response exchange.
//
// A Decorator holds a Transport and a deserializer.Registry. Wrapping a Signature with
// it yields a *Stub whose every call runs, strictly in order:
//
//  1. the local body with the bound arguments (its value is discarded),
//  2. construction of the request from the declared parameter names,
//  3. Transport.SendText of the encoded request,
//  4. Transport.ReceiveText, blocking until the reply arrives,
//  5. decoding of the reply; an ERROR status returns *RemoteServiceError,
//  6. conversion of the SUCCESS output into the declared result kind.
//
// The envelope carries no correlation id, so a Transport must never have more than one
// call outstanding. Callers that share a handle across goroutines serialize access
// themselves, for example by giving each worker its own handle.
//
// Usage:
//
//	d := stub.NewDecorator(conn)
//	add := d.MustWrap(stub.Signature{
//	    Service: "add",
//	    Params:  []string{"a", "b"},
//	    Result:  deserializer.KindInt,
//	}, nil)
//
//	sum, err := stub.As[int64](add.Call(1, 2))
package stub
