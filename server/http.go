package server

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"stub-rpc/transport"
)

// envelopeService exposes Dispatch as the JSON-RPC method Envelope.Exchange.
type envelopeService struct {
	srv *Server
}

func (e *envelopeService) Exchange(r *http.Request, args *transport.ExchangeArgs, reply *transport.ExchangeReply) error {
	reply.Text = e.srv.Dispatch(args.Text)
	return nil
}

// HTTPHandler returns a JSON-RPC 2.0 handler serving envelopes for transport.HTTP.
func (s *Server) HTTPHandler() http.Handler {
	rs := rpc.NewServer()
	rs.RegisterCodec(json2.NewCodec(), "application/json")
	if err := rs.RegisterService(&envelopeService{srv: s}, "Envelope"); err != nil {
		// envelopeService has a fixed, valid method set
		panic(err)
	}
	return rs
}
