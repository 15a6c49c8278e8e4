// Command stubcall invokes one remote service through a stub and prints the typed
// result.
//
//	stubcall -service add -result int a=3 b=4
//	stubcall -config client.toml -service Text.Split -result list text='"a b c"'
//
// Argument values are read as JSON and fall back to a plain string.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"stub-rpc/config"
	"stub-rpc/deserializer"
	"stub-rpc/loadbalance"
	"stub-rpc/message"
	"stub-rpc/middleware"
	"stub-rpc/registry"
	"stub-rpc/stub"
	"stub-rpc/transport"
)

// session owns the connection; with -method it is passed as the receiver and the
// decorator takes its transport from it.
type session struct {
	t stub.Transport
}

func (s *session) Transport() stub.Transport { return s.t }

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "stubcall:", err)
		os.Exit(1)
	}
}

func run(argv []string, out io.Writer) error {
	fs := flag.NewFlagSet("stubcall", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "TOML config file")
	service := fs.String("service", "", "service name to call")
	result := fs.String("result", "none", "result kind: none, int, float, string, list, map")
	method := fs.Bool("method", false, "call as a method stub with the connection as receiver")
	addr := fs.String("addr", "", "override client.address / client.url")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if *service == "" {
		return errors.New("-service is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Client.Address = *addr
		cfg.Client.URL = *addr
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, err := deserializer.ParseKind(*result)
	if err != nil {
		return err
	}
	params, values, err := parseArgs(fs.Args())
	if err != nil {
		return err
	}

	t, closeFn, err := dial(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	mws := []middleware.Middleware{middleware.LoggingMiddleware(logger)}
	if cfg.Client.RateLimit > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(cfg.Client.RateLimit, max(cfg.Client.RateBurst, 1)))
	}

	sig := stub.Signature{Service: *service, Params: params, Result: kind, Method: *method}
	var (
		d   *stub.Decorator
		pos = values
	)
	if *method {
		d = stub.NewDecorator(nil, stub.WithLogger(logger), stub.WithMiddleware(mws...))
		pos = append([]any{&session{t: t}}, values...)
	} else {
		d = stub.NewDecorator(t, stub.WithLogger(logger), stub.WithMiddleware(mws...))
	}

	s, err := d.Wrap(sig, nil)
	if err != nil {
		return err
	}
	v, err := s.Call(pos...)
	if err != nil {
		var remote *stub.RemoteServiceError
		if errors.As(err, &remote) {
			return fmt.Errorf("remote error: %s", remote.Message)
		}
		return err
	}
	return printResult(out, v)
}

// parseArgs splits name=value pairs, keeping command-line order.
func parseArgs(args []string) ([]string, []any, error) {
	params := make([]string, 0, len(args))
	values := make([]any, 0, len(args))
	for _, a := range args {
		name, raw, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("argument %q: want name=value", a)
		}
		v, err := message.DecodeValue([]byte(raw))
		if err != nil {
			v = raw
		}
		params = append(params, name)
		values = append(values, v)
	}
	return params, values, nil
}

// dial opens the configured transport. closeFn is never nil.
func dial(cfg *config.Config, logger *zap.Logger) (stub.Transport, func(), error) {
	noop := func() {}
	if cfg.Client.Transport == "http" {
		return transport.NewHTTP(cfg.Client.URL, nil), noop, nil
	}

	if cfg.Client.Endpoint == "" {
		t, err := transport.Dial(cfg.Client.Address)
		if err != nil {
			return nil, noop, err
		}
		return t, func() { t.Close() }, nil
	}

	reg, err := registry.NewEtcdRegistry(cfg.Etcd.Endpoints, cfg.Etcd.DialTimeout, logger)
	if err != nil {
		return nil, noop, err
	}
	bal, err := loadbalance.New(cfg.Client.Balancer)
	if err != nil {
		reg.Close()
		return nil, noop, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Etcd.DialTimeout)
	defer cancel()
	t, err := transport.DialEndpoint(ctx, reg, bal, cfg.Client.Endpoint)
	if err != nil {
		reg.Close()
		return nil, noop, err
	}
	logger.Debug("dialed", zap.String("endpoint", cfg.Client.Endpoint), zap.String("addr", t.Conn().RemoteAddr().String()))
	return t, func() {
		t.Close()
		reg.Close()
	}, nil
}

func printResult(out io.Writer, v any) error {
	switch r := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(out, r)
		return err
	default:
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
}
