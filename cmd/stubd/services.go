package main

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"stub-rpc/message"
	"stub-rpc/server"
)

// Arith serves integer and float arithmetic.
type Arith struct{}

func (a *Arith) Add(args message.Args) (string, error) {
	x, y, err := ints(args)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(x+y, 10), nil
}

func (a *Arith) Multiply(args message.Args) (string, error) {
	x, y, err := ints(args)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(x*y, 10), nil
}

func (a *Arith) Divide(args message.Args) (string, error) {
	x, err := args.Float("a")
	if err != nil {
		return "", err
	}
	y, err := args.Float("b")
	if err != nil {
		return "", err
	}
	if y == 0 {
		return "", errors.New("division by zero")
	}
	return strconv.FormatFloat(x/y, 'g', -1, 64), nil
}

func ints(args message.Args) (int64, int64, error) {
	x, err := args.Int("a")
	if err != nil {
		return 0, 0, err
	}
	y, err := args.Int("b")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Text serves string utilities; list and map results are JSON encoded.
type Text struct{}

func (t *Text) Upper(args message.Args) (string, error) {
	s, err := args.String("text")
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

func (t *Text) Split(args message.Args) (string, error) {
	s, err := args.String("text")
	if err != nil {
		return "", err
	}
	return marshal(strings.Fields(s))
}

func (t *Text) Count(args message.Args) (string, error) {
	s, err := args.String("text")
	if err != nil {
		return "", err
	}
	counts := make(map[string]int)
	for _, w := range strings.Fields(s) {
		counts[w]++
	}
	return marshal(counts)
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// registerServices installs the demo services. "add" is a flat alias for Arith.Add.
func registerServices(svr *server.Server) error {
	arith := &Arith{}
	if err := svr.Register(arith); err != nil {
		return err
	}
	if err := svr.Register(&Text{}); err != nil {
		return err
	}
	svr.HandleFunc("add", arith.Add)
	svr.HandleFunc("ping", func(message.Args) (string, error) {
		return "pong", nil
	})
	return nil
}
