package server

import (
	"fmt"
	"reflect"

	"stub-rpc/message"
)

// Handler serves one named service: it gets the request's arguments and returns the
// output text, or an error that becomes an ERROR response.
type Handler func(args message.Args) (string, error)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	argsType    = reflect.TypeOf(message.Args{})
	stringType  = reflect.TypeOf("")
	handlerType = reflect.TypeOf(Handler(nil))
)

// scanHandlers 扫描 rcvr 的导出方法，返回 "Type.Method" → Handler
//
// 合法签名: func (r *T) Method(args message.Args) (string, error)
func scanHandlers(rcvr any) (map[string]Handler, error) {
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("server: rcvr must be a pointer, got %T", rcvr)
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("server: rcvr must point to a struct, got %s", typ.Elem().Kind())
	}

	val := reflect.ValueOf(rcvr)
	name := typ.Elem().Name()
	handlers := make(map[string]Handler)
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		mt := method.Type
		if mt.NumIn() != 2 || mt.In(1) != argsType ||
			mt.NumOut() != 2 || mt.Out(0) != stringType || mt.Out(1) != errorType {
			continue
		}
		fn := val.Method(i).Convert(handlerType).Interface().(Handler)
		handlers[name+"."+method.Name] = fn
	}

	if len(handlers) == 0 {
		return nil, fmt.Errorf("server: %s has no methods of the form func(message.Args) (string, error)", name)
	}
	return handlers, nil
}
