// Package udf compiles webhook-scoped user-defined scalar functions written
// in Lua and produces Go trampolines the storage engine can register as
// scalar functions.
package udf

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// ParamType is a declared UDF parameter or return type hint. Lua itself has
// no static types, so these only affect how Go values are marshaled across
// the trampoline boundary; everything defaults to Text when a UDF record
// carries no hints.
type ParamType string

const (
	TypeText  ParamType = "str"
	TypeInt   ParamType = "int"
	TypeFloat ParamType = "float"
	TypeBool  ParamType = "bool"
)

// Compiled holds a parsed UDF: its source, the name of the top-level
// function the installer confirmed exists, and the function's arity.
type Compiled struct {
	Source   string
	FuncName string
	Arity    int
}

// Compile parses source, confirms a top-level global function named
// funcName exists, and returns its arity (parameter count). Fails Invalid
// if compilation fails or the function isn't found at the top level.
func Compile(source, funcName string) (*Compiled, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(source); err != nil {
		return nil, apperrors.ErrUDFCompileFailed(err.Error())
	}

	fnVal := L.GetGlobal(funcName)
	fn, ok := fnVal.(*lua.LFunction)
	if !ok || fn.IsG {
		return nil, apperrors.ErrUDFFunctionNotFound(funcName)
	}

	arity := int(fn.Proto.NumParameters)
	if arity < 1 {
		return nil, apperrors.ErrUDFCompileFailed(fmt.Sprintf("%s must declare at least one parameter", funcName))
	}

	return &Compiled{Source: source, FuncName: funcName, Arity: arity}, nil
}

// Runtime holds a pool of pre-warmed Lua states sharing one compiled
// script, so concurrent scalar-function calls from the engine don't
// contend on a single *lua.LState (gopher-lua states are not goroutine
// safe).
type Runtime struct {
	mu      sync.Mutex
	states  []*lua.LState
	compile *Compiled
}

// NewRuntime prepares a runtime for a compiled UDF. States are created
// lazily on first call and reused afterward.
func NewRuntime(compiled *Compiled) *Runtime {
	return &Runtime{compile: compiled}
}

// Call invokes the UDF's top-level function with args, mapping results and
// declared return type to a Go value suitable for the engine's scalar
// function trampoline. Unless paramTypes/returnType says otherwise, values
// are coerced to text.
func (r *Runtime) Call(args []any, paramTypes []ParamType, returnType ParamType) (any, error) {
	L, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer r.release(L)

	fn := L.GetGlobal(r.compile.FuncName)
	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		pt := TypeText
		if i < len(paramTypes) {
			pt = paramTypes[i]
		}
		luaArgs[i] = toLuaValue(a, pt)
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...); err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("udf %s: %w", r.compile.FuncName, err))
	}

	ret := L.Get(-1)
	L.Pop(1)
	return fromLuaValue(ret, returnType), nil
}

func (r *Runtime) acquire() (*lua.LState, error) {
	r.mu.Lock()
	if n := len(r.states); n > 0 {
		L := r.states[n-1]
		r.states = r.states[:n-1]
		r.mu.Unlock()
		return L, nil
	}
	r.mu.Unlock()

	L := lua.NewState()
	if err := L.DoString(r.compile.Source); err != nil {
		L.Close()
		return nil, apperrors.ErrEngine(fmt.Errorf("reload udf %s: %w", r.compile.FuncName, err))
	}
	return L, nil
}

func (r *Runtime) release(L *lua.LState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, L)
}

// Close tears down every pooled Lua state.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, L := range r.states {
		L.Close()
	}
	r.states = nil
}

func toLuaValue(v any, pt ParamType) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	switch pt {
	case TypeInt:
		switch n := v.(type) {
		case int64:
			return lua.LNumber(n)
		case float64:
			return lua.LNumber(n)
		case string:
			return lua.LString(n)
		}
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return lua.LNumber(n)
		case int64:
			return lua.LNumber(n)
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return lua.LBool(b)
		}
	}
	return lua.LString(fmt.Sprintf("%v", v))
}

func fromLuaValue(v lua.LValue, rt ParamType) any {
	switch rt {
	case TypeInt:
		if n, ok := v.(lua.LNumber); ok {
			return int64(n)
		}
	case TypeFloat:
		if n, ok := v.(lua.LNumber); ok {
			return float64(n)
		}
	case TypeBool:
		if b, ok := v.(lua.LBool); ok {
			return bool(b)
		}
	}
	if v == lua.LNil {
		return nil
	}
	return v.String()
}
