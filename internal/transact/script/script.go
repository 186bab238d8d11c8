// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package script runs a user JavaScript hook on each transaction before
// the wallet signs it.
//
// The script must define a global function:
//
//	function beforeSign(tx, ctx) { ... }
//
// tx is the transaction in its node JSON form; ctx carries appName, chain,
// actor and permission. Returning an object replaces the transaction;
// returning nothing leaves it unchanged. A thrown exception aborts signing.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/aplane-algo/minter/internal/antelope"
	"github.com/aplane-algo/minter/internal/session"
	"github.com/aplane-algo/minter/internal/util"
)

// ID is the plugin id.
const ID = "script"

// HookName is the function the script must define.
const HookName = "beforeSign"

// ScriptError is a JavaScript exception raised by the hook.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return "script error: " + e.Message
}

// Plugin is a session.TransactPlugin backed by a goja runtime. The
// runtime is not safe for concurrent use, so calls are serialized.
type Plugin struct {
	name string

	mu        sync.Mutex
	vm        *goja.Runtime
	hook      goja.Callable
	parse     goja.Callable
	stringify goja.Callable
}

// Load reads and compiles the script at path.
func Load(path string) (*Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transact script: %w", err)
	}
	return New(path, string(src))
}

// New compiles src. name is used in stack traces.
func New(name, src string) (*Plugin, error) {
	prog, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, &ScriptError{Message: err.Error()}
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		util.Debug("transact script", "name", name, "msg", strings.Join(parts, " "))
		return goja.Undefined()
	}
	if err := vm.Set("log", logFn); err != nil {
		return nil, err
	}

	if _, err := vm.RunProgram(prog); err != nil {
		return nil, toScriptError(err)
	}

	hook, ok := goja.AssertFunction(vm.Get(HookName))
	if !ok {
		return nil, fmt.Errorf("transact script %s does not define %s()", name, HookName)
	}
	jsonObj := vm.Get("JSON").ToObject(vm)
	parse, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse unavailable")
	}
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify unavailable")
	}

	return &Plugin{name: name, vm: vm, hook: hook, parse: parse, stringify: stringify}, nil
}

func (p *Plugin) ID() string { return ID }

type hookContext struct {
	AppName    string           `json:"appName"`
	Chain      antelope.ChainID `json:"chain"`
	Actor      antelope.Name    `json:"actor"`
	Permission antelope.Name    `json:"permission"`
}

// BeforeSign calls the script's hook with the transaction.
func (p *Plugin) BeforeSign(ctx context.Context, req *session.TransactRequest, tc session.TransactContext) (*session.TransactHookResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		p.vm.Interrupt(ctx.Err())
	})
	defer func() {
		// A started interrupt must land before it is cleared.
		if !stop() {
			<-interrupted
		}
		p.vm.ClearInterrupt()
	}()

	txArg, err := p.toJS(req.Transaction)
	if err != nil {
		return nil, err
	}
	ctxArg, err := p.toJS(hookContext{
		AppName:    tc.AppName,
		Chain:      tc.Chain.ID,
		Actor:      tc.PermissionLevel.Actor,
		Permission: tc.PermissionLevel.Permission,
	})
	if err != nil {
		return nil, err
	}

	out, err := p.hook(goja.Undefined(), txArg, ctxArg)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, toScriptError(err)
	}
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
		return nil, nil
	}

	encoded, err := p.stringify(goja.Undefined(), out)
	if err != nil {
		return nil, toScriptError(err)
	}
	var tx antelope.Transaction
	if err := json.Unmarshal([]byte(encoded.String()), &tx); err != nil {
		return nil, &ScriptError{Message: fmt.Sprintf("%s() returned an invalid transaction: %v", HookName, err)}
	}
	if len(tx.Actions) == 0 {
		return nil, &ScriptError{Message: fmt.Sprintf("%s() returned a transaction without actions", HookName)}
	}
	return &session.TransactHookResult{Transaction: &tx}, nil
}

func (p *Plugin) toJS(v interface{}) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	val, err := p.parse(goja.Undefined(), p.vm.ToValue(string(data)))
	if err != nil {
		return nil, toScriptError(err)
	}
	return val, nil
}

func toScriptError(err error) error {
	var jsErr *goja.Exception
	if errors.As(err, &jsErr) {
		return &ScriptError{Message: jsErr.String()}
	}
	return err
}

var _ session.TransactPlugin = (*Plugin)(nil)
