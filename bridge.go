// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bridge implements a bidirectional JSON-RPC object bridge: a
// type-driven (de)serialization engine with a circular-reference/fixup
// protocol, a per-bridge dispatch registry with overload resolution, and
// a security-gated class resolver. It never frames, transports, or
// authenticates requests: see the sibling transport package for that
// half of the system.
package bridge

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

// Bridge is one exported-object registry, serializer façade, and
// dispatch pipeline.
type Bridge struct {
	ID uuid.UUID

	log        *zap.Logger
	registry   *registry
	resolver   *ClassResolver
	serializer *JSONSerializer
	locals     *localArgRegistry
	callbacks  callbackSet

	fixupPolicy FixupPolicy
	hints       HintPolicy
	transform   ExceptionTransformer

	mu            sync.RWMutex
	staticMethods map[string]map[string][]candidate
	constructors  map[string][]candidate
}

// Option configures a Bridge at construction time (teacher's
// `Options func(*Conn)` pattern, generalized).
type Option func(*Bridge)

// WithLogger installs a structured logger; nil leaves the default no-op
// logger in place.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMarshallHints turns the "javaClass" wire hint on or off.
func WithMarshallHints(on bool) Option {
	return func(b *Bridge) {
		if on {
			b.hints = HintsOn
		} else {
			b.hints = HintsOff
		}
	}
}

// WithFixupPolicy selects how duplicate/circular encounters are encoded.
func WithFixupPolicy(p FixupPolicy) Option {
	return func(b *Bridge) { b.fixupPolicy = p }
}

// WithFlatMode is shorthand for WithFixupPolicy(FixupFlat).
func WithFlatMode() Option {
	return WithFixupPolicy(FixupFlat)
}

// WithClassResolver installs a caller-built ClassResolver (e.g. with a
// pre-populated allow-list) in place of the default empty one.
func WithClassResolver(r *ClassResolver) Option {
	return func(b *Bridge) {
		if r != nil {
			b.resolver = r
		}
	}
}

// WithExceptionTransformer installs the function run over a user method's
// returned error before it is exposed as a RemoteFailedResult.
func WithExceptionTransformer(t ExceptionTransformer) Option {
	return func(b *Bridge) { b.transform = t }
}

// WithInvocationCallback registers an InvocationCallback, run in
// registration order around every dispatched call.
func WithInvocationCallback(cb InvocationCallback) Option {
	return func(b *Bridge) { b.callbacks.invocation = append(b.callbacks.invocation, cb) }
}

// WithErrorCallback registers an ErrorCallback, run whenever a call fails
// anywhere in the pipeline.
func WithErrorCallback(cb ErrorCallback) Option {
	return func(b *Bridge) { b.callbacks.errors = append(b.callbacks.errors, cb) }
}

// New builds a Bridge with the given options applied over these
// defaults: hints on, FixupDuplicates policy, a no-op logger, an empty
// ClassResolver.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		ID:            uuid.New(),
		log:           zap.NewNop(),
		hints:         HintsOn,
		fixupPolicy:   FixupDuplicates,
		registry:      newRegistry(),
		resolver:      NewClassResolver(),
		locals:        newLocalArgRegistry(),
		staticMethods: make(map[string]map[string][]candidate),
		constructors:  make(map[string][]candidate),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.serializer = NewJSONSerializer(b.log, b.hints, b.registry, b.resolver)
	return b
}

// RegisterObject exports instance under key for dispatch as
// "key.methodName", restricting visible methods to restrictTo (nil means
// the instance's own concrete type).
func (b *Bridge) RegisterObject(key string, instance interface{}, restrictTo reflect.Type) {
	b.registry.RegisterObject(key, instance, restrictTo)
}

// DeregisterObject removes a previously exported object.
func (b *Bridge) DeregisterObject(key string) {
	b.registry.DeregisterObject(key)
}

// RegisterClass records t under name and adds name to the ClassResolver
// allow-list, so javaClass hints naming it resolve to t. "$constructor"
// dispatch for name uses only the functions added with RegisterConstructor.
func (b *Bridge) RegisterClass(name string, t reflect.Type) {
	b.registry.RegisterClass(name, t)
	b.resolver.Allow(name, t)
}

// RegisterReferenceType marks t as a type whose instances are marshalled
// as opaque handles. callable also allows the handle's methods to be
// invoked via ".obj[id].method".
func (b *Bridge) RegisterReferenceType(t reflect.Type, callable bool) {
	b.registry.RegisterReferenceType(t, callable)
}

// RegisterEnum installs the value set for an enum type.
func (b *Bridge) RegisterEnum(t reflect.Type, values ...interface{}) {
	b.serializer.RegisterEnum(t, values...)
}

// RegisterStaticMethod adds fn as a dispatch candidate for
// "className.name". Multiple calls with the same className/name register
// distinct overloads, the mechanism the overload-ranking algorithm
// needs, since Go itself cannot declare two methods of the same name.
func (b *Bridge) RegisterStaticMethod(className, name string, fn interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.staticMethods[className] == nil {
		b.staticMethods[className] = make(map[string][]candidate)
	}
	b.staticMethods[className][name] = append(b.staticMethods[className][name], buildCandidate(reflect.ValueOf(fn)))
}

// RegisterConstructor adds fn as a "className.$constructor" candidate.
func (b *Bridge) RegisterConstructor(className string, fn interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constructors[className] = append(b.constructors[className], buildCandidate(reflect.ValueOf(fn)))
}

// RegisterLocalArg installs a resolver for parameters of type t, removing
// them from the wire-visible arity.
func (b *Bridge) RegisterLocalArg(t reflect.Type, resolver LocalArgResolver) {
	b.locals.Register(t, resolver)
}

const constructorMethodName = "$constructor"

// Call parses and dispatches one already-framed JSON-RPC request and returns the
// marshalled response bytes. It never returns a Go error: every failure
// becomes a well-formed error response.
func (b *Bridge) Call(ctx context.Context, request []byte) []byte {
	resp := b.dispatch(ctx, request)
	data, err := json.Marshal(resp)
	if err != nil {
		fallback := &ResponseMessage{
			ID:    resp.ID,
			Error: Errorf(CodeMarshalError, "failed to marshal response: %v", err),
		}
		data, _ = json.Marshal(fallback)
	}
	return data
}

func (b *Bridge) dispatch(ctx context.Context, request []byte) *ResponseMessage {
	req, parseErr := parseRawRequest(request)
	if parseErr != nil {
		return (&FailedResult{Err: parseErr}).response(nil)
	}

	if req.Method == "system.listMethods" {
		return b.listMethods(req.ID)
	}

	var parser RequestParser
	if b.fixupPolicy == FixupFlat {
		parser = &FlatRequestParser{Buckets: req.Buckets}
	} else {
		parser = &NestedRequestParser{Fixups: req.Fixups}
	}
	argsRaw, err := parser.ParseParams(req.Params)
	if err != nil {
		return (&FailedResult{Err: err.(*Error)}).response(req.ID)
	}

	instance, candidates, _, rerr := b.resolveTarget(ctx, req.Method)
	if rerr != nil {
		b.callbacks.onError(ctx, instance, req.Method, rerr)
		return (&FailedResult{Err: rerr}).response(req.ID)
	}

	chosen, rerr := selectCandidate(candidates, argsRaw, b.locals, b.serializer)
	if rerr != nil {
		b.callbacks.onError(ctx, instance, req.Method, rerr)
		return (&FailedResult{Err: rerr}).response(req.ID)
	}

	args, visible, rerr := unmarshalArgs(ctx, chosen, argsRaw, b.locals, b.serializer)
	if rerr != nil {
		b.callbacks.onError(ctx, instance, req.Method, rerr)
		return (&FailedResult{Err: rerr}).response(req.ID)
	}

	if err := b.callbacks.preInvoke(ctx, instance, req.Method, visible); err != nil {
		b.callbacks.onError(ctx, instance, req.Method, err)
		return remoteFailure(b.transform, err).response(req.ID)
	}

	result, invokeErr := invoke(chosen, args)
	b.callbacks.postInvoke(ctx, instance, req.Method, result, invokeErr, func(cbErr error) {
		b.log.Warn("postInvoke callback failed", zap.Error(cbErr))
	})

	if invokeErr != nil {
		b.callbacks.onError(ctx, instance, req.Method, invokeErr)
		return remoteFailure(b.transform, invokeErr).response(req.ID)
	}

	if b.fixupPolicy == FixupFlat {
		flat, merr := b.serializer.MarshallFlat(result)
		if merr != nil {
			b.callbacks.onError(ctx, instance, req.Method, merr)
			return (&FailedResult{Err: merr.(*Error)}).response(req.ID)
		}
		return mergeFlatResponse(req.ID, flat)
	}

	value, fixups, merr := b.serializer.Marshall(result, b.fixupPolicy)
	if merr != nil {
		b.callbacks.onError(ctx, instance, req.Method, merr)
		return (&FailedResult{Err: merr.(*Error)}).response(req.ID)
	}
	return (&SuccessfulResult{Value: value, Fixups: fixups}).response(req.ID)
}

// mergeFlatResponse assembles the flat-mode response shape: {"id":...,
// "result":"_n", "_1":{...}, "_2":{...}}.
func mergeFlatResponse(id json.RawMessage, flat map[string]interface{}) *ResponseMessage {
	resp := &ResponseMessage{ID: id, Result: flat["result"], Extra: make(map[string]interface{}, len(flat)-1)}
	for k, v := range flat {
		if k == "result" {
			continue
		}
		resp.Extra[k] = v
	}
	return resp
}

// resolveTarget parses the method-key grammar and
// returns the dispatch target: an instance plus its candidate method
// list, or a nil instance with static/constructor candidates.
func (b *Bridge) resolveTarget(ctx context.Context, method string) (instance interface{}, candidates []candidate, isConstructor bool, err *Error) {
	if strings.HasPrefix(method, ".obj[") {
		closeBracket := strings.Index(method, "]")
		if closeBracket < 0 || closeBracket+1 >= len(method) || method[closeBracket+1] != '.' {
			return nil, nil, false, Errorf(CodeNoSuchMethod, "malformed instance method key %q", method)
		}
		idText := method[len(".obj[") : closeBracket]
		id, convErr := strconv.ParseInt(idText, 10, 64)
		if convErr != nil {
			return nil, nil, false, Errorf(CodeNoSuchMethod, "malformed object id in %q", method)
		}
		methodName := method[closeBracket+2:]
		inst, ok := b.registry.ResolveReference(ctx, id)
		if !ok {
			return nil, nil, false, Errorf(CodeNoSuchMethod, "unknown reference object id %d", id)
		}
		if _, callable := b.registry.IsReferenceType(reflect.TypeOf(inst)); !callable {
			return nil, nil, false, Errorf(CodeNoSuchMethod, "reference object id %d is not callable", id)
		}
		return inst, buildInstanceCandidates(inst, reflect.TypeOf(inst), methodName), false, nil
	}

	dot := strings.LastIndex(method, ".")
	if dot < 0 {
		return nil, nil, false, Errorf(CodeNoSuchMethod, "malformed method key %q", method)
	}
	className, methodName := method[:dot], method[dot+1:]

	if obj, ok := b.registry.objectMap.Load(className); ok {
		return obj.instance, buildInstanceCandidates(obj.instance, obj.declared, methodName), false, nil
	}

	if methodName == constructorMethodName {
		b.mu.RLock()
		ctors := append([]candidate(nil), b.constructors[className]...)
		b.mu.RUnlock()
		if len(ctors) == 0 {
			return nil, nil, false, Errorf(CodeNoConstructor, "no constructor registered for %q", className)
		}
		return nil, ctors, true, nil
	}

	b.mu.RLock()
	statics := append([]candidate(nil), b.staticMethods[className][methodName]...)
	b.mu.RUnlock()
	if len(statics) == 0 {
		return nil, nil, false, Errorf(CodeNoSuchMethod, "method %q not found", method)
	}
	return nil, statics, false, nil
}

// buildInstanceCandidates collects the reflected method of methodName on
// instance (if declared makes it visible) plus any extra candidates an
// OverloadProvider contributes under the same name.
func buildInstanceCandidates(instance interface{}, declared reflect.Type, methodName string) []candidate {
	var out []candidate
	v := reflect.ValueOf(instance)
	if m := v.MethodByName(methodName); m.IsValid() && methodVisible(declared, methodName) {
		out = append(out, buildCandidate(m))
	}
	if op, ok := instance.(OverloadProvider); ok {
		for _, fn := range op.BridgeOverloads()[methodName] {
			out = append(out, buildCandidate(reflect.ValueOf(fn)))
		}
	}
	return out
}

func methodVisible(declared reflect.Type, name string) bool {
	if declared == nil {
		return true
	}
	if declared.Kind() == reflect.Interface {
		_, ok := declared.MethodByName(name)
		return ok
	}
	return true
}

// listMethods implements "system.listMethods": a sorted catalogue of
// every dispatchable name, instance methods as "key.method", static as
// "class.method", callable references as ";ref[classFQN].method".
func (b *Bridge) listMethods(id json.RawMessage) *ResponseMessage {
	var names []string

	b.registry.objectMap.Range(func(key string, obj *exportedObject) bool {
		t := obj.declared
		if t == nil {
			t = reflect.TypeOf(obj.instance)
		}
		for i := 0; i < t.NumMethod(); i++ {
			names = append(names, key+"."+t.Method(i).Name)
		}
		return true
	})

	b.mu.RLock()
	for className, methods := range b.staticMethods {
		for name := range methods {
			names = append(names, className+"."+name)
		}
	}
	for className := range b.constructors {
		names = append(names, className+"."+constructorMethodName)
	}
	b.mu.RUnlock()

	b.registry.callableReferenceSet.Range(func(t reflect.Type, _ struct{}) bool {
		for i := 0; i < t.NumMethod(); i++ {
			names = append(names, ";ref["+t.String()+"]."+t.Method(i).Name)
		}
		return true
	})

	sort.Strings(names)
	return &ResponseMessage{ID: id, Result: names}
}
