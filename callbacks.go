// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import "context"

// InvocationCallback observes every dispatched call. A Bridge may register any number of these;
// they run in registration order.
type InvocationCallback interface {
	// PreInvoke runs after arguments are unmarshalled but before the
	// target method is called. Returning an error aborts the call before
	// invocation.
	PreInvoke(ctx context.Context, instance interface{}, method string, args []interface{}) error

	// PostInvoke runs after the target method returns, whether it
	// succeeded or failed (failure is non-nil on error). Its own errors
	// are logged and swallowed, never surfaced to the caller.
	PostInvoke(ctx context.Context, instance interface{}, method string, result interface{}, failure error) error
}

// ErrorCallback observes a call that failed anywhere in the pipeline.
// Its errors are always swallowed.
type ErrorCallback interface {
	OnError(ctx context.Context, instance interface{}, method string, failure error)
}

// callbackSet holds a bridge's registered callbacks.
type callbackSet struct {
	invocation []InvocationCallback
	errors     []ErrorCallback
}

func (c *callbackSet) preInvoke(ctx context.Context, instance interface{}, method string, args []interface{}) error {
	for _, cb := range c.invocation {
		if err := cb.PreInvoke(ctx, instance, method, args); err != nil {
			return err
		}
	}
	return nil
}

func (c *callbackSet) postInvoke(ctx context.Context, instance interface{}, method string, result interface{}, failure error, log func(error)) {
	for _, cb := range c.invocation {
		if err := cb.PostInvoke(ctx, instance, method, result, failure); err != nil && log != nil {
			log(err)
		}
	}
}

func (c *callbackSet) onError(ctx context.Context, instance interface{}, method string, failure error) {
	for _, cb := range c.errors {
		func() {
			defer func() { recover() }()
			cb.OnError(ctx, instance, method, failure)
		}()
	}
}
