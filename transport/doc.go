// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package transport carries JSON-RPC request/response messages between a
// network connection and a bridge.Bridge.
//
// It owns message framing (raw or Content-Length headers), listener/dialer
// plumbing, and the connection loop that pairs outbound calls with their
// responses. It does not know anything about method dispatch, overload
// resolution, or serialization of arbitrary values — those are the
// bridge package's job. A transport.Conn is handed a bridge.Bridge (or
// anything satisfying the Handler contract) and simply shuttles bytes.
package transport
