// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package bridge

import (
	"bufio"
	"encoding/json"
	"io"
)

// handlerFunc answers one request; a nil result with nil error sends a
// null result, and skip suppresses the reply.
type handlerFunc func(req serverRequest) (result interface{}, rpcErr *Error, skip bool)

type serverRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// serve runs a line-delimited JSON-RPC responder until r is exhausted.
func serve(r io.Reader, w io.Writer, handle handlerFunc) {
	scanner := bufio.NewScanner(r)
	enc := json.NewEncoder(w)
	for scanner.Scan() {
		var req serverRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		result, rpcErr, skip := handle(req)
		if skip || req.ID == nil {
			continue
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}
