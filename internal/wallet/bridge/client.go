// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aplane-algo/minter/internal/util"
)

// ErrClosed is returned for calls pending or started after Close.
var ErrClosed = errors.New("bridge connection closed")

// Client handles JSON-RPC communication with one bridge
type Client struct {
	writer  io.Writer
	scanner *bufio.Scanner

	requestID uint64

	mu      sync.Mutex
	writeMu sync.Mutex
	pending map[uint64]chan *Response
	closed  bool
	readErr error
}

// NewClient creates a client reading responses from r and writing
// requests to w. Call Start to begin reading.
func NewClient(r io.Reader, w io.Writer) *Client {
	scanner := bufio.NewScanner(r)
	// Signed transactions with many actions exceed the 64KB default.
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	return &Client{
		writer:  w,
		scanner: scanner,
		pending: make(map[uint64]chan *Response),
	}
}

// Call makes a JSON-RPC call and waits for the response or ctx.
// A JSON-RPC error reply is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := atomic.AddUint64(&c.requestID, 1)
	respChan := make(chan *Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = respChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(NewRequest(method, params, id)); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	util.Debug("bridge request", "method", method, "id", id)

	select {
	case resp, ok := <-respChan:
		if !ok {
			if err := c.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrClosed, err)
			}
			return ErrClosed
		}
		if resp.HasError() {
			return resp.Error
		}
		if result != nil && resp.Result != nil {
			return resp.ParseResult(result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) send(request *Request) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// Start begins reading responses from the bridge
func (c *Client) Start() {
	go c.readLoop()
}

func (c *Client) readLoop() {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var response Response
		if err := json.Unmarshal(line, &response); err != nil {
			util.Debug("discarding malformed bridge output", "error", err)
			continue
		}

		// encoding/json decodes numeric ids as float64
		var id uint64
		switch v := response.ID.(type) {
		case float64:
			id = uint64(v)
		default:
			continue
		}

		c.mu.Lock()
		if respChan, ok := c.pending[id]; ok {
			select {
			case respChan <- &response:
			default:
			}
		}
		c.mu.Unlock()
	}

	err := c.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	c.fail(err)
}

// fail records err and releases every waiting caller.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Closed reports whether the read loop has ended or Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases pending calls. It does not close the underlying streams.
func (c *Client) Close() {
	c.fail(nil)
}
