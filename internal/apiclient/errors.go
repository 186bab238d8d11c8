// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package apiclient

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an unusable endpoint URL. It is raised on the
// first request, not when the client is constructed.
type ConfigurationError struct {
	URL    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: %s", e.URL, e.Reason)
}

// TransportError reports a failure to reach the node or read its reply.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is an error reported by the node in its JSON error body.
type APIError struct {
	Path       string       `json:"-"`
	StatusCode int          `json:"-"`
	Code       int          `json:"code"`
	Message    string       `json:"message"`
	Info       APIErrorInfo `json:"error"`
}

// APIErrorInfo is the "error" object of a node error reply.
type APIErrorInfo struct {
	Code    int              `json:"code"`
	Name    string           `json:"name"`
	What    string           `json:"what"`
	Details []APIErrorDetail `json:"details"`
}

// APIErrorDetail is one entry of a node error's details list.
type APIErrorDetail struct {
	Message    string `json:"message"`
	File       string `json:"file"`
	LineNumber int    `json:"line_number"`
	Method     string `json:"method"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: node returned %d", e.Path, e.StatusCode)
	if e.Info.Name != "" {
		fmt.Fprintf(&b, " %s", e.Info.Name)
	}
	if e.Info.What != "" {
		fmt.Fprintf(&b, ": %s", e.Info.What)
	} else if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Info.Details) > 0 && e.Info.Details[0].Message != "" {
		fmt.Fprintf(&b, " (%s)", e.Info.Details[0].Message)
	}
	return b.String()
}
