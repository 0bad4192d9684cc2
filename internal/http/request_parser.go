// Package http provides the JSON API server and its handlers.
//
// This file implements helpers for decoding request bodies and path and
// query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON document from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed request body: %v", core.ErrInvalidArgument, err)
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrNotFound, raw)
	}
	return id, nil
}

// requireOwner checks that a client-supplied userId names the caller. An
// empty userId means the caller.
func requireOwner(r *http.Request, userID string) (string, error) {
	subject := auth.Subject(r.Context())
	if subject == "" {
		return "", fmt.Errorf("%w: missing token subject", core.ErrUnauthorized)
	}
	userID = strings.TrimSpace(userID)
	if userID != "" && userID != subject {
		return "", fmt.Errorf("%w: userId does not match the authenticated user", core.ErrForbidden)
	}
	return subject, nil
}

// Timestamp accepts RFC 3339 and zone-less timestamps in JSON bodies.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", core.ErrInvalidArgument)
	}
	parsed, err := core.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// timePtr returns nil for an absent timestamp.
func timePtr(t *Timestamp) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
