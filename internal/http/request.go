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

	"finjoy/internal/core"
)

// maxBodyBytes bounds request bodies. Import uploads are the largest
// legitimate payload and a year of daily transactions fits comfortably.
const maxBodyBytes = 4 << 20

// decodeJSON reads the request body into dst, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// pathID extracts the {id} path value as a positive int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseRange reads the from/to query parameters. Either side may be
// omitted; the default window is the current calendar month.
func parseRange(r *http.Request) (from, to core.Date, err error) {
	now := time.Now()
	from = core.NewDate(now.Year(), int(now.Month()), 1)
	to = core.DateOf(now)

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		from, err = core.ParseDate(v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'from' date %q: expected YYYY-MM-DD", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		to, err = core.ParseDate(v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'to' date %q: expected YYYY-MM-DD", v)
		}
	}
	if to.Time.Before(from.Time) {
		return from, to, errors.New("'to' date precedes 'from' date")
	}
	return from, to, nil
}

// parseLimit reads the limit query parameter, returning def when absent.
func parseLimit(r *http.Request, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 || limit > 1000 {
		return 0, fmt.Errorf("invalid limit %q: must be 1..1000", v)
	}
	return limit, nil
}

// sanitizeText trims whitespace and strips control characters from
// user-supplied free text.
func sanitizeText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
