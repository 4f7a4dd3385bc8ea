package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	errBadNumber = errors.New("handlers: invalid number")
	errBadForm   = errors.New("handlers: malformed form")
)

// intValue parses a form or query value. Empty yields def.
func intValue(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadNumber, raw)
	}
	return v, nil
}

func formInt(r *http.Request, key string, def int) (int, error) {
	return intValue(r.FormValue(key), def)
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := intValue(r.URL.Query().Get(key), def)
	if err != nil {
		return def
	}
	return v
}
