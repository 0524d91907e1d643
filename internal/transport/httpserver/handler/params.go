package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/internal/transport/httpserver/middleware"
)

const maxRequestKeyLength = 128

func actorFrom(r *http.Request) (*actor.Actor, bool) {
	return middleware.ActorFromContext(r.Context())
}

func parseBoolParam(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid bool")
	}
	return parsed, nil
}

// requestKey prefers the Idempotency-Key header over a body field.
func requestKey(r *http.Request, body string) (string, error) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(body)
	}
	if len(key) > maxRequestKeyLength {
		return "", fmt.Errorf("idempotency key is too long")
	}
	return key, nil
}
