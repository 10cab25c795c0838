package services

import (
	"context"
	"strings"
	"time"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// validDate reports whether value is an ISO calendar date ("2025-03-10").
func validDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
