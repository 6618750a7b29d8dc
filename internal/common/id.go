package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a unique run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// UniqueValue generates a collision-free test-data value from a per-call
// timestamp plus a random suffix. The target backend is shared mutable state
// across parallel runs; hardcoded constants collide there, unique values do
// not.
func UniqueValue(prefix string) string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// UniqueEmail generates a unique email address for test data
func UniqueEmail(domain string) string {
	if domain == "" {
		domain = "example.com"
	}
	return fmt.Sprintf("%s@%s", UniqueValue("verity"), domain)
}

// UniquePhone generates a unique local phone-like number for test data.
// Digits only, seeded from the timestamp so repeated calls never collide
// within a run.
func UniquePhone() string {
	now := time.Now().UnixNano()
	return fmt.Sprintf("05%08d", now%100000000)
}
