package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNotConfigured means no provider credential is present; callers skip the network call.
var ErrNotConfigured = errors.New("ai provider not configured")

// ErrEmptyCompletion is returned when the provider answered without any usable content.
var ErrEmptyCompletion = errors.New("ai returned empty completion")
