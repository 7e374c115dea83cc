package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conceptrag/conceptrag/internal/config"
)

func TestBuildEnvelopeWiresOnlyEnabledStages(t *testing.T) {
	cfg := config.EnvelopeConfig{
		Timeout:          time.Second,
		BreakerEnabled:   true,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Second,
		ResetWindow:      time.Second,
		BulkheadEnabled:  false,
		RetryEnabled:     false,
	}
	env := buildEnvelope("test-envelope", cfg, nil)
	require.NotNil(t, env)
}

func TestBuildEnvelopeWithEverythingDisabledIsPassThrough(t *testing.T) {
	env := buildEnvelope("noop-envelope", config.EnvelopeConfig{}, nil)
	require.NotNil(t, env)
}
