package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncEnvelopeCountsPerOutcome(t *testing.T) {
	errored := envelopesTotal.WithLabelValues("offer", OutcomeError)
	malformed := envelopesTotal.WithLabelValues("offer", OutcomeMalformed)
	beforeErr, beforeMal := testutil.ToFloat64(errored), testutil.ToFloat64(malformed)

	IncEnvelope("offer", OutcomeError)

	assert.Equal(t, beforeErr+1, testutil.ToFloat64(errored))
	assert.Equal(t, beforeMal, testutil.ToFloat64(malformed))
}
