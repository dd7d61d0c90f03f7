package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestChatRequestsCounter(t *testing.T) {
	before := testutil.ToFloat64(ChatRequests.WithLabelValues("http", "ok"))
	ChatRequests.WithLabelValues("http", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ChatRequests.WithLabelValues("http", "ok")))
}
