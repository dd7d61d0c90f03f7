package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.ErrEmptyQuery))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(fmt.Errorf("generating answer: %w", domain.ErrTimeout)))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(fmt.Errorf("querying index: %w", domain.ErrServiceUnavailable)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
