package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashOnDelivery is authorised at checkout but only collected on the doorstep.
const CashOnDelivery = "cod"

// MockAuthorizer approves every external payment. References look like "mock-<uuid>".
type MockAuthorizer struct {
	// Deferred lists methods that are authorised without capturing funds.
	Deferred []string
}

func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{Deferred: []string{CashOnDelivery}}
}

func (m *MockAuthorizer) Authorize(ctx context.Context, method string, amount decimal.Decimal, orderID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	method = strings.ToLower(strings.TrimSpace(method))
	ref := "mock-" + uuid.NewString()
	for _, d := range m.Deferred {
		if d == method {
			return ref, false, nil
		}
	}
	return ref, true, nil
}
