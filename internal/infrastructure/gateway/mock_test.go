package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMockAuthorizer(t *testing.T) {
	m := NewMockAuthorizer()
	ref, captured, err := m.Authorize(context.Background(), "esewa", decimal.NewFromInt(250), "o1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !captured || !strings.HasPrefix(ref, "mock-") {
		t.Fatalf("unexpected ref=%s captured=%v", ref, captured)
	}
	_, captured, err = m.Authorize(context.Background(), "COD", decimal.NewFromInt(250), "o2")
	if err != nil || captured {
		t.Fatalf("cod should be authorised without capture, captured=%v err=%v", captured, err)
	}
}

func TestMockAuthorizerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewMockAuthorizer().Authorize(ctx, "esewa", decimal.NewFromInt(1), "o3"); err == nil {
		t.Fatalf("expected context error")
	}
}
