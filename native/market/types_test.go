package market

import (
	"errors"
	"math/big"
	"testing"
)

func TestSanitizePriceItemRejectsZeroValue(t *testing.T) {
	item := &PriceItem{ID: newTestRecord(0x01), Deadline: 10, Value: big.NewInt(0)}
	if _, err := SanitizePriceItem(item); err == nil {
		t.Fatalf("zero-value price item must be rejected")
	}
	item.Value = big.NewInt(5)
	sanitized, err := SanitizePriceItem(item)
	if err != nil {
		t.Fatalf("sanitize failed: %v", err)
	}
	sanitized.Value.SetInt64(99)
	if item.Value.Int64() != 5 {
		t.Fatalf("sanitize must not alias the original value")
	}
}

func TestPriceItemCloneIndependence(t *testing.T) {
	item := &PriceItem{ID: newTestRecord(0x01), Deadline: 10, Value: big.NewInt(7)}
	clone := item.Clone()
	clone.Value.SetInt64(100)
	clone.Deadline = 99
	if item.Value.Int64() != 7 || item.Deadline != 10 {
		t.Fatalf("clone mutation leaked into original")
	}
}

func TestSettingsValidate(t *testing.T) {
	s := &Settings{BillingPeriod: 1, ClosingPeriod: 2, SecurePeriod: 3, DeadlinePeriod: 4}
	if err := s.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
	s.SecurePeriod = -1
	if err := s.Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
