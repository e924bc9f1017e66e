package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "kari@example.no", NormalizeEmail("  Kari@Example.NO "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestDiscountCodeUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	five := 5

	tests := []struct {
		name string
		code DiscountCode
		want bool
	}{
		{"active no constraints", DiscountCode{Active: true}, true},
		{"inactive", DiscountCode{Active: false}, false},
		{"inside window", DiscountCode{Active: true, ValidFrom: &past, ValidUntil: &future}, true},
		{"not started", DiscountCode{Active: true, ValidFrom: &future}, false},
		{"expired", DiscountCode{Active: true, ValidUntil: &past}, false},
		{"under cap", DiscountCode{Active: true, MaxUses: &five, UsedCount: 4}, true},
		{"at cap", DiscountCode{Active: true, MaxUses: &five, UsedCount: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Usable(now))
		})
	}
}

func TestDiscountCents(t *testing.T) {
	pct := DiscountCode{Type: DiscountPercentage, Amount: 10}
	assert.Equal(t, 100, pct.DiscountCents(1000))
	assert.Equal(t, 45, pct.DiscountCents(450))

	fixed := DiscountCode{Type: DiscountFixed, Amount: 200}
	assert.Equal(t, 200, fixed.DiscountCents(1000))

	// never discounts below zero total
	assert.Equal(t, 150, fixed.DiscountCents(150))

	full := DiscountCode{Type: DiscountPercentage, Amount: 100}
	assert.Equal(t, 1000, full.DiscountCents(1000))
}

func TestCourseFree(t *testing.T) {
	assert.True(t, (&CourseInstance{PriceCents: 0}).Free())
	assert.False(t, (&CourseInstance{PriceCents: 45000}).Free())
}
