package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizeSenderIdempotent(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	inputs := []string{" hdfc-bank ", "VM-PROMO", "My  Store", "+91 98765 43210"}
	for _, in := range inputs {
		once := tp.NormalizeSender(in)
		assert.Equal(t, once, tp.NormalizeSender(once), in)
	}

	assert.Equal(t, "HDFC-BANK", tp.NormalizeSender(" hdfc-bank "))
	assert.Equal(t, "MY STORE", tp.NormalizeSender("My  Store"))
}

func TestFingerprintStability(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	a := tp.Fingerprint("HDFC-BANK", "Your OTP is 123456")
	b := tp.Fingerprint(" hdfc-bank ", "your  otp is 123456")
	assert.Equal(t, a, b)

	c := tp.Fingerprint("HDFC-BANK", "Your OTP is 654321")
	assert.NotEqual(t, a, c)

	d := tp.Fingerprint("OTHER", "Your OTP is 123456")
	assert.NotEqual(t, a, d)
}
