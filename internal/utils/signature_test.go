package utils

import (
	"strconv"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	tolerance := 5 * time.Minute

	t.Run("valid signature", func(t *testing.T) {
		header := BuildSignatureHeader(payload, secret, time.Now())
		if !VerifySignature(payload, header, secret, tolerance) {
			t.Error("valid signature rejected")
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := BuildSignatureHeader(payload, secret, time.Now())
		tampered := []byte(`{"id":"evt_1","type":"checkout.session.completed","amount":1}`)
		if VerifySignature(tampered, header, secret, tolerance) {
			t.Error("tampered payload accepted")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := BuildSignatureHeader(payload, "other-secret", time.Now())
		if VerifySignature(payload, header, secret, tolerance) {
			t.Error("signature with wrong secret accepted")
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := BuildSignatureHeader(payload, secret, time.Now().Add(-10*time.Minute))
		if VerifySignature(payload, header, secret, tolerance) {
			t.Error("stale signature accepted")
		}
	})

	t.Run("future timestamp", func(t *testing.T) {
		header := BuildSignatureHeader(payload, secret, time.Now().Add(10*time.Minute))
		if VerifySignature(payload, header, secret, tolerance) {
			t.Error("future signature accepted")
		}
	})

	t.Run("zero tolerance disables age check", func(t *testing.T) {
		header := BuildSignatureHeader(payload, secret, time.Now().Add(-time.Hour))
		if !VerifySignature(payload, header, secret, 0) {
			t.Error("age check must be off with zero tolerance")
		}
	})

	t.Run("malformed headers", func(t *testing.T) {
		headers := []string{
			"",
			"garbage",
			"t=,v1=",
			"t=abc,v1=deadbeef",
			"v1=deadbeef",
			"t=1700000000",
		}
		for _, h := range headers {
			if VerifySignature(payload, h, secret, tolerance) {
				t.Errorf("malformed header %q accepted", h)
			}
		}
	})

	t.Run("header parts in any order", func(t *testing.T) {
		ts := time.Now()
		header := "v1=" + ComputeSignature(payload, secret, ts) + ",t=" + strconv.FormatInt(ts.Unix(), 10)
		if !VerifySignature(payload, header, secret, tolerance) {
			t.Error("reordered header rejected")
		}
	})
}
