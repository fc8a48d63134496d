package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Формат заголовка подписи вебхука: "t=<unix>,v1=<hex hmac-sha256>".
// Подписывается строка "<unix>.<payload>" общим секретом.

// ComputeSignature возвращает hex-подпись payload для заданного времени.
func ComputeSignature(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildSignatureHeader собирает заголовок подписи целиком.
func BuildSignatureHeader(payload []byte, secret string, ts time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), ComputeSignature(payload, secret, ts))
}

// VerifySignature проверяет подпись вебхука. Метка времени из заголовка
// не должна отставать от текущего времени больше, чем на tolerance.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) bool {
	ts, signature, ok := parseSignatureHeader(header)
	if !ok {
		return false
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	expected := ComputeSignature(payload, secret, time.Unix(ts, 0))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// parseSignatureHeader извлекает метку времени и подпись из заголовка.
func parseSignatureHeader(header string) (int64, string, bool) {
	var tsRaw, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			tsRaw = kv[1]
		case "v1":
			signature = kv[1]
		}
	}

	if tsRaw == "" || signature == "" {
		return 0, "", false
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return 0, "", false
	}

	return ts, signature, true
}
