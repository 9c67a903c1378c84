package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedSignature = errors.New("malformed x-signature header")
	ErrInvalidSignature   = errors.New("webhook signature mismatch")
)

// ParseSignatureHeader splits an x-signature header of the form
// "ts=<unix-ts>,v1=<hex-hmac>" into its two parts.
func ParseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, element := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(element), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return "", "", ErrMalformedSignature
	}

	return ts, v1, nil
}

// VerifySignature checks a webhook notification against the shared
// secret. The manifest is the gateway's canonical string
//
//	id:<dataID>;request-id:<requestID>;ts:<ts>;
//
// signed with HMAC-SHA256. Comparison is constant-time. Any mismatch
// fails closed.
func VerifySignature(header, requestID, dataID, secret string) error {
	ts, v1, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	received, err := hex.DecodeString(v1)
	if err != nil {
		return ErrMalformedSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))

	if !hmac.Equal(mac.Sum(nil), received) {
		return ErrInvalidSignature
	}

	return nil
}
