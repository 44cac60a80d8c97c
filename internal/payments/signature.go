package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance is the maximum age of a signed webhook.
const DefaultSignatureTolerance = 5 * time.Minute

// AuthenticityError reports a webhook whose signature could not be verified.
type AuthenticityError struct {
	Reason string
}

func (e *AuthenticityError) Error() string {
	return "payments: webhook signature invalid: " + e.Reason
}

// VerifySignature checks a Stripe-Signature header of the form
// t=<timestamp>,v1=<signature>[,v1=...]. The signature is HMAC-SHA256 of
// "<timestamp>.<payload>" keyed with the endpoint secret.
func VerifySignature(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return &AuthenticityError{Reason: "webhook secret not configured"}
	}
	if header == "" {
		return &AuthenticityError{Reason: "missing signature header"}
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return &AuthenticityError{Reason: "malformed signature header"}
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return &AuthenticityError{Reason: "invalid timestamp"}
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}
	if age := now.Sub(time.Unix(ts, 0)); age > tolerance || age < -tolerance {
		return &AuthenticityError{Reason: fmt.Sprintf("timestamp outside tolerance (%s)", tolerance)}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return &AuthenticityError{Reason: "no matching signature"}
}
