package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const signatureMaxSkew = 5 * time.Minute

// VerifySignature checks the v0 request signature Slack attaches to
// webhook deliveries. Requests with a timestamp more than five minutes
// off the clock are rejected to limit replay.
func VerifySignature(signingSecret, timestamp, signature string, rawBody []byte) bool {
	if timestamp == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > signatureMaxSkew {
		return false
	}

	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(rawBody)
	computed := "v0=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(signature))
}
