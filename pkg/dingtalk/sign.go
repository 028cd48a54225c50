package dingtalk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"

	errs "github.com/theapemachine/mnemo/pkg/errors"
)

var (
	ErrBadSignature   = errs.NewError("dingtalk signature mismatch")
	ErrStaleTimestamp = errs.NewError("dingtalk timestamp outside the accepted window")
)

// maxInboundSkew bounds how far an inbound callback's timestamp may drift
// from local time, in either direction.
const maxInboundSkew = time.Hour

// Header names DingTalk sets on outgoing-robot callbacks.
const (
	TimestampHeader = "timestamp"
	SignHeader      = "sign"
)

// signature computes the DingTalk robot signature: HMAC-SHA256 over
// "<timestamp-ms>\n<secret>", keyed with the secret itself, base64 encoded.
func signature(secret string, timestampMS int64) string {
	payload := strconv.FormatInt(timestampMS, 10) + "\n" + secret
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns the URL-encoded signature for an outbound webhook's query
// string.
func Sign(secret string, timestampMS int64) string {
	return url.QueryEscape(signature(secret, timestampMS))
}

// VerifyInbound checks a callback's timestamp and sign headers against the
// app secret. The comparison is constant-time; timestamps older or newer
// than an hour are rejected before any signature math.
func VerifyInbound(secret, timestampHeader, signHeader string) error {
	timestampMS, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return errs.NewError("dingtalk timestamp header", err)
	}

	skew := time.Since(time.UnixMilli(timestampMS))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxInboundSkew {
		return ErrStaleTimestamp
	}

	expected := signature(secret, timestampMS)
	if !hmac.Equal([]byte(expected), []byte(signHeader)) {
		return ErrBadSignature
	}
	return nil
}
