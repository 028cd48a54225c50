package dingtalk

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	timestampMS := int64(1700000000000)

	first := signature("s3cret", timestampMS)
	assert.Equal(t, first, signature("s3cret", timestampMS))

	// Secret and timestamp both feed the MAC
	assert.NotEqual(t, first, signature("other", timestampMS))
	assert.NotEqual(t, first, signature("s3cret", timestampMS+1))

	// Raw form is standard base64 over a 32-byte digest
	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestSignIsEscapedSignature(t *testing.T) {
	timestampMS := int64(1700000000000)

	unescaped, err := url.QueryUnescape(Sign("s3cret", timestampMS))
	require.NoError(t, err)
	assert.Equal(t, signature("s3cret", timestampMS), unescaped)
}

func TestVerifyInbound(t *testing.T) {
	secret := "app-s3cret"
	timestampMS := time.Now().UnixMilli()
	header := strconv.FormatInt(timestampMS, 10)

	assert.NoError(t, VerifyInbound(secret, header, signature(secret, timestampMS)))

	// Wrong signature
	err := VerifyInbound(secret, header, signature("other", timestampMS))
	assert.True(t, errors.Is(err, ErrBadSignature))

	// Tampered body of a valid signature
	err = VerifyInbound(secret, header, "not-a-signature")
	assert.True(t, errors.Is(err, ErrBadSignature))
}

func TestVerifyInboundSkew(t *testing.T) {
	secret := "app-s3cret"

	stale := time.Now().Add(-2 * time.Hour).UnixMilli()
	err := VerifyInbound(secret, strconv.FormatInt(stale, 10), signature(secret, stale))
	assert.True(t, errors.Is(err, ErrStaleTimestamp))

	future := time.Now().Add(2 * time.Hour).UnixMilli()
	err = VerifyInbound(secret, strconv.FormatInt(future, 10), signature(secret, future))
	assert.True(t, errors.Is(err, ErrStaleTimestamp))

	// Inside the window both ways
	recent := time.Now().Add(-30 * time.Minute).UnixMilli()
	assert.NoError(t, VerifyInbound(secret, strconv.FormatInt(recent, 10), signature(secret, recent)))
}

func TestVerifyInboundBadTimestamp(t *testing.T) {
	err := VerifyInbound("app-s3cret", "not-a-number", "whatever")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrBadSignature))
}
