package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func TestSigner_SignAndVerify(t *testing.T) {
	s := Signer{Secret: "current"}
	payload := []byte(`{"event":"outbreak_alert"}`)

	header, err := s.Sign(payload, signNow)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(header, "t=1718010000,v1="))
	assert.NotContains(t, header, "v1_old")

	assert.True(t, Verify(payload, header, signNow, time.Minute, "current"))
	assert.False(t, Verify(payload, header, signNow, time.Minute, "other"))
	assert.False(t, Verify([]byte(`{}`), header, signNow, time.Minute, "current"))
}

func TestSigner_EmptySecret(t *testing.T) {
	_, err := Signer{}.Sign([]byte("x"), signNow)
	assert.Error(t, err)
}

func TestSigner_Rotation(t *testing.T) {
	payload := []byte("body")
	s := Signer{Secret: "new", PreviousSecret: "old", PreviousExpiresAt: signNow.Add(time.Hour)}

	header, err := s.Sign(payload, signNow)
	require.NoError(t, err)
	assert.Contains(t, header, ",v1_old=")
	assert.True(t, Verify(payload, header, signNow, 0, "old"), "receivers still on the old secret accept it")
	assert.True(t, Verify(payload, header, signNow, 0, "new"))

	expired, err := s.Sign(payload, signNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, expired, "v1_old")
	assert.False(t, Verify(payload, expired, signNow.Add(2*time.Hour), 0, "old"))
}

func TestVerify_Tolerance(t *testing.T) {
	payload := []byte("body")
	header, err := Signer{Secret: "k"}.Sign(payload, signNow)
	require.NoError(t, err)

	assert.True(t, Verify(payload, header, signNow.Add(4*time.Minute), 5*time.Minute, "k"))
	assert.False(t, Verify(payload, header, signNow.Add(6*time.Minute), 5*time.Minute, "k"))
	assert.False(t, Verify(payload, "garbage", signNow, 0, "k"))
	assert.False(t, Verify(payload, "t=abc,v1=00", signNow, time.Minute, "k"))
}
