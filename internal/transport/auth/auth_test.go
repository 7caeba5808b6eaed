package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/wallet"
)

func setup(t *testing.T) (*Signer, *Verifier, *wallet.Wallet, *clock.Mock) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	return NewSigner(w, clk), NewVerifier(wallet.NewAnyone(), clk, 10*time.Second), w, clk
}

func TestSignVerify(t *testing.T) {
	ctx := context.Background()
	signer, verifier, w, _ := setup(t)

	creds, err := signer.Sign(ctx, []byte(`{"messageBox":"inbox"}`))
	require.NoError(t, err)
	assert.Equal(t, w.IdentityKey(), creds.IdentityKey)
	assert.Len(t, creds.Nonce, 2*nonceSize)

	h := http.Header{}
	creds.Apply(h)
	parsed, err := FromHeader(h)
	require.NoError(t, err)
	assert.Equal(t, creds, parsed)

	identity, err := verifier.Verify(ctx, parsed, []byte(`{"messageBox":"inbox"}`))
	require.NoError(t, err)
	assert.Equal(t, w.IdentityKey(), identity)
}

func TestVerify_Rejections(t *testing.T) {
	ctx := context.Background()
	signer, verifier, _, clk := setup(t)
	body := []byte("body")

	creds, err := signer.Sign(ctx, body)
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, creds, []byte("other body"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = verifier.Verify(ctx, creds, body)
	require.NoError(t, err)
	_, err = verifier.Verify(ctx, creds, body)
	assert.ErrorIs(t, err, ErrReplayedNonce)

	stale, err := signer.Sign(ctx, body)
	require.NoError(t, err)
	clk.Add(time.Minute)
	_, err = verifier.Verify(ctx, stale, body)
	assert.ErrorIs(t, err, ErrStaleTimestamp)

	_, err = verifier.Verify(ctx, &Credentials{}, body)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestVerify_ForgedIdentity(t *testing.T) {
	ctx := context.Background()
	signer, verifier, _, _ := setup(t)
	other, err := wallet.Generate()
	require.NoError(t, err)

	creds, err := signer.Sign(ctx, nil)
	require.NoError(t, err)
	creds.IdentityKey = other.IdentityKey()

	_, err = verifier.Verify(ctx, creds, nil)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestFromHeader_Missing(t *testing.T) {
	_, err := FromHeader(http.Header{})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	h := http.Header{}
	(&Credentials{IdentityKey: "k", Nonce: "n", Signature: "s"}).Apply(h)
	h.Set(HeaderTimestamp, "soon")
	_, err = FromHeader(h)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
