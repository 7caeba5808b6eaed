package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/types"
)

func newRegistry(t *testing.T, opts ...Option) (*Registry, *wallet.Wallet, *overlay.Ledger) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	l := overlay.NewLedger()
	opts = append([]Option{WithDefaultHost("https://default.example")}, opts...)
	return New(w, l, l, opts...), w, l
}

func TestAnoint_NotIdempotent(t *testing.T) {
	ctx := context.Background()
	r, w, _ := newRegistry(t)

	first, err := r.Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	second, err := r.Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	tokens := r.Query(ctx, w.IdentityKey(), "https://h.example")
	require.Len(t, tokens, 2)
	assert.Equal(t, first, tokens[0].Txid)
	assert.Equal(t, second, tokens[1].Txid)
	for _, tok := range tokens {
		assert.Equal(t, w.IdentityKey(), tok.IdentityKey)
		assert.Equal(t, "https://h.example", tok.Host)
	}
}

func TestAnoint_InvalidHost(t *testing.T) {
	r, _, l := newRegistry(t)
	for _, host := range []string{"", "not a url", "ftp://h.example", "https://"} {
		_, err := r.Anoint(context.Background(), host)
		assert.ErrorIs(t, err, ErrInvalidHost, host)
	}
	assert.Zero(t, l.Unspent())
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	r, w, _ := newRegistry(t)

	_, err := r.Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	_, err = r.Anoint(ctx, "https://other.example")
	require.NoError(t, err)

	tokens := r.Query(ctx, w.IdentityKey(), "")
	require.Len(t, tokens, 2)

	_, err = r.Revoke(ctx, tokens[0])
	require.NoError(t, err)

	remaining := r.Query(ctx, w.IdentityKey(), "")
	require.Len(t, remaining, 1)
	assert.Equal(t, "https://other.example", remaining[0].Host)

	// 重复撤销失败，剩余 token 不受影响
	_, err = r.Revoke(ctx, tokens[0])
	assert.ErrorIs(t, err, ErrBroadcast)
	assert.Len(t, r.Query(ctx, w.IdentityKey(), ""), 1)

	_, err = r.Revoke(ctx, nil)
	assert.ErrorIs(t, err, ErrNilToken)
}

func TestRevoke_ForeignTokenRejected(t *testing.T) {
	ctx := context.Background()
	l := overlay.NewLedger()
	alice, err := wallet.Generate()
	require.NoError(t, err)
	mallory, err := wallet.Generate()
	require.NoError(t, err)
	ra := New(alice, l, l)
	rm := New(mallory, l, l)

	_, err = ra.Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	tokens := rm.Query(ctx, alice.IdentityKey(), "")
	require.Len(t, tokens, 1)

	_, err = rm.Revoke(ctx, tokens[0])
	assert.ErrorIs(t, err, ErrBroadcast)
	assert.Len(t, ra.Query(ctx, alice.IdentityKey(), ""), 1)
}

func TestResolveHost(t *testing.T) {
	ctx := context.Background()
	r, w, _ := newRegistry(t)

	assert.Equal(t, "https://default.example", r.ResolveHost(ctx, w.IdentityKey()))

	_, err := r.Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	assert.Equal(t, "https://h.example", r.ResolveHost(ctx, w.IdentityKey()))

	tokens := r.Query(ctx, w.IdentityKey(), "")
	require.Len(t, tokens, 1)
	_, err = r.Revoke(ctx, tokens[0])
	require.NoError(t, err)
	assert.Equal(t, "https://default.example", r.ResolveHost(ctx, w.IdentityKey()))
}

// stubResolver 返回固定应答
type stubResolver struct {
	answer *types.LookupAnswer
	err    error
	calls  int
}

func (s *stubResolver) Lookup(context.Context, types.LookupQuestion) (*types.LookupAnswer, error) {
	s.calls++
	return s.answer, s.err
}

func TestQuery_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	w, err := wallet.Generate()
	require.NoError(t, err)
	l := overlay.NewLedger()
	_, err = New(w, l, l).Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	good, err := l.Lookup(ctx, types.LookupQuestion{Service: types.LookupServiceMessageBox})
	require.NoError(t, err)
	require.Len(t, good.Outputs, 1)

	stub := &stubResolver{answer: &types.LookupAnswer{
		Type: types.AnswerOutputList,
		Outputs: []types.LookupOutput{
			{Beef: []byte{0xde, 0xad}},
			good.Outputs[0],
			{Beef: good.Outputs[0].Beef, OutputIndex: 7},
		},
	}}
	tokens := New(w, stub, l).Query(ctx, w.IdentityKey(), "")
	require.Len(t, tokens, 1)
	assert.Equal(t, "https://h.example", tokens[0].Host)
}

func TestQuery_FailureIsEmpty(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)
	stub := &stubResolver{err: errors.New("overlay down")}
	r := New(w, stub, overlay.NewLedger(), WithDefaultHost("https://default.example"))

	assert.Empty(t, r.Query(context.Background(), w.IdentityKey(), ""))
	assert.Equal(t, "https://default.example", r.ResolveHost(context.Background(), w.IdentityKey()))
}

func TestResolveHost_Cached(t *testing.T) {
	ctx := context.Background()
	w, err := wallet.Generate()
	require.NoError(t, err)
	l := overlay.NewLedger()
	_, err = New(w, l, l).Anoint(ctx, "https://h.example")
	require.NoError(t, err)
	answer, err := l.Lookup(ctx, types.LookupQuestion{Service: types.LookupServiceMessageBox})
	require.NoError(t, err)

	stub := &stubResolver{answer: answer}
	r := New(w, stub, l, WithCache(time.Minute, 8))
	assert.Equal(t, "https://h.example", r.ResolveHost(ctx, w.IdentityKey()))
	assert.Equal(t, "https://h.example", r.ResolveHost(ctx, w.IdentityKey()))
	assert.Equal(t, 1, stub.calls)
}

func TestValidateHost(t *testing.T) {
	for _, host := range []string{"http://a.example", "https://a.example:8443", "ws://127.0.0.1:1", "wss://a.example/ws"} {
		assert.NoError(t, ValidateHost(host), host)
	}
}
