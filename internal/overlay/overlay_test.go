package overlay

import (
	"context"
	"encoding/hex"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var advertScope = types.KeyScope{
	Protocol:     types.AdvertisementProtocol,
	KeyID:        "1",
	Counterparty: types.CounterpartyAnyone,
}

// advertise 构建并返回一笔广告交易
func advertise(t *testing.T, w *wallet.Wallet, host string) *types.ActionResult {
	t.Helper()
	ctx := context.Background()
	lockHex, err := w.GetPublicKey(ctx, types.PublicKeyArgs{Scope: advertScope, ForSelf: true})
	require.NoError(t, err)
	lockKey, _ := hex.DecodeString(lockHex)
	identity, _ := hex.DecodeString(w.IdentityKey())

	res, err := w.CreateAction(ctx, types.CreateActionArgs{
		Outputs: []types.ActionOutput{{
			Satoshis:      1,
			LockingScript: ledger.PushDropLock(lockKey, [][]byte{identity, []byte(host)}),
		}},
	})
	require.NoError(t, err)
	return res
}

func spend(t *testing.T, w *wallet.Wallet, op types.Outpoint, signer *wallet.Wallet) []byte {
	t.Helper()
	ctx := context.Background()
	sig, err := signer.CreateSignature(ctx, advertScope, ledger.SpendPreimage(op))
	require.NoError(t, err)
	res, err := w.CreateAction(ctx, types.CreateActionArgs{
		Inputs: []types.ActionInput{{Outpoint: op, UnlockingScript: ledger.PushDropUnlock(sig)}},
	})
	require.NoError(t, err)
	return res.Tx
}

func lookup(t *testing.T, l *Ledger, q types.AdvertisementQuery) []types.LookupOutput {
	t.Helper()
	answer, err := l.Lookup(context.Background(), types.LookupQuestion{Service: types.LookupServiceMessageBox, Query: q})
	require.NoError(t, err)
	assert.Equal(t, types.AnswerOutputList, answer.Type)
	return answer.Outputs
}

func TestLedger_AdvertiseAndLookup(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	alice, err := wallet.Generate()
	require.NoError(t, err)
	bob, err := wallet.Generate()
	require.NoError(t, err)

	a1 := advertise(t, alice, "https://a.example")
	a2 := advertise(t, alice, "https://b.example")
	b1 := advertise(t, bob, "https://a.example")
	for _, res := range []*types.ActionResult{a1, a2, b1} {
		out, err := l.Broadcast(ctx, res.Tx, []string{types.TopicMessageBox})
		require.NoError(t, err)
		assert.Equal(t, res.Txid, out.Txid)
	}
	assert.Equal(t, 3, l.Unspent())

	outputs := lookup(t, l, types.AdvertisementQuery{IdentityKey: alice.IdentityKey()})
	require.Len(t, outputs, 2)
	assert.Equal(t, a1.Tx, outputs[0].Beef)

	outputs = lookup(t, l, types.AdvertisementQuery{IdentityKey: alice.IdentityKey(), Host: "https://b.example"})
	require.Len(t, outputs, 1)
	assert.Equal(t, a2.Tx, outputs[0].Beef)

	outputs = lookup(t, l, types.AdvertisementQuery{Host: "https://a.example"})
	assert.Len(t, outputs, 2)
}

func TestLedger_SpendRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	alice, err := wallet.Generate()
	require.NoError(t, err)
	mallory, err := wallet.Generate()
	require.NoError(t, err)

	ad := advertise(t, alice, "https://a.example")
	_, err = l.Broadcast(ctx, ad.Tx, []string{types.TopicMessageBox})
	require.NoError(t, err)
	op := types.Outpoint{Txid: ad.Txid, Index: 0}

	_, err = l.Broadcast(ctx, spend(t, mallory, op, mallory), []string{types.TopicMessageBox})
	assert.ErrorIs(t, err, ErrUnauthorizedSpend)
	assert.Len(t, lookup(t, l, types.AdvertisementQuery{IdentityKey: alice.IdentityKey()}), 1)

	_, err = l.Broadcast(ctx, spend(t, alice, op, alice), []string{types.TopicMessageBox})
	require.NoError(t, err)
	assert.Empty(t, lookup(t, l, types.AdvertisementQuery{IdentityKey: alice.IdentityKey()}))

	_, err = l.Broadcast(ctx, spend(t, alice, op, alice), []string{types.TopicMessageBox})
	assert.ErrorIs(t, err, ErrAlreadySpent)
}

func TestLedger_Rejections(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	alice, err := wallet.Generate()
	require.NoError(t, err)
	ad := advertise(t, alice, "https://a.example")

	_, err = l.Broadcast(ctx, ad.Tx, []string{"tm_other"})
	assert.ErrorIs(t, err, ErrNoTopics)

	_, err = l.Broadcast(ctx, []byte{0x01}, []string{types.TopicMessageBox})
	assert.Error(t, err)

	_, err = l.Lookup(ctx, types.LookupQuestion{Service: "ls_other"})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestClient_OverHTTP(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	srv := httptest.NewServer(NewHandler(l))
	defer srv.Close()
	c := NewClient(srv.URL, srv.Client())

	alice, err := wallet.Generate()
	require.NoError(t, err)
	ad := advertise(t, alice, "wss://live.example")

	result, err := c.Broadcast(ctx, ad.Tx, []string{types.TopicMessageBox})
	require.NoError(t, err)
	assert.Equal(t, ad.Txid, result.Txid)

	answer, err := c.Lookup(ctx, types.LookupQuestion{
		Service: types.LookupServiceMessageBox,
		Query:   types.AdvertisementQuery{IdentityKey: alice.IdentityKey()},
	})
	require.NoError(t, err)
	require.Len(t, answer.Outputs, 1)
	assert.Equal(t, ad.Tx, answer.Outputs[0].Beef)

	_, err = c.Broadcast(ctx, ad.Tx, nil)
	assert.ErrorContains(t, err, ErrNoTopics.Error())
}

func TestParseTopics(t *testing.T) {
	topics, err := parseTopics(`["tm_messagebox","tm_x"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"tm_messagebox", "tm_x"}, topics)

	topics, err = parseTopics("tm_messagebox, tm_x")
	require.NoError(t, err)
	assert.Equal(t, []string{"tm_messagebox", "tm_x"}, topics)
}
