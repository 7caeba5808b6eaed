package wallet

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var testProtocol = types.ProtocolID{Level: 1, Name: "messagebox"}

func newPair(t *testing.T) (*Wallet, *Wallet) {
	t.Helper()
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	return a, b
}

func TestCreateHMAC_Deterministic(t *testing.T) {
	ctx := context.Background()
	alice, bob := newPair(t)
	scope := types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: bob.IdentityKey()}

	first, err := alice.CreateHMAC(ctx, scope, []byte(`"hello"`))
	require.NoError(t, err)
	second, err := alice.CreateHMAC(ctx, scope, []byte(`"hello"`))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := alice.CreateHMAC(ctx, scope, []byte(`"world"`))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	// 双方在同一作用域下得到相同 HMAC
	mirrored, err := bob.CreateHMAC(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: alice.IdentityKey()}, []byte(`"hello"`))
	require.NoError(t, err)
	assert.Equal(t, first, mirrored)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	ctx := context.Background()
	alice, bob := newPair(t)

	ciphertext, err := alice.Encrypt(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: bob.IdentityKey()}, []byte("secret body"))
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "secret body")

	plaintext, err := bob.Decrypt(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: alice.IdentityKey()}, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret body", string(plaintext))
}

func TestEncryptDecrypt_Self(t *testing.T) {
	ctx := context.Background()
	alice, _ := newPair(t)
	scope := types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: types.CounterpartySelf}

	ciphertext, err := alice.Encrypt(ctx, scope, []byte("note to self"))
	require.NoError(t, err)
	plaintext, err := alice.Decrypt(ctx, scope, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "note to self", string(plaintext))
}

func TestDecrypt_WrongCounterparty(t *testing.T) {
	ctx := context.Background()
	alice, bob := newPair(t)
	eve, err := Generate()
	require.NoError(t, err)

	ciphertext, err := alice.Encrypt(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: bob.IdentityKey()}, []byte("x"))
	require.NoError(t, err)

	_, err = eve.Decrypt(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: alice.IdentityKey()}, ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = bob.Decrypt(ctx, types.KeyScope{Protocol: testProtocol, KeyID: "1", Counterparty: alice.IdentityKey()}, []byte("short"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestInvalidCounterparty(t *testing.T) {
	alice, _ := newPair(t)
	_, err := alice.Encrypt(context.Background(), types.KeyScope{Protocol: testProtocol, Counterparty: "zz"}, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidCounterparty)
}

func TestSignature_VerifiableByAnyone(t *testing.T) {
	ctx := context.Background()
	alice, _ := newPair(t)
	scope := types.KeyScope{
		Protocol:     types.ProtocolID{Level: 2, Name: "msgbox auth"},
		KeyID:        "nonce-1",
		Counterparty: types.CounterpartyAnyone,
	}

	sig, err := alice.CreateSignature(ctx, scope, []byte("payload"))
	require.NoError(t, err)

	verifier := NewAnyone()
	verifyScope := scope
	verifyScope.Counterparty = alice.IdentityKey()

	ok, err := verifier.VerifySignature(ctx, verifyScope, []byte("payload"), sig, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifier.VerifySignature(ctx, verifyScope, []byte("tampered"), sig, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateAction_DistinctTxids(t *testing.T) {
	ctx := context.Background()
	alice, _ := newPair(t)
	args := types.CreateActionArgs{Outputs: []types.ActionOutput{{Satoshis: 1, LockingScript: []byte{ledger.OpCheckSig}}}}

	first, err := alice.CreateAction(ctx, args)
	require.NoError(t, err)
	second, err := alice.CreateAction(ctx, args)
	require.NoError(t, err)
	assert.NotEqual(t, first.Txid, second.Txid)
	assert.Equal(t, first.Txid, ledger.TxIDOf(first.Tx))
}

func paymentTx(t *testing.T, sender, recipient *Wallet, amount uint64) []byte {
	t.Helper()
	ctx := context.Background()
	pubHex, err := sender.GetPublicKey(ctx, types.PublicKeyArgs{Scope: types.KeyScope{
		Protocol:     types.PaymentProtocol,
		KeyID:        "prefix suffix",
		Counterparty: recipient.IdentityKey(),
	}})
	require.NoError(t, err)
	pub, err := hex.DecodeString(pubHex)
	require.NoError(t, err)

	res, err := sender.CreateAction(ctx, types.CreateActionArgs{
		Outputs: []types.ActionOutput{{Satoshis: amount, LockingScript: ledger.P2PKHLock(pub)}},
	})
	require.NoError(t, err)
	return res.Tx
}

func TestInternalizeAction_Payment(t *testing.T) {
	ctx := context.Background()
	alice, bob := newPair(t)
	tx := paymentTx(t, alice, bob, 5000)

	args := types.InternalizeArgs{
		Tx: tx,
		Outputs: []types.InternalizeOutput{{
			OutputIndex: 0,
			Protocol:    types.InternalizeWalletPayment,
			PaymentRemittance: &types.PaymentRemittance{
				DerivationPrefix:  "prefix",
				DerivationSuffix:  "suffix",
				SenderIdentityKey: alice.IdentityKey(),
			},
		}},
	}

	res, err := bob.InternalizeAction(ctx, args)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, uint64(5000), bob.Balance())

	// 同一输出只能纳入一次
	_, err = bob.InternalizeAction(ctx, args)
	assert.ErrorIs(t, err, ErrAlreadyInternalized)

	// 不属于自己的输出被拒绝
	eve, err := Generate()
	require.NoError(t, err)
	_, err = eve.InternalizeAction(ctx, args)
	assert.ErrorIs(t, err, ErrOutputNotOurs)
}

func TestInternalizeAction_MissingRemittance(t *testing.T) {
	alice, bob := newPair(t)
	tx := paymentTx(t, alice, bob, 10)
	_, err := bob.InternalizeAction(context.Background(), types.InternalizeArgs{
		Tx:      tx,
		Outputs: []types.InternalizeOutput{{Protocol: types.InternalizeWalletPayment}},
	})
	assert.ErrorIs(t, err, ErrMissingRemittance)
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")

	created, err := LoadOrCreate(path)
	require.NoError(t, err)

	loaded, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, created.IdentityKey(), loaded.IdentityKey())

	require.NoError(t, os.WriteFile(path, []byte("not-base58-0OIl"), 0o600))
	_, err = LoadOrCreate(path)
	assert.ErrorIs(t, err, ErrInvalidKeyFile)
}

func TestFromConfig(t *testing.T) {
	ephemeral, err := FromConfig(config.IdentityConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, ephemeral.IdentityKey())

	path := filepath.Join(t.TempDir(), "identity.key")
	_, err = FromConfig(config.IdentityConfig{KeyFile: path, AutoGenerate: false})
	assert.ErrorIs(t, err, ErrKeyFileMissing)

	created, err := FromConfig(config.IdentityConfig{KeyFile: path, AutoGenerate: true})
	require.NoError(t, err)
	loaded, err := FromConfig(config.IdentityConfig{KeyFile: path, AutoGenerate: false})
	require.NoError(t, err)
	assert.Equal(t, created.IdentityKey(), loaded.IdentityKey())
}
