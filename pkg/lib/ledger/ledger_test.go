package ledger

import (
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/pkg/types"
)

func TestTransaction_EncodeDecode(t *testing.T) {
	tx := &Transaction{
		Version: 1,
		Inputs: []Input{{
			PrevTxid:        strings.Repeat("ab", 32),
			PrevIndex:       3,
			UnlockingScript: []byte{0x01, 0x02},
			Sequence:        0xffffffff,
		}},
		Outputs: []Output{
			{Satoshis: 1, LockingScript: []byte{OpCheckSig}},
			{Satoshis: 5000, LockingScript: P2PKHLock([]byte("pub"))},
		},
	}

	raw, err := tx.Encode()
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)

	id1, err := tx.TxID()
	require.NoError(t, err)
	assert.Equal(t, id1, TxIDOf(raw))
	assert.Len(t, id1, 64)
}

func TestDecode_Truncated(t *testing.T) {
	tx := &Transaction{Version: 1, Outputs: []Output{{Satoshis: 1, LockingScript: []byte{1, 2, 3}}}}
	raw, err := tx.Encode()
	require.NoError(t, err)

	_, err = Decode(raw[:len(raw)-3])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Decode(append(raw, 0x00))
	assert.ErrorIs(t, err, ErrTrailingData)
}

func TestEncode_InvalidTxid(t *testing.T) {
	tx := &Transaction{Inputs: []Input{{PrevTxid: "nothex"}}}
	_, err := tx.Encode()
	assert.ErrorIs(t, err, ErrInvalidTxid)
}

func TestOutputAt(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Satoshis: 7}}}
	raw, err := tx.Encode()
	require.NoError(t, err)

	txid, out, err := OutputAt(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), out.Satoshis)
	assert.Equal(t, TxIDOf(raw), txid)

	_, _, err = OutputAt(raw, 1)
	assert.ErrorIs(t, err, ErrOutputIndex)
}

func TestPushDrop_Decode(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub := key.PubKey().SerializeCompressed()

	long := []byte(strings.Repeat("h", 300))
	script := PushDropLock(pub, [][]byte{pub, []byte("https://host.example"), long})

	pd, err := DecodePushDrop(script)
	require.NoError(t, err)
	assert.Equal(t, pub, pd.LockingKey)
	require.Len(t, pd.Fields, 3)
	assert.Equal(t, "https://host.example", string(pd.Fields[1]))
	assert.Equal(t, long, pd.Fields[2])
}

func TestPushDrop_Malformed(t *testing.T) {
	_, err := DecodePushDrop([]byte{OpDup})
	assert.ErrorIs(t, err, ErrNotPushDrop)

	_, err = DecodePushDrop(P2PKHLock([]byte("pub")))
	assert.Error(t, err)

	_, err = DecodePushDrop([]byte{OpPushData1})
	assert.ErrorIs(t, err, ErrInvalidScript)
}

func TestVerifyPushDropSpend(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	script := PushDropLock(key.PubKey().SerializeCompressed(), [][]byte{[]byte("a"), []byte("b")})
	op := types.Outpoint{Txid: strings.Repeat("cd", 32), Index: 0}

	digest := sha256.Sum256(SpendPreimage(op))
	sig := ecdsa.Sign(key, digest[:]).Serialize()
	assert.NoError(t, VerifyPushDropSpend(script, PushDropUnlock(sig), op))

	// 换一个输出，签名不再有效
	other := types.Outpoint{Txid: op.Txid, Index: 1}
	assert.ErrorIs(t, VerifyPushDropSpend(script, PushDropUnlock(sig), other), ErrBadSignature)

	otherKey, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	forged := ecdsa.Sign(otherKey, digest[:]).Serialize()
	assert.ErrorIs(t, VerifyPushDropSpend(script, PushDropUnlock(forged), op), ErrBadSignature)
}

func TestP2PKH(t *testing.T) {
	pub := []byte{0x02, 0x01}
	script := P2PKHLock(pub)
	assert.True(t, IsP2PKHFor(script, pub))
	assert.False(t, IsP2PKHFor(script, []byte{0x03}))
	assert.Len(t, Hash160(pub), 20)
}
