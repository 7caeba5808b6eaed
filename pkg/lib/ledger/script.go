package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // P2PKH 需要 hash160

	"github.com/dep2p/go-msgbox/pkg/types"
)

// 使用到的操作码
const (
	OpFalse       byte = 0x00
	OpPushData1   byte = 0x4c
	OpPushData2   byte = 0x4d
	OpPushData4   byte = 0x4e
	OpDrop        byte = 0x75
	Op2Drop       byte = 0x6d
	OpDup         byte = 0x76
	OpHash160     byte = 0xa9
	OpEqualVerify byte = 0x88
	OpCheckSig    byte = 0xac
)

// Chunk 脚本片段：操作码或数据推送
type Chunk struct {
	Op   byte
	Data []byte
}

// IsPush 是否为数据推送
func (c Chunk) IsPush() bool {
	return c.Op <= OpPushData4
}

// PushData 编码一次数据推送
func PushData(data []byte) []byte {
	n := len(data)
	var buf bytes.Buffer
	switch {
	case n == 0:
		buf.WriteByte(OpFalse)
	case n < int(OpPushData1):
		buf.WriteByte(byte(n))
	case n <= 0xff:
		buf.WriteByte(OpPushData1)
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(OpPushData2)
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(n))
		buf.Write(l[:])
	default:
		buf.WriteByte(OpPushData4)
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(n))
		buf.Write(l[:])
	}
	buf.Write(data)
	return buf.Bytes()
}

// ParseScript 将脚本拆分为片段
func ParseScript(script []byte) ([]Chunk, error) {
	var chunks []Chunk
	for i := 0; i < len(script); {
		op := script[i]
		i++
		var n int
		switch {
		case op == OpFalse:
			chunks = append(chunks, Chunk{Op: op, Data: []byte{}})
			continue
		case op < OpPushData1:
			n = int(op)
		case op == OpPushData1:
			if i+1 > len(script) {
				return nil, ErrInvalidScript
			}
			n = int(script[i])
			i++
		case op == OpPushData2:
			if i+2 > len(script) {
				return nil, ErrInvalidScript
			}
			n = int(binary.LittleEndian.Uint16(script[i:]))
			i += 2
		case op == OpPushData4:
			if i+4 > len(script) {
				return nil, ErrInvalidScript
			}
			n = int(binary.LittleEndian.Uint32(script[i:]))
			i += 4
		default:
			chunks = append(chunks, Chunk{Op: op})
			continue
		}
		if n < 0 || i+n > len(script) {
			return nil, ErrInvalidScript
		}
		chunks = append(chunks, Chunk{Op: op, Data: script[i : i+n]})
		i += n
	}
	return chunks, nil
}

// ============================================================================
//                              PushDrop
// ============================================================================

// PushDropLock 构造锁定到 pubKey 的 PushDrop 脚本，fields 在执行时被丢弃
func PushDropLock(pubKey []byte, fields [][]byte) []byte {
	var buf bytes.Buffer
	buf.Write(PushData(pubKey))
	buf.WriteByte(OpCheckSig)
	for _, f := range fields {
		buf.Write(PushData(f))
	}
	remaining := len(fields)
	for remaining > 1 {
		buf.WriteByte(Op2Drop)
		remaining -= 2
	}
	if remaining == 1 {
		buf.WriteByte(OpDrop)
	}
	return buf.Bytes()
}

// PushDrop 解码后的 PushDrop 脚本
type PushDrop struct {
	LockingKey []byte
	Fields     [][]byte
}

// DecodePushDrop 解码 PushDrop 脚本
func DecodePushDrop(script []byte) (*PushDrop, error) {
	chunks, err := ParseScript(script)
	if err != nil {
		return nil, err
	}
	if len(chunks) < 2 || !chunks[0].IsPush() || chunks[1].Op != OpCheckSig {
		return nil, ErrNotPushDrop
	}
	if _, err := secp256k1.ParsePubKey(chunks[0].Data); err != nil {
		return nil, fmt.Errorf("%w: locking key: %v", ErrNotPushDrop, err)
	}

	pd := &PushDrop{LockingKey: chunks[0].Data}
	i := 2
	for ; i < len(chunks) && chunks[i].IsPush(); i++ {
		pd.Fields = append(pd.Fields, chunks[i].Data)
	}
	dropped := 0
	for ; i < len(chunks); i++ {
		switch chunks[i].Op {
		case Op2Drop:
			dropped += 2
		case OpDrop:
			dropped++
		default:
			return nil, ErrNotPushDrop
		}
	}
	if dropped != len(pd.Fields) {
		return nil, ErrNotPushDrop
	}
	return pd, nil
}

// SpendPreimage 花费指定输出时需要签名的数据
func SpendPreimage(op types.Outpoint) []byte {
	return []byte("msgbox-spend:" + op.String())
}

// PushDropUnlock 构造解锁脚本
func PushDropUnlock(signature []byte) []byte {
	return PushData(signature)
}

// VerifyPushDropSpend 校验解锁脚本证明了对 op 的所有权
func VerifyPushDropSpend(lockingScript, unlockingScript []byte, op types.Outpoint) error {
	pd, err := DecodePushDrop(lockingScript)
	if err != nil {
		return err
	}
	chunks, err := ParseScript(unlockingScript)
	if err != nil || len(chunks) != 1 || !chunks[0].IsPush() {
		return ErrBadSignature
	}
	pub, err := secp256k1.ParsePubKey(pd.LockingKey)
	if err != nil {
		return ErrBadSignature
	}
	sig, err := ecdsa.ParseDERSignature(chunks[0].Data)
	if err != nil {
		return ErrBadSignature
	}
	digest := sha256.Sum256(SpendPreimage(op))
	if !sig.Verify(digest[:], pub) {
		return ErrBadSignature
	}
	return nil
}

// ============================================================================
//                              P2PKH
// ============================================================================

// Hash160 ripemd160(sha256(data))
func Hash160(data []byte) []byte {
	s := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(s[:])
	return h.Sum(nil)
}

// P2PKHLock 构造支付到公钥哈希的锁定脚本
func P2PKHLock(pubKey []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(OpDup)
	buf.WriteByte(OpHash160)
	buf.Write(PushData(Hash160(pubKey)))
	buf.WriteByte(OpEqualVerify)
	buf.WriteByte(OpCheckSig)
	return buf.Bytes()
}

// IsP2PKHFor 判断脚本是否锁定到 pubKey
func IsP2PKHFor(script, pubKey []byte) bool {
	return bytes.Equal(script, P2PKHLock(pubKey))
}
