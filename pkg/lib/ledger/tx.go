package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/minio/sha256-simd"
	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// MaxScriptSize 单个脚本的最大长度
const MaxScriptSize = 1 << 20

// Input 交易输入
type Input struct {
	PrevTxid        string
	PrevIndex       uint32
	UnlockingScript []byte
	Sequence        uint32
}

// Outpoint 返回输入花费的输出
func (in *Input) Outpoint() types.Outpoint {
	return types.Outpoint{Txid: in.PrevTxid, Index: in.PrevIndex}
}

// Output 交易输出
type Output struct {
	Satoshis      uint64
	LockingScript []byte
}

// Transaction 开发账本交易
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// Encode 序列化交易
func (tx *Transaction) Encode() ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, tx.Version)

	buf.Write(varint.ToUvarint(uint64(len(tx.Inputs))))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		id, err := txidBytes(in.PrevTxid)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		buf.Write(id)
		writeUint32(&buf, in.PrevIndex)
		writeBytes(&buf, in.UnlockingScript)
		writeUint32(&buf, in.Sequence)
	}

	buf.Write(varint.ToUvarint(uint64(len(tx.Outputs))))
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		var sats [8]byte
		binary.LittleEndian.PutUint64(sats[:], out.Satoshis)
		buf.Write(sats[:])
		writeBytes(&buf, out.LockingScript)
	}

	writeUint32(&buf, tx.LockTime)
	return buf.Bytes(), nil
}

// TxID 计算交易 ID
func (tx *Transaction) TxID() (string, error) {
	raw, err := tx.Encode()
	if err != nil {
		return "", err
	}
	return TxIDOf(raw), nil
}

// TxIDOf 计算原始交易字节的 ID
func TxIDOf(raw []byte) string {
	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	reverse(second[:])
	return hex.EncodeToString(second[:])
}

// Decode 反序列化交易
func Decode(raw []byte) (*Transaction, error) {
	r := bytes.NewReader(raw)
	tx := &Transaction{}

	var err error
	if tx.Version, err = readUint32(r); err != nil {
		return nil, err
	}

	nIn, err := readCount(r)
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]Input, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		var id [32]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return nil, ErrTruncated
		}
		reverse(id[:])
		in := Input{PrevTxid: hex.EncodeToString(id[:])}
		if in.PrevIndex, err = readUint32(r); err != nil {
			return nil, err
		}
		if in.UnlockingScript, err = readBytes(r); err != nil {
			return nil, err
		}
		if in.Sequence, err = readUint32(r); err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := readCount(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]Output, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		var sats [8]byte
		if _, err := io.ReadFull(r, sats[:]); err != nil {
			return nil, ErrTruncated
		}
		out := Output{Satoshis: binary.LittleEndian.Uint64(sats[:])}
		if out.LockingScript, err = readBytes(r); err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	if tx.LockTime, err = readUint32(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrTrailingData
	}
	return tx, nil
}

// OutputAt 解码交易并返回索引处的输出与 txid
func OutputAt(raw []byte, index uint32) (string, *Output, error) {
	tx, err := Decode(raw)
	if err != nil {
		return "", nil, err
	}
	if int(index) >= len(tx.Outputs) {
		return "", nil, ErrOutputIndex
	}
	return TxIDOf(raw), &tx.Outputs[index], nil
}

// ============================================================================
//                              编解码辅助
// ============================================================================

func txidBytes(txid string) ([]byte, error) {
	b, err := hex.DecodeString(txid)
	if err != nil || len(b) != 32 {
		return nil, ErrInvalidTxid
	}
	reverse(b)
	return b, nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(varint.ToUvarint(uint64(len(data))))
	buf.Write(data)
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readCount(r *bytes.Reader) (uint64, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return 0, ErrTruncated
	}
	// 每个条目至少占 1 字节，防止恶意计数导致大分配
	if n > uint64(r.Len()) {
		return 0, ErrTruncated
	}
	return n, nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	if n > MaxScriptSize || n > uint64(r.Len()) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, ErrTruncated
	}
	return out, nil
}
