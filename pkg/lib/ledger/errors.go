package ledger

import "errors"

var (
	// ErrTruncated 数据在解析完成前结束
	ErrTruncated = errors.New("ledger: truncated data")

	// ErrTrailingData 交易末尾存在多余数据
	ErrTrailingData = errors.New("ledger: trailing data after transaction")

	// ErrInvalidScript 脚本格式无效
	ErrInvalidScript = errors.New("ledger: invalid script")

	// ErrNotPushDrop 脚本不是 PushDrop 模板
	ErrNotPushDrop = errors.New("ledger: not a push-drop script")

	// ErrOutputIndex 输出索引越界
	ErrOutputIndex = errors.New("ledger: output index out of range")

	// ErrInvalidTxid txid 不是 32 字节十六进制
	ErrInvalidTxid = errors.New("ledger: invalid txid")

	// ErrBadSignature 解锁签名验证失败
	ErrBadSignature = errors.New("ledger: unlocking signature does not match locking key")
)
