package wallet

import "errors"

var (
	// ErrInvalidCounterparty 对端公钥无法解析
	ErrInvalidCounterparty = errors.New("wallet: invalid counterparty")

	// ErrDecrypt 解密失败
	ErrDecrypt = errors.New("wallet: decryption failed")

	// ErrKeyFileMissing 密钥文件不存在且未允许生成
	ErrKeyFileMissing = errors.New("wallet: key file does not exist")

	// ErrInvalidKeyFile 密钥文件内容无效
	ErrInvalidKeyFile = errors.New("wallet: invalid key file")

	// ErrMissingRemittance 支付输出缺少派生信息
	ErrMissingRemittance = errors.New("wallet: payment output requires remittance")

	// ErrOutputNotOurs 输出并未锁定到本钱包的派生公钥
	ErrOutputNotOurs = errors.New("wallet: output is not locked to a key of this wallet")

	// ErrAlreadyInternalized 输出已被纳入
	ErrAlreadyInternalized = errors.New("wallet: output already internalized")

	// ErrUnknownProtocol 不支持的纳入协议
	ErrUnknownProtocol = errors.New("wallet: unknown internalize protocol")
)
