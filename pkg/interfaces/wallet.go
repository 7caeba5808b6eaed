package interfaces

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// Wallet 身份与密码学提供者
//
// 公钥均为压缩格式的十六进制字符串。
type Wallet interface {
	// GetPublicKey 返回身份公钥或派生公钥
	GetPublicKey(ctx context.Context, args types.PublicKeyArgs) (string, error)

	// CreateHMAC 在作用域派生的对称密钥下计算 HMAC
	CreateHMAC(ctx context.Context, scope types.KeyScope, data []byte) ([]byte, error)

	// Encrypt 在作用域派生的对称密钥下加密
	Encrypt(ctx context.Context, scope types.KeyScope, plaintext []byte) ([]byte, error)

	// Decrypt 在作用域派生的对称密钥下解密
	Decrypt(ctx context.Context, scope types.KeyScope, ciphertext []byte) ([]byte, error)

	// CreateSignature 使用作用域派生的私钥签名 sha256(data)
	CreateSignature(ctx context.Context, scope types.KeyScope, data []byte) ([]byte, error)

	// CreateAction 构建并签名交易
	CreateAction(ctx context.Context, args types.CreateActionArgs) (*types.ActionResult, error)

	// InternalizeAction 将交易中的输出纳入钱包
	InternalizeAction(ctx context.Context, args types.InternalizeArgs) (*types.InternalizeResult, error)
}
