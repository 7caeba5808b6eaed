package wallet

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/hkdf"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// anyoneKey 标量 1，"anyone" 对端的公共私钥
var anyoneKey = secp256k1.PrivKeyFromBytes([]byte{1})

// AnyonePublicKey 返回 "anyone" 对端公钥（十六进制）
func AnyonePublicKey() string {
	return hex.EncodeToString(anyoneKey.PubKey().SerializeCompressed())
}

// keyDeriver 负责所有派生运算
type keyDeriver struct {
	root *secp256k1.PrivateKey
}

func invoiceNumber(scope types.KeyScope) string {
	return fmt.Sprintf("%d-%s-%s", scope.Protocol.Level, scope.Protocol.Name, scope.KeyID)
}

func (d *keyDeriver) identity() *secp256k1.PublicKey {
	return d.root.PubKey()
}

func (d *keyDeriver) counterparty(cp string) (*secp256k1.PublicKey, error) {
	switch cp {
	case "", types.CounterpartySelf:
		return d.root.PubKey(), nil
	case types.CounterpartyAnyone:
		return anyoneKey.PubKey(), nil
	}
	raw, err := hex.DecodeString(cp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCounterparty, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCounterparty, err)
	}
	return pub, nil
}

// sharedPoint 计算 priv·pub 并返回压缩编码
func sharedPoint(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) []byte {
	var p, r secp256k1.JacobianPoint
	pub.AsJacobian(&p)
	secp256k1.ScalarMultNonConst(&priv.Key, &p, &r)
	r.ToAffine()
	return secp256k1.NewPublicKey(&r.X, &r.Y).SerializeCompressed()
}

func (d *keyDeriver) tweak(cp *secp256k1.PublicKey, scope types.KeyScope) *secp256k1.ModNScalar {
	mac := hmac.New(sha256.New, sharedPoint(d.root, cp))
	mac.Write([]byte(invoiceNumber(scope)))
	var h secp256k1.ModNScalar
	h.SetByteSlice(mac.Sum(nil))
	return &h
}

func (d *keyDeriver) derivePrivate(scope types.KeyScope) (*secp256k1.PrivateKey, error) {
	cp, err := d.counterparty(scope.Counterparty)
	if err != nil {
		return nil, err
	}
	h := d.tweak(cp, scope)
	var k secp256k1.ModNScalar
	k.Set(&d.root.Key).Add(h)
	return secp256k1.NewPrivateKey(&k), nil
}

func (d *keyDeriver) derivePublic(scope types.KeyScope, forSelf bool) (*secp256k1.PublicKey, error) {
	cp, err := d.counterparty(scope.Counterparty)
	if err != nil {
		return nil, err
	}
	h := d.tweak(cp, scope)

	base := cp
	if forSelf {
		base = d.root.PubKey()
	}
	var b, hg, sum secp256k1.JacobianPoint
	base.AsJacobian(&b)
	secp256k1.ScalarBaseMultNonConst(h, &hg)
	secp256k1.AddNonConst(&b, &hg, &sum)
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}

// symmetricKey 双方一致的 32 字节对称密钥
func (d *keyDeriver) symmetricKey(scope types.KeyScope) ([]byte, error) {
	priv, err := d.derivePrivate(scope)
	if err != nil {
		return nil, err
	}
	pub, err := d.derivePublic(scope, false)
	if err != nil {
		return nil, err
	}
	secret := sharedPoint(priv, pub)
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret[1:], nil, []byte("msgbox symmetric key"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}
