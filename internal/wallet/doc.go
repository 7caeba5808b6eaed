// Package wallet 实现本地开发钱包
//
// 身份为一把 secp256k1 私钥。针对 (协议, keyID, 对端) 的密钥派生：
//
//	invoice  = "<level>-<protocol>-<keyID>"
//	h        = HMAC-SHA256(ECDH(priv, counterparty), invoice)
//	childPriv = priv + h (mod N)
//	childPub  = counterparty + h·G
//
// 对称密钥取 ECDH(childPriv(自身), childPub(对端)) 经 HKDF 展开，双方结果一致；
// 对端为 "self" 时使用自身公钥，为 "anyone" 时使用标量 1 对应的公钥，
// 因此任何知道身份公钥的人都能验证 "anyone" 作用域下的签名。
//
// 账本相关能力仅用于开发：CreateAction 生成未注资交易（附带一个合成资金输入），
// InternalizeAction 校验输出确实锁定到本钱包派生的公钥后记账。
package wallet
