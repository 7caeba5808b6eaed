// Package auth 实现请求/响应与全双工通道共用的身份认证
//
// 签名内容为 hex(sha256(body)) | nonce | timestamp（毫秒），
// 由身份派生密钥（协议 [2,"msgbox auth"]，keyID = nonce，对端 anyone）签名，
// 任何知道身份公钥的一方都可验证。
package auth
