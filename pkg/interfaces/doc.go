// Package interfaces 定义 msgbox 与外部协作者之间的接口边界
//
// 消息核心只依赖这里的接口：
//   - Wallet：身份密钥、HMAC、对称加解密、签名、交易构建与纳入
//   - LookupResolver / Broadcaster：叠加网络查询与广播
//   - RequestTransport：经过认证的请求/响应通道
//   - DuplexDialer / DuplexChannel：经过认证的全双工房间通道
//   - MessageBox：支付扩展依赖的消息核心原语
package interfaces
