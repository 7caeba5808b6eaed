// Package types 定义 msgbox 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 msgbox 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - body.go          - Body 标签联合（Text / Structured）与加密信封
//   - message.go       - Message, WireMessage, OutboundMessage, SendResult, Ack
//   - advertisement.go - AdvertisementToken, Outpoint, 查询类型
//   - payment.go       - PaymentToken, IncomingPayment
//   - wallet.go        - 钱包调用参数（KeyScope, CreateActionArgs ...）
//   - errors.go        - HostError 与结构化错误码
package types
