// Package messaging 实现身份认证的存储转发消息核心
//
// Client 在两种通道之间为每条消息做选择：
//
//   - 请求/响应（Send）：持久投递到接收方的主机
//   - 全双工（SendLive）：房间内低延迟推送，在确认与超时之间竞速，
//     未确认或超时则以同一消息 ID 回退到 Send
//
// 消息 ID 由消息体与对端身份经 HMAC 确定性派生，重复发送幂等。
// 消息体默认按 (发送方, 接收方) 派生的对称密钥端到端加密。
//
// List 与 Acknowledge 并发访问默认主机以及自身所有广告主机：
// List 合并结果（按 ID 先到先得去重，新消息在前），全部失败才报错；
// Acknowledge 任一主机成功即视为成功。
//
// # 生命周期
//
//	Uninitialized -> Initializing -> Ready
//
// 初始化获取身份公钥，并确保目标主机已被广告（否则 anoint）。
// 所有公开操作都会按需懒初始化，调用方无需显式调用 Init。
package messaging
