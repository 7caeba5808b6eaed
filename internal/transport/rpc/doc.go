// Package rpc 实现经过认证的请求/响应通道
//
// 每个请求以 JSON POST 发送，并附带 auth 包生成的签名头。
// 失败统一返回 *types.HostError，调用方按错误码决定吞掉还是上抛：
//
//	transport     连接失败或非 JSON 的非 2xx 响应
//	unauthorized  401 / 403
//	not_found     主机报告目标不存在
//	protocol      主机返回 status:"error"
//	decode        响应无法解析
package rpc
