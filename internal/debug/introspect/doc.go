// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息，用于调试和监控。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect         - 完整诊断报告 (JSON)
//	GET /debug/introspect/client  - 消息客户端状态
//	GET /debug/introspect/host    - 内嵌主机状态
//	GET /debug/introspect/runtime - 运行时信息
//	GET /debug/pprof/*            - Go pprof 端点
//	GET /health                   - 健康检查
//
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect
