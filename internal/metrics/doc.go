// Package metrics 定义客户端与主机的 prometheus 指标
//
// 指标集合通过 New(reg) 创建并注册到给定 Registerer；
// 所有记录方法在 nil 接收者上都是空操作，组件可以不启用指标。
package metrics
