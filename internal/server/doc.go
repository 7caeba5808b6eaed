// Package server 实现参考消息主机
//
// 主机提供三个经过认证的 JSON 接口（/sendMessage、/listMessages、
// /acknowledgeMessage）以及 /ws 上的全双工房间服务。发送方身份始终
// 取自认证信息，请求体中的 sender 字段被忽略。
//
// 房间名为 "{identityKey}-{box}"。任何已认证连接都可以向房间发送消息，
// 但只有房间所属身份会收到推送。
package server
