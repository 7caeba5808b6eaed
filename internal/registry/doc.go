// Package registry 维护身份到主机的路由广告
//
// 广告是一个两字段 PushDrop 输出 [identityKey, host]，锁定到钱包为
// "messagebox advertisement" 协议、对端 anyone 派生的密钥上。
// 拥有该密钥的人才能花费（撤销）它。
//
// Anoint 不做去重：对同一主机调用两次会产生两个相互独立的有效 token。
// 同一身份可以同时在多个主机上被广告，List/Acknowledge 会遍历它们。
package registry
