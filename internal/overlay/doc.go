// Package overlay 提供开发用的内存账本与叠加网络查询服务
//
// Ledger 同时实现 interfaces.Broadcaster 与 interfaces.LookupResolver：
// 广播到 tm_messagebox 主题的交易中，PushDrop 广告输出被接纳为有效 token；
// 花费已接纳输出的输入必须携带对锁定密钥的有效签名。
// ls_messagebox 查询按身份公钥与主机过滤未花费的广告。
//
// Client 是同一协议的 HTTP 客户端，NewHandler 将 Ledger 暴露为 HTTP 服务：
//
//	POST /lookup  {service, query}  -> {type:"output-list", outputs:[{beef, outputIndex}]}
//	POST /submit  <raw tx>, X-Topics: ["tm_messagebox"]  -> {txid, topics}
package overlay
