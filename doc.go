// Package msgbox 提供基于身份认证的存储转发消息
//
// 每个身份在一个或多个消息主机上拥有命名的消息盒（box）。发送方把消息
// 投递到接收方广告的主机，接收方列出、处理并确认消息；确认后主机删除消息。
//
// # 核心概念
//
//   - Node: 门面，聚合钱包、消息核心、支付扩展与可选的内嵌主机
//   - MessageBox: 投递、列出、确认与实时监听原语
//   - 广告（advertisement）: 身份在叠加网络上声明"我的消息在这个主机"
//
// # 快速开始
//
//	node, err := msgbox.New(ctx,
//	    msgbox.WithIdentityFromFile("alice.key"),
//	    msgbox.WithHost("https://box.example"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// 实时发送，失败或超时时自动回退为请求/响应投递
//	res, _ := node.SendLive(ctx, &types.OutboundMessage{
//	    Recipient: bobKey,
//	    Box:       "inbox",
//	    Body:      types.TextBody("hello"),
//	})
//
//	// 列出并确认
//	msgs, _ := node.List(ctx, "inbox")
//	_ = node.Acknowledge(ctx, []string{msgs[0].ID})
//
// # 投递通道
//
//	┌───────────────────────────────────────────────────────────┐
//	│  SendLive ──► 全双工通道（websocket 房间）──► 确认          │
//	│      │ 无通道 / 否定确认 / 超时                              │
//	│      ▼                                                     │
//	│  Send ──────► 请求/响应通道（POST /sendMessage）            │
//	└───────────────────────────────────────────────────────────┘
//
// 消息体默认端到端加密，消息 ID 由 HMAC 确定性派生，重复发送幂等。
package msgbox
