// Package duplex 实现经过认证的全双工通道
//
// 通道基于 websocket，帧格式为 {"event": name, "data": json}。
// 连接建立后先完成双向身份认证：
//
//	server -> authenticationChallenge {nonce}
//	client -> authenticate            {identityKey, nonce, timestamp, signature}   // 对 challenge 签名
//	server -> authenticationSuccess   {identityKey, nonce, timestamp, signature}   // 对 client nonce 签名
//	       或 authenticationFailed    {description}
//
// 认证通过后才处理房间流量：joinRoom / leaveRoom / sendMessage {roomId, message}，
// 入站 sendMessage-{room} 推送到房间订阅，sendMessageAck-{room} 交给等待中的 Emit。
//
// 房间订阅使用有界缓冲通道，消费者跟不上时丢弃新消息。
package duplex
