// Package store 提供消息主机的消息存储
//
// # 键空间设计
//
// badger 引擎使用以下前缀约定：
//   - m/{recipient}/{box}/{messageId} - 消息（JSON）
//   - i/{recipient}/{messageId}       - 消息 ID 到消息箱的索引，用于确认
//
// 消息以 (recipient, messageId) 唯一；重复写入不覆盖已有消息。
//
// # 使用示例
//
//	s, err := store.OpenBadger(store.BadgerConfig{Path: "/data/msgbox.db"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	stored, err := s.Put(ctx, msg)
package store
