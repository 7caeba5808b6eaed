package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dep2p/go-msgbox/pkg/types"
)

var (
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("store: closed")

	// ErrInvalidMessage 消息缺少 ID、接收方或消息箱
	ErrInvalidMessage = errors.New("store: message requires id, recipient and box")
)

// Store 消息存储
type Store interface {
	// Put 保存消息；(recipient, messageId) 已存在时返回 false
	Put(ctx context.Context, msg *types.WireMessage) (bool, error)

	// List 列出 recipient 在 box 中的消息，按 CreatedAt 升序
	List(ctx context.Context, recipient, box string) ([]*types.WireMessage, error)

	// Acknowledge 删除 recipient 的指定消息，返回删除数
	Acknowledge(ctx context.Context, recipient string, ids []string) (int, error)

	// Close 关闭存储
	Close() error
}

func validate(msg *types.WireMessage) error {
	if msg == nil || msg.MessageID == "" || msg.Recipient == "" || msg.MessageBox == "" {
		return ErrInvalidMessage
	}
	return nil
}

func sortOldestFirst(msgs []*types.WireMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i].CreatedAt, msgs[j].CreatedAt
		switch {
		case a == nil || b == nil:
			return a != nil
		default:
			return a.Before(*b)
		}
	})
}
