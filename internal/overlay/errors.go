package overlay

import "errors"

var (
	// ErrUnknownService 不支持的查询服务
	ErrUnknownService = errors.New("overlay: unknown lookup service")

	// ErrNoTopics 交易没有可接纳的主题
	ErrNoTopics = errors.New("overlay: no supported topic")

	// ErrAlreadySpent 输入引用的输出已被花费
	ErrAlreadySpent = errors.New("overlay: output already spent")

	// ErrUnauthorizedSpend 输入未证明对所花费输出的所有权
	ErrUnauthorizedSpend = errors.New("overlay: spend not authorized by locking key")

	// ErrInvalidQuery 查询条件无法解析
	ErrInvalidQuery = errors.New("overlay: invalid query")
)
