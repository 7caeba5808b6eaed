package overlay

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("overlay")

// admitted 已接纳的广告输出
type admitted struct {
	outpoint    types.Outpoint
	identityKey string
	host        string
	locking     []byte
	spent       bool
}

// Ledger 内存账本
type Ledger struct {
	mu      sync.RWMutex
	txs     map[string][]byte
	outputs map[types.Outpoint]*admitted
	order   []types.Outpoint
}

var (
	_ interfaces.Broadcaster    = (*Ledger)(nil)
	_ interfaces.LookupResolver = (*Ledger)(nil)
)

// NewLedger 创建空账本
func NewLedger() *Ledger {
	return &Ledger{
		txs:     make(map[string][]byte),
		outputs: make(map[types.Outpoint]*admitted),
	}
}

// Broadcast 实现 interfaces.Broadcaster
//
// 未被接纳过的输入视为外部资金，不做校验。
func (l *Ledger) Broadcast(_ context.Context, raw []byte, topics []string) (*types.BroadcastResult, error) {
	if !hasTopic(topics, types.TopicMessageBox) {
		return nil, ErrNoTopics
	}
	tx, err := ledger.Decode(raw)
	if err != nil {
		return nil, err
	}
	txid := ledger.TxIDOf(raw)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.txs[txid]; ok {
		return &types.BroadcastResult{Txid: txid, Topics: []string{types.TopicMessageBox}}, nil
	}

	var spends []*admitted
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		op := in.Outpoint()
		out, ok := l.outputs[op]
		if !ok {
			continue
		}
		if out.spent {
			return nil, fmt.Errorf("%w: %s", ErrAlreadySpent, op)
		}
		if err := ledger.VerifyPushDropSpend(out.locking, in.UnlockingScript, op); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnauthorizedSpend, op, err)
		}
		spends = append(spends, out)
	}

	var added int
	for i, out := range tx.Outputs {
		op := types.Outpoint{Txid: txid, Index: uint32(i)}
		identity, host, ok := decodeAdvertisement(out.LockingScript)
		if !ok {
			continue
		}
		l.outputs[op] = &admitted{
			outpoint:    op,
			identityKey: identity,
			host:        host,
			locking:     out.LockingScript,
		}
		l.order = append(l.order, op)
		added++
	}
	for _, s := range spends {
		s.spent = true
	}
	l.txs[txid] = raw

	logger.Debug("交易已接纳", "txid", log.TruncateID(txid, 16), "admitted", added, "spent", len(spends))
	return &types.BroadcastResult{Txid: txid, Topics: []string{types.TopicMessageBox}}, nil
}

// Lookup 实现 interfaces.LookupResolver
func (l *Ledger) Lookup(_ context.Context, q types.LookupQuestion) (*types.LookupAnswer, error) {
	if q.Service != types.LookupServiceMessageBox {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, q.Service)
	}
	query, err := parseQuery(q.Query)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	answer := &types.LookupAnswer{Type: types.AnswerOutputList, Outputs: []types.LookupOutput{}}
	for _, op := range l.order {
		out := l.outputs[op]
		if out.spent {
			continue
		}
		if query.IdentityKey != "" && out.identityKey != query.IdentityKey {
			continue
		}
		if query.Host != "" && out.host != query.Host {
			continue
		}
		answer.Outputs = append(answer.Outputs, types.LookupOutput{
			Beef:        l.txs[op.Txid],
			OutputIndex: op.Index,
		})
	}
	return answer, nil
}

// Transaction 返回已接纳的原始交易
func (l *Ledger) Transaction(txid string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	raw, ok := l.txs[txid]
	return raw, ok
}

// Unspent 当前未花费的广告数量
func (l *Ledger) Unspent() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, out := range l.outputs {
		if !out.spent {
			n++
		}
	}
	return n
}

// decodeAdvertisement 解析 [identityKey, host] 两字段 PushDrop 输出
func decodeAdvertisement(script []byte) (string, string, bool) {
	pd, err := ledger.DecodePushDrop(script)
	if err != nil || len(pd.Fields) != 2 || len(pd.Fields[0]) != 33 || len(pd.Fields[1]) == 0 {
		return "", "", false
	}
	return hex.EncodeToString(pd.Fields[0]), string(pd.Fields[1]), true
}

// parseQuery 兼容结构体与经过 JSON 往返的 map 形式
func parseQuery(v any) (types.AdvertisementQuery, error) {
	switch q := v.(type) {
	case nil:
		return types.AdvertisementQuery{}, nil
	case types.AdvertisementQuery:
		return q, nil
	case *types.AdvertisementQuery:
		return *q, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return types.AdvertisementQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	var q types.AdvertisementQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return types.AdvertisementQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return q, nil
}

func hasTopic(topics []string, want string) bool {
	for _, t := range topics {
		if t == want {
			return true
		}
	}
	return false
}
