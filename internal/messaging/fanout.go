package messaging

import (
	"context"
	"sync"
)

// hostResult 单个主机的结果
type hostResult[T any] struct {
	host  string
	value T
	err   error
}

// scatter 对每个主机并发执行 fn，结果按完成顺序写入返回的通道
//
// 单个主机的失败只记录在结果里，不影响其他主机。通道在全部完成后关闭。
func scatter[T any](ctx context.Context, hosts []string, fn func(ctx context.Context, host string) (T, error)) <-chan hostResult[T] {
	out := make(chan hostResult[T], len(hosts))
	var wg sync.WaitGroup
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			v, err := fn(ctx, host)
			out <- hostResult[T]{host: host, value: v, err: err}
		}(host)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// gather 等待全部主机完成，结果按 hosts 顺序排列
func gather[T any](ctx context.Context, hosts []string, fn func(ctx context.Context, host string) (T, error)) []hostResult[T] {
	index := make(map[string]int, len(hosts))
	for i, h := range hosts {
		index[h] = i
	}
	ordered := make([]hostResult[T], len(hosts))
	for r := range scatter(ctx, hosts, fn) {
		ordered[index[r.host]] = r
	}
	return ordered
}

// dedupHosts 去掉空串与重复项，保持顺序
func dedupHosts(hosts ...string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
