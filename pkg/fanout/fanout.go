// Package fanout 提供"分发任务、收集全部结果"的并发工具
// 单个任务失败（含 panic）只影响该任务自身，不会取消兄弟任务
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result 单个任务的结算结果，Err 非空时 Value 为零值
type Result[R any] struct {
	Value R
	Err   error
}

// PanicError 任务执行中发生 panic 时返回的错误
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Gather 为 items 中每个元素并发执行 fn，等待全部任务结束后按输入顺序返回结果
// limit <= 0 表示不限制并发数
// ctx 原样传给每个任务，Gather 自身不会因为某个任务出错而取消其它任务
func Gather[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, index int, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = run(ctx, i, item, fn)
			return nil
		})
	}
	_ = g.Wait() // 任务错误保存在 results 中

	return results
}

func run[T, R any](ctx context.Context, index int, item T, fn func(context.Context, int, T) (R, error)) (res Result[R]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[R]{Err: &PanicError{Value: p}}
		}
	}()
	v, err := fn(ctx, index, item)
	if err != nil {
		return Result[R]{Err: err}
	}
	return Result[R]{Value: v}
}

// Collect 拼接所有成功结果，onErr 对每个失败任务调用一次（可为 nil）
func Collect[R any](results []Result[[]R], onErr func(index int, err error)) []R {
	var out []R
	for i, r := range results {
		if r.Err != nil {
			if onErr != nil {
				onErr(i, r.Err)
			}
			continue
		}
		out = append(out, r.Value...)
	}
	if out == nil {
		out = []R{}
	}
	return out
}
