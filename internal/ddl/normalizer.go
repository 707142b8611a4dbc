package ddl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/portal"
	"studydesk/backend/pkg/fanout"
)

// BatchError 某一批调用失败，Index 从 0 开始
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Normalizer 分批并发调用大模型，把原始作业条目整理成 DeadlineRecord
type Normalizer struct {
	llm         ChatCompleter
	model       string
	temperature float64
	maxTokens   int
	batchSize   int
	loc         *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

// NewNormalizer 创建整理器；时区无法加载时退回 UTC+8
func NewNormalizer(llm ChatCompleter, cfg *config.LLMConfig, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.FixedZone("UTC+8", 8*60*60)
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &Normalizer{
		llm:         llm,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		batchSize:   batchSize,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// chunk 按固定大小切分，最后一批可能不足 size
func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// NormalizeDeadlines 每批一次并发调用，合并所有成功批次的记录
//
// 单批失败（传输错误、非 JSON、缺少 deadlines、记录类型不符）只丢弃该批并记录批次号，
// 不影响其它批次；结果顺序没有意义，跨批次不去重。
func (n *Normalizer) NormalizeDeadlines(ctx context.Context, items []portal.RawAssignmentItem) []DeadlineRecord {
	if len(items) == 0 {
		return []DeadlineRecord{}
	}

	batches := chunk(items, n.batchSize)
	sys := systemPrompt(n.now().In(n.loc))

	results := fanout.Gather(ctx, batches, 0, func(ctx context.Context, i int, batch []portal.RawAssignmentItem) ([]DeadlineRecord, error) {
		records, err := n.normalizeBatch(ctx, sys, batch)
		if err != nil {
			return nil, &BatchError{Index: i, Err: err}
		}
		return records, nil
	})

	records := fanout.Collect(results, func(i int, err error) {
		n.logger.Warn("大模型整理批次失败，已丢弃",
			zap.Int("batch", i),
			zap.Int("items", len(batches[i])),
			zap.Error(err),
		)
	})

	n.logger.Info("DDL 整理完成",
		zap.Int("items", len(items)),
		zap.Int("batches", len(batches)),
		zap.Int("deadlines", len(records)),
	)
	return records
}

func (n *Normalizer) normalizeBatch(ctx context.Context, sys string, batch []portal.RawAssignmentItem) ([]DeadlineRecord, error) {
	content, err := n.llm.Complete(ctx, ChatRequest{
		Model: n.model,
		Messages: []ChatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: userPrompt(batch)},
		},
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return decodeReply(content)
}
