// 提示来源与模型的测试替身。
package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/truffle/oracle"
)

// StaticHints 返回固定提示文本
type StaticHints struct {
	hints []string
	err   error
	calls atomic.Int32
}

// NewStaticHints 创建固定提示来源
func NewStaticHints(hints ...string) *StaticHints {
	return &StaticHints{hints: hints}
}

// WithError 设置返回错误
func (h *StaticHints) WithError(err error) *StaticHints {
	h.err = err
	return h
}

// Hints 实现 detect.HintSource
func (h *StaticHints) Hints(context.Context, []byte) ([]string, error) {
	h.calls.Add(1)
	if h.err != nil {
		return nil, h.err
	}
	return append([]string(nil), h.hints...), nil
}

// CallCount 返回调用次数
func (h *StaticHints) CallCount() int { return int(h.calls.Load()) }

// ScriptedReplies 依次返回预置回复，用尽后重复最后一条
type ScriptedReplies struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

// NewScriptedReplies 创建按序回复的模型
func NewScriptedReplies(replies ...string) *ScriptedReplies {
	return &ScriptedReplies{replies: replies}
}

// WithErrors 设置与回复对齐的错误，nil 表示该次成功
func (s *ScriptedReplies) WithErrors(errs ...error) *ScriptedReplies {
	s.errs = errs
	return s
}

func (s *ScriptedReplies) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

// Complete 实现 oracle.ChatModel
func (s *ScriptedReplies) Complete(context.Context, []oracle.Message) (string, error) {
	return s.next()
}

// AnalyzeImage 实现 detect.VisionModel
func (s *ScriptedReplies) AnalyzeImage(context.Context, string, string) (string, error) {
	return s.next()
}

// CallCount 返回调用次数
func (s *ScriptedReplies) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
