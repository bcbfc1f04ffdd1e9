// ScriptedOracle 是语义判定 Oracle 的测试替身。
//
// 按规则顺序匹配内容，支持错误注入与调用记录。
package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/BaSui01/truffle/oracle"
)

// OracleCall 记录单次判定
type OracleCall struct {
	Content string
	Prompt  string
	Verdict oracle.Verdict
	Err     error
}

type oracleRule struct {
	match   func(content string) bool
	verdict oracle.Verdict
	err     error
}

// ScriptedOracle 按规则返回判定，未命中规则时返回 not_found
type ScriptedOracle struct {
	mu    sync.Mutex
	rules []oracleRule
	calls []OracleCall
}

// NewScriptedOracle 创建空规则的 Oracle
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{}
}

// TargetOracle 模拟一个理想模型：内容恰为 target 时 exact_match，
// 包含 target 时 too_many，否则 not_found
func TargetOracle(target string) *ScriptedOracle {
	return NewScriptedOracle().
		When(func(c string) bool { return strings.TrimSpace(c) == target }, oracle.ExactMatch).
		When(func(c string) bool { return strings.Contains(c, target) }, oracle.TooMany)
}

// When 添加规则
func (o *ScriptedOracle) When(match func(content string) bool, v oracle.Verdict) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules = append(o.rules, oracleRule{match: match, verdict: v})
	return o
}

// OnContains 内容包含 substr 时返回 v
func (o *ScriptedOracle) OnContains(substr string, v oracle.Verdict) *ScriptedOracle {
	return o.When(func(c string) bool { return strings.Contains(c, substr) }, v)
}

// FailWhen 命中时返回 err
func (o *ScriptedOracle) FailWhen(match func(content string) bool, err error) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rules = append(o.rules, oracleRule{match: match, err: err})
	return o
}

// Judge 实现 oracle.Oracle
func (o *ScriptedOracle) Judge(ctx context.Context, content, prompt string) (oracle.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	call := OracleCall{Content: content, Prompt: prompt, Verdict: oracle.NotFound}
	for _, r := range o.rules {
		if r.match(content) {
			call.Verdict, call.Err = r.verdict, r.err
			break
		}
	}
	o.calls = append(o.calls, call)
	if call.Err != nil {
		return "", call.Err
	}
	return call.Verdict, nil
}

// Calls 返回调用记录副本
func (o *ScriptedOracle) Calls() []OracleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OracleCall, len(o.calls))
	copy(out, o.calls)
	return out
}

// CallCount 返回调用次数
func (o *ScriptedOracle) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}
