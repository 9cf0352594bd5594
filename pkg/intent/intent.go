// Package intent 提供消息意图分类能力
package intent

import (
	"context"
	"regexp"
	"strings"
)

// Intent 顶层意图类别（封闭集合）
type Intent string

const (
	IntentCreateEvent      Intent = "create_event"
	IntentCreateTask       Intent = "create_task"
	IntentViewCalendar     Intent = "view_calendar"
	IntentViewTasks        Intent = "view_tasks"
	IntentUpdateEvent      Intent = "update_event"
	IntentDeleteEvent      Intent = "delete_event"
	IntentMarkTaskComplete Intent = "mark_task_complete"
	IntentGeneralQuery     Intent = "general_query"
)

// All 返回全部合法意图
func All() []Intent {
	return []Intent{
		IntentCreateEvent,
		IntentCreateTask,
		IntentViewCalendar,
		IntentViewTasks,
		IntentUpdateEvent,
		IntentDeleteEvent,
		IntentMarkTaskComplete,
		IntentGeneralQuery,
	}
}

// Valid 判断字符串是否是合法意图
func Valid(s string) bool {
	for _, i := range All() {
		if string(i) == s {
			return true
		}
	}
	return false
}

// Mutating 判断意图是否会产生外部副作用
// 低置信度分类绝不落到会修改数据的意图上
func (i Intent) Mutating() bool {
	switch i {
	case IntentCreateEvent, IntentCreateTask, IntentUpdateEvent, IntentDeleteEvent, IntentMarkTaskComplete:
		return true
	}
	return false
}

// Classification 分类结果
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier 可插拔的分类能力
// 核心把它当作黑盒：返回意图 + 置信度
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Resolver 在分类能力之上套置信度阈值
// 置信度低于阈值时落到 general_query 安全兜底，绝不猜测修改性操作
type Resolver struct {
	classifier Classifier
	threshold  float64
}

// NewResolver 创建意图解析器
func NewResolver(classifier Classifier, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Resolver{classifier: classifier, threshold: threshold}
}

// Resolve 解析消息意图
// 分类失败或置信度不足时返回 general_query，不向上传播错误
func (r *Resolver) Resolve(ctx context.Context, text string) Classification {
	cls, err := r.classifier.Classify(ctx, text)
	if err != nil || cls.Confidence < r.threshold || !Valid(string(cls.Intent)) {
		return Classification{Intent: IntentGeneralQuery, Confidence: cls.Confidence}
	}
	return cls
}

// 事件引用形状：引号包裹的标题、#编号、"event <id>" 式引用
var eventRefRes = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`'([^']+)'`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(?i)\bevent\s+([0-9a-f]{8}[0-9a-f-]{4,})`),
	regexp.MustCompile(`(?i)\b(?:the|my)\s+([a-z][a-z ]{2,40}?)\s+(?:event|meeting|appointment)\b`),
}

// ExtractEventReference 从消息文本提取显式事件引用
// update_event / delete_event 需要引用；找不到返回空串，
// 执行阶段以 MissingEventId 快速失败
func ExtractEventReference(text string) string {
	for _, re := range eventRefRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// HasEventReference 判断消息是否含显式事件引用
func HasEventReference(text string) bool {
	return ExtractEventReference(text) != ""
}
