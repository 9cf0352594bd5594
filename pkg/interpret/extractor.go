package interpret

import (
	"regexp"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/faults"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// EventDescriptor 结构化事件描述
// 不变量：End > Start；相邻描述符满足 desc[i].End <= desc[i+1].Start
type EventDescriptor struct {
	Title             string    `json:"title"`
	Date              time.Time `json:"date"`
	Start             Clock     `json:"startTime"`
	End               Clock     `json:"endTime"`
	Description       string    `json:"description,omitempty"`
	SourceClauseOrder int       `json:"sourceClauseOrder"`

	// explicitStart/inferredEnd 记录边界来源，调和阶段使用
	explicitStart bool
	inferredEnd   bool
}

// TaskDescriptor 结构化任务描述
type TaskDescriptor struct {
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Description string     `json:"description,omitempty"`
}

// DiagnosticBoundaryReconciled 边界调和诊断类型
const DiagnosticBoundaryReconciled = "BoundaryReconciled"

// Diagnostic 抽取过程中产生的非致命诊断
type Diagnostic struct {
	Kind        string `json:"kind"`
	ClauseOrder int    `json:"clauseOrder"`
	Detail      string `json:"detail"`
}

// Extraction 抽取结果：有序事件序列 + 诊断
type Extraction struct {
	Events      []EventDescriptor `json:"events"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// Extractor 多事件抽取器
// 将切分后的子句和时间令牌组合为时序一致的事件序列
type Extractor struct {
	segmenter *Segmenter
	parser    *TokenParser
}

// NewExtractor 创建多事件抽取器
func NewExtractor() *Extractor {
	return &Extractor{
		segmenter: NewSegmenter(),
		parser:    NewTokenParser(),
	}
}

// Extract 从原始消息抽取事件序列
// 失败类别：
//   - MalformedTimeExpression 子句声称含时间但无法识别，或整条消息无任何时间
//   - AmbiguousEventBoundary  边界无法推断（结尾锚点无结束、开头即 break）
//   - ValidationFailure       时序不变量违反且无法调和
func (e *Extractor) Extract(msg types.RawMessage) (*Extraction, error) {
	clauses := e.segmenter.Segment(msg.Text)

	var (
		events  []EventDescriptor
		prev    *Clock
		date    = truncateToDay(msg.ReceivedAt)
		pending = -1 // 等待补齐结束时间的描述符下标
	)

	for _, clause := range clauses {
		// 日期词汇：显式提及后，后续子句继承
		// 跨到更晚的日期时，时刻单调性重新起算，
		// 否则次日清晨的锚点会被上一天的边界强制 +12 小时
		if d, ok := ResolveDate(clause.Text, msg.ReceivedAt); ok {
			if d.After(date) {
				prev = nil
			}
			date = d
		}

		token, err := e.parser.Parse(clause.Text, prev)
		if err != nil {
			return nil, err
		}

		if token == nil {
			// 无时间的描述性子句，不产生描述符
			continue
		}

		switch token.Kind {
		case TokenRange:
			desc := EventDescriptor{
				Title:             clauseTitle(clause),
				Date:              date,
				Start:             token.Start,
				End:               token.End,
				Description:       clause.Text,
				SourceClauseOrder: clause.Order,
				explicitStart:     true,
			}
			// 前一个描述符还缺结束时间：用本子句的显式开始补齐
			if pending >= 0 {
				events[pending].End = token.Start
				events[pending].inferredEnd = true
				pending = -1
			}
			events = append(events, desc)
			end := token.End
			prev = &end

		case TokenDuration:
			if clause.Role != RoleBreakHint {
				// 时长短语只对 break 子句有意义
				continue
			}
			if len(events) == 0 || pending >= 0 {
				return nil, faults.New(faults.KindAmbiguousBoundary,
					"break has no preceding event boundary to attach to").WithClause(clause.Text)
			}
			start := events[len(events)-1].End
			desc := EventDescriptor{
				Title:             clauseTitle(clause),
				Date:              date,
				Start:             start,
				End:               start + Clock(token.Duration/time.Minute),
				Description:       clause.Text,
				SourceClauseOrder: clause.Order,
				inferredEnd:       true,
			}
			events = append(events, desc)
			end := desc.End
			prev = &end

		case TokenTimeOfDay:
			// 只有开始时间：结束时间由下一个子句的开始补齐
			if pending >= 0 {
				events[pending].End = token.Start
				events[pending].inferredEnd = true
			}
			desc := EventDescriptor{
				Title:             clauseTitle(clause),
				Date:              date,
				Start:             token.Start,
				Description:       clause.Text,
				SourceClauseOrder: clause.Order,
				explicitStart:     true,
			}
			events = append(events, desc)
			pending = len(events) - 1
			start := token.Start
			prev = &start
		}
	}

	if pending >= 0 {
		return nil, faults.New(faults.KindAmbiguousBoundary,
			"event has a start time but no end time and no following clause").
			WithClause(events[pending].Description)
	}
	if len(events) == 0 {
		return nil, faults.New(faults.KindMalformedTime, "no recognizable time expression in message")
	}

	result := &Extraction{Events: events}
	e.reconcile(result)

	if err := validateOrdering(result.Events); err != nil {
		return nil, err
	}
	return result, nil
}

// reconcile 调和阶段
// 推断出的 break 结束时间与下一子句的显式开始冲突时，显式时间优先：
// 强制 break 的结束等于下一个显式开始，并附加 BoundaryReconciled 诊断
func (e *Extractor) reconcile(result *Extraction) {
	events := result.Events
	for i := 0; i < len(events)-1; i++ {
		next := &events[i+1]
		cur := &events[i]
		if !cur.inferredEnd || !next.explicitStart || !cur.Date.Equal(next.Date) || cur.End == next.Start {
			continue
		}
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Kind:        DiagnosticBoundaryReconciled,
			ClauseOrder: cur.SourceClauseOrder,
			Detail:      "inferred end " + cur.End.String() + " adjusted to explicit start " + next.Start.String(),
		})
		cur.End = next.Start
	}
}

// validateOrdering 校验时序不变量
// 调和后仍违反约束时整条消息失败，绝不输出不一致的序列
func validateOrdering(events []EventDescriptor) error {
	for i := range events {
		if events[i].End <= events[i].Start {
			return faults.Newf(faults.KindValidation,
				"event %q ends at %s, not after it starts at %s",
				events[i].Title, events[i].End, events[i].Start).WithClause(events[i].Description)
		}
		if i > 0 && events[i-1].Date.Equal(events[i].Date) && events[i-1].End > events[i].Start {
			return faults.Newf(faults.KindValidation,
				"event %q starts at %s, before the previous event ends at %s",
				events[i].Title, events[i].Start, events[i-1].End).WithClause(events[i].Description)
		}
	}
	return nil
}

// 标题派生：去掉时间表达和指令前缀后的首个描述短语
var (
	commandPrefixRe = regexp.MustCompile(`(?i)^(please\s+)?(create|add|schedule|make)\s+(an?\s+)?(event|appointment|meeting)?\s*`)
	taskPrefixRe    = regexp.MustCompile(`(?i)^(please\s+)?(create|add|make)\s+(a\s+)?(task|todo)(\s+to)?\s*`)
	connectiveRe    = regexp.MustCompile(`(?i)^(and|then|also)\s+`)
)

// deriveTitle 从子句文本派生描述短语
// 确定性映射：去掉时间表达、指令前缀、连接词，压缩空白
func deriveTitle(text string) string {
	s := rangeRe.ReplaceAllString(text, " ")
	s = anchorRe.ReplaceAllString(s, " ")
	s = commandPrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = connectiveRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Trim(s, " ,.-–—;:")
	return strings.Join(strings.Fields(s), " ")
}

// clauseTitle 子句标题：break 子句使用类别标签，活动子句使用派生短语
func clauseTitle(clause Clause) string {
	if clause.Role == RoleBreakHint {
		return "Break"
	}
	if title := deriveTitle(clause.Text); title != "" {
		return title
	}
	return "Activity"
}

// ExtractTask 从原始消息抽取任务描述
// 截止时间可选：日期词汇 + 可选时刻锚点
func ExtractTask(msg types.RawMessage) *TaskDescriptor {
	task := &TaskDescriptor{Description: msg.Text}

	title := taskPrefixRe.ReplaceAllString(strings.TrimSpace(msg.Text), "")
	title = deriveTitle(title)
	if title == "" {
		title = "Task"
	}
	task.Title = title

	if date, ok := ResolveDate(msg.Text, msg.ReceivedAt); ok {
		due := date
		if m := anchorRe.FindStringSubmatch(msg.Text); m != nil {
			if h, mm, err := clockFields(m[1], m[2]); err == nil {
				due = resolveClock(h, mm, nil).ToTime(date)
			}
		}
		task.DueDate = &due
	}
	return task
}
