// Package interpret 提供自然语言日程解析：时间令牌、子句切分、多事件抽取
package interpret

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/faults"
)

// Clock 一天内的时刻，以零点起的分钟数表示
type Clock int

// String 格式化为 "HH:MM"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ToTime 与日期合并为完整时间
func (c Clock) ToTime(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, date.Location())
}

// TokenKind 时间令牌类型
type TokenKind string

const (
	// TokenTimeOfDay 单个时刻锚点，如 "3:30"
	TokenTimeOfDay TokenKind = "time_of_day"
	// TokenDuration 时长短语，如 "5 minutes"（与 break/buffer 词汇共现时才识别）
	TokenDuration TokenKind = "duration"
	// TokenRange 显式区间，如 "3:30 - 6:00"
	TokenRange TokenKind = "range"
)

// TemporalToken 从子句中识别出的时间令牌
// 纯派生数据，无身份
type TemporalToken struct {
	Kind     TokenKind
	Start    Clock
	End      Clock
	Duration time.Duration
}

var (
	// 严格的时间形状
	rangeRe  = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[-–—]\s*(\d{1,2}):(\d{2})`)
	anchorRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	durRe    = regexp.MustCompile(`(?i)(\d+)\s*min(?:ute)?s?\b`)

	// 宽松的"声称含时间"形状，用于识别格式错误的时间表达
	timeClaimRe = regexp.MustCompile(`\d{1,2}\s*:\s*\d{1,3}`)
)

// TokenParser 时间令牌解析器
// 通过单调性启发式消解 12 小时制歧义：锚点的 AM/PM 选择必须保持
// 整条消息的时间序列相对上一个已消解锚点非递减
type TokenParser struct{}

// NewTokenParser 创建时间令牌解析器
func NewTokenParser() *TokenParser {
	return &TokenParser{}
}

// Parse 从子句文本中解析时间令牌
// prev 是同一条消息中上一个已消解的时间边界，nil 表示这是首个锚点
// 子句不含任何可识别形状且声称含时间时返回 MalformedTimeExpression
func (p *TokenParser) Parse(text string, prev *Clock) (*TemporalToken, error) {
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		startH, startM, err := clockFields(m[1], m[2])
		if err != nil {
			return nil, faults.Wrap(faults.KindMalformedTime, "invalid range start", err).WithClause(text)
		}
		endH, endM, err := clockFields(m[3], m[4])
		if err != nil {
			return nil, faults.Wrap(faults.KindMalformedTime, "invalid range end", err).WithClause(text)
		}

		start := resolveClock(startH, startM, prev)
		end := resolveClock(endH, endM, &start)
		return &TemporalToken{Kind: TokenRange, Start: start, End: end}, nil
	}

	if m := anchorRe.FindStringSubmatch(text); m != nil {
		h, mm, err := clockFields(m[1], m[2])
		if err != nil {
			return nil, faults.Wrap(faults.KindMalformedTime, "invalid time anchor", err).WithClause(text)
		}
		anchor := resolveClock(h, mm, prev)
		return &TemporalToken{Kind: TokenTimeOfDay, Start: anchor}, nil
	}

	// 时长短语只有与 break/buffer 词汇共现时才是时间令牌
	if m := durRe.FindStringSubmatch(text); m != nil && containsBreakVocab(text) {
		minutes, err := strconv.Atoi(m[1])
		if err != nil || minutes <= 0 {
			return nil, faults.Newf(faults.KindMalformedTime, "invalid duration %q", m[1]).WithClause(text)
		}
		return &TemporalToken{Kind: TokenDuration, Duration: time.Duration(minutes) * time.Minute}, nil
	}

	// 子句看起来含时间但不匹配任何形状
	if timeClaimRe.MatchString(text) {
		return nil, faults.New(faults.KindMalformedTime, "unrecognized time expression").WithClause(text)
	}

	return nil, nil
}

// clockFields 解析并校验小时/分钟字段
func clockFields(hs, ms string) (int, int, error) {
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, err
	}
	if h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("time %d:%02d out of range", h, m)
	}
	return h, m, nil
}

// dayWindowStart / dayWindowEnd 首个锚点的消解窗口
// 没有前置锚点时，优先选择落在日间窗口内的解释
const (
	dayWindowStart Clock = 8 * 60
	dayWindowEnd   Clock = 22 * 60
)

// resolveClock 消解 12 小时制歧义
// 规则：
//  1. 13:00 及以后、0 点、12 点视为无歧义
//  2. 有前置锚点时，AM/PM 的选择必须保持非递减；两者都满足时取更近的
//  3. 无前置锚点时，取落在日间窗口 [08:00, 22:00) 内的解释；两者都在取较早的
func resolveClock(hour, minute int, prev *Clock) Clock {
	if hour == 0 || hour >= 12 {
		return Clock(hour*60 + minute)
	}

	am := Clock(hour*60 + minute)
	pm := am + 12*60

	if prev == nil {
		amIn := am >= dayWindowStart && am < dayWindowEnd
		pmIn := pm >= dayWindowStart && pm < dayWindowEnd
		switch {
		case amIn:
			return am
		case pmIn:
			return pm
		default:
			return am
		}
	}

	switch {
	case am >= *prev:
		// am < pm，两者都非递减时 am 离 prev 更近
		return am
	case pm >= *prev:
		return pm
	default:
		// 两种解释都早于前置锚点，取较晚的交给时序校验处理
		return pm
	}
}

// 日期词汇，用于从上下文继承日期
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveDate 从子句文本解析日期词汇（today/tomorrow/星期名）
// 未提及日期时返回 reference 当天，found 为 false
func ResolveDate(text string, reference time.Time) (date time.Time, found bool) {
	lower := strings.ToLower(text)
	base := truncateToDay(reference)

	if strings.Contains(lower, "tomorrow") {
		return base.AddDate(0, 0, 1), true
	}
	if strings.Contains(lower, "today") {
		return base, true
	}
	for name, weekday := range weekdayNames {
		if containsWord(lower, name) {
			offset := (int(weekday) - int(base.Weekday()) + 7) % 7
			if offset == 0 {
				offset = 7 // 下一个同名日，而不是今天
			}
			return base.AddDate(0, 0, offset), true
		}
	}
	return base, false
}

// truncateToDay 截断到当天零点
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// containsWord 判断文本是否包含完整单词
func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
