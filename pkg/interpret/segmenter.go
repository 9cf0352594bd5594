package interpret

import (
	"regexp"
	"strings"
)

// ClauseRole 子句角色
type ClauseRole string

const (
	// RoleActivity 普通活动子句
	RoleActivity ClauseRole = "activity"
	// RoleBreakHint 含 break/buffer 连接词但无显式时间区间的子句
	RoleBreakHint ClauseRole = "break_hint"
)

// Clause 有序的消息子句
// 子句永不重排：文档顺序就是时间顺序
type Clause struct {
	Text  string
	Order int
	Role  ClauseRole
}

// break/buffer 连接词汇表
// 与标点无关地扫描，既用于角色判定也用于时长令牌识别
var breakVocab = []string{"break", "puffer", "buffer", "pause", "afterwards"}

// containsBreakVocab 判断文本是否含 break/buffer 词汇
func containsBreakVocab(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range breakVocab {
		if containsWord(lower, word) {
			return true
		}
	}
	return false
}

var (
	// 结构分隔符：独立的破折号、逗号、分号、换行
	delimiterRe = regexp.MustCompile(`\s+[-–—]\s+|[,;\n]`)

	// 列表标记，如 "1." "2)" "- " "* "
	listMarkerRe = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*•])\s+`)

	// 时间区间内部的分隔空格，切分前先收紧，避免区间被拆开
	rangeGapRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[-–—]\s*(\d{1,2}:\d{2})`)
)

// Segmenter 子句切分器
// 按结构分隔符切分原始文本，再按 break/buffer 词汇重判角色
type Segmenter struct{}

// NewSegmenter 创建子句切分器
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment 将原始文本切分为有序子句
func (s *Segmenter) Segment(text string) []Clause {
	// 先收紧时间区间，防止 "3:30 - 6:00" 被当作两个片段
	normalized := rangeGapRe.ReplaceAllString(text, "$1-$2")
	normalized = listMarkerRe.ReplaceAllString(normalized, ";")

	fragments := delimiterRe.Split(normalized, -1)
	merged := mergeFragments(fragments)

	clauses := make([]Clause, 0, len(merged))
	for _, frag := range merged {
		role := RoleActivity
		if containsBreakVocab(frag) && !rangeRe.MatchString(frag) {
			role = RoleBreakHint
		}
		clauses = append(clauses, Clause{
			Text:  frag,
			Order: len(clauses),
			Role:  role,
		})
	}
	return clauses
}

// mergeFragments 合并属于同一子句的相邻片段
// 两条规则：
//  1. 含时间表达的片段吞并紧随其后的无时间、无 break 词汇片段（时间+标题）
//  2. 仅含 break 词汇的无时间片段并入前一个 break 片段（"as a puffer"）
func mergeFragments(fragments []string) []string {
	var out []string
	for _, frag := range fragments {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}

		hasTime := anchorRe.MatchString(frag) || durRe.MatchString(frag)

		if !hasTime && containsBreakVocab(frag) && len(out) > 0 && containsBreakVocab(out[len(out)-1]) {
			out[len(out)-1] += " " + frag
			continue
		}

		if !hasTime && len(out) > 0 && !containsBreakVocab(frag) {
			prev := out[len(out)-1]
			if anchorRe.MatchString(prev) && !hasTitleText(prev) {
				out[len(out)-1] = prev + " " + frag
				continue
			}
		}

		out = append(out, frag)
	}
	return out
}

// hasTitleText 判断片段去掉时间表达和常见指令前缀后是否还有描述文字
func hasTitleText(frag string) bool {
	return deriveTitle(frag) != ""
}
