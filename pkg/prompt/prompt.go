// Package prompt 提供提示词生成和管理功能
package prompt

import (
	"bytes"
	"text/template"
	"time"

	"github.com/KodaTao/ScheduleAgent/pkg/prompt/templates"
)

// Generator 提示词生成器
type Generator struct {
	classifyTemplate *template.Template
	queryTemplate    *template.Template
}

// NewGenerator 创建提示词生成器
func NewGenerator() *Generator {
	return &Generator{
		classifyTemplate: template.Must(template.New("classify").Parse(templates.ClassifyPrompt)),
		queryTemplate:    template.Must(template.New("query").Parse(templates.QueryPrompt)),
	}
}

// ClassifyData 分类模板数据
type ClassifyData struct {
	Intents []string
}

// QueryData 内联应答模板数据
type QueryData struct {
	CurrentTime string
}

// GenerateClassifyPrompt 生成意图分类提示词
func (g *Generator) GenerateClassifyPrompt(intents []string) (string, error) {
	var buf bytes.Buffer
	if err := g.classifyTemplate.Execute(&buf, ClassifyData{Intents: intents}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GenerateQueryPrompt 生成内联应答提示词
func (g *Generator) GenerateQueryPrompt(now time.Time) (string, error) {
	var buf bytes.Buffer
	data := QueryData{CurrentTime: now.Format(time.RFC3339)}
	if err := g.queryTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GenerateWithCustomTemplate 使用自定义模板生成提示词
func (g *Generator) GenerateWithCustomTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("custom").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DefaultGenerator 默认生成器实例
var DefaultGenerator = NewGenerator()
