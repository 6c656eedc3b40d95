package docgen

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TemplateEngine renders legal document HTML templates. It uses Go's
// html/template package with formatting functions for money, dates, and
// Chinese uppercase amounts.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// NewTemplateEngine creates a new template engine
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{}
	e.funcMap = template.FuncMap{
		"formatMoney":    formatMoney,
		"formatMoneyRaw": formatMoneyRaw,
		"moneyToChinese": moneyToChinese,
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"chineseDate":    chineseDate,
		"join":           strings.Join,
		"trim":           strings.TrimSpace,
		"default":        defaultFunc,
		"now":            time.Now,
	}
	return e
}

// RenderString renders a template string with the provided data
func (e *TemplateEngine) RenderString(name, content string, data interface{}) (string, error) {
	if content == "" {
		return "", fmt.Errorf("template %s has no content", name)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// GetFuncMap returns a copy of the template function map
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

func toDecimal(v interface{}) decimal.Decimal {
	switch t := v.(type) {
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case float64:
		return decimal.NewFromFloat(t)
	}
	return decimal.Zero
}

func toTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t == nil {
			return time.Time{}
		}
		return *t
	}
	return time.Time{}
}

// formatMoney formats a value as currency with the yuan symbol.
// Example: 1234.56 -> "¥1,234.56"
func formatMoney(v interface{}) string {
	return "¥" + formatMoneyRaw(v)
}

// formatMoneyRaw formats a value as currency without symbol.
// Example: 1234.56 -> "1,234.56"
func formatMoneyRaw(v interface{}) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.Split(d.StringFixed(2), ".")
	intPart := parts[0]
	decPart := "00"
	if len(parts) > 1 {
		decPart = parts[1]
	}

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String() + "." + decPart
}

// moneyToChinese converts a money value to Chinese uppercase format.
// Example: 1234.56 -> "壹仟贰佰叁拾肆元伍角陆分"
func moneyToChinese(v interface{}) string {
	d := toDecimal(v)
	if d.IsZero() {
		return "零元整"
	}

	sign := ""
	if d.IsNegative() {
		sign = "负"
		d = d.Abs()
	}

	chnNum := []string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	chnUnit := []string{"", "拾", "佰", "仟"}
	chnBigUnit := []string{"", "万", "亿", "万亿"}

	cents := d.Mul(decimal.NewFromInt(100)).IntPart()
	yuan := cents / 100
	jiao := (cents % 100) / 10
	fen := cents % 10

	var result strings.Builder
	result.WriteString(sign)

	if yuan > 0 {
		yuanStr := fmt.Sprintf("%d", yuan)
		length := len(yuanStr)
		zeroFlag := false
		lastBigUnitWritten := -1

		for i, c := range yuanStr {
			n := int(c - '0')
			pos := length - i - 1
			bigUnitPos := pos / 4
			unitPos := pos % 4

			if n == 0 {
				zeroFlag = true
			} else {
				if zeroFlag && result.Len() > len(sign) {
					result.WriteString(chnNum[0])
					zeroFlag = false
				}
				result.WriteString(chnNum[n])
				result.WriteString(chnUnit[unitPos])
				if unitPos == 0 && bigUnitPos > 0 && bigUnitPos != lastBigUnitWritten {
					result.WriteString(chnBigUnit[bigUnitPos])
					lastBigUnitWritten = bigUnitPos
				}
			}
		}
		result.WriteString("元")
	}

	if jiao == 0 && fen == 0 {
		result.WriteString("整")
	} else {
		if jiao == 0 && yuan > 0 {
			result.WriteString("零")
		} else if jiao > 0 {
			result.WriteString(chnNum[jiao])
			result.WriteString("角")
		}
		if fen > 0 {
			result.WriteString(chnNum[fen])
			result.WriteString("分")
		}
	}

	return result.String()
}

// formatDate formats a time value as "2006-01-02"
func formatDate(v interface{}) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// formatDateTime formats a time value as "2006-01-02 15:04:05"
func formatDateTime(v interface{}) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// chineseDate formats a time value as "2006年1月2日"
func chineseDate(v interface{}) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

// defaultFunc returns the fallback when the value is empty
func defaultFunc(fallback, value interface{}) interface{} {
	s := strings.TrimSpace(fmt.Sprintf("%v", value))
	if value == nil || s == "" || s == "<nil>" {
		return fallback
	}
	return value
}
