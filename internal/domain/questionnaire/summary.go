package questionnaire

import (
	"fmt"
	"sort"
	"time"
)

// PartSummary is the AI-generated recap of one completed part. The user must
// approve it before the interview moves on; rejecting it records feedback and
// regenerates the content with approval reset.
type PartSummary struct {
	PartNumber  int       `json:"part_number"`
	Content     string    `json:"content"`
	Approved    bool      `json:"approved"`
	Feedback    string    `json:"feedback,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PartKey returns the map key used for a part's summary ("part1", "part2", ...)
func PartKey(part int) string {
	return fmt.Sprintf("part%d", part)
}

// FallbackSummary builds a deterministic summary from the raw answers of a
// part, used whenever the external generator fails or times out. It depends
// only on local state so the workflow can always move forward.
func FallbackSummary(catalog Catalog, answers map[string]Answer, part int) string {
	type line struct {
		index int
		text  string
	}
	var lines []line
	for id, ans := range answers {
		idx := catalog.IndexOf(id)
		if idx < 0 {
			continue
		}
		q, err := catalog.QuestionAt(idx)
		if err != nil || q.PartNumber != part {
			continue
		}
		lines = append(lines, line{index: idx, text: fmt.Sprintf("• %s：%s", q.Text, ans.Value.String())})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].index < lines[j].index })

	summary := fmt.Sprintf("【%s】已完成，共回答%d个问题。", catalog.PartName(part), len(lines))
	if len(lines) > 0 {
		summary += "\n\n关键信息：\n"
		for i, l := range lines {
			if i > 0 {
				summary += "\n"
			}
			summary += l.text
		}
	}
	summary += "\n\n（注：智能摘要服务暂时不可用，此为基础摘要）"
	return summary
}
