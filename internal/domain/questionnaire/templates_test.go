package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func templateCodes(options []TemplateOption) []string {
	codes := make([]string, 0, len(options))
	for _, o := range options {
		codes = append(codes, o.Code)
	}
	return codes
}

func TestTemplateOptionByCode(t *testing.T) {
	option, ok := TemplateOptionByCode(TemplateCodeCivilComplaint)
	assert.True(t, ok)
	assert.Equal(t, "民事起诉状", option.Name)

	_, ok = TemplateOptionByCode("999")
	assert.False(t, ok)
}

func TestRecommendedTemplates(t *testing.T) {
	t.Run("baseline always offers complaint and power of attorney", func(t *testing.T) {
		codes := templateCodes(RecommendedTemplates(map[string]Answer{}))
		assert.Equal(t, []string{TemplateCodeCivilComplaint, TemplateCodePowerOfAttorney}, codes)
	})

	t.Run("evidence adds the evidence list", func(t *testing.T) {
		answers := map[string]Answer{
			"q9": {QuestionID: "q9", Value: NewListValue([]string{"现场照片", "医疗记录"})},
		}
		assert.Contains(t, templateCodes(RecommendedTemplates(answers)), TemplateCodeEvidenceList)
	})

	t.Run("no evidence skips the evidence list", func(t *testing.T) {
		answers := map[string]Answer{
			"q9": {QuestionID: "q9", Value: NewListValue([]string{"无"})},
		}
		assert.NotContains(t, templateCodes(RecommendedTemplates(answers)), TemplateCodeEvidenceList)
	})

	t.Run("settled negotiation adds the settlement agreement", func(t *testing.T) {
		answers := map[string]Answer{
			"q15": {QuestionID: "q15", Value: NewScalarValue("已协商达成一致")},
		}
		assert.Contains(t, templateCodes(RecommendedTemplates(answers)), TemplateCodeSettlement)
	})

	t.Run("failed negotiation skips the settlement agreement", func(t *testing.T) {
		answers := map[string]Answer{
			"q15": {QuestionID: "q15", Value: NewScalarValue("协商未达成一致")},
		}
		assert.NotContains(t, templateCodes(RecommendedTemplates(answers)), TemplateCodeSettlement)
	})
}
