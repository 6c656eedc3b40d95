package questionnaire

// TemplateOption describes one document template the user may select for
// auto-generation after the interview.
type TemplateOption struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Document template codes offered by the intake workflow
const (
	TemplateCodePowerOfAttorney = "008"
	TemplateCodeCivilComplaint  = "035"
	TemplateCodeEvidenceList    = "040"
	TemplateCodeSettlement      = "052"
)

// AllTemplateOptions returns the full document template catalog
func AllTemplateOptions() []TemplateOption {
	return []TemplateOption{
		{Code: TemplateCodeCivilComplaint, Name: "民事起诉状", Description: "标准民事起诉状模板"},
		{Code: TemplateCodePowerOfAttorney, Name: "授权委托书", Description: "律师授权委托书"},
		{Code: TemplateCodeEvidenceList, Name: "证据清单", Description: "随案提交的证据材料清单"},
		{Code: TemplateCodeSettlement, Name: "和解协议书", Description: "双方自行和解的协议文本"},
	}
}

// TemplateOptionByCode looks up a template option by its code
func TemplateOptionByCode(code string) (TemplateOption, bool) {
	for _, t := range AllTemplateOptions() {
		if t.Code == code {
			return t, true
		}
	}
	return TemplateOption{}, false
}

// RecommendedTemplates derives the template list to offer from the session's
// answers. The complaint and power of attorney are always offered; the
// evidence list is added when the user holds evidence material, and the
// settlement agreement when negotiation succeeded.
func RecommendedTemplates(answers map[string]Answer) []TemplateOption {
	recommended := []TemplateOption{}
	add := func(code string) {
		if t, ok := TemplateOptionByCode(code); ok {
			recommended = append(recommended, t)
		}
	}
	add(TemplateCodeCivilComplaint)
	add(TemplateCodePowerOfAttorney)

	if a, ok := answers["q9"]; ok {
		if items, ok := a.Value.AsList(); ok {
			for _, item := range items {
				if item != "无" {
					add(TemplateCodeEvidenceList)
					break
				}
			}
		}
	}
	if a, ok := answers["q15"]; ok {
		if v, ok := a.Value.AsScalar(); ok && v == "已协商达成一致" {
			add(TemplateCodeSettlement)
		}
	}
	return recommended
}
