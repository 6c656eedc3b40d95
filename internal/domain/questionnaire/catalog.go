package questionnaire

import (
	"fmt"

	"github.com/legalintake/backend/internal/domain/shared"
)

// Catalog provides the ordered question sequence for one questionnaire type.
// Indices are dense (0..N-1) and part boundaries are derivable purely from
// the index. Implementations must be stable across calls and side-effect free.
type Catalog interface {
	// Questions returns the full ordered sequence
	Questions() []Question
	// QuestionAt returns the question at the given dense index
	QuestionAt(index int) (*Question, error)
	// QuestionCount returns the total number of questions
	QuestionCount() int
	// PartForIndex returns the part number for a question index
	PartForIndex(index int) (int, error)
	// PartCount returns the number of parts, including empty ones
	PartCount() int
	// PartName returns the display name of a part
	PartName(part int) string
	// IndexOf returns the dense index of a question ID, or -1 when unknown
	IndexOf(questionID string) int
	// FirstIndexOfPart returns the index of the first question in the part,
	// or -1 when the part has no questions
	FirstIndexOfPart(part int) int
}

// StaticCatalog is an in-memory Catalog built from a fixed question slice.
type StaticCatalog struct {
	questions []Question
	partNames map[int]string
	partCount int
	indexByID map[string]int
}

// NewStaticCatalog builds a catalog from an ordered question list. It returns
// an error when IDs collide, part numbers decrease along the sequence, or a
// question carries an unknown type.
func NewStaticCatalog(questions []Question, partNames map[int]string, partCount int) (*StaticCatalog, error) {
	indexByID := make(map[string]int, len(questions))
	lastPart := 0
	for i, q := range questions {
		if !q.Type.IsValid() {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("question %s has unknown type %q", q.ID, q.Type))
		}
		if _, dup := indexByID[q.ID]; dup {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("duplicate question ID %s", q.ID))
		}
		if q.PartNumber < lastPart {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("part number decreases at question %s", q.ID))
		}
		if q.PartNumber > partCount {
			return nil, shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("question %s references part %d beyond part count %d", q.ID, q.PartNumber, partCount))
		}
		lastPart = q.PartNumber
		indexByID[q.ID] = i
	}
	return &StaticCatalog{
		questions: questions,
		partNames: partNames,
		partCount: partCount,
		indexByID: indexByID,
	}, nil
}

// Questions returns a copy of the ordered question sequence
func (c *StaticCatalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// QuestionAt returns the question at the given index
func (c *StaticCatalog) QuestionAt(index int) (*Question, error) {
	if index < 0 || index >= len(c.questions) {
		return nil, shared.NewDomainError("INVALID_INDEX", fmt.Sprintf("question index %d out of range", index))
	}
	q := c.questions[index]
	return &q, nil
}

// QuestionCount returns the total number of questions
func (c *StaticCatalog) QuestionCount() int {
	return len(c.questions)
}

// PartForIndex returns the part number the question at index belongs to
func (c *StaticCatalog) PartForIndex(index int) (int, error) {
	q, err := c.QuestionAt(index)
	if err != nil {
		return 0, err
	}
	return q.PartNumber, nil
}

// PartCount returns the number of declared parts
func (c *StaticCatalog) PartCount() int {
	return c.partCount
}

// PartName returns the display name for a part
func (c *StaticCatalog) PartName(part int) string {
	if name, ok := c.partNames[part]; ok {
		return name
	}
	return fmt.Sprintf("第%d部分", part)
}

// IndexOf returns the dense index for a question ID, or -1 when unknown
func (c *StaticCatalog) IndexOf(questionID string) int {
	if i, ok := c.indexByID[questionID]; ok {
		return i
	}
	return -1
}

// FirstIndexOfPart returns the index of the first question in the part
func (c *StaticCatalog) FirstIndexOfPart(part int) int {
	for i, q := range c.questions {
		if q.PartNumber == part {
			return i
		}
	}
	return -1
}

// TrafficAccidentCatalog returns the built-in traffic accident intake
// questionnaire: three parts covering basic information, the accident process
// and liability, and insurance and compensation.
func TrafficAccidentCatalog() *StaticCatalog {
	questions := []Question{
		{ID: "q1", PartNumber: 1, Text: "您是否遭遇了交通事故？", Type: QuestionTypeSingleChoice, Options: []string{"是", "否"}, Required: true},
		{ID: "q2", PartNumber: 1, Text: "事故类别是？", Type: QuestionTypeSingleChoice, Options: []string{"机动车之间", "机动车与非机动车", "机动车与行人", "其他"}, Required: true},
		{ID: "q3", PartNumber: 1, Text: "请填写您的基本信息", Type: QuestionTypeForm, Fields: []FormField{
			{Key: "Name", Label: "姓名", Required: true},
			{Key: "IDNumber", Label: "身份证号", Required: true},
			{Key: "Tele", Label: "联系电话", Required: true},
			{Key: "Address", Label: "联系地址", Required: false},
		}, Required: true},
		{ID: "q4", PartNumber: 1, Text: "请上传您的身份证照片", Type: QuestionTypeFileUpload, Required: false},
		{ID: "q5", PartNumber: 1, Text: "事故发生的时间和地点？", Type: QuestionTypeFreeText, Required: true},
		{ID: "q6", PartNumber: 2, Text: "请描述事故发生的经过", Type: QuestionTypeFreeText, Required: true},
		{ID: "q7", PartNumber: 2, Text: "对方当事人信息（如已知）", Type: QuestionTypeForm, Fields: []FormField{
			{Key: "OppoName", Label: "对方姓名", Required: false},
			{Key: "OppoPlate", Label: "对方车牌号", Required: false},
			{Key: "OppoTele", Label: "对方联系电话", Required: false},
		}, Required: false},
		{ID: "q8", PartNumber: 2, Text: "交警是否已出警处理？", Type: QuestionTypeSingleChoice, Options: []string{"是", "否"}, Required: true},
		{ID: "q9", PartNumber: 2, Text: "您掌握哪些证据材料？", Type: QuestionTypeMultiChoice, Options: []string{"现场照片", "行车记录仪视频", "监控录像", "证人证言", "医疗记录", "无"}, Required: true},
		{ID: "q10", PartNumber: 2, Text: "是否已取得交通事故责任认定书？", Type: QuestionTypeSingleChoice, Options: []string{"是", "否", "尚在认定中"}, Required: true},
		{ID: "q11", PartNumber: 2, Text: "请上传责任认定书照片（如有）", Type: QuestionTypeFileUpload, Required: false},
		{ID: "q12", PartNumber: 3, Text: "您的人身或财产损失情况？", Type: QuestionTypeMultiChoice, Options: []string{"人身伤害", "车辆损失", "其他财产损失", "无明显损失"}, Required: true},
		{ID: "q13", PartNumber: 3, Text: "对方车辆是否投保交强险？", Type: QuestionTypeSingleChoice, Options: []string{"是", "否", "不清楚"}, Required: true},
		{ID: "q14", PartNumber: 3, Text: "请填写各项赔偿金额（元）", Type: QuestionTypeForm, Fields: []FormField{
			{Key: "MedicalCost", Label: "医疗费", Required: false},
			{Key: "LostWages", Label: "误工费", Required: false},
			{Key: "VehicleRepair", Label: "车辆维修费", Required: false},
			{Key: "OtherCost", Label: "其他费用", Required: false},
		}, Required: false},
		{ID: "q15", PartNumber: 3, Text: "是否已与对方或保险公司协商？", Type: QuestionTypeSingleChoice, Options: []string{"已协商达成一致", "协商未达成一致", "尚未协商"}, Required: true},
		{ID: "q16", PartNumber: 3, Text: "您是否需要律师介入处理？", Type: QuestionTypeSingleChoice, Options: []string{"需要律师", "暂不需要"}, Required: true},
	}
	partNames := map[int]string{
		1: "基本信息采集",
		2: "事故过程与责任认定",
		3: "保险与赔偿信息",
	}
	catalog, err := NewStaticCatalog(questions, partNames, 3)
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return catalog
}
