package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrafficAccidentCatalog(t *testing.T) {
	catalog := TrafficAccidentCatalog()

	t.Run("indices are dense and stable", func(t *testing.T) {
		questions := catalog.Questions()
		require.Equal(t, catalog.QuestionCount(), len(questions))
		for i, q := range questions {
			got, err := catalog.QuestionAt(i)
			require.NoError(t, err)
			assert.Equal(t, q.ID, got.ID)
			assert.Equal(t, i, catalog.IndexOf(q.ID))
		}
	})

	t.Run("part numbers never decrease", func(t *testing.T) {
		last := 0
		for _, q := range catalog.Questions() {
			assert.GreaterOrEqual(t, q.PartNumber, last)
			last = q.PartNumber
		}
	})

	t.Run("part boundaries derive from index", func(t *testing.T) {
		for i := 0; i < catalog.QuestionCount(); i++ {
			part, err := catalog.PartForIndex(i)
			require.NoError(t, err)
			q, err := catalog.QuestionAt(i)
			require.NoError(t, err)
			assert.Equal(t, q.PartNumber, part)
		}
	})

	t.Run("covers all declared parts", func(t *testing.T) {
		assert.Equal(t, 3, catalog.PartCount())
		for part := 1; part <= catalog.PartCount(); part++ {
			first := catalog.FirstIndexOfPart(part)
			require.GreaterOrEqual(t, first, 0)
			got, err := catalog.PartForIndex(first)
			require.NoError(t, err)
			assert.Equal(t, part, got)
			assert.NotEmpty(t, catalog.PartName(part))
		}
	})

	t.Run("out of range index is rejected", func(t *testing.T) {
		_, err := catalog.QuestionAt(-1)
		assert.Error(t, err)
		_, err = catalog.QuestionAt(catalog.QuestionCount())
		assert.Error(t, err)
	})

	t.Run("unknown question ID yields -1", func(t *testing.T) {
		assert.Equal(t, -1, catalog.IndexOf("q999"))
	})
}

func TestNewStaticCatalogValidation(t *testing.T) {
	t.Run("rejects duplicate IDs", func(t *testing.T) {
		_, err := NewStaticCatalog([]Question{
			{ID: "a", PartNumber: 1, Type: QuestionTypeFreeText},
			{ID: "a", PartNumber: 1, Type: QuestionTypeFreeText},
		}, nil, 1)
		assert.Error(t, err)
	})

	t.Run("rejects decreasing part numbers", func(t *testing.T) {
		_, err := NewStaticCatalog([]Question{
			{ID: "a", PartNumber: 2, Type: QuestionTypeFreeText},
			{ID: "b", PartNumber: 1, Type: QuestionTypeFreeText},
		}, nil, 2)
		assert.Error(t, err)
	})

	t.Run("rejects unknown question type", func(t *testing.T) {
		_, err := NewStaticCatalog([]Question{
			{ID: "a", PartNumber: 1, Type: QuestionType("mystery")},
		}, nil, 1)
		assert.Error(t, err)
	})

	t.Run("rejects part beyond declared count", func(t *testing.T) {
		_, err := NewStaticCatalog([]Question{
			{ID: "a", PartNumber: 2, Type: QuestionTypeFreeText},
		}, nil, 1)
		assert.Error(t, err)
	})

	t.Run("reports missing parts as having no first index", func(t *testing.T) {
		c, err := NewStaticCatalog([]Question{
			{ID: "a", PartNumber: 1, Type: QuestionTypeFreeText},
			{ID: "b", PartNumber: 3, Type: QuestionTypeFreeText},
		}, nil, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, c.FirstIndexOfPart(1))
		assert.Equal(t, -1, c.FirstIndexOfPart(2))
		assert.Equal(t, 1, c.FirstIndexOfPart(3))
	})
}
