package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList(t *testing.T) {
	t.Run("defaults to file order without limit", func(t *testing.T) {
		lo := List()
		assert.Equal(t, FileOrder, lo.O)
		assert.Equal(t, 0, lo.Limit)
	})

	t.Run("setters chain", func(t *testing.T) {
		lo := List().SetOrder(MarksDesc).SetLimit(3)
		assert.Equal(t, MarksDesc, lo.O)
		assert.Equal(t, 3, lo.Limit)
	})
}
