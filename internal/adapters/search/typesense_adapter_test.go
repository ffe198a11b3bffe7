package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

func TestBuildBlogDocument(t *testing.T) {
	posted := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	doc := buildBlogDocument(&entities.Blog{
		BlogID:     42,
		Title:      "Managing seasonal allergies",
		Category:   "Wellness",
		AuthorName: "Dr. Rao",
		Tags:       []string{" allergy ", "", "spring"},
		DateOfPost: posted,
	})

	assert.Equal(t, "42", doc["id"])
	assert.Equal(t, int64(42), doc["blog_id"])
	assert.Equal(t, []string{"allergy", "spring"}, doc["tags"])
	assert.Equal(t, posted.Unix(), doc["date_of_post"])
}

func TestDocumentBlogID(t *testing.T) {
	id, ok := documentBlogID(map[string]interface{}{"blog_id": float64(7)})
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	id, ok = documentBlogID(map[string]interface{}{"id": "19"})
	assert.True(t, ok)
	assert.Equal(t, int64(19), id)

	_, ok = documentBlogID(map[string]interface{}{"id": "not-a-number"})
	assert.False(t, ok)
}
