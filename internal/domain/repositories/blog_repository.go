package repositories

import (
	"context"
	"time"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

// BlogRepository defines the interface for blog data operations
type BlogRepository interface {
	Create(ctx context.Context, blog *entities.Blog) error
	List(ctx context.Context, filter BlogFilter) ([]*entities.Blog, error)
	Update(ctx context.Context, blogID int64, patch entities.BlogPatch) (*entities.Blog, error)
	Delete(ctx context.Context, filter BlogFilter) ([]*entities.Blog, error)
}

// BlogFilter defines blog predicates. Text fields match case-insensitive substrings.
type BlogFilter struct {
	BlogIDs    []int64
	Title      string
	Category   string
	AuthorName string
	Tag        string
	From       *time.Time
	To         *time.Time
}

// IsEmpty reports whether the filter would match every blog
func (f BlogFilter) IsEmpty() bool {
	return len(f.BlogIDs) == 0 && f.Title == "" && f.Category == "" &&
		f.AuthorName == "" && f.Tag == "" && f.From == nil && f.To == nil
}

// BlogSearchRepository defines full-text search over blogs
type BlogSearchRepository interface {
	// Index upserts the blog document
	Index(ctx context.Context, blog *entities.Blog) error

	// Delete removes the blog document
	Delete(ctx context.Context, blogID int64) error

	// Search returns blog ids ranked by relevance to query
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}
