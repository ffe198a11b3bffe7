package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

// BlogCachePrefix is the key prefix of cached blog responses
const BlogCachePrefix = "http:cache:blogs:"

const defaultBlogSearchLimit = 20

// BlogService handles blog business logic
type BlogService struct {
	repo         repositories.BlogRepository
	searchRepo   repositories.BlogSearchRepository
	sequenceRepo repositories.SequenceRepository
	cache        providers.CacheProvider
}

// NewBlogService creates a new blog service. searchRepo and cache may be nil.
func NewBlogService(
	repo repositories.BlogRepository,
	searchRepo repositories.BlogSearchRepository,
	sequenceRepo repositories.SequenceRepository,
	cache providers.CacheProvider,
) *BlogService {
	return &BlogService{
		repo:         repo,
		searchRepo:   searchRepo,
		sequenceRepo: sequenceRepo,
		cache:        cache,
	}
}

// List returns the blogs matching filter, newest first
func (s *BlogService) List(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error) {
	blogs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(blogs) == 0 {
		return nil, apperrors.NewNotFoundError("No blogs found")
	}
	return blogs, nil
}

// Search runs a full-text query and returns the blogs in relevance order
func (s *BlogService) Search(ctx context.Context, query string, limit int) ([]*entities.Blog, error) {
	if s.searchRepo == nil {
		return nil, apperrors.NewUnavailableError("Blog search is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("q is required")
	}
	if limit <= 0 {
		limit = defaultBlogSearchLimit
	}

	ids, err := s.searchRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entities.Blog{}, nil
	}

	blogs, err := s.repo.List(ctx, repositories.BlogFilter{BlogIDs: ids})
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*entities.Blog, len(blogs))
	for _, b := range blogs {
		byID[b.BlogID] = b
	}
	ranked := make([]*entities.Blog, 0, len(blogs))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ranked = append(ranked, b)
		}
	}
	return ranked, nil
}

// Create stores a new blog, assigning a blogID when none is given
func (s *BlogService) Create(ctx context.Context, blog *entities.Blog) error {
	blog.Title = strings.TrimSpace(blog.Title)
	if blog.Title == "" {
		return apperrors.NewValidationError("title is required")
	}
	blog.Tags = cleanTags(blog.Tags)

	if blog.BlogID == 0 {
		id, err := s.sequenceRepo.NextValue(ctx, repositories.SequenceBlogID)
		if err != nil {
			return err
		}
		blog.BlogID = id
	}

	if err := s.repo.Create(ctx, blog); err != nil {
		return err
	}

	s.index(ctx, blog)
	s.invalidate(ctx)
	return nil
}

// Update applies a partial update. The blogID itself cannot change.
func (s *BlogService) Update(ctx context.Context, blogID int64, patch entities.BlogPatch) (*entities.Blog, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title cannot be empty")
	}
	if patch.Tags != nil {
		patch.Tags = cleanTags(patch.Tags)
	}

	blog, err := s.repo.Update(ctx, blogID, patch)
	if err != nil {
		return nil, err
	}

	s.index(ctx, blog)
	s.invalidate(ctx)
	return blog, nil
}

// Delete removes the blogs matching filter
func (s *BlogService) Delete(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error) {
	deleted, err := s.repo.Delete(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, apperrors.NewNotFoundError("No blogs found")
	}

	if s.searchRepo != nil {
		for _, b := range deleted {
			if err := s.searchRepo.Delete(ctx, b.BlogID); err != nil {
				log.Warn().Err(err).Int64("blog_id", b.BlogID).Msg("Failed to remove blog from search index")
			}
		}
	}
	s.invalidate(ctx)
	return deleted, nil
}

func (s *BlogService) index(ctx context.Context, blog *entities.Blog) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.Index(ctx, blog); err != nil {
		log.Warn().Err(err).Int64("blog_id", blog.BlogID).Msg("Failed to index blog")
	}
}

func (s *BlogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, BlogCachePrefix); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate blog cache")
	}
}

// ParseTags accepts tags as a JSON array, a JSON-encoded array inside a string,
// or a comma separated string
func ParseTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanTags(list), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, apperrors.NewValidationError("tags must be an array or a string")
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &list); err == nil {
			return cleanTags(list), nil
		}
	}
	return cleanTags(strings.Split(text, ",")), nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
