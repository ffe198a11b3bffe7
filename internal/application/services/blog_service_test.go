package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

func TestBlogService_Create(t *testing.T) {
	repo := new(MockBlogRepository)
	search := new(MockBlogSearchRepository)
	sequences := new(MockSequenceRepository)
	cache := NewMockCacheProvider()
	service := services.NewBlogService(repo, search, sequences, cache)

	require.NoError(t, cache.Set(context.Background(), services.BlogCachePrefix+"/api/blogs", []byte("[]"), 60))

	sequences.On("NextValue", mock.Anything, repositories.SequenceBlogID).Return(int64(21), nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(b *entities.Blog) bool {
		return b.BlogID == 21 && b.Title == "Monsoon skin care"
	})).Return(nil)
	search.On("Index", mock.Anything, mock.Anything).Return(errors.New("typesense unavailable"))

	blog := &entities.Blog{Title: "  Monsoon skin care ", Tags: []string{" skin ", "", "monsoon"}}
	err := service.Create(context.Background(), blog)

	require.NoError(t, err)
	assert.Equal(t, []string{"skin", "monsoon"}, blog.Tags)
	assert.False(t, cache.Has(services.BlogCachePrefix+"/api/blogs"))
	repo.AssertExpectations(t)
	search.AssertExpectations(t)
}

func TestBlogService_CreateRequiresTitle(t *testing.T) {
	service := services.NewBlogService(new(MockBlogRepository), nil, new(MockSequenceRepository), nil)

	err := service.Create(context.Background(), &entities.Blog{})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestBlogService_ListNotFound(t *testing.T) {
	repo := new(MockBlogRepository)
	service := services.NewBlogService(repo, nil, nil, nil)

	repo.On("List", mock.Anything, repositories.BlogFilter{Category: "cardio"}).Return([]*entities.Blog{}, nil)

	_, err := service.List(context.Background(), repositories.BlogFilter{Category: "cardio"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestBlogService_Search(t *testing.T) {
	t.Run("keeps relevance order", func(t *testing.T) {
		repo := new(MockBlogRepository)
		search := new(MockBlogSearchRepository)
		service := services.NewBlogService(repo, search, nil, nil)

		search.On("Search", mock.Anything, "acne", 20).Return([]int64{9, 4}, nil)
		repo.On("List", mock.Anything, repositories.BlogFilter{BlogIDs: []int64{9, 4}}).Return([]*entities.Blog{
			{BlogID: 4, Title: "Older"},
			{BlogID: 9, Title: "Best match"},
		}, nil)

		blogs, err := service.Search(context.Background(), "acne", 0)

		require.NoError(t, err)
		require.Len(t, blogs, 2)
		assert.Equal(t, int64(9), blogs[0].BlogID)
	})

	t.Run("unavailable without index", func(t *testing.T) {
		service := services.NewBlogService(new(MockBlogRepository), nil, nil, nil)

		_, err := service.Search(context.Background(), "acne", 5)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	})
}

func TestBlogService_Delete(t *testing.T) {
	repo := new(MockBlogRepository)
	search := new(MockBlogSearchRepository)
	service := services.NewBlogService(repo, search, nil, NewMockCacheProvider())
	filter := repositories.BlogFilter{BlogIDs: []int64{3, 5}}

	repo.On("Delete", mock.Anything, filter).Return([]*entities.Blog{{BlogID: 3}, {BlogID: 5}}, nil)
	search.On("Delete", mock.Anything, int64(3)).Return(nil)
	search.On("Delete", mock.Anything, int64(5)).Return(nil)

	deleted, err := service.Delete(context.Background(), filter)

	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	search.AssertExpectations(t)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["diet", " sleep "]`, []string{"diet", "sleep"}},
		{"encoded array", `"[\"diet\",\"sleep\"]"`, []string{"diet", "sleep"}},
		{"comma list", `"diet, sleep,,"`, []string{"diet", "sleep"}},
		{"absent", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.ParseTags(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := services.ParseTags(json.RawMessage(`42`))
	assert.Error(t, err)
}
