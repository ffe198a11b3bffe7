package search

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	typesenseclient "github.com/agastya-health/clinic-admin/internal/infrastructure/clients/typesense"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

const blogQueryFields = "title,tags,category,author_name,meta_keywords,blog_content"

// TypesenseAdapter implements BlogSearchRepository over a Typesense collection
type TypesenseAdapter struct {
	client *typesenseclient.Client
}

// NewTypesenseAdapter creates a new Typesense blog search adapter
func NewTypesenseAdapter(client *typesenseclient.Client) repositories.BlogSearchRepository {
	return &TypesenseAdapter{client: client}
}

// Index upserts the blog document
func (a *TypesenseAdapter) Index(ctx context.Context, blog *entities.Blog) error {
	_, err := a.client.Client().Collection(typesenseclient.BlogsCollection).Documents().Upsert(ctx, buildBlogDocument(blog))
	if err != nil {
		return apperrors.NewExternalError("failed to index blog", err)
	}
	return nil
}

// Delete removes a blog from the index. A document that is already gone is not an error.
func (a *TypesenseAdapter) Delete(ctx context.Context, blogID int64) error {
	_, err := a.client.Client().Collection(typesenseclient.BlogsCollection).Document(strconv.FormatInt(blogID, 10)).Delete(ctx)
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return apperrors.NewExternalError("failed to delete blog from index", err)
	}
	return nil
}

// Search returns the ids of the best matching blogs, most relevant first
func (a *TypesenseAdapter) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 20
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String(blogQueryFields),
		PerPage: pointer.Int(limit),
		Page:    pointer.Int(1),
	}

	result, err := a.client.Client().Collection(typesenseclient.BlogsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to search blogs", err)
	}
	if result.Hits == nil {
		return []int64{}, nil
	}

	ids := make([]int64, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := documentBlogID(*hit.Document); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildBlogDocument(blog *entities.Blog) map[string]interface{} {
	tags := make([]string, 0, len(blog.Tags))
	for _, tag := range blog.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return map[string]interface{}{
		"id":            strconv.FormatInt(blog.BlogID, 10),
		"blog_id":       blog.BlogID,
		"title":         blog.Title,
		"blog_content":  blog.BlogContent,
		"category":      blog.Category,
		"author_name":   blog.AuthorName,
		"tags":          tags,
		"meta_keywords": blog.MetaKeywords,
		"date_of_post":  blog.DateOfPost.Unix(),
	}
}

// documentBlogID reads the id back from a search hit. Numbers arrive as float64.
func documentBlogID(doc map[string]interface{}) (int64, bool) {
	switch v := doc["blog_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	if s, ok := doc["id"].(string); ok {
		id, err := strconv.ParseInt(s, 10, 64)
		return id, err == nil
	}
	return 0, false
}
