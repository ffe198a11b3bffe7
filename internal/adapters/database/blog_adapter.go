package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

var blogColumns = []interface{}{
	"blog_id", "title", "url", "category", "blog_content", "post_thumbnail", "post_banner",
	"meta_keywords", "meta_description", "tags", "author_name", "date_of_post",
	"created_at", "updated_at",
}

// BlogAdapter implements the BlogRepository interface
type BlogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBlogAdapter creates a new blog adapter
func NewBlogAdapter(client *postgres.Client) repositories.BlogRepository {
	return &BlogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new blog
func (a *BlogAdapter) Create(ctx context.Context, blog *entities.Blog) error {
	now := time.Now().UTC()
	blog.CreatedAt = now
	blog.UpdatedAt = now
	if blog.DateOfPost.IsZero() {
		blog.DateOfPost = now
	}
	if blog.Tags == nil {
		blog.Tags = []string{}
	}

	record := goqu.Record{
		"blog_id":          blog.BlogID,
		"title":            blog.Title,
		"url":              blog.URL,
		"category":         blog.Category,
		"blog_content":     blog.BlogContent,
		"post_thumbnail":   blog.PostThumbnail,
		"post_banner":      blog.PostBanner,
		"meta_keywords":    blog.MetaKeywords,
		"meta_description": blog.MetaDescription,
		"tags":             pq.Array(blog.Tags),
		"author_name":      blog.AuthorName,
		"date_of_post":     blog.DateOfPost,
		"created_at":       blog.CreatedAt,
		"updated_at":       blog.UpdatedAt,
	}

	query, args, err := a.db.Insert("blogs").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("Blog already exists", err)
		}
		return apperrors.NewInternalError("failed to create blog", err)
	}
	return nil
}

// List retrieves blogs matching filter, newest post first
func (a *BlogAdapter) List(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error) {
	query, args, err := a.db.Select(blogColumns...).
		From("blogs").
		Where(blogConditions(filter)...).
		Order(goqu.I("date_of_post").Desc(), goqu.I("blog_id").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list blogs", err)
	}
	defer rows.Close()

	return collectBlogs(rows)
}

// Update applies the non-nil fields of patch
func (a *BlogAdapter) Update(ctx context.Context, blogID int64, patch entities.BlogPatch) (*entities.Blog, error) {
	record := goqu.Record{"updated_at": time.Now().UTC()}
	setString := func(column string, v *string) {
		if v != nil {
			record[column] = *v
		}
	}
	setString("title", patch.Title)
	setString("url", patch.URL)
	setString("category", patch.Category)
	setString("blog_content", patch.BlogContent)
	setString("post_thumbnail", patch.PostThumbnail)
	setString("post_banner", patch.PostBanner)
	setString("meta_keywords", patch.MetaKeywords)
	setString("meta_description", patch.MetaDescription)
	setString("author_name", patch.AuthorName)
	if patch.Tags != nil {
		record["tags"] = pq.Array(patch.Tags)
	}
	if patch.DateOfPost != nil {
		record["date_of_post"] = patch.DateOfPost.UTC()
	}

	query, args, err := a.db.Update("blogs").
		Set(record).
		Where(goqu.Ex{"blog_id": blogID}).
		Returning(blogColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	blog, err := scanBlog(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Blog not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update blog", err)
	}
	return blog, nil
}

// Delete removes the matching blogs and returns them
func (a *BlogAdapter) Delete(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error) {
	if filter.IsEmpty() {
		return nil, apperrors.NewValidationError("No filter provided")
	}

	query, args, err := a.db.Delete("blogs").
		Where(blogConditions(filter)...).
		Returning(blogColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build delete query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to delete blogs", err)
	}
	defer rows.Close()

	return collectBlogs(rows)
}

func blogConditions(filter repositories.BlogFilter) []exp.Expression {
	var conds []exp.Expression
	if len(filter.BlogIDs) > 0 {
		conds = append(conds, goqu.C("blog_id").In(filter.BlogIDs))
	}
	if filter.Title != "" {
		conds = append(conds, goqu.C("title").ILike(containsPattern(filter.Title)))
	}
	if filter.Category != "" {
		conds = append(conds, goqu.C("category").ILike(containsPattern(filter.Category)))
	}
	if filter.AuthorName != "" {
		conds = append(conds, goqu.C("author_name").ILike(containsPattern(filter.AuthorName)))
	}
	if filter.Tag != "" {
		conds = append(conds, goqu.L("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", containsPattern(filter.Tag)))
	}
	if filter.From != nil {
		conds = append(conds, goqu.C("date_of_post").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		conds = append(conds, goqu.C("date_of_post").Lte(filter.To.UTC()))
	}
	return conds
}

func scanBlog(row rowScanner) (*entities.Blog, error) {
	blog := &entities.Blog{}
	var tags pq.StringArray

	err := row.Scan(
		&blog.BlogID,
		&blog.Title,
		&blog.URL,
		&blog.Category,
		&blog.BlogContent,
		&blog.PostThumbnail,
		&blog.PostBanner,
		&blog.MetaKeywords,
		&blog.MetaDescription,
		&tags,
		&blog.AuthorName,
		&blog.DateOfPost,
		&blog.CreatedAt,
		&blog.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	blog.Tags = []string(tags)
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	return blog, nil
}

func collectBlogs(rows *sql.Rows) ([]*entities.Blog, error) {
	blogs := []*entities.Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan blog", err)
		}
		blogs = append(blogs, blog)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read blogs", err)
	}
	return blogs, nil
}
