package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// BlogService defines the interface for blog operations
type BlogService interface {
	List(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error)
	Search(ctx context.Context, query string, limit int) ([]*entities.Blog, error)
	Create(ctx context.Context, blog *entities.Blog) error
	Update(ctx context.Context, blogID int64, patch entities.BlogPatch) (*entities.Blog, error)
	Delete(ctx context.Context, filter repositories.BlogFilter) ([]*entities.Blog, error)
}

// BlogHandler handles blog requests
type BlogHandler struct {
	service BlogService
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(service BlogService) *BlogHandler {
	return &BlogHandler{service: service}
}

type blogRequest struct {
	BlogID          int64           `json:"blogID"`
	Title           *string         `json:"title"`
	URL             *string         `json:"url"`
	Category        *string         `json:"category"`
	BlogContent     *string         `json:"blogContent"`
	PostThumbnail   *string         `json:"postThumbnail"`
	PostBanner      *string         `json:"postBanner"`
	MetaKeywords    *string         `json:"metaKeywords"`
	MetaDescription *string         `json:"metaDescription"`
	Tags            json.RawMessage `json:"tags"`
	AuthorName      *string         `json:"authorName"`
	DateOfPost      *string         `json:"dateOfPost"`
}

type blogFilterRequest struct {
	Filter *struct {
		BlogID     *int64  `json:"blogID"`
		BlogIDs    []int64 `json:"blogIDs"`
		Title      string  `json:"title"`
		Category   string  `json:"category"`
		AuthorName string  `json:"authorName"`
		Tags       string  `json:"tags"`
	} `json:"filter"`
}

func respondBlog(w http.ResponseWriter, status int, message string, data interface{}) {
	respondWithJSON(w, status, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func writeBlogError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Blog request failed")
	}
	respondWithJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   apperrors.PublicMessage(err),
	})
}

// ListBlogs handles GET /api/blogs
func (h *BlogHandler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseBlogFilter(r.URL.Query())
	if err != nil {
		writeBlogError(w, r, err)
		return
	}

	blogs, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeBlogError(w, r, err)
		return
	}
	respondBlog(w, http.StatusOK, "Blogs fetched successfully", blogs)
}

// SearchBlogs handles GET /api/blogs/search?q=
func (h *BlogHandler) SearchBlogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBlogError(w, r, apperrors.NewValidationError("Invalid limit"))
			return
		}
		limit = n
	}

	blogs, err := h.service.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeBlogError(w, r, err)
		return
	}
	respondBlog(w, http.StatusOK, "Blogs fetched successfully", blogs)
}

// CreateBlog handles POST /api/blogs
func (h *BlogHandler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBlogError(w, r, err)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		writeBlogError(w, r, err)
		return
	}

	blog := &entities.Blog{BlogID: req.BlogID, DateOfPost: time.Now().UTC()}
	applyBlogPatch(blog, patch)

	if err := h.service.Create(r.Context(), blog); err != nil {
		writeBlogError(w, r, err)
		return
	}
	respondBlog(w, http.StatusCreated, "Blog created successfully", blog)
}

// UpdateBlog handles PUT /api/blogs?blogID=
func (h *BlogHandler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	blogID, ok := parseID(r.URL.Query().Get("blogID"))
	if !ok {
		writeBlogError(w, r, apperrors.NewValidationError("blogID is required"))
		return
	}

	var req blogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBlogError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeBlogError(w, r, err)
		return
	}

	blog, err := h.service.Update(r.Context(), blogID, patch)
	if err != nil {
		writeBlogError(w, r, err)
		return
	}
	respondBlog(w, http.StatusOK, "Blog updated successfully", blog)
}

// DeleteBlogsBulk handles DELETE /api/blogs/bulk/{ids}
func (h *BlogHandler) DeleteBlogsBulk(w http.ResponseWriter, r *http.Request) {
	ids := parseIDList(r.PathValue("ids"))
	if len(ids) == 0 {
		writeBlogError(w, r, apperrors.NewValidationError("No valid IDs provided"))
		return
	}
	h.deleteMatching(w, r, repositories.BlogFilter{BlogIDs: ids})
}

// DeleteBlogs handles DELETE /api/blogs, filtered by query or a body "filter"
func (h *BlogHandler) DeleteBlogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseBlogFilter(r.URL.Query())
	if err != nil {
		writeBlogError(w, r, err)
		return
	}

	if filter.IsEmpty() {
		var req blogFilterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBlogError(w, r, err)
			return
		}
		if b := req.Filter; b != nil {
			filter = repositories.BlogFilter{
				BlogIDs:    b.BlogIDs,
				Title:      strings.TrimSpace(b.Title),
				Category:   strings.TrimSpace(b.Category),
				AuthorName: strings.TrimSpace(b.AuthorName),
				Tag:        strings.TrimSpace(b.Tags),
			}
			if b.BlogID != nil {
				filter.BlogIDs = append(filter.BlogIDs, *b.BlogID)
			}
		}
	}

	if filter.IsEmpty() {
		writeBlogError(w, r, apperrors.NewValidationError("No filter provided"))
		return
	}
	h.deleteMatching(w, r, filter)
}

func (h *BlogHandler) deleteMatching(w http.ResponseWriter, r *http.Request, filter repositories.BlogFilter) {
	deleted, err := h.service.Delete(r.Context(), filter)
	if err != nil {
		writeBlogError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Blogs deleted successfully",
		"deletedCount": len(deleted),
		"data":         deleted,
	})
}

func (req blogRequest) toPatch() (entities.BlogPatch, error) {
	patch := entities.BlogPatch{
		Title:           req.Title,
		URL:             req.URL,
		Category:        req.Category,
		BlogContent:     req.BlogContent,
		PostThumbnail:   req.PostThumbnail,
		PostBanner:      req.PostBanner,
		MetaKeywords:    req.MetaKeywords,
		MetaDescription: req.MetaDescription,
		AuthorName:      req.AuthorName,
	}

	tags, err := services.ParseTags(req.Tags)
	if err != nil {
		return patch, err
	}
	patch.Tags = tags

	if req.DateOfPost != nil && *req.DateOfPost != "" {
		posted, err := parsePostDate(*req.DateOfPost)
		if err != nil {
			return patch, apperrors.NewValidationError("Invalid dateOfPost")
		}
		patch.DateOfPost = &posted
	}
	return patch, nil
}

func applyBlogPatch(blog *entities.Blog, patch entities.BlogPatch) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&blog.Title, patch.Title)
	set(&blog.URL, patch.URL)
	set(&blog.Category, patch.Category)
	set(&blog.BlogContent, patch.BlogContent)
	set(&blog.PostThumbnail, patch.PostThumbnail)
	set(&blog.PostBanner, patch.PostBanner)
	set(&blog.MetaKeywords, patch.MetaKeywords)
	set(&blog.MetaDescription, patch.MetaDescription)
	set(&blog.AuthorName, patch.AuthorName)
	if patch.Tags != nil {
		blog.Tags = patch.Tags
	}
	if patch.DateOfPost != nil {
		blog.DateOfPost = *patch.DateOfPost
	}
}

func parsePostDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return utils.ParseDate(raw)
}

func parseBlogFilter(q url.Values) (repositories.BlogFilter, error) {
	filter := repositories.BlogFilter{
		Title:      strings.TrimSpace(q.Get("title")),
		Category:   strings.TrimSpace(q.Get("category")),
		AuthorName: strings.TrimSpace(q.Get("authorName")),
		Tag:        strings.TrimSpace(q.Get("tags")),
	}
	if raw := q.Get("blogID"); raw != "" {
		filter.BlogIDs = parseIDList(raw)
		if len(filter.BlogIDs) == 0 {
			return filter, apperrors.NewValidationError("Invalid blogID")
		}
	}
	if raw := q.Get("fromDate"); raw != "" {
		from, err := utils.ParseDate(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("Invalid fromDate")
		}
		filter.From = &from
	}
	if raw := q.Get("toDate"); raw != "" {
		to, err := utils.ParseDate(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("Invalid toDate")
		}
		end := utils.EndOfDay(to)
		filter.To = &end
	}
	return filter, nil
}
