package entities

import (
	"time"
)

// Blog represents a published article
type Blog struct {
	BlogID          int64     `json:"blogID" db:"blog_id"`
	Title           string    `json:"title" db:"title"`
	URL             string    `json:"url" db:"url"`
	Category        string    `json:"category" db:"category"`
	BlogContent     string    `json:"blogContent" db:"blog_content"`
	PostThumbnail   string    `json:"postThumbnail" db:"post_thumbnail"`
	PostBanner      string    `json:"postBanner" db:"post_banner"`
	MetaKeywords    string    `json:"metaKeywords" db:"meta_keywords"`
	MetaDescription string    `json:"metaDescription" db:"meta_description"`
	Tags            []string  `json:"tags" db:"tags"`
	AuthorName      string    `json:"authorName" db:"author_name"`
	DateOfPost      time.Time `json:"dateOfPost" db:"date_of_post"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// BlogPatch carries the fields of a partial blog update
type BlogPatch struct {
	Title           *string    `json:"title,omitempty"`
	URL             *string    `json:"url,omitempty"`
	Category        *string    `json:"category,omitempty"`
	BlogContent     *string    `json:"blogContent,omitempty"`
	PostThumbnail   *string    `json:"postThumbnail,omitempty"`
	PostBanner      *string    `json:"postBanner,omitempty"`
	MetaKeywords    *string    `json:"metaKeywords,omitempty"`
	MetaDescription *string    `json:"metaDescription,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	AuthorName      *string    `json:"authorName,omitempty"`
	DateOfPost      *time.Time `json:"dateOfPost,omitempty"`
}
