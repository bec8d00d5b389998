package controllers

import (
	"time"

	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
)

// View shapes returned by the API. They trim persistence-only fields
// and attach the derived engagement counts.

type profileView struct {
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	Verified    bool   `json:"verified"`
}

type authorView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Profile  profileView `json:"profile"`
}

type mediaView struct {
	ID           uint   `json:"id"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type tagView struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	UsageCount int64  `json:"usageCount"`
}

type postCounts struct {
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
	Bookmarks int64 `json:"bookmarks"`
}

type postItem struct {
	ID            uint        `json:"id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	ContentType   string      `json:"contentType"`
	Category      string      `json:"category"`
	MysteryStatus string      `json:"mysteryStatus"`
	Views         int64       `json:"views"`
	Published     bool        `json:"published"`
	Featured      bool        `json:"featured"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Author        authorView  `json:"author"`
	Media         []mediaView `json:"media"`
	Tags          []tagView   `json:"tags,omitempty"`
	Counts        postCounts  `json:"counts"`
}

type commentView struct {
	ID         uint          `json:"id"`
	PostID     uint          `json:"postId"`
	ParentID   *uint         `json:"parentId,omitempty"`
	Content    string        `json:"content"`
	CreatedAt  time.Time     `json:"createdAt"`
	Author     authorView    `json:"author"`
	LikesCount int64         `json:"likesCount"`
	Replies    []commentView `json:"replies,omitempty"`
}

func toAuthorView(u models.User) authorView {
	return authorView{
		ID:       u.ID,
		Username: u.Username,
		Profile: profileView{
			DisplayName: u.Profile.DisplayName,
			Avatar:      u.Profile.Avatar,
			Verified:    u.Profile.Verified,
		},
	}
}

func toMediaViews(media []models.Media) []mediaView {
	out := make([]mediaView, 0, len(media))
	for _, m := range media {
		out = append(out, mediaView{
			ID:           m.ID,
			URL:          m.URL,
			Type:         m.Type,
			ThumbnailURL: m.ThumbnailURL,
			Width:        m.Width,
			Height:       m.Height,
		})
	}
	return out
}

func toTagViews(tags []models.Tag) []tagView {
	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagView{ID: t.ID, Name: t.Name, Slug: t.Slug, UsageCount: t.UsageCount})
	}
	return out
}

// buildPostItems assembles the API shape for a page of posts. The
// posts must come preloaded with Author.Profile and Media; counts and
// tags are resolved here in batched queries so a page costs a fixed
// number of round trips regardless of its length.
func buildPostItems(db *gorm.DB, posts []models.Post, withTags bool) ([]postItem, error) {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	likes, err := countByTarget(db, &models.Like{}, "post_id", ids)
	if err != nil {
		return nil, err
	}
	comments, err := countByTarget(db, &models.Comment{}, "post_id", ids)
	if err != nil {
		return nil, err
	}
	bookmarks, err := countByTarget(db, &models.Bookmark{}, "post_id", ids)
	if err != nil {
		return nil, err
	}

	tagsByPost := map[uint][]models.Tag{}
	if withTags && len(ids) > 0 {
		type taggedRow struct {
			models.Tag
			PostID uint `gorm:"column:post_id"`
		}
		var rows []taggedRow
		err := db.Model(&models.Tag{}).
			Select("tags.*, post_tags.post_id AS post_id").
			Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
			Where("post_tags.post_id IN ?", ids).
			Order("tags.name ASC").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			tagsByPost[r.PostID] = append(tagsByPost[r.PostID], r.Tag)
		}
	}

	items := make([]postItem, 0, len(posts))
	for _, p := range posts {
		item := postItem{
			ID:            p.ID,
			Title:         p.Title,
			Content:       p.Content,
			ContentType:   string(p.ContentType),
			Category:      string(p.Category),
			MysteryStatus: string(p.MysteryStatus),
			Views:         p.Views,
			Published:     p.Published,
			Featured:      p.Featured,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			Author:        toAuthorView(p.Author),
			Media:         toMediaViews(p.Media),
			Counts: postCounts{
				Likes:     likes[p.ID],
				Comments:  comments[p.ID],
				Bookmarks: bookmarks[p.ID],
			},
		}
		if withTags {
			item.Tags = toTagViews(tagsByPost[p.ID])
		}
		items = append(items, item)
	}
	return items, nil
}
