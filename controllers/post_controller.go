package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

type PostController struct {
	db *gorm.DB
}

func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type feedFilter struct {
	category string
	status   string
	authorID uint
}

func (p *PostController) feedQuery(f feedFilter) *gorm.DB {
	q := p.db.Model(&models.Post{}).Where("published = ?", true)
	if f.category != "" {
		q = q.Where("category = ?", f.category)
	}
	if f.status != "" {
		q = q.Where("mystery_status = ?", f.status)
	}
	if f.authorID > 0 {
		q = q.Where("author_id = ?", f.authorID)
	}
	return q
}

// ListPosts serves the feed: published posts filtered by category,
// mystery status and author, ordered by one of the sort policies.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"), 10)

	var filter feedFilter
	if raw := ctx.Query("category"); raw != "" {
		category := models.Category(strings.ToUpper(strings.TrimSpace(raw)))
		if !category.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40030, "unknown category")
			return
		}
		filter.category = string(category)
	}
	if raw := ctx.Query("status"); raw != "" {
		status := models.NormalizeStatus(raw)
		if !status.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40031, "unknown mystery status")
			return
		}
		filter.status = string(status)
	}
	if raw := ctx.Query("authorId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid author id")
			return
		}
		filter.authorID = uint(id)
	}

	// Total count runs alongside the page query; both hit the same
	// filter set.
	var total int64
	countDone := make(chan error, 1)
	go func() {
		countDone <- p.feedQuery(filter).Count(&total).Error
	}()

	q := p.feedQuery(filter).
		Preload("Author.Profile").
		Preload("Media")

	switch ctx.DefaultQuery("sort", "recent") {
	case "popular":
		q = q.Order("(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) DESC").
			Order("views DESC").
			Order("created_at DESC")
	case "unsolved":
		q = q.Order(models.StatusPriorityCaseSQL()).
			Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var posts []models.Post
	if err := q.Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		zap.L().Error("feed query failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load posts")
		return
	}
	if err := <-countDone; err != nil {
		zap.L().Error("feed count failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load posts")
		return
	}

	items, err := buildPostItems(p.db, posts, false)
	if err != nil {
		zap.L().Error("feed assembly failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load posts")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	utils.Success(ctx, gin.H{
		"posts":      items,
		"total":      total,
		"page":       page,
		"totalPages": totalPages,
		"hasMore":    int64((page-1)*limit+len(posts)) < total,
	})
}

// GetPost returns a single post with tags and bumps its view counter.
// The response carries the pre-increment view count.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid post id")
		return
	}

	var post models.Post
	err = p.db.Preload("Author.Profile").Preload("Media").First(&post, uint(postID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40430, "post not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load post")
		return
	}

	if err := p.db.Model(&post).UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		zap.L().Warn("view counter update failed", zap.Uint("post", post.ID), zap.Error(err))
	}

	items, err := buildPostItems(p.db, []models.Post{post}, true)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": items[0]})
}

type createPostRequest struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	ContentType string   `json:"contentType"`
	Tags        []string `json:"tags"`
	MediaIDs    []uint   `json:"mediaIds"`
}

// CreatePost stores the post, attaches the caller's pending media and
// upserts its tags, all in one transaction.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}

	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40034, "title, content and category are required")
		return
	}

	title := utils.SanitizePlain(req.Title)
	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if title == "" || len([]rune(title)) > 200 {
		utils.Error(ctx, http.StatusBadRequest, 40035, "title must be 1-200 characters")
		return
	}
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40036, "content must not be empty")
		return
	}

	category := models.Category(strings.ToUpper(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		utils.Error(ctx, http.StatusBadRequest, 40030, "unknown category")
		return
	}
	contentType := models.ContentTypeText
	if req.ContentType != "" {
		contentType = models.ContentType(strings.ToUpper(strings.TrimSpace(req.ContentType)))
		if !contentType.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40037, "unknown content type")
			return
		}
	}

	post := models.Post{
		AuthorID:      userID,
		Title:         title,
		Content:       content,
		ContentType:   contentType,
		Category:      category,
		MysteryStatus: models.StatusUnsolved,
		Published:     true,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if len(req.MediaIDs) > 0 {
			// Only the caller's still-unattached uploads qualify;
			// anything else in the list is silently skipped.
			err := tx.Model(&models.Media{}).
				Where("id IN ? AND uploader_id = ? AND post_id IS NULL", req.MediaIDs, userID).
				Update("post_id", post.ID).Error
			if err != nil {
				return err
			}
		}
		return upsertPostTags(tx, post.ID, req.Tags)
	})
	if err != nil {
		zap.L().Error("post creation failed", zap.Uint("user", userID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create post")
		return
	}

	if len(req.Tags) > 0 {
		utils.InvalidateByPrefix("cache:tags:")
	}

	var created models.Post
	if err := p.db.Preload("Author.Profile").Preload("Media").First(&created, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create post")
		return
	}
	items, err := buildPostItems(p.db, []models.Post{created}, true)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create post")
		return
	}
	utils.Created(ctx, gin.H{"post": items[0]})
}

// upsertPostTags resolves each tag name to a slug, creating the tag
// row on first use and bumping usage_count on every attach. Names
// that collapse to the same slug within one request count once.
func upsertPostTags(tx *gorm.DB, postID uint, names []string) error {
	seen := map[string]bool{}
	for _, name := range names {
		name = utils.SanitizePlain(name)
		slug := utils.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		var tag models.Tag
		err := tx.Where("slug = ?", slug).First(&tag).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			tag = models.Tag{Name: name, Slug: slug, UsageCount: 1}
			if err := tx.Create(&tag).Error; err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
				// Lost a create race; fall through to the increment path.
				if err := tx.Where("slug = ?", slug).First(&tag).Error; err != nil {
					return err
				}
				if err := tx.Model(&tag).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
					return err
				}
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&tag).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&models.PostTag{PostID: postID, TagID: tag.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}

type updatePostRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	Category      *string `json:"category"`
	MysteryStatus *string `json:"mysteryStatus"`
	Published     *bool   `json:"published"`
}

// UpdatePost patches the fields present in the body. Only the author
// or an admin may edit.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.First(&post, uint(postID)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "post not found")
		return
	}
	if post.AuthorID != userID && !isAdmin(p.db, userID) {
		utils.Error(ctx, http.StatusForbidden, 40330, "you cannot edit this post")
		return
	}

	var req updatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40038, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := utils.SanitizePlain(*req.Title)
		if title == "" || len([]rune(title)) > 200 {
			utils.Error(ctx, http.StatusBadRequest, 40035, "title must be 1-200 characters")
			return
		}
		updates["title"] = title
	}
	if req.Content != nil {
		content := strings.TrimSpace(utils.Sanitize(*req.Content))
		if content == "" {
			utils.Error(ctx, http.StatusBadRequest, 40036, "content must not be empty")
			return
		}
		updates["content"] = content
	}
	if req.Category != nil {
		category := models.Category(strings.ToUpper(strings.TrimSpace(*req.Category)))
		if !category.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40030, "unknown category")
			return
		}
		updates["category"] = string(category)
	}
	if req.MysteryStatus != nil {
		status := models.NormalizeStatus(*req.MysteryStatus)
		if !status.Valid() {
			utils.Error(ctx, http.StatusBadRequest, 40031, "unknown mystery status")
			return
		}
		updates["mystery_status"] = string(status)
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if len(updates) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40039, "no fields to update")
		return
	}

	if err := p.db.Model(&post).Updates(updates).Error; err != nil {
		zap.L().Error("post update failed", zap.Uint("post", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to update post")
		return
	}

	var updated models.Post
	if err := p.db.Preload("Author.Profile").Preload("Media").First(&updated, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to update post")
		return
	}
	items, err := buildPostItems(p.db, []models.Post{updated}, true)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to update post")
		return
	}
	utils.Success(ctx, gin.H{"post": items[0]})
}

// DeletePost removes the post and everything hanging off it: comment
// likes, comments, likes, bookmarks, tag links and media rows.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.First(&post, uint(postID)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "post not found")
		return
	}
	if post.AuthorID != userID && !isAdmin(p.db, userID) {
		utils.Error(ctx, http.StatusForbidden, 40331, "you cannot delete this post")
		return
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		zap.L().Error("post deletion failed", zap.Uint("post", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to delete post")
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// UploadMedia stores a multipart file and records it as an unattached
// media row. Rows never claimed by a post are swept later.
func (p *PostController) UploadMedia(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}

	cfg := config.Get()
	file, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "file field is required")
		return
	}
	if file.Size > int64(cfg.MediaMaxSizeMB)<<20 {
		utils.Error(ctx, http.StatusBadRequest, 40041,
			fmt.Sprintf("file exceeds the %dMB limit", cfg.MediaMaxSizeMB))
		return
	}

	mediaType := "IMAGE"
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	case ".mp4", ".webm", ".mov":
		mediaType = "VIDEO"
	default:
		utils.Error(ctx, http.StatusBadRequest, 40042, "unsupported file type")
		return
	}

	now := time.Now()
	dir := filepath.Join(cfg.MediaDir, now.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to store file")
		return
	}
	name := fmt.Sprintf("%d_%d_%s", now.UnixNano(), userID, filepath.Base(file.Filename))
	dest := filepath.Join(dir, name)
	if err := ctx.SaveUploadedFile(file, dest); err != nil {
		zap.L().Error("upload save failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to store file")
		return
	}

	media := models.Media{
		URL:        "/media/" + now.Format("2006/01/02") + "/" + name,
		Type:       mediaType,
		FilePath:   dest,
		UploaderID: userID,
	}
	if err := p.db.Create(&media).Error; err != nil {
		os.Remove(dest)
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to store file")
		return
	}

	utils.Created(ctx, gin.H{"media": mediaView{
		ID:   media.ID,
		URL:  media.URL,
		Type: media.Type,
	}})
}

// ListMyBookmarks pages through the caller's bookmarked posts, newest
// bookmark first.
func (p *PostController) ListMyBookmarks(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"), 10)

	base := p.db.Model(&models.Post{}).
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to load bookmarks")
		return
	}

	var posts []models.Post
	err := base.Session(&gorm.Session{}).
		Preload("Author.Profile").
		Preload("Media").
		Order("bookmarks.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to load bookmarks")
		return
	}

	items, err := buildPostItems(p.db, posts, false)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to load bookmarks")
		return
	}
	utils.Success(ctx, gin.H{
		"posts":   items,
		"total":   total,
		"page":    page,
		"hasMore": int64((page-1)*limit+len(posts)) < total,
	})
}
