package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

// Replies shown inline under each root comment. The client fetches
// the rest on demand.
const inlineReplyLimit = 5

type CommentController struct {
	db *gorm.DB
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// ListComments pages through a post's root comments, newest first,
// each carrying up to inlineReplyLimit of its oldest replies.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid post id")
		return
	}
	var post models.Post
	if err := c.db.Select("id").First(&post, uint(postID)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "post not found")
		return
	}

	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"), 20)

	rootFilter := func() *gorm.DB {
		return c.db.Model(&models.Comment{}).
			Where("post_id = ? AND parent_id IS NULL", post.ID)
	}

	var total int64
	if err := rootFilter().Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comments")
		return
	}

	var roots []models.Comment
	err = rootFilter().
		Preload("Author.Profile").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&roots).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comments")
		return
	}

	rootIDs := make([]uint, 0, len(roots))
	for _, r := range roots {
		rootIDs = append(rootIDs, r.ID)
	}

	// One query fetches replies for the whole page; the per-parent cap
	// is applied while grouping.
	repliesByParent := map[uint][]models.Comment{}
	allIDs := append([]uint(nil), rootIDs...)
	if len(rootIDs) > 0 {
		var replies []models.Comment
		err = c.db.Preload("Author.Profile").
			Where("parent_id IN ?", rootIDs).
			Order("created_at ASC").
			Find(&replies).Error
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comments")
			return
		}
		for _, reply := range replies {
			parent := *reply.ParentID
			if len(repliesByParent[parent]) >= inlineReplyLimit {
				continue
			}
			repliesByParent[parent] = append(repliesByParent[parent], reply)
			allIDs = append(allIDs, reply.ID)
		}
	}

	likeCounts, err := countByTarget(c.db, &models.CommentLike{}, "comment_id", allIDs)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comments")
		return
	}

	views := make([]commentView, 0, len(roots))
	for _, root := range roots {
		view := toCommentView(root, likeCounts)
		for _, reply := range repliesByParent[root.ID] {
			view.Replies = append(view.Replies, toCommentView(reply, likeCounts))
		}
		views = append(views, view)
	}

	utils.Success(ctx, gin.H{
		"comments": views,
		"total":    total,
		"page":     page,
		"hasMore":  int64((page-1)*limit+len(roots)) < total,
	})
}

func toCommentView(c models.Comment, likeCounts map[uint]int64) commentView {
	return commentView{
		ID:         c.ID,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		Author:     toAuthorView(c.Author),
		LikesCount: likeCounts[c.ID],
	}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *uint  `json:"parentId"`
}

// CreateComment adds a comment or a reply. A reply's parent must
// belong to the same post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
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
	if err := c.db.Select("id").First(&post, uint(postID)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "post not found")
		return
	}

	var req createCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "content is required")
		return
	}
	content := strings.TrimSpace(utils.SanitizePlain(req.Content))
	if n := len([]rune(content)); n == 0 || n > 1000 {
		utils.Error(ctx, http.StatusBadRequest, 40044, "comment must be 1-1000 characters")
		return
	}

	if req.ParentID != nil {
		var parent models.Comment
		err := c.db.Select("id, post_id").First(&parent, *req.ParentID).Error
		if err != nil || parent.PostID != post.ID {
			utils.Error(ctx, http.StatusNotFound, 40440, "parent comment not found")
			return
		}
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		zap.L().Error("comment creation failed", zap.Uint("post", post.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create comment")
		return
	}

	var created models.Comment
	if err := c.db.Preload("Author.Profile").First(&created, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create comment")
		return
	}
	utils.Created(ctx, gin.H{"comment": toCommentView(created, nil)})
}

// DeleteComment removes a comment, its descendant replies and their
// likes. Only the author or an admin may delete.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	commentID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid comment id")
		return
	}

	var comment models.Comment
	if getErr := c.db.First(&comment, uint(commentID)).Error; getErr != nil {
		if errors.Is(getErr, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40441, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to delete comment")
		return
	}
	if comment.AuthorID != userID && !isAdmin(c.db, userID) {
		utils.Error(ctx, http.StatusForbidden, 40340, "you cannot delete this comment")
		return
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		ids, err := collectCommentTree(tx, comment.ID)
		if err != nil {
			return err
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	if err != nil {
		zap.L().Error("comment deletion failed", zap.Uint("comment", comment.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// collectCommentTree walks the reply tree breadth-first and returns
// the root id plus every descendant id.
func collectCommentTree(tx *gorm.DB, rootID uint) ([]uint, error) {
	ids := []uint{rootID}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		err := tx.Model(&models.Comment{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}
