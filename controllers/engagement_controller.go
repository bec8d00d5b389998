package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

// EngagementController serves the toggle endpoints. Each toggle
// deletes the row when present, creates it when absent, and reports
// the resulting state with a fresh count. The composite unique index
// keeps concurrent toggles to at most one active row; a duplicate-key
// failure on create means another request won the race, so the
// engagement is active either way.
type EngagementController struct {
	db *gorm.DB
}

func NewEngagementController(db *gorm.DB) *EngagementController {
	return &EngagementController{db: db}
}

func (e *EngagementController) loadTarget(ctx *gin.Context, model interface{}, notFoundCode int, notFoundMsg string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid id")
		return 0, false
	}
	err = e.db.Select("id").First(model, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, notFoundCode, notFoundMsg)
		return 0, false
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "lookup failed")
		return 0, false
	}
	return uint(id), true
}

func (e *EngagementController) TogglePostLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	postID, ok := e.loadTarget(ctx, &models.Post{}, 40430, "post not found")
	if !ok {
		return
	}

	active := false
	var like models.Like
	err := e.db.Where("user_id = ? AND post_id = ?", userID, postID).First(&like).Error
	switch {
	case err == nil:
		if err := e.db.Delete(&like).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to toggle like")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := e.db.Create(&models.Like{UserID: userID, PostID: postID}).Error
		if createErr != nil && !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			zap.L().Error("like toggle failed", zap.Uint("post", postID), zap.Error(createErr))
			utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to toggle like")
			return
		}
		active = true
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to toggle like")
		return
	}

	var count int64
	if err := e.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to toggle like")
		return
	}
	utils.Success(ctx, gin.H{"isLiked": active, "likesCount": count})
}

func (e *EngagementController) TogglePostBookmark(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	postID, ok := e.loadTarget(ctx, &models.Post{}, 40430, "post not found")
	if !ok {
		return
	}

	active := false
	var bookmark models.Bookmark
	err := e.db.Where("user_id = ? AND post_id = ?", userID, postID).First(&bookmark).Error
	switch {
	case err == nil:
		if err := e.db.Delete(&bookmark).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to toggle bookmark")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := e.db.Create(&models.Bookmark{UserID: userID, PostID: postID}).Error
		if createErr != nil && !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			zap.L().Error("bookmark toggle failed", zap.Uint("post", postID), zap.Error(createErr))
			utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to toggle bookmark")
			return
		}
		active = true
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to toggle bookmark")
		return
	}

	var count int64
	if err := e.db.Model(&models.Bookmark{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to toggle bookmark")
		return
	}
	utils.Success(ctx, gin.H{"isBookmarked": active, "bookmarksCount": count})
}

func (e *EngagementController) ToggleCommentLike(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	commentID, ok := e.loadTarget(ctx, &models.Comment{}, 40441, "comment not found")
	if !ok {
		return
	}

	active := false
	var like models.CommentLike
	err := e.db.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&like).Error
	switch {
	case err == nil:
		if err := e.db.Delete(&like).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to toggle like")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := e.db.Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error
		if createErr != nil && !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			zap.L().Error("comment like toggle failed", zap.Uint("comment", commentID), zap.Error(createErr))
			utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to toggle like")
			return
		}
		active = true
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to toggle like")
		return
	}

	var count int64
	if err := e.db.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to toggle like")
		return
	}
	utils.Success(ctx, gin.H{"isLiked": active, "likesCount": count})
}

// ToggleFollow follows or unfollows the target user. Following
// yourself is rejected.
func (e *EngagementController) ToggleFollow(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	targetID, ok := e.loadTarget(ctx, &models.User{}, 40410, "user not found")
	if !ok {
		return
	}
	if targetID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40051, "you cannot follow yourself")
		return
	}

	active := false
	var follow models.Follow
	err := e.db.Where("follower_id = ? AND following_id = ?", userID, targetID).First(&follow).Error
	switch {
	case err == nil:
		if err := e.db.Delete(&follow).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to toggle follow")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := e.db.Create(&models.Follow{FollowerID: userID, FollowingID: targetID}).Error
		if createErr != nil && !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			zap.L().Error("follow toggle failed", zap.Uint("target", targetID), zap.Error(createErr))
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to toggle follow")
			return
		}
		active = true
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to toggle follow")
		return
	}

	var count int64
	if err := e.db.Model(&models.Follow{}).Where("following_id = ?", targetID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to toggle follow")
		return
	}
	utils.Success(ctx, gin.H{"isFollowing": active, "followersCount": count})
}
