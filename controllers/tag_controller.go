package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

const trendingTagsKey = "cache:tags:trending"

type TagController struct {
	db *gorm.DB
}

func NewTagController(db *gorm.DB) *TagController {
	return &TagController{db: db}
}

// ListTrendingTags returns the most used tags. The result is cached
// briefly and invalidated whenever a post attaches tags.
func (t *TagController) ListTrendingTags(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(trendingTagsKey); ok {
		var cached []tagView
		if json.Unmarshal(b, &cached) == nil {
			utils.Success(ctx, gin.H{"tags": cached})
			return
		}
	}

	var tags []models.Tag
	err := t.db.Order("usage_count DESC").Order("name ASC").Limit(20).Find(&tags).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load tags")
		return
	}

	views := toTagViews(tags)
	utils.CacheSetJSON(trendingTagsKey, views, 5*time.Minute)
	utils.Success(ctx, gin.H{"tags": views})
}
