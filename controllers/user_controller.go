package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// publicUserView is the profile shape visible to anyone. It carries
// no email or role.
type publicUserView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	Profile   struct {
		DisplayName  string   `json:"displayName"`
		Bio          string   `json:"bio"`
		Location     string   `json:"location"`
		Website      string   `json:"website"`
		Avatar       string   `json:"avatar"`
		Interests    []string `json:"interests"`
		MysteryScore int      `json:"mysteryScore"`
		Verified     bool     `json:"verified"`
	} `json:"profile"`
	Stats struct {
		Posts     int64 `json:"posts"`
		Followers int64 `json:"followers"`
		Following int64 `json:"following"`
	} `json:"stats"`
}

func (u *UserController) buildPublicView(user models.User) (publicUserView, error) {
	view := publicUserView{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
	view.Profile.DisplayName = user.Profile.DisplayName
	view.Profile.Bio = user.Profile.Bio
	view.Profile.Location = user.Profile.Location
	view.Profile.Website = user.Profile.Website
	view.Profile.Avatar = user.Profile.Avatar
	view.Profile.Interests = user.Profile.InterestList()
	view.Profile.MysteryScore = user.Profile.MysteryScore
	view.Profile.Verified = user.Profile.Verified

	err := u.db.Model(&models.Post{}).
		Where("author_id = ? AND published = ?", user.ID, true).
		Count(&view.Stats.Posts).Error
	if err != nil {
		return view, err
	}
	err = u.db.Model(&models.Follow{}).
		Where("following_id = ?", user.ID).
		Count(&view.Stats.Followers).Error
	if err != nil {
		return view, err
	}
	err = u.db.Model(&models.Follow{}).
		Where("follower_id = ?", user.ID).
		Count(&view.Stats.Following).Error
	return view, err
}

// GetUserByID serves a public profile with post and follow counts.
func (u *UserController) GetUserByID(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid id")
		return
	}
	var user models.User
	if err := u.db.Preload("Profile").First(&user, uint(id)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	view, err := u.buildPublicView(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": view})
}

// GetUserByUsername serves a public profile addressed by username.
func (u *UserController) GetUserByUsername(ctx *gin.Context) {
	var user models.User
	err := u.db.Preload("Profile").
		Where("username = ?", ctx.Param("username")).
		First(&user).Error
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	view, err := u.buildPublicView(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": view})
}
