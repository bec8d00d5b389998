package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

const tokenLifetime = 72 * time.Hour

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type userResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
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
}

func toUserResponse(u models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	resp.Profile.DisplayName = u.Profile.DisplayName
	resp.Profile.Bio = u.Profile.Bio
	resp.Profile.Location = u.Profile.Location
	resp.Profile.Website = u.Profile.Website
	resp.Profile.Avatar = u.Profile.Avatar
	resp.Profile.Interests = u.Profile.InterestList()
	resp.Profile.MysteryScore = u.Profile.MysteryScore
	resp.Profile.Verified = u.Profile.Verified
	return resp
}

type registerRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// Register creates a local account with an empty profile.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "username, email, password and confirmPassword are required")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if !usernamePattern.MatchString(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "username must be 3-30 characters of letters, digits or underscore")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid email address")
		return
	}
	if n := len(req.Password); n < 6 || n > 100 {
		utils.Error(ctx, http.StatusBadRequest, 40013, "password must be 6-100 characters")
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, http.StatusBadRequest, 40014, "passwords do not match")
		return
	}

	var existing models.User
	err := a.db.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		if existing.Email == req.Email {
			utils.Error(ctx, http.StatusBadRequest, 40015, "a user with this email already exists")
		} else {
			utils.Error(ctx, http.StatusBadRequest, 40016, "this username is already taken")
		}
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "registration failed")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleRegular,
		Profile:      models.Profile{DisplayName: req.Username},
	}
	if err := a.db.Create(&user).Error; err != nil {
		// A concurrent register can slip past the lookup above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusBadRequest, 40017, "email or username already taken")
			return
		}
		zap.L().Error("registration failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50010, "registration failed")
		return
	}

	utils.Created(ctx, gin.H{"user": toUserResponse(user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40018, "email and password are required")
		return
	}

	var user models.User
	err := a.db.Preload("Profile").
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid email or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, tokenLifetime)
	if err != nil {
		zap.L().Error("token generation failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50011, "login failed")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": toUserResponse(user)})
}

// Logout blacklists the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		utils.Error(ctx, http.StatusBadRequest, 40019, "missing bearer token")
		return
	}
	token := parts[1]

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid token")
		return
	}
	utils.BlacklistToken(token, claims.ExpiresAt.Time)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's account and profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}
	var user models.User
	if err := a.db.Preload("Profile").First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": toUserResponse(user)})
}

type updateProfileRequest struct {
	DisplayName *string   `json:"displayName"`
	Bio         *string   `json:"bio"`
	Location    *string   `json:"location"`
	Website     *string   `json:"website"`
	Avatar      *string   `json:"avatar"`
	Interests   *[]string `json:"interests"`
}

// UpdateProfile patches the profile fields present in the body.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}

	var user models.User
	if err := a.db.Preload("Profile").First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	profile := user.Profile
	profile.UserID = user.ID

	if req.DisplayName != nil {
		v := utils.SanitizePlain(*req.DisplayName)
		if len([]rune(v)) > 50 {
			utils.Error(ctx, http.StatusBadRequest, 40021, "display name must be at most 50 characters")
			return
		}
		profile.DisplayName = v
	}
	if req.Bio != nil {
		v := utils.SanitizePlain(*req.Bio)
		if len([]rune(v)) > 500 {
			utils.Error(ctx, http.StatusBadRequest, 40022, "bio must be at most 500 characters")
			return
		}
		profile.Bio = v
	}
	if req.Location != nil {
		v := utils.SanitizePlain(*req.Location)
		if len([]rune(v)) > 100 {
			utils.Error(ctx, http.StatusBadRequest, 40023, "location must be at most 100 characters")
			return
		}
		profile.Location = v
	}
	if req.Website != nil {
		v := strings.TrimSpace(*req.Website)
		if v != "" {
			u, err := url.Parse(v)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				utils.Error(ctx, http.StatusBadRequest, 40024, "website must be a valid http(s) URL")
				return
			}
		}
		profile.Website = v
	}
	if req.Avatar != nil {
		profile.Avatar = strings.TrimSpace(*req.Avatar)
	}
	if req.Interests != nil {
		cleaned := make([]string, 0, len(*req.Interests))
		for _, it := range *req.Interests {
			if v := utils.SanitizePlain(it); v != "" {
				cleaned = append(cleaned, v)
			}
		}
		if len(cleaned) > 10 {
			utils.Error(ctx, http.StatusBadRequest, 40025, "at most 10 interests are allowed")
			return
		}
		profile.SetInterests(cleaned)
	}

	if err := a.db.Save(&profile).Error; err != nil {
		zap.L().Error("profile update failed", zap.Uint("user", userID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update profile")
		return
	}

	user.Profile = profile
	utils.Success(ctx, gin.H{"user": toUserResponse(user)})
}
