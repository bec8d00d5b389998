package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleoauth "golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/utils"
)

const oauthStateTTL = 10 * time.Minute

var usernameCleaner = regexp.MustCompile(`[^a-z0-9_]`)

type OAuthController struct {
	db *gorm.DB
	// httpClient is swapped in tests.
	httpClient *http.Client
}

func NewOAuthController(db *gorm.DB) *OAuthController {
	return &OAuthController{db: db, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// oauthUser is the provider-neutral identity extracted from the
// provider's user endpoint.
type oauthUser struct {
	ProviderID  string
	Username    string
	DisplayName string
	Email       string
	Avatar      string
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	redirect := strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/api/v1/auth/oauth/" + provider + "/callback"
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" {
			return nil, errors.New("github oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"read:user", "user:email"},
		}, nil
	case "google":
		if cfg.GoogleClientID == "" {
			return nil, errors.New("google oauth is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleoauth.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
		}, nil
	default:
		return nil, fmt.Errorf("unknown oauth provider %q", provider)
	}
}

// Redirect hands the client the provider authorization URL together
// with a single-use state value.
func (o *OAuthController) Redirect(ctx *gin.Context) {
	conf, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, oauthStateTTL)
	utils.Success(ctx, gin.H{
		"authorizationUrl": conf.AuthCodeURL(state),
		"state":            state,
	})
}

// Callback exchanges the authorization code, resolves the provider
// identity to a local account and issues a JWT.
func (o *OAuthController) Callback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	conf, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, err.Error())
		return
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40027, "code and state are required")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40028, "invalid or expired state")
		return
	}

	octx := context.WithValue(ctx.Request.Context(), oauth2.HTTPClient, o.httpClient)
	token, err := conf.Exchange(octx, code)
	if err != nil {
		zap.L().Warn("oauth exchange failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusUnauthorized, 40112, "authorization code exchange failed")
		return
	}

	var identity *oauthUser
	switch provider {
	case "github":
		identity, err = o.fetchGitHubUser(octx, conf, token)
	case "google":
		identity, err = o.fetchGoogleUser(octx, conf, token)
	}
	if err != nil || identity == nil {
		zap.L().Warn("oauth identity fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50210, "failed to fetch provider identity")
		return
	}

	user, err := o.findOrCreateOAuthUser(provider, identity)
	if err != nil {
		zap.L().Error("oauth account resolution failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to sign in")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Username, user.Role, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to sign in")
		return
	}
	utils.Success(ctx, gin.H{"token": jwtToken, "user": toUserResponse(*user)})
}

func (o *OAuthController) fetchGitHubUser(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*oauthUser, error) {
	client := conf.Client(ctx, token)

	var raw struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, "https://api.github.com/user", &raw); err != nil {
		return nil, err
	}

	email := raw.Email
	if email == "" {
		// The primary address is hidden unless asked for explicitly.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}
	if email == "" {
		return nil, errors.New("github account has no usable email")
	}

	return &oauthUser{
		ProviderID:  fmt.Sprintf("%d", raw.ID),
		Username:    raw.Login,
		DisplayName: raw.Name,
		Email:       strings.ToLower(email),
		Avatar:      raw.AvatarURL,
	}, nil
}

func (o *OAuthController) fetchGoogleUser(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*oauthUser, error) {
	client := conf.Client(ctx, token)

	var raw struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &raw); err != nil {
		return nil, err
	}
	if raw.Email == "" {
		return nil, errors.New("google account has no email")
	}

	return &oauthUser{
		ProviderID:  raw.ID,
		Username:    strings.SplitN(raw.Email, "@", 2)[0],
		DisplayName: raw.Name,
		Email:       strings.ToLower(raw.Email),
		Avatar:      raw.Picture,
	}, nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// findOrCreateOAuthUser resolves a provider identity to a user. Order
// of preference: existing provider link, then an account with the same
// email (which gets linked), then a fresh account with a generated
// username.
func (o *OAuthController) findOrCreateOAuthUser(provider string, identity *oauthUser) (*models.User, error) {
	var user models.User
	err := o.db.Preload("Profile").
		Where("provider = ? AND provider_id = ?", provider, identity.ProviderID).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = o.db.Preload("Profile").Where("email = ?", identity.Email).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{
			"provider":    provider,
			"provider_id": identity.ProviderID,
		}
		if err := o.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username, err := o.ensureUniqueUsername(identity.Username, identity.Email)
	if err != nil {
		return nil, err
	}
	displayName := identity.DisplayName
	if displayName == "" {
		displayName = username
	}

	user = models.User{
		Username:   username,
		Email:      identity.Email,
		Provider:   provider,
		ProviderID: identity.ProviderID,
		Role:       models.RoleRegular,
		Profile: models.Profile{
			DisplayName: displayName,
			Avatar:      identity.Avatar,
		},
	}
	if err := o.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ensureUniqueUsername derives a username from the provider handle or
// the email localpart, appending a random suffix until it is free.
func (o *OAuthController) ensureUniqueUsername(handle, email string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(handle))
	if base == "" {
		base = strings.ToLower(strings.SplitN(email, "@", 2)[0])
	}
	base = usernameCleaner.ReplaceAllString(base, "")
	if len(base) > 24 {
		base = base[:24]
	}
	for len(base) < 3 {
		base += "0"
	}

	candidate := base
	for i := 0; i < 10; i++ {
		var count int64
		err := o.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
		candidate = base + "_" + suffix
	}
	return "", errors.New("could not derive a unique username")
}
