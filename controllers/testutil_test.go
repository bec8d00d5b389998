package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unknownitems/unknownitems/config"
	"github.com/unknownitems/unknownitems/models"
	"github.com/unknownitems/unknownitems/routes"
	"github.com/unknownitems/unknownitems/utils"
)

// newTestEnv builds an isolated in-memory database plus a fully wired
// router. The sql pool is pinned to one connection because each sqlite
// :memory: connection is its own database.
func newTestEnv(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())

	tmp := t.TempDir()
	config.SetForTesting(config.AppConfig{
		AppPort:            "0",
		JWTSecret:          "test-secret-" + t.Name(),
		GinMode:            gin.TestMode,
		GinPath:            filepath.Join(tmp, "gin.log"),
		RateLimitPerMinute: 10000,
		AllowedOrigins:     []string{"*"},
		OAuthRedirectBase:  "http://localhost:8080",
		LogLevel:           "silent",
		LogMaxSizeMB:       1,
		LogMaxBackups:      1,
		LogMaxAgeDays:      1,
		MediaDir:           filepath.Join(tmp, "uploads"),
		MediaMaxSizeMB:     5,
		MediaSweepMinutes:  60,
		MediaSweepInterval: 60,
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Follow{},
		&models.Post{},
		&models.Media{},
		&models.Tag{},
		&models.PostTag{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.CommentLike{},
	))

	return db, routes.SetupRouter(db)
}

func createTestUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		Profile:      models.Profile{DisplayName: username},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, authorID uint, title string) models.Post {
	t.Helper()
	post := models.Post{
		AuthorID:      authorID,
		Title:         title,
		Content:       "something strange happened",
		ContentType:   models.ContentTypeText,
		Category:      models.CategoryUnexplainedEvents,
		MysteryStatus: models.StatusUnsolved,
		Published:     true,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func bearerFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON performs a request with an optional JSON body and bearer
// token, returning the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Data)
	require.NoError(t, json.Unmarshal(env.Data, out))
}
