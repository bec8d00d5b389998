package controllers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
)

type feedPage struct {
	Posts []struct {
		ID            uint   `json:"id"`
		Title         string `json:"title"`
		Category      string `json:"category"`
		MysteryStatus string `json:"mysteryStatus"`
		Author        struct {
			Username string `json:"username"`
		} `json:"author"`
		Counts struct {
			Likes    int64 `json:"likes"`
			Comments int64 `json:"comments"`
		} `json:"counts"`
	} `json:"posts"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

func TestCreatePostWithTags(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)

	body := map[string]interface{}{
		"title":    "Lights over the bay",
		"content":  "<p>Three lights, no sound.</p><script>alert(1)</script>",
		"category": "UNIDENTIFIED_OBJECTS",
		"tags":     []string{"UFO", "Night Sky"},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", body, bearerFor(t, user))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Post struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
			Tags    []struct {
				Name       string `json:"name"`
				Slug       string `json:"slug"`
				UsageCount int64  `json:"usageCount"`
			} `json:"tags"`
		} `json:"post"`
	}
	decodeData(t, w, &data)
	assert.NotContains(t, data.Post.Content, "<script>")
	require.Len(t, data.Post.Tags, 2)

	var tag models.Tag
	require.NoError(t, db.Where("slug = ?", "ufo").First(&tag).Error)
	assert.Equal(t, "UFO", tag.Name)
	assert.EqualValues(t, 1, tag.UsageCount)
}

func TestTagSlugDedup(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)
	bearer := bearerFor(t, user)

	for _, tagName := range []string{"UFO", "ufo"} {
		body := map[string]interface{}{
			"title":    "post tagged " + tagName,
			"content":  "content",
			"category": "OTHER",
			"tags":     []string{tagName},
		}
		w := doJSON(t, r, http.MethodPost, "/api/v1/posts", body, bearer)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	var tags []models.Tag
	require.NoError(t, db.Where("slug = ?", "ufo").Find(&tags).Error)
	require.Len(t, tags, 1)
	assert.Equal(t, "UFO", tags[0].Name) // first spelling wins
	assert.EqualValues(t, 2, tags[0].UsageCount)
}

func TestCreatePostValidation(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)
	bearer := bearerFor(t, user)

	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]interface{}{
		"title": "no category", "content": "x",
	}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]interface{}{
		"title": "bad category", "content": "x", "category": "NOT_A_CATEGORY",
	}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/posts", map[string]interface{}{
		"title": "anonymous", "content": "x", "category": "OTHER",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedPagination(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)
	for i := 0; i < 11; i++ {
		createTestPost(t, db, user.ID, fmt.Sprintf("mystery %02d", i))
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page feedPage
	decodeData(t, w, &page)
	assert.Len(t, page.Posts, 10)
	assert.EqualValues(t, 11, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasMore)

	w = doJSON(t, r, http.MethodGet, "/api/v1/posts?page=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &page)
	assert.Len(t, page.Posts, 1)
	assert.False(t, page.HasMore)
}

func TestFeedFilters(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)
	other := createTestUser(t, db, "other", models.RoleRegular)

	cryptid := createTestPost(t, db, user.ID, "hairy biped")
	require.NoError(t, db.Model(&cryptid).Update("category", models.CategoryCryptids).Error)
	createTestPost(t, db, other.ID, "odd event")
	unpublished := createTestPost(t, db, user.ID, "draft")
	require.NoError(t, db.Model(&unpublished).Update("published", false).Error)

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts?category=CRYPTIDS", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page feedPage
	decodeData(t, w, &page)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "hairy biped", page.Posts[0].Title)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts?authorId=%d", other.ID), nil, "")
	decodeData(t, w, &page)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "odd event", page.Posts[0].Title)

	// Unpublished posts never appear.
	w = doJSON(t, r, http.MethodGet, "/api/v1/posts", nil, "")
	decodeData(t, w, &page)
	assert.EqualValues(t, 2, page.Total)

	w = doJSON(t, r, http.MethodGet, "/api/v1/posts?category=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/posts?status=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedUnsolvedSort(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)

	solved := createTestPost(t, db, user.ID, "solved case")
	require.NoError(t, db.Model(&solved).Update("mystery_status", models.StatusSolved).Error)
	debunked := createTestPost(t, db, user.ID, "debunked case")
	require.NoError(t, db.Model(&debunked).Update("mystery_status", models.StatusDebunked).Error)
	partial := createTestPost(t, db, user.ID, "partial case")
	require.NoError(t, db.Model(&partial).Update("mystery_status", models.StatusPartiallySolved).Error)
	createTestPost(t, db, user.ID, "open case")

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts?sort=unsolved", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page feedPage
	decodeData(t, w, &page)
	require.Len(t, page.Posts, 4)
	assert.Equal(t, "open case", page.Posts[0].Title)
	assert.Equal(t, "partial case", page.Posts[1].Title)
	assert.Equal(t, "solved case", page.Posts[2].Title)
	assert.Equal(t, "debunked case", page.Posts[3].Title)
}

func TestFeedPopularSort(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	fans := []models.User{
		createTestUser(t, db, "fan1", models.RoleRegular),
		createTestUser(t, db, "fan2", models.RoleRegular),
	}

	createTestPost(t, db, author.ID, "quiet post")
	loved := createTestPost(t, db, author.ID, "loved post")
	viewed := createTestPost(t, db, author.ID, "viewed post")
	require.NoError(t, db.Model(&viewed).Update("views", 50).Error)
	for _, fan := range fans {
		require.NoError(t, db.Create(&models.Like{UserID: fan.ID, PostID: loved.ID}).Error)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/posts?sort=popular", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page feedPage
	decodeData(t, w, &page)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, "loved post", page.Posts[0].Title)
	assert.Equal(t, "viewed post", page.Posts[1].Title)
	assert.EqualValues(t, 2, page.Posts[0].Counts.Likes)
}

func TestGetPostIncrementsViews(t *testing.T) {
	db, r := newTestEnv(t)
	user := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, user.ID, "watched post")

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.EqualValues(t, 1, reloaded.Views)
}

func TestGetPostNotFound(t *testing.T) {
	_, r := newTestEnv(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/posts/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePostOwnership(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	stranger := createTestUser(t, db, "stranger", models.RoleRegular)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	post := createTestPost(t, db, author.ID, "original title")

	path := fmt.Sprintf("/api/v1/posts/%d", post.ID)

	w := doJSON(t, r, http.MethodPatch, path,
		map[string]interface{}{"title": "hijacked"}, bearerFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPatch, path,
		map[string]interface{}{"mysteryStatus": "partially-solved"}, bearerFor(t, author))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, models.StatusPartiallySolved, reloaded.MysteryStatus)
	assert.Equal(t, "original title", reloaded.Title)

	w = doJSON(t, r, http.MethodPatch, path,
		map[string]interface{}{"title": "moderated title"}, bearerFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "moderated title", reloaded.Title)
}

func TestDeletePostCascades(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	fan := createTestUser(t, db, "fan", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "doomed post")

	comment := models.Comment{PostID: post.ID, AuthorID: fan.ID, Content: "spooky"}
	require.NoError(t, db.Create(&comment).Error)
	require.NoError(t, db.Create(&models.Like{UserID: fan.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.Bookmark{UserID: fan.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.CommentLike{UserID: author.ID, CommentID: comment.ID}).Error)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, bearerFor(t, fan))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, bearerFor(t, author))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, check := range []struct {
		name  string
		model interface{}
		where string
		arg   interface{}
	}{
		{"comments", &models.Comment{}, "post_id = ?", post.ID},
		{"likes", &models.Like{}, "post_id = ?", post.ID},
		{"bookmarks", &models.Bookmark{}, "post_id = ?", post.ID},
		{"comment likes", &models.CommentLike{}, "comment_id = ?", comment.ID},
	} {
		var count int64
		require.NoError(t, db.Model(check.model).Where(check.where, check.arg).Count(&count).Error)
		assert.Zero(t, count, check.name)
	}

	var gone models.Post
	err := db.First(&gone, post.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListMyBookmarks(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	reader := createTestUser(t, db, "reader", models.RoleRegular)

	first := createTestPost(t, db, author.ID, "first saved")
	second := createTestPost(t, db, author.ID, "second saved")
	createTestPost(t, db, author.ID, "not saved")
	require.NoError(t, db.Create(&models.Bookmark{
		UserID: reader.ID, PostID: first.ID, CreatedAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.Bookmark{UserID: reader.ID, PostID: second.ID}).Error)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/me/bookmarks", nil, bearerFor(t, reader))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page feedPage
	decodeData(t, w, &page)
	require.Len(t, page.Posts, 2)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, "second saved", page.Posts[0].Title) // newest bookmark first
	assert.Equal(t, "first saved", page.Posts[1].Title)
}
