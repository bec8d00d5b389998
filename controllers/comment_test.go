package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/models"
)

type commentPage struct {
	Comments []struct {
		ID      uint   `json:"id"`
		Content string `json:"content"`
		Author  struct {
			Username string `json:"username"`
		} `json:"author"`
		LikesCount int64 `json:"likesCount"`
		Replies    []struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
		} `json:"replies"`
	} `json:"comments"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	HasMore bool  `json:"hasMore"`
}

func TestCreateComment(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "commented post")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID),
		map[string]interface{}{"content": "  <b>whoa</b>  "}, bearerFor(t, author))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Comment struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
		} `json:"comment"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, "whoa", data.Comment.Content)
}

func TestCreateCommentValidation(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "commented post")
	bearer := bearerFor(t, author)
	path := fmt.Sprintf("/api/v1/posts/%d/comments", post.ID)

	w := doJSON(t, r, http.MethodPost, path, map[string]interface{}{"content": "   "}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, path,
		map[string]interface{}{"content": strings.Repeat("x", 1001)}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/posts/9999/comments",
		map[string]interface{}{"content": "orphan"}, bearer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, path, map[string]interface{}{"content": "anon"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReplyMustShareParentPost(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	postA := createTestPost(t, db, author.ID, "post a")
	postB := createTestPost(t, db, author.ID, "post b")

	parent := models.Comment{PostID: postA.ID, AuthorID: author.ID, Content: "root"}
	require.NoError(t, db.Create(&parent).Error)

	// Replying under the wrong post treats the parent as missing.
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postB.ID),
		map[string]interface{}{"content": "stray reply", "parentId": parent.ID}, bearerFor(t, author))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postA.ID),
		map[string]interface{}{"content": "proper reply", "parentId": parent.ID}, bearerFor(t, author))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestListCommentsCapsInlineReplies(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "busy post")

	root := models.Comment{PostID: post.ID, AuthorID: author.ID, Content: "root"}
	require.NoError(t, db.Create(&root).Error)
	for i := 0; i < 7; i++ {
		reply := models.Comment{
			PostID:    post.ID,
			AuthorID:  author.ID,
			ParentID:  &root.ID,
			Content:   fmt.Sprintf("reply %d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&reply).Error)
	}

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page commentPage
	decodeData(t, w, &page)
	require.Len(t, page.Comments, 1)
	require.Len(t, page.Comments[0].Replies, 5)
	// Oldest replies come first.
	assert.Equal(t, "reply 0", page.Comments[0].Replies[0].Content)
	assert.Equal(t, "reply 4", page.Comments[0].Replies[4].Content)
	// Replies do not count toward the root total.
	assert.EqualValues(t, 1, page.Total)
}

func TestListCommentsPagination(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "busy post")

	for i := 0; i < 25; i++ {
		comment := models.Comment{
			PostID:    post.ID,
			AuthorID:  author.ID,
			Content:   fmt.Sprintf("comment %02d", i),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&comment).Error)
	}

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", post.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page commentPage
	decodeData(t, w, &page)
	assert.Len(t, page.Comments, 20)
	assert.EqualValues(t, 25, page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, "comment 24", page.Comments[0].Content) // newest root first

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments?page=2", post.ID), nil, "")
	decodeData(t, w, &page)
	assert.Len(t, page.Comments, 5)
	assert.False(t, page.HasMore)
}

func TestDeleteCommentOwnership(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	stranger := createTestUser(t, db, "stranger", models.RoleRegular)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	post := createTestPost(t, db, author.ID, "post")

	mine := models.Comment{PostID: post.ID, AuthorID: author.ID, Content: "mine"}
	require.NoError(t, db.Create(&mine).Error)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", mine.ID), nil, bearerFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", mine.ID), nil, bearerFor(t, author))
	assert.Equal(t, http.StatusOK, w.Code)

	theirs := models.Comment{PostID: post.ID, AuthorID: stranger.ID, Content: "theirs"}
	require.NoError(t, db.Create(&theirs).Error)
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", theirs.ID), nil, bearerFor(t, admin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteCommentRemovesReplyTree(t *testing.T) {
	db, r := newTestEnv(t)
	author := createTestUser(t, db, "author", models.RoleRegular)
	post := createTestPost(t, db, author.ID, "post")

	root := models.Comment{PostID: post.ID, AuthorID: author.ID, Content: "root"}
	require.NoError(t, db.Create(&root).Error)
	reply := models.Comment{PostID: post.ID, AuthorID: author.ID, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, db.Create(&reply).Error)
	nested := models.Comment{PostID: post.ID, AuthorID: author.ID, ParentID: &reply.ID, Content: "nested"}
	require.NoError(t, db.Create(&nested).Error)
	require.NoError(t, db.Create(&models.CommentLike{UserID: author.ID, CommentID: nested.ID}).Error)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", root.ID), nil, bearerFor(t, author))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.CommentLike{}).Count(&count).Error)
	assert.Zero(t, count)

	var gone models.Comment
	assert.ErrorIs(t, db.First(&gone, root.ID).Error, gorm.ErrRecordNotFound)
}
