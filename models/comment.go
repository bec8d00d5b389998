package models

import "time"

// Comment is a reply to a post, or to another comment on the same post
// when ParentID is set. The parent/child relation forms a tree rooted
// at comments with a null parent.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	ParentID  *uint     `gorm:"index" json:"parentId,omitempty"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
	Replies   []Comment `gorm:"foreignKey:ParentID" json:"-"`
}

// Like marks that a user liked a post. Row existence is the liked
// state; the composite unique index enforces at most one per pair.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bookmark marks that a user saved a post for later.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_post" json:"userId"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_post;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentLike marks that a user liked a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair" json:"userId"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair;index" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}
