package models

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a post into one of nine fixed buckets.
type Category string

const (
	CategoryUnknownFacts        Category = "UNKNOWN_FACTS"
	CategoryInternetMysteries   Category = "INTERNET_MYSTERIES"
	CategoryUnidentifiedObjects Category = "UNIDENTIFIED_OBJECTS"
	CategoryUnexplainedEvents   Category = "UNEXPLAINED_EVENTS"
	CategoryHistoricalMysteries Category = "HISTORICAL_MYSTERIES"
	CategoryScientificAnomalies Category = "SCIENTIFIC_ANOMALIES"
	CategoryCryptids            Category = "CRYPTIDS"
	CategoryConspiracies        Category = "CONSPIRACIES"
	CategoryOther               Category = "OTHER"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryUnknownFacts,
	CategoryInternetMysteries,
	CategoryUnidentifiedObjects,
	CategoryUnexplainedEvents,
	CategoryHistoricalMysteries,
	CategoryScientificAnomalies,
	CategoryCryptids,
	CategoryConspiracies,
	CategoryOther,
}

// Valid reports whether c is one of the fixed category values.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// MysteryStatus tracks the resolution state of a posted mystery.
type MysteryStatus string

const (
	StatusUnsolved        MysteryStatus = "UNSOLVED"
	StatusPartiallySolved MysteryStatus = "PARTIALLY_SOLVED"
	StatusSolved          MysteryStatus = "SOLVED"
	StatusDebunked        MysteryStatus = "DEBUNKED"
)

// statusSortPriority orders the "unsolved" feed sort. The table is the
// authority, not declaration order, so reordering the constants above
// cannot silently change the feed.
var statusSortPriority = map[MysteryStatus]int{
	StatusUnsolved:        0,
	StatusPartiallySolved: 1,
	StatusSolved:          2,
	StatusDebunked:        3,
}

// Valid reports whether s is one of the fixed status values.
func (s MysteryStatus) Valid() bool {
	_, ok := statusSortPriority[s]
	return ok
}

// SortPriority returns the explicit ordering rank for the "unsolved"
// sort; unknown values sort last.
func (s MysteryStatus) SortPriority() int {
	if p, ok := statusSortPriority[s]; ok {
		return p
	}
	return len(statusSortPriority)
}

// NormalizeStatus maps a query-string value like "partially-solved"
// onto its enum form.
func NormalizeStatus(raw string) MysteryStatus {
	return MysteryStatus(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "-", "_"))
}

// StatusPriorityCaseSQL renders the priority table as a SQL CASE
// expression over the mystery_status column, usable in ORDER BY.
func StatusPriorityCaseSQL() string {
	var b strings.Builder
	b.WriteString("CASE mystery_status")
	for _, s := range []MysteryStatus{StatusUnsolved, StatusPartiallySolved, StatusSolved, StatusDebunked} {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", s, statusSortPriority[s])
	}
	fmt.Fprintf(&b, " ELSE %d END", len(statusSortPriority))
	return b.String()
}

// ContentType describes the primary media kind of a post.
type ContentType string

const (
	ContentTypeText  ContentType = "TEXT"
	ContentTypeImage ContentType = "IMAGE"
	ContentTypeVideo ContentType = "VIDEO"
	ContentTypeLink  ContentType = "LINK"
	ContentTypeMixed ContentType = "MIXED"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeVideo, ContentTypeLink, ContentTypeMixed:
		return true
	}
	return false
}

// Post is a mystery submitted by a user.
type Post struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	AuthorID      uint          `gorm:"index;not null" json:"authorId"`
	Title         string        `gorm:"size:200;not null" json:"title"`
	Content       string        `gorm:"type:text;not null" json:"content"`
	ContentType   ContentType   `gorm:"size:16;not null;default:'TEXT'" json:"contentType"`
	Category      Category      `gorm:"size:32;index;not null" json:"category"`
	MysteryStatus MysteryStatus `gorm:"size:32;index;not null;default:'UNSOLVED'" json:"mysteryStatus"`
	Views         int64         `gorm:"not null;default:0" json:"views"`
	Published     bool          `gorm:"not null;default:true" json:"published"`
	Featured      bool          `gorm:"not null;default:false" json:"featured"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Author        User          `gorm:"foreignKey:AuthorID" json:"-"`
	Media         []Media       `gorm:"foreignKey:PostID" json:"-"`
	Comments      []Comment     `gorm:"foreignKey:PostID" json:"-"`
}

// Media is an uploaded attachment. PostID stays null until a post
// claims it; unclaimed rows are swept after a TTL.
type Media struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	Type         string    `gorm:"size:16;not null" json:"type"`
	ThumbnailURL string    `gorm:"size:1024" json:"thumbnailUrl"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	FilePath     string    `gorm:"size:1024" json:"-"`
	UploaderID   uint      `gorm:"index;not null" json:"-"`
	PostID       *uint     `gorm:"index" json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Tag is a free-form label deduplicated by slug. UsageCount is bumped
// each time a post adopts the tag; it is never recomputed from join
// rows and never decremented, so it may drift high after deletions.
type Tag struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	UsageCount  int64     `gorm:"not null;default:0" json:"usageCount"`
	CreatedAt   time.Time `json:"-"`
}

// PostTag joins posts to tags.
type PostTag struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	PostID uint `gorm:"not null;uniqueIndex:idx_post_tag_pair" json:"postId"`
	TagID  uint `gorm:"not null;uniqueIndex:idx_post_tag_pair;index" json:"tagId"`
}
