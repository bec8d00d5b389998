package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/unknownitems/unknownitems/middleware"
	"github.com/unknownitems/unknownitems/models"
)

// parsePagination normalizes page/limit query values. Limit is capped
// at 100 to keep list queries bounded.
func parsePagination(pageStr, limitStr string, defaultLimit int) (int, int) {
	page := 1
	limit := defaultLimit
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// isAdmin checks the caller's role against the database rather than
// the token claim, so a revoked admin loses the gate immediately.
func isAdmin(db *gorm.DB, userID uint) bool {
	var user models.User
	if err := db.Select("role").First(&user, userID).Error; err != nil {
		return false
	}
	return user.IsAdmin()
}

// countByTarget returns per-target row counts for a join entity, e.g.
// likes per post. Targets absent from the result have zero rows.
func countByTarget(db *gorm.DB, model interface{}, col string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	type row struct {
		TargetID uint  `gorm:"column:target_id"`
		N        int64 `gorm:"column:n"`
	}
	var rows []row
	err := db.Model(model).
		Select(col + " AS target_id, COUNT(*) AS n").
		Where(col+" IN ?", ids).
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.TargetID] = r.N
	}
	return out, nil
}
