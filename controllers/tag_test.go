package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unknownitems/unknownitems/models"
)

func TestListTrendingTags(t *testing.T) {
	db, r := newTestEnv(t)
	require.NoError(t, db.Create(&models.Tag{Name: "UFO", Slug: "ufo", UsageCount: 9}).Error)
	require.NoError(t, db.Create(&models.Tag{Name: "Ghosts", Slug: "ghosts", UsageCount: 3}).Error)
	require.NoError(t, db.Create(&models.Tag{Name: "Atlantis", Slug: "atlantis", UsageCount: 5}).Error)

	w := doJSON(t, r, http.MethodGet, "/api/v1/tags", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Tags []struct {
			Name       string `json:"name"`
			UsageCount int64  `json:"usageCount"`
		} `json:"tags"`
	}
	decodeData(t, w, &data)
	require.Len(t, data.Tags, 3)
	assert.Equal(t, "UFO", data.Tags[0].Name)
	assert.Equal(t, "Atlantis", data.Tags[1].Name)
	assert.Equal(t, "Ghosts", data.Tags[2].Name)
}
