package services

import (
	"testing"
	"unicode/utf8"

	"campus-community-system/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderLastName(t *testing.T) {
	profile := func(name, visibility string) *models.UserProfile {
		return &models.UserProfile{LastName: name, LastNameVisibility: visibility}
	}

	assert.Equal(t, "Dupont", renderLastName(profile("Dupont", models.LastNameFull)))
	assert.Equal(t, "D.", renderLastName(profile("Dupont", models.LastNameInitial)))
	assert.Equal(t, "", renderLastName(profile("Dupont", models.LastNameHidden)))
	assert.Equal(t, "", renderLastName(profile("", models.LastNameInitial)))

	t.Run("accented initial stays valid UTF-8", func(t *testing.T) {
		got := renderLastName(profile("Édouard-Vaillant", models.LastNameInitial))
		assert.Equal(t, "É.", got)
		assert.True(t, utf8.ValidString(got))
	})
}
