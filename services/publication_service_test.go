package services

import (
	"testing"
	"time"

	"campus-community-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublishDue(t *testing.T) {
	db := newTestDB(t)
	svc := NewPublicationService(db)
	author := createTestUser(t, db, "auteur@mediaschool.me", nil)

	due := models.Publication{
		ID:           uuid.NewString(),
		Title:        "Déjà dû",
		Visibility:   models.VisibilityPublic,
		AuthorUserID: author.ID,
		PublishAt:    timePtr(time.Now().Add(-time.Minute)),
	}
	future := models.Publication{
		ID:           uuid.NewString(),
		Title:        "Pour demain",
		Visibility:   models.VisibilityPublic,
		AuthorUserID: author.ID,
		PublishAt:    timePtr(time.Now().Add(24 * time.Hour)),
	}
	assert.NoError(t, db.Create(&due).Error)
	assert.NoError(t, db.Create(&future).Error)

	svc.PublishDue()

	var published models.Publication
	assert.NoError(t, db.First(&published, "id = ?", due.ID).Error)
	assert.NotNil(t, published.PublishedAt)

	var held models.Publication
	assert.NoError(t, db.First(&held, "id = ?", future.ID).Error)
	assert.Nil(t, held.PublishedAt)
}

func TestValidatePublication(t *testing.T) {
	campus := "campus-a"
	start := time.Now()
	end := start.Add(2 * time.Hour)

	t.Run("defaults", func(t *testing.T) {
		req := publicationRequest{Title: "Soirée d'intégration"}
		assert.NoError(t, validatePublication(&req))
		assert.Equal(t, models.PublicationTypePost, req.Type)
		assert.Equal(t, models.VisibilityPublic, req.Visibility)
	})

	t.Run("campus scoped needs campus", func(t *testing.T) {
		req := publicationRequest{Title: "Réservé campus", Visibility: models.VisibilityCampusOnly}
		assert.ErrorIs(t, validatePublication(&req), ErrValidation)

		req.CampusID = &campus
		assert.NoError(t, validatePublication(&req))
	})

	t.Run("events need a window", func(t *testing.T) {
		req := publicationRequest{Title: "Tournoi", Type: models.PublicationTypeEvent}
		assert.ErrorIs(t, validatePublication(&req), ErrValidation)

		req.EventStartAt = &end
		req.EventEndAt = &start
		assert.ErrorIs(t, validatePublication(&req), ErrValidation)

		req.EventStartAt = &start
		req.EventEndAt = &end
		assert.NoError(t, validatePublication(&req))
	})
}
