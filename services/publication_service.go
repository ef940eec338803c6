package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"campus-community-system/middleware"
	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PublicationService struct {
	DB *gorm.DB
}

func NewPublicationService(db *gorm.DB) *PublicationService {
	return &PublicationService{DB: db}
}

type publicationRequest struct {
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	ContentHTML  string     `json:"contentHtml"`
	Visibility   string     `json:"visibility"`
	CampusID     *string    `json:"campusId"`
	ThemeID      *string    `json:"themeId"`
	EventStartAt *time.Time `json:"eventStartAt"`
	EventEndAt   *time.Time `json:"eventEndAt"`
	PublishAt    *time.Time `json:"publishAt"`
}

type reportRequest struct {
	Reason string `json:"reason"`
}

func validatePublication(req *publicationRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if len(req.Title) < 3 {
		return fmt.Errorf("%w: title invalid", ErrValidation)
	}
	if req.Type == "" {
		req.Type = models.PublicationTypePost
	}
	if req.Type != models.PublicationTypePost && req.Type != models.PublicationTypeEvent {
		return fmt.Errorf("%w: type invalid", ErrValidation)
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	switch req.Visibility {
	case models.VisibilityPublic, models.VisibilityCampusOnly, models.VisibilityPrivate:
	default:
		return fmt.Errorf("%w: visibility invalid", ErrValidation)
	}
	if req.Visibility == models.VisibilityCampusOnly && req.CampusID == nil {
		return fmt.Errorf("%w: campusId required for CAMPUS_ONLY visibility", ErrValidation)
	}
	if req.Type == models.PublicationTypeEvent {
		if req.EventStartAt == nil || req.EventEndAt == nil {
			return fmt.Errorf("%w: events require eventStartAt and eventEndAt", ErrValidation)
		}
		if !req.EventEndAt.After(*req.EventStartAt) {
			return fmt.Errorf("%w: eventEndAt must be after eventStartAt", ErrValidation)
		}
	}
	return nil
}

func (s *PublicationService) CreatePublication(c *fiber.Ctx) error {
	var req publicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	if err := validatePublication(&req); err != nil {
		return fail(c, err)
	}

	me := middleware.GetMe(c)
	now := time.Now()

	pub := models.Publication{
		ID:           uuid.NewString(),
		Type:         req.Type,
		Title:        req.Title,
		ContentHTML:  req.ContentHTML,
		Visibility:   req.Visibility,
		AuthorUserID: me.ID,
		CampusID:     req.CampusID,
		ThemeID:      req.ThemeID,
		EventStartAt: req.EventStartAt,
		EventEndAt:   req.EventEndAt,
		PublishAt:    req.PublishAt,
	}
	// A future publishAt holds the post out of the feed until the
	// scheduler publishes it.
	if req.PublishAt == nil || !req.PublishAt.After(now) {
		pub.PublishedAt = &now
	}

	if err := s.DB.Create(&pub).Error; err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(pub)
}

func (s *PublicationService) GetPublication(c *fiber.Ctx) error {
	var pub models.Publication
	err := s.DB.
		Preload("Author").
		Preload("Campus").
		Preload("Theme").
		First(&pub, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: publication not found", ErrNotFound))
		}
		return fail(c, err)
	}

	me := middleware.GetMe(c)
	if !publicationVisibleTo(&pub, me) {
		return fail(c, fmt.Errorf("%w: publication not found", ErrNotFound))
	}
	return c.JSON(pub)
}

// publicationVisibleTo mirrors the feed predicate for single-item reads.
func publicationVisibleTo(pub *models.Publication, me *models.Me) bool {
	if me != nil && pub.AuthorUserID == me.ID {
		return true
	}
	if pub.PublishedAt == nil {
		return false
	}
	switch pub.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityCampusOnly:
		return me != nil && me.CampusID != nil && pub.CampusID != nil && *me.CampusID == *pub.CampusID
	default:
		return false
	}
}

func (s *PublicationService) UpdatePublication(c *fiber.Ctx) error {
	me := middleware.GetMe(c)

	var pub models.Publication
	if err := s.DB.First(&pub, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: publication not found", ErrNotFound))
		}
		return fail(c, err)
	}
	if pub.AuthorUserID != me.ID && !me.HasPermission("publications:moderate") {
		return fail(c, fmt.Errorf("%w: not your publication", ErrForbidden))
	}

	var req publicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	if err := validatePublication(&req); err != nil {
		return fail(c, err)
	}

	updates := map[string]interface{}{
		"type":           req.Type,
		"title":          req.Title,
		"content_html":   req.ContentHTML,
		"visibility":     req.Visibility,
		"campus_id":      req.CampusID,
		"theme_id":       req.ThemeID,
		"event_start_at": req.EventStartAt,
		"event_end_at":   req.EventEndAt,
	}
	if err := s.DB.Model(&pub).Updates(updates).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(pub)
}

func (s *PublicationService) DeletePublication(c *fiber.Ctx) error {
	me := middleware.GetMe(c)

	var pub models.Publication
	if err := s.DB.First(&pub, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: publication not found", ErrNotFound))
		}
		return fail(c, err)
	}
	if pub.AuthorUserID != me.ID && !me.HasPermission("publications:moderate") {
		return fail(c, fmt.Errorf("%w: not your publication", ErrForbidden))
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("publication_id = ?", pub.ID).Delete(&models.PublicationReport{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pub).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (s *PublicationService) ReportPublication(c *fiber.Ctx) error {
	var req reportRequest
	_ = c.BodyParser(&req)

	var count int64
	if err := s.DB.Model(&models.Publication{}).Where("id = ?", c.Params("id")).Count(&count).Error; err != nil {
		return fail(c, err)
	}
	if count == 0 {
		return fail(c, fmt.Errorf("%w: publication not found", ErrNotFound))
	}

	report := models.PublicationReport{
		ID:            uuid.NewString(),
		PublicationID: c.Params("id"),
	}
	// Reports are accepted from anonymous readers as well.
	if me := middleware.GetMe(c); me != nil {
		report.ReporterUserID = &me.ID
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		report.Reason = &reason
	}

	if err := s.DB.Create(&report).Error; err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(report)
}

// PublishDue flips publishedAt on every scheduled publication whose
// publishAt has passed. Called by the scheduler.
func (s *PublicationService) PublishDue() {
	now := time.Now()
	result := s.DB.Model(&models.Publication{}).
		Where("published_at IS NULL AND publish_at IS NOT NULL AND publish_at <= ?", now).
		Update("published_at", now)
	if result.Error != nil {
		log.Printf("scheduled publish failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("published %d scheduled publications", result.RowsAffected)
	}
}
