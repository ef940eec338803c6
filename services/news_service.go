package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// NewsService manages the staff-authored content the feed mixes in:
// institutional news and the publication themes.
type NewsService struct {
	DB *gorm.DB
}

func NewNewsService(db *gorm.DB) *NewsService {
	return &NewsService{DB: db}
}

type institutionalNewsRequest struct {
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	ContentHTML string `json:"contentHtml"`
	IsFeatured  bool   `json:"isFeatured"`
}

type themeRequest struct {
	Label string `json:"label"`
}

func (s *NewsService) CreateInstitutionalNews(c *fiber.Ctx) error {
	var req institutionalNewsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	req.Title = strings.TrimSpace(req.Title)
	if len(req.Title) < 3 {
		return fail(c, fmt.Errorf("%w: title invalid", ErrValidation))
	}

	news := models.InstitutionalNews{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		ContentHTML: req.ContentHTML,
		IsFeatured:  req.IsFeatured,
		PublishedAt: time.Now(),
	}
	if err := s.DB.Create(&news).Error; err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(news)
}

func (s *NewsService) DeleteInstitutionalNews(c *fiber.Ctx) error {
	result := s.DB.Delete(&models.InstitutionalNews{}, "id = ?", c.Params("id"))
	if result.Error != nil {
		return fail(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return fail(c, fmt.Errorf("%w: news not found", ErrNotFound))
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (s *NewsService) ListThemes(c *fiber.Ctx) error {
	var themes []models.Theme
	if err := s.DB.Order("label ASC").Find(&themes).Error; err != nil {
		return fail(c, err)
	}
	return c.JSON(themes)
}

func (s *NewsService) CreateTheme(c *fiber.Ctx) error {
	var req themeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	label := strings.TrimSpace(req.Label)
	if len(label) < 2 {
		return fail(c, fmt.Errorf("%w: label invalid", ErrValidation))
	}

	theme := models.Theme{
		ID:    uuid.NewString(),
		Label: label,
		Slug:  slug.Make(label),
	}
	if err := s.DB.Create(&theme).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, fmt.Errorf("%w: theme already exists", ErrConflict))
		}
		return fail(c, err)
	}
	return c.Status(201).JSON(theme)
}
