package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"campus-community-system/middleware"
	"campus-community-system/models"
	"campus-community-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

type profileUpdateRequest struct {
	FirstName          *string `json:"firstName"`
	LastName           *string `json:"lastName"`
	LastNameVisibility *string `json:"lastNameVisibility"`
	Bio                *string `json:"bio"`
	City               *string `json:"city"`
	AvatarText         *string `json:"avatarText"`
	ShowEmail          *bool   `json:"showEmail"`
	ShowSocials        *bool   `json:"showSocials"`
	InstagramHandle    *string `json:"instagramHandle"`
	LinkedinURL        *string `json:"linkedinUrl"`
	WebsiteURL         *string `json:"websiteUrl"`
}

// publicProfileView applies the last-name visibility choice before the
// profile leaves the server.
type publicProfileView struct {
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName,omitempty"`
	Bio             string `json:"bio,omitempty"`
	City            string `json:"city,omitempty"`
	AvatarText      string `json:"avatarText,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	Email           string `json:"email,omitempty"`
	InstagramHandle string `json:"instagramHandle,omitempty"`
	LinkedinURL     string `json:"linkedinUrl,omitempty"`
	WebsiteURL      string `json:"websiteUrl,omitempty"`
}

func renderLastName(profile *models.UserProfile) string {
	switch profile.LastNameVisibility {
	case models.LastNameHidden:
		return ""
	case models.LastNameInitial:
		if profile.LastName == "" {
			return ""
		}
		r, _ := utf8.DecodeRuneInString(profile.LastName)
		return strings.ToUpper(string(r)) + "."
	default:
		return profile.LastName
	}
}

func (s *ProfileService) loadOrDefault(userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserProfile{UserID: userID, LastNameVisibility: models.LastNameFull, ShowSocials: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileService) GetProfile(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, fmt.Errorf("%w: user not found", ErrNotFound))
		}
		return fail(c, err)
	}

	profile, err := s.loadOrDefault(userID)
	if err != nil {
		return fail(c, err)
	}

	view := publicProfileView{
		UserID:          userID,
		DisplayName:     user.DisplayName,
		FirstName:       profile.FirstName,
		LastName:        renderLastName(profile),
		Bio:             profile.Bio,
		City:            profile.City,
		AvatarText:      profile.AvatarText,
		AvatarURL:       profile.AvatarURL,
	}
	if profile.ShowEmail {
		view.Email = user.Email
	}
	if profile.ShowSocials {
		view.InstagramHandle = profile.InstagramHandle
		view.LinkedinURL = profile.LinkedinURL
		view.WebsiteURL = profile.WebsiteURL
	}
	return c.JSON(view)
}

func (s *ProfileService) GetMyProfile(c *fiber.Ctx) error {
	me := middleware.GetMe(c)
	profile, err := s.loadOrDefault(me.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile patches only the fields present in the body and creates
// the profile row on first write.
func (s *ProfileService) UpdateMyProfile(c *fiber.Ctx) error {
	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid JSON body", ErrValidation))
	}
	if req.LastNameVisibility != nil {
		switch *req.LastNameVisibility {
		case models.LastNameFull, models.LastNameInitial, models.LastNameHidden:
		default:
			return fail(c, fmt.Errorf("%w: lastNameVisibility invalid", ErrValidation))
		}
	}

	me := middleware.GetMe(c)

	var profile models.UserProfile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", me.ID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.UserProfile{ID: uuid.NewString(), UserID: me.ID}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setStr := func(col string, v *string) {
			if v != nil {
				updates[col] = strings.TrimSpace(*v)
			}
		}
		setStr("first_name", req.FirstName)
		setStr("last_name", req.LastName)
		setStr("last_name_visibility", req.LastNameVisibility)
		setStr("bio", req.Bio)
		setStr("city", req.City)
		setStr("avatar_text", req.AvatarText)
		setStr("instagram_handle", req.InstagramHandle)
		setStr("linkedin_url", req.LinkedinURL)
		setStr("website_url", req.WebsiteURL)
		if req.ShowEmail != nil {
			updates["show_email"] = *req.ShowEmail
		}
		if req.ShowSocials != nil {
			updates["show_socials"] = *req.ShowSocials
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&profile).Updates(updates).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(profile)
}

func (s *ProfileService) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, fmt.Errorf("%w: file is required", ErrValidation))
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return fail(c, fmt.Errorf("%w: unsupported image type", ErrValidation))
	}

	me := middleware.GetMe(c)
	key := "avatars/" + me.ID + "/" + uuid.NewString() + ext
	url, err := utils.UploadFileToR2(file, key)
	if err != nil {
		return fail(c, err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		err := tx.Where("user_id = ?", me.ID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.UserProfile{ID: uuid.NewString(), UserID: me.ID, AvatarURL: url}
			return tx.Create(&profile).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&profile).Update("avatar_url", url).Error
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"avatarUrl": url})
}

// FollowUser is idempotent; following yourself is rejected.
func (s *ProfileService) FollowUser(c *fiber.Ctx) error {
	me := middleware.GetMe(c)
	targetID := c.Params("userId")
	if targetID == me.ID {
		return fail(c, fmt.Errorf("%w: cannot follow yourself", ErrValidation))
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return fail(c, err)
	}
	if count == 0 {
		return fail(c, fmt.Errorf("%w: user not found", ErrNotFound))
	}

	follow := models.UserFollow{
		ID:             uuid.NewString(),
		FollowerUserID: me.ID,
		FollowedUserID: targetID,
	}
	if err := s.DB.Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(fiber.Map{"following": true})
		}
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"following": true})
}

func (s *ProfileService) UnfollowUser(c *fiber.Ctx) error {
	me := middleware.GetMe(c)
	err := s.DB.
		Where("follower_user_id = ? AND followed_user_id = ?", me.ID, c.Params("userId")).
		Delete(&models.UserFollow{}).Error
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"following": false})
}
