package services

import (
	"math"
	"strings"
	"sync"

	"campus-community-system/middleware"
	"campus-community-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Visibility modes the feed resolves a request into. Anonymous viewers are
// always forced to PUBLIC_ONLY whatever filter they ask for.
const (
	feedPublicOnly   = "PUBLIC_ONLY"
	feedMyCampus     = "MY_CAMPUS"
	feedAllCampuses  = "ALL_CAMPUSES"
	feedFollowing    = "FOLLOWING"
	defaultFeedCity  = "Paris"
	defaultFeedLimit = 20
	maxFeedLimit     = 50
)

type FeedService struct {
	DB *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{DB: db}
}

type feedResponse struct {
	InstitutionalNews []models.InstitutionalNews `json:"institutionalNews"`
	MemberPosts       []models.Publication       `json:"memberPosts"`
	CityNews          []models.CityNews          `json:"cityNews"`
}

func resolveVisibilityMode(me *models.Me, filter string) string {
	if me == nil {
		return feedPublicOnly
	}
	switch strings.ToLower(filter) {
	case "following":
		return feedFollowing
	case "my_campus":
		return feedMyCampus
	case "all_campuses":
		return feedAllCampuses
	default:
		return feedPublicOnly
	}
}

// clampFeedLimit silently forces the page size into [1, 50]; out-of-range
// requests are not an error.
func clampFeedLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

func sliceCap(limit int, fraction float64, max int) int {
	n := int(math.Ceil(float64(limit) * fraction))
	if n > max {
		return max
	}
	if n < 1 {
		return 1
	}
	return n
}

// publicationsQuery builds the visibility predicate for the viewer. A
// viewer's own posts are always visible in every mode.
func (s *FeedService) publicationsQuery(me *models.Me, mode string) *gorm.DB {
	q := s.DB.Model(&models.Publication{}).
		Where("published_at IS NOT NULL")

	switch mode {
	case feedMyCampus:
		if me.CampusID != nil {
			q = q.Where(
				"visibility = ? OR (visibility = ? AND campus_id = ?) OR author_user_id = ?",
				models.VisibilityPublic, models.VisibilityCampusOnly, *me.CampusID, me.ID,
			)
		} else {
			q = q.Where("visibility = ? OR author_user_id = ?", models.VisibilityPublic, me.ID)
		}
	case feedAllCampuses:
		q = q.Where(
			"visibility IN ? OR author_user_id = ?",
			[]string{models.VisibilityPublic, models.VisibilityCampusOnly}, me.ID,
		)
	case feedFollowing:
		// Authorship is the only filter here: following someone grants
		// access to everything they post.
		followed := s.DB.Model(&models.UserFollow{}).
			Select("followed_user_id").
			Where("follower_user_id = ?", me.ID)
		q = q.Where("author_user_id IN (?) OR author_user_id = ?", followed, me.ID)
	default: // PUBLIC_ONLY
		if me != nil {
			q = q.Where("visibility = ? OR author_user_id = ?", models.VisibilityPublic, me.ID)
		} else {
			q = q.Where("visibility = ?", models.VisibilityPublic)
		}
	}
	return q
}

type feedQuery struct {
	limit         int
	mode          string
	city          string
	campusIDs     []string
	themeIDs      []string
	includeEvents bool
}

// compose runs the three slice queries concurrently. The slices share no
// transaction, so slight staleness between them is accepted.
func (s *FeedService) compose(me *models.Me, q feedQuery) (*feedResponse, error) {
	instCap := sliceCap(q.limit, 0.25, 5)
	pubCap := sliceCap(q.limit, 0.5, 10)
	cityCap := sliceCap(q.limit, 0.25, 5)

	resp := &feedResponse{
		InstitutionalNews: []models.InstitutionalNews{},
		MemberPosts:       []models.Publication{},
		CityNews:          []models.CityNews{},
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errs[0] = s.DB.
			Order("is_featured DESC, published_at DESC").
			Limit(instCap).
			Find(&resp.InstitutionalNews).Error
	}()
	go func() {
		defer wg.Done()
		pq := s.publicationsQuery(me, q.mode)
		if len(q.campusIDs) > 0 {
			pq = pq.Where("campus_id IN ?", q.campusIDs)
		}
		if len(q.themeIDs) > 0 {
			pq = pq.Where("theme_id IN ?", q.themeIDs)
		}
		if !q.includeEvents {
			pq = pq.Where("type <> ?", models.PublicationTypeEvent)
		}
		errs[1] = pq.
			Preload("Author").
			Preload("Campus").
			Preload("Theme").
			Order("published_at DESC").
			Limit(pubCap).
			Find(&resp.MemberPosts).Error
	}()
	go func() {
		defer wg.Done()
		errs[2] = s.DB.
			Where("city = ?", q.city).
			Order("published_at DESC").
			Limit(cityCap).
			Find(&resp.CityNews).Error
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// viewerCity picks the city slice to serve: the viewer's campus city when
// known, the default otherwise.
func (s *FeedService) viewerCity(me *models.Me) string {
	if me == nil || me.CampusID == nil {
		return defaultFeedCity
	}
	var campus models.Campus
	if err := s.DB.First(&campus, "id = ?", *me.CampusID).Error; err != nil || campus.City == "" {
		return defaultFeedCity
	}
	return campus.City
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetFeed serves both anonymous and authenticated viewers; the route is
// mounted behind OptionalAuth.
func (s *FeedService) GetFeed(c *fiber.Ctx) error {
	me := middleware.GetMe(c)

	limit := clampFeedLimit(c.QueryInt("limit", defaultFeedLimit))

	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		city = s.viewerCity(me)
	}

	q := feedQuery{
		limit:         limit,
		mode:          resolveVisibilityMode(me, c.Query("filter")),
		city:          city,
		campusIDs:     splitCSV(c.Query("campusIds")),
		themeIDs:      splitCSV(c.Query("themeIds")),
		includeEvents: c.QueryBool("includeEvents", true),
	}

	resp, err := s.compose(me, q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}
