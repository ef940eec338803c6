package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"campus-community-system/models"
	"campus-community-system/utils"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CityNewsClient mirrors articles from an external city-news provider into
// the city_news table the feed reads from.
type CityNewsClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

var cityCaser = cases.Title(language.French)

func NewCityNewsClient(db *gorm.DB) *CityNewsClient {
	baseURL := os.Getenv("CITY_NEWS_URL")
	if baseURL == "" {
		log.Fatal("CITY_NEWS_URL environment variable is required")
	}

	return &CityNewsClient{
		BaseURL:    baseURL,
		Token:      os.Getenv("CITY_NEWS_TOKEN"),
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// externalArticle is the provider's wire shape.
type externalArticle struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (c *CityNewsClient) GetChangedArticles(ctx context.Context, since time.Time) ([]models.CityNews, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/articles", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("X-Service-Token", c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call city news service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("city news service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Articles []externalArticle `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode city news response: %w", err)
	}

	rows := make([]models.CityNews, 0, len(response.Articles))
	for _, a := range response.Articles {
		if a.ID == "" || a.Title == "" {
			continue
		}
		rows = append(rows, models.CityNews{
			ID:         uuid.NewString(),
			ExternalID: a.ID,
			// Provider city names arrive in mixed case ("paris", "PARIS").
			City:        cityCaser.String(a.City),
			Title:       a.Title,
			Excerpt:     a.Excerpt,
			Source:      a.Source,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return rows, nil
}

// PollCityNews upserts article batches keyed by external_id. A failed batch
// is retried over the same window next tick.
func PollCityNews(ctx context.Context, client *CityNewsClient, pollInterval time.Duration) {
	log.Println("Starting city news polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("City news polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			articles, err := client.GetChangedArticles(ctx, lastSyncTime)
			if err != nil {
				log.Printf("Error polling city news: %v", err)
				continue
			}
			if len(articles) == 0 {
				continue
			}

			err = client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "external_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"city",
						"title",
						"excerpt",
						"source",
						"url",
						"published_at",
						"updated_at",
					}),
				},
			).Create(&articles).Error
			if err != nil {
				log.Printf("Failed to upsert %d city news article(s): %v", len(articles), err)
				continue
			}

			lastSyncTime = tickTime
			log.Printf("Upserted %d city news article(s).", len(articles))
		}
	}
}
