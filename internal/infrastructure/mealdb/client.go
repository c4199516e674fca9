// Package mealdb implements the random recipe source on top of TheMealDB's JSON API
package mealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alchemorsel/recipe-remix/internal/domain/recipe"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"go.uber.org/zap"
)

const (
	serviceName = "TheMealDB"
	randomPath  = "/random.php"

	// maxBodyBytes bounds how much of a response body is read
	maxBodyBytes = 1 << 20
)

var _ outbound.RecipeSource = (*Client)(nil)

// Client fetches random meals from TheMealDB
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *monitoring.MetricsCollector
	logger     *zap.Logger
}

// NewClient creates a new TheMealDB client. A nil httpClient gets a plain client.
func NewClient(baseURL string, httpClient *http.Client, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger.Named("mealdb"),
	}
}

// HealthURL is the endpoint used for health checks
func (c *Client) HealthURL() string {
	return c.baseURL + randomPath
}

// randomResponse is the envelope of random.php. Meal values are strings or null.
type randomResponse struct {
	Meals []map[string]interface{} `json:"meals"`
}

// RandomRecipe issues one GET to random.php and returns the first meal
func (c *Client) RandomRecipe(ctx context.Context) (recipe.Recipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.UpstreamRequest(monitoring.ServiceMealDB, 0, time.Since(start))
		return recipe.Recipe{}, apperrors.NewExternalServiceError(serviceName, 0, err)
	}
	defer resp.Body.Close()
	c.metrics.UpstreamRequest(monitoring.ServiceMealDB, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return recipe.Recipe{}, apperrors.NewExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return recipe.Recipe{}, apperrors.NewExternalServiceError(serviceName, resp.StatusCode,
			fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var payload randomResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return recipe.Recipe{}, apperrors.NewExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if len(payload.Meals) == 0 || payload.Meals[0] == nil {
		return recipe.Recipe{}, apperrors.NewExternalServiceError(serviceName, resp.StatusCode, recipe.ErrRecipeNotFound)
	}

	meal := toRecipe(payload.Meals[0])
	c.logger.Debug("Random recipe fetched",
		zap.String("id", meal.ID),
		zap.String("name", meal.Name),
		zap.Int("ingredients", len(recipe.FormatIngredients(meal))),
	)
	return meal, nil
}

// toRecipe maps a raw meal object onto the domain record. Missing and null
// fields become empty strings.
func toRecipe(meal map[string]interface{}) recipe.Recipe {
	field := func(key string) string {
		if s, ok := meal[key].(string); ok {
			return s
		}
		return ""
	}

	r := recipe.Recipe{
		ID:           field("idMeal"),
		Name:         field("strMeal"),
		ImageURL:     field("strMealThumb"),
		Instructions: field("strInstructions"),
		Category:     field("strCategory"),
		Area:         field("strArea"),
		SourceURL:    field("strSource"),
	}
	for i := 1; i <= recipe.MaxIngredients; i++ {
		n := strconv.Itoa(i)
		r.Slots[i-1] = recipe.IngredientSlot{
			Name:    field("strIngredient" + n),
			Measure: field("strMeasure" + n),
		}
	}
	return r
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
