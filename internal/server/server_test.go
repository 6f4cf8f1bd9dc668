package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "unit-test-secret-not-for-production"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		JWTSecret:            testSecret,
		Port:                 "0",
		Env:                  "test",
		AllowedOrigins:       "*",
		FeatureFlags:         "trending_cache=off",
		TrendingDecay:        1.0,
		TrendingLimit:        6,
		TrendingCacheTTLSecs: 1,
	}
	return NewServerWithDeps(cfg, db, rdb)
}

func mintToken(t *testing.T, userID uint, admin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"admin": admin,
		"iss":   tokenIssuer,
		"aud":   tokenAudience,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func createItemViaAPI(t *testing.T, s *Server, token string, req CreateItemRequest) models.Item {
	t.Helper()
	resp := doJSON(t, s, "POST", "/api/items", token, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var item models.Item
	decodeBody(t, resp, &item)
	require.NotZero(t, item.ID)
	return item
}

func TestCreateItemValidation(t *testing.T) {
	s := newTestServer(t)
	token := mintToken(t, 1, false)

	resp := doJSON(t, s, "POST", "/api/items", token, CreateItemRequest{
		Kind: "complaint", County: "Dublin", Title: "x",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/items", token, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "   ",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/items", token, CreateItemRequest{
		Kind: models.KindIssue, County: "  ", Title: "Pothole",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// A well-formed request defaults to public visibility and under_review.
	item := createItemViaAPI(t, s, token, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole on Main Street",
	})
	assert.Equal(t, models.VisibilityPublic, item.Visibility)
	assert.Equal(t, models.StatusUnderReview, item.Status)
	assert.Equal(t, uint(1), item.UserID)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, "POST", "/api/items", "", CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/items", "not-a-jwt", CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Admin surface rejects ordinary users before touching the body.
	resp = doJSON(t, s, "POST", "/api/admin/counties", mintToken(t, 1, false),
		AssignCountiesRequest{Counties: []string{"Dublin"}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAppraisalToggleFlow(t *testing.T) {
	s := newTestServer(t)
	tokenA := mintToken(t, 1, false)
	tokenB := mintToken(t, 2, false)

	item := createItemViaAPI(t, s, tokenA, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole on Main Street",
	})
	togglePath := fmt.Sprintf("/api/items/%d/appraisal/toggle", item.ID)
	statusPath := fmt.Sprintf("/api/items/%d/appraisal/status", item.ID)

	// A likes: 0 -> 1.
	resp := doJSON(t, s, "POST", togglePath, tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status models.AppraisalStatus
	decodeBody(t, resp, &status)
	assert.True(t, status.Liked)
	assert.Equal(t, int64(1), status.Count)

	// B likes: 1 -> 2.
	resp = doJSON(t, s, "POST", togglePath, tokenB, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.True(t, status.Liked)
	assert.Equal(t, int64(2), status.Count)

	// A unlikes: 2 -> 1. B's appraisal is untouched.
	resp = doJSON(t, s, "POST", togglePath, tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status.Liked)
	assert.Equal(t, int64(1), status.Count)

	resp = doJSON(t, s, "GET", statusPath, tokenB, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.True(t, status.Liked)
	assert.Equal(t, int64(1), status.Count)

	// Anonymous status read: count only.
	resp = doJSON(t, s, "GET", statusPath, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status.Liked)
	assert.Equal(t, int64(1), status.Count)
}

func TestTrendingEndpoint(t *testing.T) {
	s := newTestServer(t)
	tokenA := mintToken(t, 1, false)
	tokenB := mintToken(t, 2, false)

	issue := createItemViaAPI(t, s, tokenA, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole on Main Street",
	})
	suggestion := createItemViaAPI(t, s, tokenA, CreateItemRequest{
		Kind: models.KindSuggestion, County: "Dublin", Title: "More bike racks",
	})

	for _, token := range []string{tokenA, tokenB} {
		resp := doJSON(t, s, "POST", fmt.Sprintf("/api/items/%d/appraisal/toggle", issue.ID), token, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp := doJSON(t, s, "POST", fmt.Sprintf("/api/items/%d/appraisal/toggle", suggestion.ID), tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Scope string `json:"scope"`
		Items []struct {
			ID             uint    `json:"id"`
			Kind           string  `json:"kind"`
			AppraisalCount int     `json:"appraisal_count"`
			Score          float64 `json:"score"`
		} `json:"items"`
	}

	resp = doJSON(t, s, "GET", "/api/trending", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Equal(t, "all", body.Scope)
	require.Len(t, body.Items, 2)
	// Both are minutes old, so the age floor makes score equal count.
	assert.Equal(t, issue.ID, body.Items[0].ID)
	assert.Equal(t, 2, body.Items[0].AppraisalCount)
	assert.Equal(t, suggestion.ID, body.Items[1].ID)

	resp = doJSON(t, s, "GET", "/api/trending?scope=suggestions", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, suggestion.ID, body.Items[0].ID)

	resp = doJSON(t, s, "GET", "/api/trending?scope=bogus", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCountyAssignmentEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin1 := mintToken(t, 100, true)
	admin2 := mintToken(t, 200, true)

	resp := doJSON(t, s, "POST", "/api/admin/counties", admin1,
		AssignCountiesRequest{Counties: []string{"Dublin", "Wicklow"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var assigned struct {
		Assigned []string `json:"assigned"`
	}
	decodeBody(t, resp, &assigned)
	assert.Equal(t, []string{"Dublin", "Wicklow"}, assigned.Assigned)

	// Contested batch: 409 naming the county, nothing committed.
	resp = doJSON(t, s, "POST", "/api/admin/counties", admin2,
		AssignCountiesRequest{Counties: []string{"Galway", "Dublin"}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var errBody models.ErrorResponse
	decodeBody(t, resp, &errBody)
	assert.Equal(t, models.CodeConflict, errBody.Code)
	assert.Contains(t, errBody.Error, "Dublin")

	resp = doJSON(t, s, "GET", "/api/admin/counties/me", admin2, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine struct {
		Counties []string `json:"counties"`
	}
	decodeBody(t, resp, &mine)
	assert.Empty(t, mine.Counties)

	resp = doJSON(t, s, "POST", "/api/admin/counties", admin2, AssignCountiesRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestModerationEndpoint(t *testing.T) {
	s := newTestServer(t)
	resident := mintToken(t, 1, false)
	dublinAdmin := mintToken(t, 100, true)
	corkAdmin := mintToken(t, 200, true)

	resp := doJSON(t, s, "POST", "/api/admin/counties", dublinAdmin,
		AssignCountiesRequest{Counties: []string{"Dublin"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = doJSON(t, s, "POST", "/api/admin/counties", corkAdmin,
		AssignCountiesRequest{Counties: []string{"Cork"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	item := createItemViaAPI(t, s, resident, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Flooded underpass",
	})
	path := fmt.Sprintf("/api/items/%d/status", item.ID)

	// Out-of-county admin is refused.
	resp = doJSON(t, s, "PATCH", path, corkAdmin,
		TransitionRequest{Status: models.StatusAccepted, Note: "note"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Missing note on a review decision.
	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusAccepted})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Skipping ahead is an illegal edge.
	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusResolved})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusAccepted, Note: "within council remit"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.Item
	decodeBody(t, resp, &updated)
	assert.Equal(t, models.StatusAccepted, updated.Status)
	assert.Equal(t, "within council remit", updated.AdminNote)
	require.NotNil(t, updated.AdminActionBy)
	assert.Equal(t, uint(100), *updated.AdminActionBy)

	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusInProgress})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusResolved})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Terminal.
	resp = doJSON(t, s, "PATCH", path, dublinAdmin,
		TransitionRequest{Status: models.StatusInProgress})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestBanLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := mintToken(t, 100, true)
	resident := mintToken(t, 2, false)

	item := createItemViaAPI(t, s, resident, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Pothole",
	})
	togglePath := fmt.Sprintf("/api/items/%d/appraisal/toggle", item.ID)

	resp := doJSON(t, s, "POST", "/api/admin/bans", admin,
		IssueBanRequest{UserID: 2, Duration: models.BanDuration24h, Reason: "spamming reports"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// The banned user is locked out of every write path.
	resp = doJSON(t, s, "POST", togglePath, resident, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	var banBody struct {
		Reason    string `json:"reason"`
		ExpiresAt string `json:"expires_at"`
	}
	decodeBody(t, resp, &banBody)
	assert.Equal(t, "spamming reports", banBody.Reason)
	assert.NotEmpty(t, banBody.ExpiresAt)

	resp = doJSON(t, s, "POST", "/api/items", resident, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "Another one",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Reads still work, including the public ban status.
	resp = doJSON(t, s, "GET", "/api/bans/2", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status models.BanStatus
	decodeBody(t, resp, &status)
	assert.True(t, status.Active)

	resp = doJSON(t, s, "DELETE", "/api/admin/bans/2", admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, s, "POST", togglePath, resident, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Revoking again is a no-op.
	resp = doJSON(t, s, "DELETE", "/api/admin/bans/2", admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, s, "GET", "/api/bans/2", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status.Active)
}

func TestIssueBanValidation(t *testing.T) {
	s := newTestServer(t)
	admin := mintToken(t, 100, true)

	resp := doJSON(t, s, "POST", "/api/admin/bans", admin,
		IssueBanRequest{UserID: 2, Duration: "1y", Reason: "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/admin/bans", admin,
		IssueBanRequest{UserID: 2, Duration: models.BanDuration24h})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "reason is optional")

	resp = doJSON(t, s, "POST", "/api/admin/bans", admin,
		IssueBanRequest{UserID: 100, Duration: models.BanDuration24h, Reason: "self"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPrivateItemVisibility(t *testing.T) {
	s := newTestServer(t)
	author := mintToken(t, 1, false)
	stranger := mintToken(t, 2, false)
	admin := mintToken(t, 100, true)

	item := createItemViaAPI(t, s, author, CreateItemRequest{
		Kind: models.KindIssue, County: "Dublin", Title: "My private note",
		Visibility: models.VisibilityPrivate,
	})
	path := fmt.Sprintf("/api/items/%d", item.ID)

	// Anonymous and strangers see a 404, not a 403.
	resp := doJSON(t, s, "GET", path, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, s, "GET", path, stranger, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, s, "GET", path, author, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = doJSON(t, s, "GET", path, admin, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Private items stay out of the public listing.
	resp = doJSON(t, s, "GET", "/api/items", stranger, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listing struct {
		Items []models.Item `json:"items"`
	}
	decodeBody(t, resp, &listing)
	assert.Empty(t, listing.Items)
}

func TestHealthProbes(t *testing.T) {
	s := newTestServer(t)

	resp := doJSON(t, s, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
