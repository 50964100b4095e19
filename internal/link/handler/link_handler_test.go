package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/Itproger-it/url-short/internal/link/domain"
	"github.com/Itproger-it/url-short/internal/link/dto"
	"github.com/Itproger-it/url-short/internal/link/handler"
	"github.com/Itproger-it/url-short/internal/link/service"
	"github.com/Itproger-it/url-short/internal/mocks"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://localhost:8080"

func newLinkApp(t *testing.T, ctrl *gomock.Controller) (*fiber.App, *mocks.MockLinkRepository, *mocks.MockCache) {
	t.Helper()

	mockLinks := mocks.NewMockLinkRepository(ctrl)
	mockCache := mocks.NewMockCache(ctrl)
	linkService, err := service.NewLinkService(mockLinks, mockCache)
	require.NoError(t, err)
	h := handler.NewLinkHandler(linkService, testBaseURL)

	app := fiber.New()
	app.Post("/url", h.Create)
	app.Get("/:key", h.Redirect)
	return app, mockLinks, mockCache
}

func TestCreateLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	app, mockLinks, _ := newLinkApp(t, ctrl)

	t.Run("success", func(t *testing.T) {
		mockLinks.EXPECT().GetByKey(gomock.Any(), gomock.Any()).Return(nil, nil)
		mockLinks.EXPECT().Create(gomock.Any(), gomock.Any(), "").Return(nil)

		body, err := json.Marshal(dto.CreateLinkInput{TargetURL: "https://example.com/long"})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/url", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out dto.LinkInfoOutput
		data, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "https://example.com/long", out.TargetURL)
		assert.True(t, out.IsActive)
		assert.Contains(t, out.URL, testBaseURL+"/")
		assert.Contains(t, out.AdminURL, testBaseURL+"/admin/")
	})

	t.Run("rejects a non-url target", func(t *testing.T) {
		body, err := json.Marshal(dto.CreateLinkInput{TargetURL: "not a url"})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/url", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestRedirect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	link := &domain.Link{ID: "link-1", Key: "ABC123", TargetURL: "https://example.com/long", IsActive: true}

	t.Run("known key issues a temporary redirect", func(t *testing.T) {
		app, mockLinks, mockCache := newLinkApp(t, ctrl)

		mockCache.EXPECT().GetTarget(gomock.Any(), link.Key).Return(link.TargetURL, nil)
		mockLinks.EXPECT().RecordClick(gomock.Any(), link.Key, gomock.Any(), "desktop").Return(nil)

		req := httptest.NewRequest("GET", "/"+link.Key, nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
		assert.Equal(t, link.TargetURL, resp.Header.Get("Location"))
	})

	t.Run("unknown key is 404", func(t *testing.T) {
		app, mockLinks, mockCache := newLinkApp(t, ctrl)

		mockCache.EXPECT().GetTarget(gomock.Any(), "NOPE42").Return("", nil)
		mockLinks.EXPECT().GetByKey(gomock.Any(), "NOPE42").Return(nil, nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/NOPE42", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("forwarded ip wins over the connection ip", func(t *testing.T) {
		app, mockLinks, mockCache := newLinkApp(t, ctrl)

		mockCache.EXPECT().GetTarget(gomock.Any(), link.Key).Return(link.TargetURL, nil)
		mockLinks.EXPECT().RecordClick(gomock.Any(), link.Key, "203.0.113.9", gomock.Any()).Return(nil)

		req := httptest.NewRequest("GET", "/"+link.Key, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	})
}
