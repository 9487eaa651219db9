package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/middleware"
	"github.com/edubridge/reportcard-api/internal/models"
	"github.com/edubridge/reportcard-api/internal/service"
)

func TestAuthHandlerLoginRejectsInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(service.NewAuthService(nil, nil, nil, service.AuthConfig{}))

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"not-json`))
	handler.Login(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(service.NewAuthService(nil, nil, nil, service.AuthConfig{}))

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "admin@school.test", Role: models.RoleAdmin})
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "u1", envelope.Data.ID)
	require.Equal(t, models.RoleAdmin, envelope.Data.Role)
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(service.NewAuthService(nil, nil, nil, service.AuthConfig{}))

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
