package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aerofleet/fleet-maintenance/internal/auth"
	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAuthHandler_Login(t *testing.T) {
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	t.Run("successful login", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		passwordHash, err := authService.HashPassword("password123")
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		user := &models.User{
			ID:             primitive.NewObjectID(),
			Username:       "testuser",
			Email:          "test@example.com",
			PasswordHash:   passwordHash,
			Role:           models.RoleMechanic,
			OrganizationID: "org-1",
			IsActive:       true,
		}

		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)
		mockUserCollection.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		body, _ := json.Marshal(models.LoginRequest{Username: "testuser", Password: "password123"})
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.LoginResponse
		err = json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		assert.NotEmpty(t, response.Token)
		assert.NotEmpty(t, response.RefreshToken)
		assert.Equal(t, user.Username, response.User.Username)

		// The token must carry the organization the user belongs to.
		claims, err := authService.ValidateToken(response.Token)
		assert.NoError(t, err)
		assert.Equal(t, "org-1", claims.OrganizationID)

		mockUserCollection.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(nil, assert.AnError)

		body, _ := json.Marshal(models.LoginRequest{Username: "testuser", Password: "wrongpassword"})
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("inactive user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		passwordHash, err := authService.HashPassword("password123")
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		user := &models.User{
			ID:           primitive.NewObjectID(),
			Username:     "testuser",
			PasswordHash: passwordHash,
			IsActive:     false,
		}

		mockUserCollection.On("FindUserByUsername", mock.Anything, "testuser").Return(user, nil)

		body, _ := json.Marshal(models.LoginRequest{Username: "testuser", Password: "password123"})
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUserCollection.AssertExpectations(t)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	t.Run("successful registration", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		registerReq := models.RegisterRequest{
			Username:       "newuser",
			Email:          "newuser@example.com",
			Password:       "password123",
			FirstName:      "New",
			LastName:       "User",
			Role:           models.RoleViewer,
			OrganizationID: "org-1",
		}

		mockUserCollection.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, assert.AnError)
		mockUserCollection.On("FindUserByEmail", mock.Anything, "newuser@example.com").Return(nil, assert.AnError)
		mockUserCollection.On("InsertUser", mock.Anything, mock.AnythingOfType("models.User")).Return(nil)

		body, _ := json.Marshal(registerReq)
		req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response models.LoginResponse
		err = json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		assert.NotEmpty(t, response.Token)
		assert.NotEmpty(t, response.RefreshToken)
		assert.Equal(t, registerReq.Username, response.User.Username)
		assert.Equal(t, "org-1", response.User.OrganizationID)

		mockUserCollection.AssertExpectations(t)
	})

	t.Run("username already exists", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		existingUser := &models.User{Username: "existinguser"}
		registerReq := models.RegisterRequest{
			Username:       "existinguser",
			Email:          "newuser@example.com",
			Password:       "password123",
			Role:           models.RoleViewer,
			OrganizationID: "org-1",
		}

		mockUserCollection.On("FindUserByUsername", mock.Anything, "existinguser").Return(existingUser, nil)

		body, _ := json.Marshal(registerReq)
		req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		registerReq := models.RegisterRequest{
			Username:       "newuser",
			Email:          "newuser@example.com",
			Password:       "password123",
			Role:           "invalid_role",
			OrganizationID: "org-1",
		}

		body, _ := json.Marshal(registerReq)
		req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing organization", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		registerReq := models.RegisterRequest{
			Username: "newuser",
			Email:    "newuser@example.com",
			Password: "password123",
			Role:     models.RoleViewer,
		}

		body, _ := json.Marshal(registerReq)
		req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	t.Run("successful profile retrieval", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		userID := primitive.NewObjectID()
		user := &models.User{
			ID:             userID,
			Username:       "testuser",
			Email:          "test@example.com",
			Role:           models.RoleMechanic,
			OrganizationID: "org-1",
		}

		claims := &models.Claims{
			UserID:         userID.Hex(),
			Username:       "testuser",
			Role:           models.RoleMechanic,
			OrganizationID: "org-1",
		}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(user, nil)

		req := httptest.NewRequest("GET", "/api/auth/profile", nil)
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response models.User
		err = json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		assert.Equal(t, user.Username, response.Username)
		assert.Equal(t, user.OrganizationID, response.OrganizationID)

		mockUserCollection.AssertExpectations(t)
	})

	t.Run("user not found", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		userID := primitive.NewObjectID()
		claims := &models.Claims{
			UserID:         userID.Hex(),
			Username:       "testuser",
			Role:           models.RoleMechanic,
			OrganizationID: "org-1",
		}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(nil, assert.AnError)

		req := httptest.NewRequest("GET", "/api/auth/profile", nil)
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("missing user context", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		req := httptest.NewRequest("GET", "/api/auth/profile", nil)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	userID := primitive.NewObjectID()
	claims := &models.Claims{
		UserID:         userID.Hex(),
		Username:       "testuser",
		Role:           models.RoleMechanic,
		OrganizationID: "org-1",
	}

	newRequest := func(payload map[string]string) *http.Request {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("PUT", "/api/auth/profile", bytes.NewBuffer(body))
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
		return req.WithContext(ctx)
	}

	t.Run("successful update", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		user := &models.User{
			ID:             userID,
			Username:       "testuser",
			Email:          "old@example.com",
			OrganizationID: "org-1",
		}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(user, nil)
		mockUserCollection.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, assert.AnError)
		mockUserCollection.On("UpdateUser", mock.Anything, userID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return u.FirstName == "Jamie" && u.Email == "new@example.com"
		})).Return(nil)

		w := httptest.NewRecorder()
		handler.UpdateProfile(w, newRequest(map[string]string{
			"first_name": "Jamie",
			"email":      "new@example.com",
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Profile updated successfully")
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		user := &models.User{ID: userID, Username: "testuser", OrganizationID: "org-1"}
		other := &models.User{ID: primitive.NewObjectID(), Email: "taken@example.com"}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(user, nil)
		mockUserCollection.On("FindUserByEmail", mock.Anything, "taken@example.com").Return(other, nil)

		w := httptest.NewRecorder()
		handler.UpdateProfile(w, newRequest(map[string]string{"email": "taken@example.com"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("missing user context", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		req := httptest.NewRequest("PUT", "/api/auth/profile", bytes.NewBufferString("{}"))
		w := httptest.NewRecorder()

		handler.UpdateProfile(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService, err := auth.NewService()
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}

	userID := primitive.NewObjectID()
	claims := &models.Claims{
		UserID:         userID.Hex(),
		Username:       "testuser",
		Role:           models.RoleMechanic,
		OrganizationID: "org-1",
	}

	newRequest := func(payload map[string]string) *http.Request {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/auth/change-password", bytes.NewBuffer(body))
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)
		return req.WithContext(ctx)
	}

	t.Run("successful change", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		passwordHash, err := authService.HashPassword("oldpassword1")
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		user := &models.User{ID: userID, Username: "testuser", PasswordHash: passwordHash}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(user, nil)
		mockUserCollection.On("UpdateUser", mock.Anything, userID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return authService.CheckPassword("newpassword1", u.PasswordHash)
		})).Return(nil)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, newRequest(map[string]string{
			"current_password": "oldpassword1",
			"new_password":     "newpassword1",
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Password changed successfully")
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		passwordHash, err := authService.HashPassword("oldpassword1")
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		user := &models.User{ID: userID, Username: "testuser", PasswordHash: passwordHash}

		mockUserCollection.On("FindUserByID", mock.Anything, userID.Hex()).Return(user, nil)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, newRequest(map[string]string{
			"current_password": "wrongpassword",
			"new_password":     "newpassword1",
		}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Current password is incorrect")
		mockUserCollection.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		mockUserCollection := new(MockUserCollection)
		handler := NewAuthHandler(authService, db.UserCollection(mockUserCollection))

		w := httptest.NewRecorder()
		handler.ChangePassword(w, newRequest(map[string]string{"new_password": "newpassword1"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
