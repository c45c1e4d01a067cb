package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell-server/cmd/models"
	"github.com/inkwell-app/inkwell-server/cmd/utils"
	"github.com/inkwell-app/inkwell-server/db/dbtest"
)

func newTestRouter(t *testing.T) (*mux.Router, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")
	db := dbtest.New(t)
	router := mux.NewRouter()
	NewHandler(db).RegisterRoutes(router)
	return router, db
}

func postForm(router *mux.Router, path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	token, err := utils.NewSessionToken(userID)
	require.NoError(t, err)
	return &http.Cookie{Name: utils.SessionCookieName, Value: token}
}

func registerAlice(t *testing.T, router *mux.Router) *httptest.ResponseRecorder {
	t.Helper()
	return postForm(router, "/register", url.Values{
		"username": {"alice"},
		"email":    {"alice@x.com"},
		"password": {"pw123"},
	})
}

func TestRegisterThenLogin(t *testing.T) {
	router, db := newTestRouter(t)

	rec := registerAlice(t, router)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@x.com").First(&user).Error)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "pw123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123")))

	login := postForm(router, "/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusSeeOther, login.Code)
	assert.Equal(t, "/", login.Header().Get("Location"))

	var session *http.Cookie
	for _, cookie := range login.Result().Cookies() {
		if cookie.Name == utils.SessionCookieName {
			session = cookie
		}
	}
	require.NotNil(t, session, "login must establish a session")

	userID, err := utils.ParseSessionToken(session.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRegisterValidation(t *testing.T) {
	router, db := newTestRouter(t)

	rec := postForm(router, "/register", url.Values{
		"username": {"alice"},
		"email":    {"not-an-email"},
		"password": {""},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password")

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestRegisterDuplicateEmailIsFriendly(t *testing.T) {
	router, _ := newTestRouter(t)

	require.Equal(t, http.StatusSeeOther, registerAlice(t, router).Code)

	rec := postForm(router, "/register", url.Values{
		"username": {"someone-else"},
		"email":    {"alice@x.com"},
		"password": {"pw456"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is already in use")
}

func TestRegisterDuplicateUsernameIsFriendly(t *testing.T) {
	router, _ := newTestRouter(t)

	require.Equal(t, http.StatusSeeOther, registerAlice(t, router).Code)

	rec := postForm(router, "/register", url.Values{
		"username": {"alice"},
		"email":    {"other@x.com"},
		"password": {"pw456"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username is already in use")
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)

	rec := postForm(router, "/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	for _, cookie := range rec.Result().Cookies() {
		assert.NotEqual(t, utils.SessionCookieName, cookie.Name, "failed login must not establish a session")
	}
}

func TestLoginUnknownEmailSameNotice(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postForm(router, "/login", url.Values{
		"email":    {"ghost@x.com"},
		"password": {"pw123"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	router, db := newTestRouter(t)
	user := seedUser(t, db, "alice", "alice@x.com")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(sessionCookie(t, user.ID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestProfileRequiresSession(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProfileUpdate(t *testing.T) {
	router, db := newTestRouter(t)
	user := seedUser(t, db, "alice", "alice@x.com")

	rec := postForm(router, "/profile", url.Values{
		"username": {"alice2"},
		"email":    {"alice2@x.com"},
		"address":  {"1 Main St"},
		"phone":    {"555-0100"},
	}, sessionCookie(t, user.ID))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "alice2@x.com", updated.Email)
	assert.Equal(t, "1 Main St", updated.Address)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash, "password untouched when left blank")
}

func TestProfileUpdateRehashesPassword(t *testing.T) {
	router, db := newTestRouter(t)
	user := seedUser(t, db, "alice", "alice@x.com")

	rec := postForm(router, "/profile", url.Values{
		"username": {"alice"},
		"email":    {"alice@x.com"},
		"password": {"newpw"},
	}, sessionCookie(t, user.ID))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpw")))
}

func TestProfileUpdateRejectsTakenEmail(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")
	seedUser(t, db, "bob", "bob@x.com")

	rec := postForm(router, "/profile", url.Values{
		"username": {"alice"},
		"email":    {"bob@x.com"},
	}, sessionCookie(t, alice.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelfFollowRejected(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")

	rec := postForm(router, "/follow/1", nil, sessionCookie(t, alice.ID))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile", rec.Header().Get("Location"))

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count, "self-follow must not mutate the following set")
}

func TestFollowIsIdempotent(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	for i := 0; i < 3; i++ {
		rec := postForm(router, "/follow/2", nil, sessionCookie(t, alice.ID))
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	var count int64
	db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", alice.ID, bob.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnfollow(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")
	bob := seedUser(t, db, "bob", "bob@x.com")

	require.Equal(t, http.StatusSeeOther, postForm(router, "/follow/2", nil, sessionCookie(t, alice.ID)).Code)
	require.Equal(t, http.StatusSeeOther, postForm(router, "/unfollow/2", nil, sessionCookie(t, alice.ID)).Code)

	var count int64
	db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", alice.ID, bob.ID).
		Count(&count)
	assert.Zero(t, count)

	// unfollowing again is a no-op, not an error
	rec := postForm(router, "/unfollow/2", nil, sessionCookie(t, alice.ID))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestFollowUnknownUser(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")

	rec := postForm(router, "/follow/99", nil, sessionCookie(t, alice.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count)
}

func TestShowProfileIncludesFollowing(t *testing.T) {
	router, db := newTestRouter(t)
	alice := seedUser(t, db, "alice", "alice@x.com")
	seedUser(t, db, "bob", "bob@x.com")
	require.Equal(t, http.StatusSeeOther, postForm(router, "/follow/2", nil, sessionCookie(t, alice.ID)).Code)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(sessionCookie(t, alice.ID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Following []struct {
			Username string `json:"username"`
		} `json:"following"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Username)
	require.Len(t, body.Following, 1)
	assert.Equal(t, "bob", body.Following[0].Username)
}

func TestServeUploadMissingFile(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/uploads/no-such-file.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: username, Email: email, PasswordHash: string(hash)}
	require.NoError(t, db.Create(&user).Error)
	return user
}
