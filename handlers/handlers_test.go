package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"civicreport-backend/auth"
	"civicreport-backend/models"
	"civicreport-backend/repository"
	"civicreport-backend/service"
	"civicreport-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	ranchi = "Ranchi"
	rmc    = "Ranchi"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testServer struct {
	engine *gin.Engine
	users  *repository.MemoryUserStore
}

func newTestServer(t *testing.T, adminOpts ...service.AdminServiceOption) *testServer {
	t.Helper()

	reports := repository.NewMemoryReportStore()
	users := repository.NewMemoryUserStore()

	tokens, err := auth.NewTokenIssuer("test-secret-at-least-32-bytes-long!!", time.Hour)
	require.NoError(t, err)

	media, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	identity := service.NewIdentityService(
		service.IdentityWithUserStore(users),
		service.IdentityWithTokenIssuer(tokens),
		service.IdentityWithBcryptCost(bcrypt.MinCost),
	)
	reportService := service.NewReportService(
		service.WithReportStore(reports),
		service.WithUserStore(users),
	)
	feedService := service.NewFeedService(
		service.FeedWithReportStore(reports),
		service.FeedWithUserStore(users),
	)
	engagement := service.NewEngagementService(
		service.EngagementWithReportStore(reports),
		service.EngagementWithUserStore(users),
	)
	admin := service.NewAdminService(append([]service.AdminServiceOption{
		service.AdminWithReportStore(reports),
		service.AdminWithUserStore(users),
	}, adminOpts...)...)

	engine := NewRouter(Router{
		Auth:       NewAuthHandler(identity),
		Location:   NewLocationHandler(identity),
		Reports:    NewReportHandler(reportService, feedService, media, "/api/media", UploadLimits{MaxFiles: 2, MaxFileBytes: 1024}),
		Engagement: NewEngagementHandler(engagement),
		Admin:      NewAdminHandler(admin),
		Media:      NewMediaHandler(media),
		Verifier:   tokens,
	})
	return &testServer{engine: engine, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// signup registers, logs in and places a user in Ranchi, returning the token
func (s *testServer) signup(t *testing.T, username, mobile string) string {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "mobileNumber": mobile, "password": "password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decode(t, w, &login)

	w = s.do(t, http.MethodPost, "/api/location/set", login.Token, gin.H{"district": ranchi, "municipality": rmc})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return login.Token
}

func (s *testServer) createReport(t *testing.T, token string, department models.Department) *models.Report {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/reports", token, gin.H{
		"text":         "Overflowing garbage bin near the market",
		"address":      "Main Road",
		"district":     ranchi,
		"municipality": rmc,
		"department":   department,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Report *models.Report `json:"report"`
	}
	decode(t, w, &out)
	return out.Report
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &out)
	assert.False(t, out.Success)
	return out.Error.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReportLifecycle(t *testing.T) {
	s := newTestServer(t)
	ravi := s.signup(t, "ravi123", "9876543210")
	priya := s.signup(t, "priya456", "9123456780")

	report := s.createReport(t, ravi, models.DepartmentSanitation)
	assert.Equal(t, models.StatusReported, report.Status)
	assert.Equal(t, 0, report.UpvoteCount)

	// the local feed of another citizen in the same municipality shows it
	w := s.do(t, http.MethodGet, "/api/reports/feed", priya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed struct {
		Reports []*models.Report `json:"reports"`
	}
	decode(t, w, &feed)
	require.Len(t, feed.Reports, 1)
	require.NotNil(t, feed.Reports[0].Upvoted)
	assert.False(t, *feed.Reports[0].Upvoted)

	upvotePath := "/api/reports/" + report.ID.String() + "/upvote"
	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, upvotePath, priya, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"upvoteCount":1,"upvoted":true}`, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/reports/"+report.ID.String(), priya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"upvoted":true`)

	commentsPath := "/api/reports/" + report.ID.String() + "/comments"
	w = s.do(t, http.MethodPost, commentsPath, priya, gin.H{"text": "Same problem on my street"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, commentsPath, ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments struct {
		Comments []*models.Comment `json:"comments"`
	}
	decode(t, w, &comments)
	require.Len(t, comments.Comments, 1)
	require.NotNil(t, comments.Comments[0].Author)
	assert.Equal(t, "priya456", comments.Comments[0].Author.Username)

	w = s.do(t, http.MethodGet, "/api/reports/admin/list?department=Sanitation&district=Ranchi&municipality="+rmc, ravi, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listing struct {
		Reports []*models.Report `json:"reports"`
	}
	decode(t, w, &listing)
	require.Len(t, listing.Reports, 1)
	assert.Equal(t, 1, listing.Reports[0].CommentsCount)
	assert.Equal(t, 1, listing.Reports[0].UpvoteCount)

	w = s.do(t, http.MethodPatch, "/api/reports/"+report.ID.String()+"/status", ravi, gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"resolved"`)

	w = s.do(t, http.MethodGet, "/api/reports/stats", ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"totalReported":1,"totalResolved":1}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/reports/mine?status=reported", ravi, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"reports":[]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/unupvote", priya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"upvoteCount":0,"upvoted":false}`, w.Body.String())
}

func TestVoterIdentitiesNeverLeak(t *testing.T) {
	s := newTestServer(t)
	ravi := s.signup(t, "ravi123", "9876543210")
	priya := s.signup(t, "priya456", "9123456780")

	priyaUser, err := s.users.GetByUsername(t.Context(), "priya456")
	require.NoError(t, err)

	report := s.createReport(t, ravi, models.DepartmentDrainage)
	w := s.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/upvote", priya, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/reports/"+report.ID.String()+"/comments", ravi, gin.H{"text": "Still blocked"})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{
		"/api/reports/feed",
		"/api/reports/mine",
		"/api/reports/" + report.ID.String(),
		"/api/reports/" + report.ID.String() + "/comments",
		"/api/reports/admin/list?department=Drainage&district=Ranchi&municipality=Ranchi",
	} {
		w := s.do(t, http.MethodGet, path, ravi, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := w.Body.String()
		assert.NotContains(t, body, "upvotedBy", path)
		assert.NotContains(t, body, "upvoters", path)
		assert.NotContains(t, body, priyaUser.ID.String(), path)
	}
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "amit_kumar", "9000000001")

	w := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"amit_kumar"`)
	assert.NotContains(t, w.Body.String(), "$2a$")
	assert.NotContains(t, strings.ToLower(w.Body.String()), "password")
}

func TestErrorStatusCodes(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ravi123", "9876543210")
	report := s.createReport(t, token, models.DepartmentEngineering)
	missing := "/api/reports/00000000-0000-0000-0000-000000000001"

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/reports/feed", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodGet, "/api/reports/feed", "not-a-jwt", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad report id", http.MethodGet, "/api/reports/nope", token, nil, http.StatusBadRequest, "INVALID_REPORT_ID"},
		{"unknown report", http.MethodGet, missing, token, nil, http.StatusNotFound, "REPORT_NOT_FOUND"},
		{"upvote unknown report", http.MethodPost, missing + "/upvote", token, nil, http.StatusNotFound, "REPORT_NOT_FOUND"},
		{"comment unknown report", http.MethodPost, missing + "/comments", token, gin.H{"text": "hi"}, http.StatusNotFound, "REPORT_NOT_FOUND"},
		{"empty comment", http.MethodPost, "/api/reports/" + report.ID.String() + "/comments", token, gin.H{"text": "   "}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown scope", http.MethodGet, "/api/reports/feed?scope=planet", token, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad department", http.MethodPost, "/api/reports", token, gin.H{"district": ranchi, "municipality": rmc, "department": "Parks"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing municipality", http.MethodPost, "/api/reports", token, gin.H{"district": ranchi, "department": "Drainage"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"admin list missing params", http.MethodGet, "/api/reports/admin/list?department=Drainage", token, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad status", http.MethodPatch, "/api/reports/" + report.ID.String() + "/status", token, gin.H{"status": "closed"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate username", http.MethodPost, "/api/auth/register", "", gin.H{"username": "ravi123", "mobileNumber": "9876543210", "password": "password"}, http.StatusConflict, "USERNAME_TAKEN"},
		{"short password", http.MethodPost, "/api/auth/register", "", gin.H{"username": "newbie", "mobileNumber": "9876543210", "password": "123"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrong password", http.MethodPost, "/api/auth/login", "", gin.H{"username": "ravi123", "password": "wrong-one"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"wrong current password", http.MethodPost, "/api/auth/change-password", token, gin.H{"currentPassword": "wrong-one", "newPassword": "new-password"}, http.StatusBadRequest, "INCORRECT_PASSWORD"},
		{"municipality outside district", http.MethodPost, "/api/location/set", token, gin.H{"district": "Dhanbad", "municipality": rmc}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing media", http.MethodGet, "/api/media/ab/missing.jpg", "", nil, http.StatusNotFound, "MEDIA_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestCreateReportValidatesMediaDescriptors(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ravi123", "9876543210")

	cases := map[string]gin.H{
		"unknown type":   {"type": "spreadsheet", "filename": "ab/sheet.xls", "url": "/api/media/ab/sheet.xls"},
		"empty filename": {"type": "image", "filename": "", "url": "/api/media/ab/x.jpg"},
	}
	for name, asset := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/reports", token, gin.H{
				"district":     ranchi,
				"municipality": rmc,
				"department":   models.DepartmentDrainage,
				"media":        []gin.H{asset},
			})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}

	w := s.do(t, http.MethodPost, "/api/reports", token, gin.H{
		"district":     ranchi,
		"municipality": rmc,
		"department":   models.DepartmentDrainage,
		"media":        []gin.H{{"filename": "ab/clip.mp4", "mimeType": "video/mp4", "url": "/api/media/ab/clip.mp4"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"type":"video"`)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "sunita_yadav", "9000000002")

	w := s.do(t, http.MethodPost, "/api/auth/change-password", token, gin.H{"currentPassword": "password", "newPassword": "better-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "sunita_yadav", "password": "password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "sunita_yadav", "password": "better-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLocationLookups(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/location/districts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Ranchi"`)

	w = s.do(t, http.MethodGet, "/api/location/municipalities/Ranchi", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rmc)

	w = s.do(t, http.MethodGet, "/api/location/municipalities/Atlantis", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"municipalities":[]}`, w.Body.String())
}

func TestTransitionNotAllowed(t *testing.T) {
	s := newTestServer(t, service.AdminWithTransitions(models.StatusTransitions{
		models.StatusReported: {models.StatusAcknowledged},
	}))
	token := s.signup(t, "deepak_singh", "9000000003")
	report := s.createReport(t, token, models.DepartmentElectricity)
	path := "/api/reports/" + report.ID.String() + "/status"

	w := s.do(t, http.MethodPatch, path, token, gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TRANSITION_NOT_ALLOWED", errorCode(t, w))

	w = s.do(t, http.MethodPatch, path, token, gin.H{"status": "acknowledged"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminRoleEnforced(t *testing.T) {
	s := newTestServer(t, service.AdminWithRoleCheck(true))
	token := s.signup(t, "ravi123", "9876543210")
	report := s.createReport(t, token, models.DepartmentWaterSupply)

	w := s.do(t, http.MethodPatch, "/api/reports/"+report.ID.String()+"/status", token, gin.H{"status": "acknowledged"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
}

func multipartReport(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range map[string]string{
		"text":         "Broken pipe flooding the lane",
		"district":     ranchi,
		"municipality": rmc,
		"department":   string(models.DepartmentWaterSupply),
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="media"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("blob:" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestCreateReportWithMedia(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ravi123", "9876543210")

	body, contentType := multipartReport(t, map[string]string{"clip.mp4": "video/mp4"})
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		Report *models.Report `json:"report"`
	}
	decode(t, w, &out)
	require.Len(t, out.Report.Media, 1)
	asset := out.Report.Media[0]
	assert.Equal(t, models.MediaVideo, asset.Type)
	assert.Equal(t, "clip.mp4", asset.OriginalName)
	assert.True(t, strings.HasPrefix(asset.URL, "/api/media/"), asset.URL)

	w = s.do(t, http.MethodGet, asset.URL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blob:clip.mp4", w.Body.String())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
}

func TestCreateReportRejectsTooManyFiles(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ravi123", "9876543210")

	body, contentType := multipartReport(t, map[string]string{
		"a.jpg": "image/jpeg",
		"b.jpg": "image/jpeg",
		"c.jpg": "image/jpeg",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TOO_MANY_FILES", errorCode(t, w))
}
