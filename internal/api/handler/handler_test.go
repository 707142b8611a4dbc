package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult   *dto.UserResponse
	registerErr      error
	loginResult      *dto.TokenResponse
	loginErr         error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	refreshGot       string
	logoutErr        error
	logoutRefresh    string
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.UserResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshGot = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string, _ time.Time, refresh string) error {
	m.logoutRefresh = refresh
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}

// ── Mock TaskService ──

type mockTaskService struct {
	createResult   *dto.TaskResponse
	createErr      error
	listResult     []dto.TaskResponse
	replaceN       int
	replaceErr     error
	replacePayload ddl.DeadlinePayload
	replaceUserID  string
}

func (m *mockTaskService) Create(_ context.Context, _ string, _ *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockTaskService) GetByID(_ context.Context, _, _ string) (*dto.TaskResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockTaskService) List(_ context.Context, _ string) ([]dto.TaskResponse, error) {
	return m.listResult, nil
}
func (m *mockTaskService) Update(_ context.Context, _, _ string, _ *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockTaskService) Delete(_ context.Context, _, _ string) error {
	return m.createErr
}
func (m *mockTaskService) ReplaceDeadlines(_ context.Context, userID string, payload ddl.DeadlinePayload) (int, error) {
	m.replaceUserID = userID
	m.replacePayload = payload
	return m.replaceN, m.replaceErr
}

// ── Mock NoteService ──

type mockNoteService struct {
	uploadResult   *dto.AttachmentResponse
	uploadErr      error
	uploadFilename string
	uploadBody     string
	openResult     *service.AttachmentContent
	openErr        error
	err            error
}

func (m *mockNoteService) Create(_ context.Context, _ string, _ *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	return &dto.NoteResponse{ID: "n1"}, m.err
}
func (m *mockNoteService) CreateWithFiles(_ context.Context, _, _, _ string, _ []service.NoteFile) (*dto.NoteResponse, error) {
	return &dto.NoteResponse{ID: "n1"}, m.err
}
func (m *mockNoteService) GetByID(_ context.Context, _, _ string) (*dto.NoteResponse, error) {
	return &dto.NoteResponse{ID: "n1"}, m.err
}
func (m *mockNoteService) List(_ context.Context, _ string, _ *dto.NoteListRequest) ([]dto.NoteResponse, error) {
	return nil, m.err
}
func (m *mockNoteService) Update(_ context.Context, _, _ string, _ *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	return &dto.NoteResponse{ID: "n1"}, m.err
}
func (m *mockNoteService) Delete(_ context.Context, _, _ string) error { return m.err }
func (m *mockNoteService) UploadAttachment(_ context.Context, _, _, filename, _ string, r io.Reader) (*dto.AttachmentResponse, error) {
	m.uploadFilename = filename
	b, _ := io.ReadAll(r)
	m.uploadBody = string(b)
	return m.uploadResult, m.uploadErr
}
func (m *mockNoteService) OpenAttachment(_ context.Context, _, _, _ string) (*service.AttachmentContent, error) {
	return m.openResult, m.openErr
}
func (m *mockNoteService) DeleteAttachment(_ context.Context, _, _, _ string) error { return m.err }

// ── Mock TimetableService ──

type mockTimetableService struct {
	result     *dto.ImportICSResponse
	err        error
	fileBody   string
	url        string
	termStart  time.Time
	totalWeeks int
}

func (m *mockTimetableService) ImportICS(_ context.Context, _ string, r io.Reader, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error) {
	b, _ := io.ReadAll(r)
	m.fileBody, m.termStart, m.totalWeeks = string(b), termStart, totalWeeks
	return m.result, m.err
}
func (m *mockTimetableService) ImportICSFromURL(_ context.Context, _, url string, termStart time.Time, totalWeeks int) (*dto.ImportICSResponse, error) {
	m.url, m.termStart, m.totalWeeks = url, termStart, totalWeeks
	if url == "" {
		return nil, service.ErrICSNoSource
	}
	return m.result, m.err
}
func (m *mockTimetableService) List(_ context.Context, _ string) ([]dto.ScheduleEntryResponse, error) {
	return nil, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportTasksExcel(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportTasksICS(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock SyncService ──

type mockSyncService struct {
	syncResult *dto.SyncResponse
	syncErr    error
	creds      *dto.PortalCredentials
}

func (m *mockSyncService) SyncDeadlines(_ context.Context, _ string, creds *dto.PortalCredentials) (*dto.SyncResponse, error) {
	m.creds = creds
	return m.syncResult, m.syncErr
}
func (m *mockSyncService) ListPortalCourses(_ context.Context, _ *dto.PortalCredentials) ([]dto.PortalCourseResponse, error) {
	return []dto.PortalCourseResponse{{ID: 0, Name: "编译原理"}}, m.syncErr
}
func (m *mockSyncService) ImportCourseMaterials(_ context.Context, _ string, _ *dto.ImportMaterialsRequest) (*dto.ImportMaterialsResponse, error) {
	return &dto.ImportMaterialsResponse{NoteID: "n1", Imported: 1}, m.syncErr
}

// ── Mock ChatService ──

type mockChatService struct {
	err       error
	req       *dto.ChatRequest
	sessionID string
	filename  string
	document  string
}

func (m *mockChatService) Chat(_ context.Context, _ string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ChatResponse{Reply: "你好", SessionID: "s1"}, nil
}
func (m *mockChatService) AttachDocument(_ context.Context, _, sessionID, filename string, r io.Reader) (*dto.ChatDocumentResponse, error) {
	m.sessionID, m.filename = sessionID, filename
	raw, _ := io.ReadAll(r)
	m.document = string(raw)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ChatDocumentResponse{SessionID: "s1", Filename: filename, Chars: len([]rune(m.document))}, nil
}
func (m *mockChatService) Ask(_ context.Context, _ string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ChatResponse{Reply: "答案", SessionID: req.SessionID}, nil
}
func (m *mockChatService) History(_ context.Context, _, sessionID string) (*dto.ChatHistoryResponse, error) {
	m.sessionID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ChatHistoryResponse{SessionID: sessionID}, nil
}
func (m *mockChatService) Reset(_ context.Context, _, sessionID string) error {
	m.sessionID = sessionID
	return m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	c.Set("user_id", "test-user-id")
	c.Set("student_id", "2200011085")
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

// withAuth 注入认证信息后调用 handler
func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("构造 multipart 失败: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    1800,
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		StudentID: "2200011085",
		Password:  "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("期望 code 0，实际 %d", resp.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			found = true
			if c.Value != "test-refresh-token" || !c.HttpOnly {
				t.Errorf("refresh_token Cookie 设置错误: %+v", c)
			}
		}
	}
	if !found {
		t.Error("应设置 refresh_token Cookie")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		StudentID: "2200011085",
		Password:  "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("期望错误码 11001，实际 %d", resp.Code)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{registerErr: service.ErrStudentIDTaken}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/register", jsonBody(dto.RegisterRequest{
		Name: "张三", StudentID: "2200011085", Email: "a@stu.pku.edu.cn", Password: "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际 %d", w.Code)
	}
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/register", jsonBody(dto.RegisterRequest{
		Name: "张三", StudentID: "2200011085", Email: "a@stu.pku.edu.cn", Password: "short",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 1800},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if mock.refreshGot != "cookie-refresh" {
		t.Errorf("应使用 Cookie 中的 refresh token，实际 %q", mock.refreshGot)
	}
}

func TestAuthHandler_RefreshToken_Missing(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_Revoked(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/logout", withAuth(h.Logout))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if mock.logoutRefresh != "cookie-refresh" {
		t.Errorf("登出应一并注销 Cookie 中的 refresh token，实际 %q", mock.logoutRefresh)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.MaxAge >= 0 {
			t.Error("登出后应清除 refresh_token Cookie")
		}
	}
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.GetCurrentUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
}

func TestAuthHandler_GetCurrentUser_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{getCurrentResult: &dto.UserResponse{ID: "test-user-id", Name: "张三"}}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", withAuth(h.GetCurrentUser))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TaskHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTaskHandler_BulkReplace(t *testing.T) {
	mock := &mockTaskService{replaceN: 2}
	h := NewTaskHandler(mock)

	_, _, w := setupGin()
	body := `{"userId":"test-user-id","deadlines":[
		{"name":"作业1","deadline":"2026-11-03 23:59","status":0,"message":"m"},
		{"name":"作业2","deadline":null,"message":""}]}`
	req := httptest.NewRequest("PUT", "/tasks/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/tasks/bulk", withAuth(h.BulkReplace))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.replaceUserID != "test-user-id" || len(mock.replacePayload.Deadlines) != 2 {
		t.Errorf("payload 未正确传递: %+v", mock.replacePayload)
	}
	if mock.replacePayload.Deadlines[0].Status != ddl.StatusUrgent {
		t.Error("status=0 应解析为 StatusUrgent")
	}
	if mock.replacePayload.Deadlines[1].Deadline != nil {
		t.Error("deadline=null 应保持为 nil")
	}
}

func TestTaskHandler_BulkReplace_UserMismatch(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{replaceErr: service.ErrPayloadUserMismatch})

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/tasks/bulk", strings.NewReader(`{"userId":"someone-else","deadlines":[]}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/tasks/bulk", withAuth(h.BulkReplace))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际 %d", w.Code)
	}
}

func TestTaskHandler_BulkReplace_BadRecord(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/tasks/bulk", strings.NewReader(`{"userId":"test-user-id","deadlines":[{"name":42}]}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/tasks/bulk", withAuth(h.BulkReplace))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("字段类型错误期望 400，实际 %d", w.Code)
	}
}

func TestTaskHandler_Create_BadDeadline(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/tasks", strings.NewReader(`{"name":"作业","deadline":"11月3日"}`))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/tasks", withAuth(h.Create))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestTaskHandler_Get_NotFound(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{createErr: service.ErrTaskNotFound})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/tasks/missing", nil)

	r := gin.New()
	r.GET("/tasks/:id", withAuth(h.Get))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13001 {
		t.Errorf("期望错误码 13001，实际 %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// NoteHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNoteHandler_UploadAttachment(t *testing.T) {
	mock := &mockNoteService{uploadResult: &dto.AttachmentResponse{ID: "a1", Filename: "lecture.pdf"}}
	h := NewNoteHandler(mock)

	_, _, w := setupGin()
	body, ct := multipartBody(t, nil, "lecture.pdf", "%PDF-1.4")
	req := httptest.NewRequest("POST", "/notes/n1/attachments", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/notes/:id/attachments", withAuth(h.UploadAttachment))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.uploadFilename != "lecture.pdf" || mock.uploadBody != "%PDF-1.4" {
		t.Errorf("上传内容未正确传递: %s %q", mock.uploadFilename, mock.uploadBody)
	}
}

func TestNoteHandler_UploadAttachment_MissingFile(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{})

	_, _, w := setupGin()
	body, ct := multipartBody(t, map[string]string{"x": "y"}, "", "")
	req := httptest.NewRequest("POST", "/notes/n1/attachments", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/notes/:id/attachments", withAuth(h.UploadAttachment))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestNoteHandler_UploadAttachment_TooLarge(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{uploadErr: service.ErrAttachmentTooLarge})

	_, _, w := setupGin()
	body, ct := multipartBody(t, nil, "big.zip", "zzzz")
	req := httptest.NewRequest("POST", "/notes/n1/attachments", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/notes/:id/attachments", withAuth(h.UploadAttachment))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际 %d", w.Code)
	}
}

func TestNoteHandler_DownloadAttachment(t *testing.T) {
	mock := &mockNoteService{openResult: &service.AttachmentContent{
		Filename:    "第一讲.pdf",
		ContentType: "application/pdf",
		Size:        8,
		Body:        io.NopCloser(strings.NewReader("%PDF-1.4")),
	}}
	h := NewNoteHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/notes/n1/attachments/a1", nil)

	r := gin.New()
	r.GET("/notes/:id/attachments/:aid", withAuth(h.DownloadAttachment))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if w.Body.String() != "%PDF-1.4" {
		t.Errorf("下载内容错误: %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type 错误: %s", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") || !strings.Contains(cd, "%E7%AC%AC") {
		t.Errorf("Content-Disposition 应按 UTF-8 编码文件名，实际 %s", cd)
	}
}

func TestNoteHandler_DownloadAttachment_NotFound(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{openErr: service.ErrAttachmentNotFound})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/notes/n1/attachments/a1", nil)

	r := gin.New()
	r.GET("/notes/:id/attachments/:aid", withAuth(h.DownloadAttachment))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TimetableHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTimetableHandler_ImportFile(t *testing.T) {
	mock := &mockTimetableService{result: &dto.ImportICSResponse{ImportedCount: 3}}
	h := NewTimetableHandler(mock)

	_, _, w := setupGin()
	body, ct := multipartBody(t, map[string]string{"term_start": "2026-02-23", "total_weeks": "18"}, "course.ics", "BEGIN:VCALENDAR")
	req := httptest.NewRequest("POST", "/timetable/import", body)
	req.Header.Set("Content-Type", ct)

	r := gin.New()
	r.POST("/timetable/import", withAuth(h.ImportICS))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.fileBody != "BEGIN:VCALENDAR" {
		t.Errorf("文件内容未传递: %q", mock.fileBody)
	}
	if mock.termStart.Format("2006-01-02") != "2026-02-23" || mock.totalWeeks != 18 {
		t.Errorf("学期参数错误: %v %d", mock.termStart, mock.totalWeeks)
	}
}

func TestTimetableHandler_ImportURL(t *testing.T) {
	mock := &mockTimetableService{result: &dto.ImportICSResponse{ImportedCount: 1}}
	h := NewTimetableHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/timetable/import", jsonBody(dto.ImportICSRequest{
		URL: "https://example.com/course.ics", TermStart: "2026-02-23",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/timetable/import", withAuth(h.ImportICS))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.url != "https://example.com/course.ics" {
		t.Errorf("URL 未传递: %s", mock.url)
	}
}

func TestTimetableHandler_ImportNoSource(t *testing.T) {
	h := NewTimetableHandler(&mockTimetableService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/timetable/import", jsonBody(dto.ImportICSRequest{TermStart: "2026-02-23"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/timetable/import", withAuth(h.ImportICS))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 15000 {
		t.Errorf("期望错误码 15000，实际 %d", resp.Code)
	}
}

func TestTimetableHandler_MissingTermStart(t *testing.T) {
	h := NewTimetableHandler(&mockTimetableService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/timetable/import", jsonBody(map[string]string{"url": "https://example.com/a.ics"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/timetable/import", withAuth(h.ImportICS))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Excel(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "任务清单_20261016.xlsx"}
	h := NewExportHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/export/tasks.xlsx", nil)

	r := gin.New()
	r.GET("/export/tasks.xlsx", withAuth(h.ExportTasksExcel))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != mimeXLSX {
		t.Errorf("Content-Type 错误: %s", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
		t.Error("应以附件形式下载")
	}
}

func TestExportHandler_NoTasks(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoTasks})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/export/tasks.ics", nil)

	r := gin.New()
	r.GET("/export/tasks.ics", withAuth(h.ExportTasksICS))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SyncHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSyncHandler_Sync(t *testing.T) {
	mock := &mockSyncService{syncResult: &dto.SyncResponse{
		Courses: 2, RawItems: 4, Deadlines: 3,
		Payload: ddl.DeadlinePayload{UserID: "test-user-id", Deadlines: []ddl.DeadlineRecord{}},
	}}
	h := NewSyncHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/portal/sync", jsonBody(dto.PortalCredentials{Cookie: "s_session_id=abc"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/portal/sync", withAuth(h.Sync))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.creds == nil || mock.creds.Cookie != "s_session_id=abc" {
		t.Errorf("凭据未传递: %+v", mock.creds)
	}

	var body struct {
		Data struct {
			Deadlines int `json:"deadlines"`
			Payload   struct {
				UserID string `json:"userId"`
			} `json:"payload"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Deadlines != 3 || body.Data.Payload.UserID != "test-user-id" {
		t.Errorf("响应内容错误: %s", w.Body.String())
	}
}

func TestSyncHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSyncNoCredentials, http.StatusBadRequest},
		{service.ErrSyncAuthFailed, http.StatusUnprocessableEntity},
		{service.ErrSyncInProgress, http.StatusConflict},
		{service.ErrSyncUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewSyncHandler(&mockSyncService{syncErr: tt.err})

		_, _, w := setupGin()
		req := httptest.NewRequest("POST", "/portal/sync", jsonBody(dto.PortalCredentials{}))
		req.Header.Set("Content-Type", "application/json")

		r := gin.New()
		r.POST("/portal/sync", withAuth(h.Sync))
		r.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%v: 期望 %d，实际 %d", tt.err, tt.want, w.Code)
		}
	}
}

func TestSyncHandler_ImportMaterials_Validation(t *testing.T) {
	h := NewSyncHandler(&mockSyncService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/portal/materials", jsonBody(map[string]string{"course": "编译原理"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/portal/materials", withAuth(h.ImportMaterials))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少 entry_url 期望 400，实际 %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// HealthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		checks map[string]Check
		want   int
	}{
		{map[string]Check{"db": ok, "redis": ok}, http.StatusOK},
		{map[string]Check{"db": ok, "redis": down}, http.StatusServiceUnavailable},
		{nil, http.StatusOK},
	}
	for _, tt := range tests {
		h := NewHealthHandler(tt.checks)

		_, _, w := setupGin()
		r := gin.New()
		r.GET("/health", h.Health)
		r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		if w.Code != tt.want {
			t.Errorf("期望 %d，实际 %d", tt.want, w.Code)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// ChatHandler Tests
// ═══════════════════════════════════════════════════════════

func TestChatHandler_Chat(t *testing.T) {
	mock := &mockChatService{}
	h := NewChatHandler(mock)

	r := gin.New()
	r.POST("/chat", withAuth(h.Chat))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat", jsonBody(dto.ChatRequest{Message: "你好"}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.req == nil || mock.req.Message != "你好" || mock.req.SessionID != "" {
		t.Errorf("请求未正确传入: %+v", mock.req)
	}
}

func TestChatHandler_Chat_EmptyMessage(t *testing.T) {
	h := NewChatHandler(&mockChatService{})

	r := gin.New()
	r.POST("/chat", withAuth(h.Chat))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("空消息期望 400，实际 %d", w.Code)
	}
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   int
	}{
		{service.ErrChatSessionNotFound, http.StatusNotFound, 19001},
		{service.ErrChatNoDocument, http.StatusBadRequest, 19002},
		{service.ErrChatUnavailable, http.StatusServiceUnavailable, 19005},
		{service.ErrChatCompletionFailed, http.StatusBadGateway, 19006},
		{errors.New("boom"), http.StatusInternalServerError, 50000},
	}
	for _, tc := range cases {
		h := NewChatHandler(&mockChatService{err: tc.err})
		r := gin.New()
		r.POST("/chat/ask", withAuth(h.Ask))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/chat/ask", jsonBody(dto.ChatRequest{SessionID: "s1", Message: "第三题怎么做"}))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != tc.wantStatus {
			t.Errorf("%v: 期望 %d，实际 %d", tc.err, tc.wantStatus, w.Code)
		}
		if resp := parseResponse(w); resp.Code != tc.wantCode {
			t.Errorf("%v: 期望 code %d，实际 %d", tc.err, tc.wantCode, resp.Code)
		}
	}
}

func TestChatHandler_UploadDocument(t *testing.T) {
	mock := &mockChatService{}
	h := NewChatHandler(mock)

	r := gin.New()
	r.POST("/chat/document", withAuth(h.UploadDocument))

	body, ct := multipartBody(t, map[string]string{"session_id": "s1"}, "讲义.txt", "第一章 词法分析")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat/document", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if mock.sessionID != "s1" || mock.filename != "讲义.txt" || mock.document != "第一章 词法分析" {
		t.Errorf("上传内容未正确传入: %+v", mock)
	}
}

func TestChatHandler_UploadDocument_Unsupported(t *testing.T) {
	h := NewChatHandler(&mockChatService{err: service.ErrChatUnsupportedDocument})

	r := gin.New()
	r.POST("/chat/document", withAuth(h.UploadDocument))

	body, ct := multipartBody(t, nil, "slides.pdf", "%PDF-1.4")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat/document", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("期望 415，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 19003 {
		t.Errorf("期望 code 19003，实际 %d", resp.Code)
	}
}

func TestChatHandler_UploadDocument_MissingFile(t *testing.T) {
	h := NewChatHandler(&mockChatService{})

	r := gin.New()
	r.POST("/chat/document", withAuth(h.UploadDocument))

	body, ct := multipartBody(t, map[string]string{"session_id": "s1"}, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/chat/document", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("缺少文件期望 400，实际 %d", w.Code)
	}
}

func TestChatHandler_ResetAndHistory(t *testing.T) {
	mock := &mockChatService{}
	h := NewChatHandler(mock)

	r := gin.New()
	r.GET("/chat/:session", withAuth(h.History))
	r.DELETE("/chat/:session", withAuth(h.Reset))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/chat/abc", nil))
	if w.Code != http.StatusOK || mock.sessionID != "abc" {
		t.Errorf("查询历史失败: %d %q", w.Code, mock.sessionID)
	}

	mock.err = service.ErrChatSessionNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/chat/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("删除不存在的会话期望 404，实际 %d", w.Code)
	}
}
