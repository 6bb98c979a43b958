package web

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"vectortube/internal/auth"
	"vectortube/internal/catalog"
	"vectortube/internal/enquiry"
	"vectortube/internal/mail"
	"vectortube/internal/storage"
)

type testEnv struct {
	server    *Server
	dir       string
	enquiries *enquiry.MemoryStore
	mailer    *recordingMailer
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	dir := filepath.Join(t.TempDir(), "uploads")
	assets := storage.NewFSAssetStore(dir)

	svc, err := catalog.NewService(catalog.Config{StorageRoot: dir}, catalog.NewMemoryRecordStore(), assets, log)
	if err != nil {
		t.Fatal(err)
	}

	store := enquiry.NewMemoryStore()
	mailer := &recordingMailer{}
	enq, err := enquiry.NewService(store, mailer, enquiry.Options{AdminEmail: "admin@example.com"}, log)
	if err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		server:    NewServer(svc, enq, assets, opts, log),
		dir:       dir,
		enquiries: store,
		mailer:    mailer,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

type filePart struct {
	field, name, contentType, body string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		pw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		pw.Write([]byte(f.body))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/videos", &b)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var videoFields = map[string]string{"title": "T", "description": "D", "link": "http://example.com"}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return v
}

type videoEnvelope struct {
	Message string         `json:"message"`
	Video   catalog.Record `json:"video"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestServer_CreateListGet(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(multipartRequest(t, videoFields, filePart{"thumbnail", "cat.png", "image/png", "png bytes"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[videoEnvelope](t, rec)
	if created.Message != "Video created successfully" {
		t.Errorf("unexpected message %q", created.Message)
	}
	if !strings.HasPrefix(created.Video.Thumbnail, "http://example.com/app1/uploads/") {
		t.Errorf("unexpected thumbnail %s", created.Video.Thumbnail)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "http://example.com/api/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[[]catalog.Record](t, rec)
	if len(list) != 1 {
		t.Fatalf("expected 1 video, got %d", len(list))
	}
	if list[0].Title != "T" || list[0].Description != "D" || list[0].Link != "http://example.com" {
		t.Errorf("unexpected video %+v", list[0])
	}
	u, err := url.Parse(list[0].Thumbnail)
	if err != nil || u.Scheme != "http" || u.Host != "example.com" {
		t.Errorf("expected a well-formed thumbnail URL, got %q", list[0].Thumbnail)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "http://example.com/api/videos/"+created.Video.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[catalog.Record](t, rec); got.ID != created.Video.ID {
		t.Errorf("expected %s, got %s", created.Video.ID, got.ID)
	}

	// the projected URL path serves the stored bytes
	rec = env.do(httptest.NewRequest(http.MethodGet, "http://example.com"+u.Path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected thumbnail to be served, got %d", rec.Code)
	}
	if rec.Body.String() != "png bytes" {
		t.Errorf("unexpected thumbnail body %q", rec.Body.String())
	}
}

func TestServer_ListEmpty(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", rec.Body.String())
	}
}

func TestServer_Create_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		files []filePart
		want  string
	}{
		{"wrong type", []filePart{{"thumbnail", "a.gif", "image/gif", "GIF89a"}}, "invalid file type"},
		{"two thumbnails", []filePart{{"thumbnail", "a.png", "image/png", "a"}, {"thumbnail", "b.png", "image/png", "b"}}, "only one thumbnail"},
		{"other file field", []filePart{{"cover", "a.png", "image/png", "a"}}, `unexpected file field "cover"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})

			rec := env.do(multipartRequest(t, videoFields, tt.files...))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			body := decode[errorEnvelope](t, rec)
			if body.Error != "validation_failure" || !strings.Contains(body.Message, tt.want) {
				t.Errorf("unexpected error %+v", body)
			}

			entries, _ := os.ReadDir(env.dir)
			if len(entries) != 0 {
				t.Errorf("expected no stored files, got %d", len(entries))
			}
			list := decode[[]catalog.Record](t, env.do(httptest.NewRequest(http.MethodGet, "/api/videos", nil)))
			if len(list) != 0 {
				t.Errorf("expected no records, got %d", len(list))
			}
		})
	}
}

func TestServer_Create_MissingFields(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(multipartRequest(t, map[string]string{"title": "T"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServer_Create_URLEncoded(t *testing.T) {
	env := newTestEnv(t, Options{})

	form := url.Values{"title": {"T"}, "description": {"D"}, "link": {"L"}}
	req := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if v := decode[videoEnvelope](t, rec); v.Video.Thumbnail != "" {
		t.Errorf("expected no thumbnail, got %q", v.Video.Thumbnail)
	}
}

func TestServer_Create_TooLarge(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 1024})

	rec := env.do(multipartRequest(t, videoFields, filePart{"thumbnail", "big.png", "image/png", strings.Repeat("x", 4096)}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	entries, _ := os.ReadDir(env.dir)
	if len(entries) != 0 {
		t.Errorf("expected no stored files, got %d", len(entries))
	}
}

func TestServer_Delete(t *testing.T) {
	env := newTestEnv(t, Options{})
	created := decode[videoEnvelope](t, env.do(multipartRequest(t, videoFields, filePart{"thumbnail", "a.png", "image/png", "x"})))

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/api/videos/"+created.Video.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	deleted := decode[videoEnvelope](t, rec)
	if deleted.Message != "Video deleted successfully" || deleted.Video.ID != created.Video.ID {
		t.Errorf("unexpected response %+v", deleted)
	}
	if strings.Contains(deleted.Video.Thumbnail, "://") {
		t.Errorf("expected the stored ref, got %s", deleted.Video.Thumbnail)
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/videos/"+created.Video.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
	if body := decode[errorEnvelope](t, rec); body.Error != "not_found" {
		t.Errorf("unexpected error %+v", body)
	}
}

func TestServer_InvalidID(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := env.do(httptest.NewRequest(method, "/api/videos/not-an-id", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", method, rec.Code)
		}
	}
}

func TestServer_Auth(t *testing.T) {
	env := newTestEnv(t, Options{JWTSecret: "s3cret"})

	rec := env.do(multipartRequest(t, videoFields))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if body := decode[errorEnvelope](t, rec); body.Error != "unauthorized" {
		t.Errorf("unexpected error %+v", body)
	}

	token, err := auth.MakeJWT("operator", "s3cret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req := multipartRequest(t, videoFields)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := env.do(req); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d: %s", rec.Code, rec.Body.String())
	}

	// reads stay public
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/api/videos", nil)); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for list, got %d", rec.Code)
	}
}

func TestServer_Origin(t *testing.T) {
	tests := []struct {
		name    string
		trust   bool
		tls     bool
		headers map[string]string
		want    string
	}{
		{"plain", false, false, nil, "http://example.com/"},
		{"tls", false, true, nil, "https://example.com/"},
		{"untrusted proxy", false, false, map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "cdn.example.org"}, "http://example.com/"},
		{"trusted proxy", true, false, map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "cdn.example.org, inner"}, "https://cdn.example.org/"},
		{"bad proto", true, false, map[string]string{"X-Forwarded-Proto": "gopher"}, "http://example.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{TrustProxy: tt.trust})
			req := multipartRequest(t, videoFields, filePart{"thumbnail", "a.png", "image/png", "x"})
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := env.do(req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", rec.Code)
			}
			if got := decode[videoEnvelope](t, rec).Video.Thumbnail; !strings.HasPrefix(got, tt.want) {
				t.Errorf("expected prefix %s, got %s", tt.want, got)
			}
		})
	}
}

func TestServer_Thumbnail_NotServed(t *testing.T) {
	env := newTestEnv(t, Options{})
	os.MkdirAll(filepath.Join(env.dir, "sub"), 0755)
	os.WriteFile(filepath.Join(env.dir, ".hidden"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(env.dir, ".upload-123"), []byte("x"), 0644)

	for _, p := range []string{"/app1/uploads/", "/app1/uploads/sub", "/app1/uploads/.hidden", "/app1/uploads/.upload-123", "/app1/uploads/missing.png", "/app1/uploads/sub/x"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", p, rec.Code)
		}
	}
}

func TestServer_QuickEnquiry(t *testing.T) {
	env := newTestEnv(t, Options{})

	body := `{"name":"Jane Doe","phoneno":"0123456789","email":"jane@example.com","message":"Hi"}`
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/quick-enquiry", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]string](t, rec); got["message"] != "Data inserted successfully" {
		t.Errorf("unexpected response %v", got)
	}
	if len(env.mailer.sent) != 2 {
		t.Errorf("expected 2 mails, got %d", len(env.mailer.sent))
	}
}

func TestServer_QuickEnquiry_Invalid(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/quick-enquiry", strings.NewReader(`{"name":"Jo"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode[errorEnvelope](t, rec); body.Error != "validation_failure" {
		t.Errorf("unexpected error %+v", body)
	}
}

func TestServer_QuickEnquiry_MailFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.mailer.err = errors.New("connection refused")

	body := `{"name":"Jane Doe","phoneno":"0123456789","email":"jane@example.com"}`
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/quick-enquiry", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if b := decode[errorEnvelope](t, rec); b.Error != "notify_failure" {
		t.Errorf("unexpected error %+v", b)
	}
	stored, _ := env.enquiries.List(context.Background())
	if len(stored) != 1 {
		t.Errorf("expected the enquiry to stay stored, got %d", len(stored))
	}
}

func TestServer_CORS(t *testing.T) {
	env := newTestEnv(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := env.do(req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin to be echoed, got %q", got)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decode[errorEnvelope](t, rec); body.Error != "not_found" {
		t.Errorf("unexpected error %+v", body)
	}
}

func TestServer_Start_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, Options{})
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Start(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/api/videos")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
