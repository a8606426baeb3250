package browse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shelf-labs/shelfctl/internal/config"
	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/state"
)

var thumbPNG = []byte("\x89PNG\r\n\x1a\n")

// fakeShelf is a minimal in-memory Shelf server.
type fakeShelf struct {
	t          *testing.T
	files      []models.FileRecord
	token      string
	storageURL string
}

func (s *fakeShelf) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": s.token})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + limit
		if end > len(s.files) {
			end = len(s.files)
		}
		items := []models.FileRecord{}
		if offset < len(s.files) {
			items = s.files[offset:end]
		}
		json.NewEncoder(w).Encode(models.FilePage{Items: items, Total: len(s.files)})
	})
	mux.HandleFunc("GET /files/{id}/thumbnail", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"url": s.storageURL + "/storage/thumbs/" + r.PathValue("id")})
	})
	mux.HandleFunc("GET /storage/thumbs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write(thumbPNG)
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		for i, f := range s.files {
			if f.ID == id {
				s.files = append(s.files[:i], s.files[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"File not found"}`))
	})
	mux.HandleFunc("PUT /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DisplayName string `json:"display_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for i, f := range s.files {
			if f.ID == r.PathValue("id") {
				s.files[i].DisplayName = body.DisplayName
				json.NewEncoder(w).Encode(s.files[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

func fakeJWT(sub string) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"HS256"}`)) + "." + enc([]byte(`{"sub":"`+sub+`"}`)) + "." + enc([]byte("s"))
}

func newBrowseApp(t *testing.T, srvURL string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.APIBaseURL = srvURL
	cfg.TokenPath = filepath.Join(t.TempDir(), "token")

	var out bytes.Buffer
	app, err := NewApp(cfg, &out)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.Close)
	return app, &out
}

func seedFiles(n int) []models.FileRecord {
	files := make([]models.FileRecord, n)
	for i := range files {
		files[i] = models.FileRecord{
			ID:          fmt.Sprintf("f%d", i+1),
			DisplayName: fmt.Sprintf("file-%02d.txt", i+1),
			Size:        int64(1024 * (i + 1)),
			ContentType: "text/plain",
		}
	}
	return files
}

func TestRunLoginListQuit(t *testing.T) {
	shelf := &fakeShelf{t: t, token: fakeJWT("alice@example.com"), files: seedFiles(3)}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()

	app, out := newBrowseApp(t, srv.URL)
	input := strings.NewReader("login alice@example.com hunter2\nls\nquit\n")
	if err := app.Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Not logged in",
		state.LoginNotice,
		"Authenticated as alice@example.com",
		"file-01.txt",
		"file-03.txt",
		"Page 1 of 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
}

func TestRunRendersResolvedThumbnails(t *testing.T) {
	files := seedFiles(2)
	files[0].ThumbnailName = "thumb-f1.png"
	shelf := &fakeShelf{t: t, token: fakeJWT("a@b.c"), files: files}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()
	shelf.storageURL = srv.URL

	app, out := newBrowseApp(t, srv.URL)
	input := strings.NewReader("login a@b.c hunter2\nquit\n")
	if err := app.Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, ".png") {
		t.Errorf("row with a thumbnail should show its local path\n%s", text)
	}
	if !strings.Contains(text, "FILE") {
		t.Errorf("row without a thumbnail should show the placeholder\n%s", text)
	}
}

func TestRunBadLoginShowsServerMessage(t *testing.T) {
	shelf := &fakeShelf{t: t, token: fakeJWT("alice@example.com")}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()

	app, out := newBrowseApp(t, srv.URL)
	input := strings.NewReader("login alice@example.com wrong\nquit\n")
	if err := app.Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Incorrect email or password") {
		t.Errorf("output missing server message\n%s", out.String())
	}
	if app.Store.Active() {
		t.Error("session active after failed login")
	}
}

func TestRunPaging(t *testing.T) {
	shelf := &fakeShelf{t: t, token: fakeJWT("a@b.c"), files: seedFiles(25)}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()

	app, out := newBrowseApp(t, srv.URL)
	input := strings.NewReader("login a@b.c hunter2\nnext\nnext\nnext\nquit\n")
	if err := app.Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Page 3 of 3") {
		t.Errorf("output missing final page indicator\n%s", text)
	}
	if app.Pager.Offset() != 20 {
		t.Errorf("offset = %d, want 20 (third next is a no-op)", app.Pager.Offset())
	}
}

func TestRunRenameAndDelete(t *testing.T) {
	shelf := &fakeShelf{t: t, token: fakeJWT("a@b.c"), files: seedFiles(2)}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()

	app, out := newBrowseApp(t, srv.URL)
	input := strings.NewReader("login a@b.c hunter2\nrename 1 notes.txt\nrm 2\nquit\n")
	if err := app.Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(shelf.files) != 1 || shelf.files[0].DisplayName != "notes.txt" {
		t.Errorf("server files = %+v", shelf.files)
	}
	if !strings.Contains(out.String(), "notes.txt") {
		t.Error("renamed file not rendered")
	}
}

func TestRunSessionExpiryMidSession(t *testing.T) {
	shelf := &fakeShelf{t: t, token: fakeJWT("a@b.c"), files: seedFiles(2)}
	srv := httptest.NewServer(shelf.handler())
	defer srv.Close()

	app, out := newBrowseApp(t, srv.URL)

	login := strings.NewReader("login a@b.c hunter2\nquit\n")
	if err := app.Run(context.Background(), login); err != nil {
		t.Fatal(err)
	}

	// The server rotates its token; the held one is now stale.
	shelf.token = fakeJWT("someone-else")
	expired := strings.NewReader("ls\nquit\n")
	if err := app.Run(context.Background(), expired); err != nil {
		t.Fatal(err)
	}

	if app.Store.Active() {
		t.Error("session still active after server-side expiry")
	}
	if !strings.Contains(out.String(), "Session expired. Please log in.") {
		t.Errorf("expiry notice not rendered\n%s", out.String())
	}
}
