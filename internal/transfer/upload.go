// Package transfer implements the upload pipeline: local preconditions,
// multipart streaming with progress, and the post-upload refetch.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	nethttp "net/http"
	"net/textproto"
	"os"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shelf-labs/shelfctl/internal/api"
	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/session"
	"github.com/shelf-labs/shelfctl/internal/util/sizes"
)

// Panel texts owned by the upload pipeline.
const (
	NoSessionNotice      = "Please log in before uploading."
	ChooseFileNotice     = "Choose a file first."
	UploadCompleteNotice = "Upload complete."
	UploadFailedNotice   = "Upload failed."
	TooLargeFormat       = "File is too large. Max size is %s."
)

// Precondition failures. No request is made when one of these is returned.
var (
	ErrNoSession = errors.New("no active session")
	ErrNoFile    = errors.New("no file chosen")
	ErrTooLarge  = errors.New("file exceeds the size limit")
)

// ProgressFunc receives whole-number upload percentages.
type ProgressFunc func(name string, percent int)

// SessionReader reports whether a session is active.
type SessionReader interface {
	Active() bool
}

// Refresher refetches the file collection after a successful upload.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Feedback receives the auth and upload panel texts.
type Feedback interface {
	SetAuthFeedback(string)
	SetUploadFeedback(string)
}

// ExpiryTrigger reacts to a 401 observed mid-upload.
type ExpiryTrigger interface {
	Trigger()
}

// Uploader streams local files to the server. All preconditions are checked
// before any bytes leave the machine; an oversize file is rejected without a
// request.
type Uploader struct {
	gw       *api.Gateway
	session  SessionReader
	maxBytes int64
	bus      *events.EventBus

	mu        sync.Mutex
	refresher Refresher
	view      Feedback
	expiry    ExpiryTrigger
	progress  ProgressFunc
}

// NewUploader creates an Uploader dispatching through gw. maxBytes caps the
// accepted file size.
func NewUploader(gw *api.Gateway, sess SessionReader, maxBytes int64, bus *events.EventBus) *Uploader {
	return &Uploader{gw: gw, session: sess, maxBytes: maxBytes, bus: bus}
}

// Bind attaches the collaborators the pipeline reports to. Any may be nil.
func (u *Uploader) Bind(refresher Refresher, view Feedback, expiry ExpiryTrigger) {
	u.mu.Lock()
	u.refresher = refresher
	u.view = view
	u.expiry = expiry
	u.mu.Unlock()
}

// OnProgress registers the progress callback.
func (u *Uploader) OnProgress(fn ProgressFunc) {
	u.mu.Lock()
	u.progress = fn
	u.mu.Unlock()
}

// MaxBytes returns the configured size cap.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload streams the file at path to the server. Precondition failures set
// the upload panel and return a sentinel error without touching the network.
// A 401 mid-upload hands off to the expiry trigger; success refetches the
// collection.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	if !u.session.Active() {
		u.setAuthFeedback("Please log in first.")
		u.setUploadFeedback(NoSessionNotice)
		return ErrNoSession
	}
	if path == "" {
		u.setUploadFeedback(ChooseFileNotice)
		return ErrNoFile
	}

	info, err := os.Stat(path)
	if err != nil {
		u.setUploadFeedback(UploadFailedNotice)
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > u.maxBytes {
		u.setUploadFeedback(fmt.Sprintf(TooLargeFormat, sizes.Human(u.maxBytes)))
		u.reportProgress(info.Name(), 0)
		return ErrTooLarge
	}

	u.reportProgress(info.Name(), 0)
	u.setUploadFeedback("")

	contentType := detectContentType(path)
	body, formContentType := u.multipartBody(path, info.Name(), info.Size(), contentType)

	resp, err := u.gw.DispatchStream(ctx, nethttp.MethodPost, "/files/upload", body, formContentType)
	if err != nil {
		u.setUploadFeedback(UploadFailedNotice)
		return err
	}

	if resp.StatusCode == nethttp.StatusUnauthorized {
		// Trigger runs last; the expiry handler leaves the upload panel empty.
		u.setUploadFeedback(session.ExpiredNotice)
		u.reportProgress(info.Name(), 0)
		u.mu.Lock()
		expiry := u.expiry
		u.mu.Unlock()
		if expiry != nil {
			expiry.Trigger()
		}
		return api.ReadError(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := api.ReadError(resp)
		u.setUploadFeedback(se.Notice(UploadFailedNotice))
		return se
	}

	api.Drain(resp)

	u.setUploadFeedback(UploadCompleteNotice)
	u.reportProgress(info.Name(), 0)

	u.mu.Lock()
	refresher := u.refresher
	u.mu.Unlock()
	if refresher != nil {
		if err := refresher.Refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}

// multipartBody streams the file as the "file" form field. The writer side
// runs in its own goroutine; a local read error surfaces through the pipe
// and fails the request.
func (u *Uploader) multipartBody(path, name string, size int64, contentType string) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		f, err := os.Open(path)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer f.Close()

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		src := &progressReader{
			r:     f,
			total: size,
			report: func(percent int) {
				u.reportProgress(name, percent)
			},
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType()
}

func (u *Uploader) reportProgress(name string, percent int) {
	u.mu.Lock()
	fn := u.progress
	u.mu.Unlock()
	if fn != nil {
		fn(name, percent)
	}
	if u.bus != nil {
		u.bus.Publish(events.NewUploadProgressEvent(name, percent))
	}
}

func (u *Uploader) setUploadFeedback(msg string) {
	u.mu.Lock()
	view := u.view
	u.mu.Unlock()
	if view != nil {
		view.SetUploadFeedback(msg)
	}
}

func (u *Uploader) setAuthFeedback(msg string) {
	u.mu.Lock()
	view := u.view
	u.mu.Unlock()
	if view != nil {
		view.SetAuthFeedback(msg)
	}
}

func detectContentType(path string) string {
	if mt, err := mimetype.DetectFile(path); err == nil {
		return mt.String()
	}
	return "application/octet-stream"
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// progressReader reports whole-number percentages as bytes flow through,
// once per distinct value.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(percent int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		percent := int(math.Round(float64(p.read) / float64(p.total) * 100))
		if percent > 100 {
			percent = 100
		}
		if percent != p.last {
			p.last = percent
			p.report(percent)
		}
	}
	return n, err
}
