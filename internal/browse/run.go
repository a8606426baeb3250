package browse

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shelf-labs/shelfctl/internal/api"
	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/transfer"
)

const helpText = `Commands:
  signup <email> <password>   create an account
  login <email> <password>    log in
  logout                      log out
  ls                          show the current page
  next, prev                  change page
  sort <asc|desc>             change sort order (returns to page 1)
  limit <n>                   change page size
  upload <path>               upload a file
  download <row> [dir]        save a file locally
  rename <row> <new name>     rename a file
  rm <row>                    delete a file
  open <row>                  preview an image file
  help                        show this text
  quit                        exit`

// Run drives the interactive loop until EOF, "quit", or context
// cancellation. Input is read line-wise from in; nil means stdin.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	if in == nil {
		in = os.Stdin
	}

	sess := a.Store.Get()
	a.View.RenderStatus(sess.Active(), sess.Subject)
	a.refreshAndRender(ctx)
	if sess.Active() && !a.Store.Active() {
		a.View.RenderStatus(false, "")
	}

	scanner := bufio.NewScanner(in)
	for {
		a.View.Printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		wasActive := a.Store.Active()
		a.handleCommand(ctx, cmd, args)
		// A 401 observed during the command tears the session down through
		// the expiry handler; surface the new state.
		if wasActive && !a.Store.Active() && cmd != "logout" {
			a.View.RenderStatus(false, "")
		}
	}
}

func (a *App) handleCommand(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "help":
		a.View.Printf("%s", helpText)

	case "signup":
		if len(args) != 2 {
			a.View.Printf("usage: signup <email> <password>")
			return
		}
		a.signup(ctx, args[0], args[1])

	case "login":
		if len(args) != 2 {
			a.View.Printf("usage: login <email> <password>")
			return
		}
		a.login(ctx, args[0], args[1])

	case "logout":
		a.logout(ctx)

	case "ls", "list":
		a.refreshAndRender(ctx)

	case "next":
		_ = a.Pager.NextPage(ctx)
		a.renderPage(ctx)

	case "prev":
		_ = a.Pager.PrevPage(ctx)
		a.renderPage(ctx)

	case "sort":
		if len(args) != 1 {
			a.View.Printf("usage: sort <asc|desc>")
			return
		}
		_ = a.Pager.SetSort(ctx, models.SortOrder(args[0]))
		a.renderPage(ctx)

	case "limit":
		if len(args) != 1 {
			a.View.Printf("usage: limit <n>")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			a.View.Printf("limit must be a number")
			return
		}
		_ = a.Pager.SetLimit(ctx, n)
		a.renderPage(ctx)

	case "upload":
		if len(args) != 1 {
			a.View.Printf("usage: upload <path>")
			return
		}
		_ = a.Uploader.Upload(ctx, args[0])
		a.renderPage(ctx)

	case "download":
		rec, ok := a.rowArg(args)
		if !ok {
			return
		}
		destDir := "."
		if len(args) > 1 {
			destDir = args[1]
		}
		path, err := a.Downloader.Save(ctx, rec, destDir)
		if err != nil {
			a.View.Printf("%s", notice(err, transfer.DownloadFailedNotice))
			return
		}
		a.View.Printf("Saved %s", path)

	case "rename":
		if len(args) < 2 {
			a.View.Printf("usage: rename <row> <new name>")
			return
		}
		rec, ok := a.rowArg(args[:1])
		if !ok {
			return
		}
		a.rename(ctx, rec, strings.Join(args[1:], " "))

	case "rm":
		rec, ok := a.rowArg(args)
		if !ok {
			return
		}
		a.remove(ctx, rec)

	case "open":
		rec, ok := a.rowArg(args)
		if !ok {
			return
		}
		a.preview(ctx, rec)

	default:
		a.View.Printf("unknown command %q, try help", cmd)
	}
}

// rowArg resolves a 1-based row number against the current page.
func (a *App) rowArg(args []string) (models.FileRecord, bool) {
	if len(args) < 1 {
		a.View.Printf("a row number is required")
		return models.FileRecord{}, false
	}
	n, err := strconv.Atoi(args[0])
	items := a.Pager.Items()
	if err != nil || n < 1 || n > len(items) {
		a.View.Printf("no such row %q", args[0])
		return models.FileRecord{}, false
	}
	return items[n-1], true
}

// refreshAndRender refetches the page, resolves thumbnails for the new rows
// concurrently, and renders. The previous page's preview and thumbnails are
// dropped first so their files never outlive the rows that referenced them.
func (a *App) refreshAndRender(ctx context.Context) {
	_ = a.Pager.Refresh(ctx)
	a.renderPage(ctx)
}

func (a *App) renderPage(ctx context.Context) {
	a.Preview.Clear()
	a.Registry.RevokeAll()

	items := a.Pager.Items()
	var wg sync.WaitGroup
	for _, item := range items {
		if item.ThumbnailName == "" {
			continue
		}
		wg.Add(1)
		go func(rec models.FileRecord) {
			defer wg.Done()
			a.Thumbnails.Fetch(ctx, rec)
		}(item)
	}
	wg.Wait()

	// The resolvers report through the bus; once the batch has settled every
	// event for it is buffered, so a non-blocking drain collects them all.
	thumbs := make(map[string]string, len(items))
drain:
	for {
		select {
		case ev := <-a.thumbReady:
			if ev == nil {
				break drain
			}
			if te, ok := ev.(*events.ThumbnailReadyEvent); ok && !te.Placeholder {
				thumbs[te.FileID] = te.Path
			}
		default:
			break drain
		}
	}

	a.View.RenderPage(items, thumbs, a.Pager.PageIndicator())
}

func (a *App) signup(ctx context.Context, email, password string) {
	if email == "" || password == "" {
		a.View.SetAuthFeedback("Email and password are required.")
		a.View.Printf("Email and password are required.")
		return
	}
	if err := a.Client.Signup(ctx, email, password); err != nil {
		a.View.SetAuthFeedback(notice(err, "Sign up failed."))
		a.View.Printf("%s", a.View.AuthFeedback())
		return
	}
	a.View.SetAuthFeedback("Account created. You can log in now.")
	a.View.Printf("Account created. You can log in now.")
}

func (a *App) login(ctx context.Context, email, password string) {
	if email == "" || password == "" {
		a.View.SetAuthFeedback("Email and password are required.")
		a.View.Printf("Email and password are required.")
		return
	}
	token, err := a.Client.Login(ctx, email, password)
	if err != nil {
		a.View.SetAuthFeedback(notice(err, "Login failed."))
		a.View.Printf("%s", a.View.AuthFeedback())
		return
	}
	_ = a.Store.Set(token)
	a.View.SetAuthFeedback("Logged in.")
	a.View.RenderStatus(true, a.Store.Subject())
	a.refreshAndRender(ctx)
}

// logout clears local state even when the server call fails.
func (a *App) logout(ctx context.Context) {
	_ = a.Client.Logout(ctx)
	_ = a.Store.Clear()
	a.Preview.Clear()
	a.Registry.RevokeAll()
	a.View.SetAuthFeedback("")
	a.View.RenderStatus(false, "")
	a.refreshAndRender(ctx)
}

func (a *App) rename(ctx context.Context, rec models.FileRecord, newName string) {
	if newName == "" || newName == rec.DisplayName {
		return
	}
	if err := a.Client.Rename(ctx, rec.ID, newName); err != nil {
		a.View.Printf("%s", notice(err, "Rename failed"))
		return
	}
	a.refreshAndRender(ctx)
}

func (a *App) remove(ctx context.Context, rec models.FileRecord) {
	if err := a.Client.Delete(ctx, rec.ID); err != nil {
		a.View.Printf("%s", notice(err, "Delete failed"))
		return
	}
	a.refreshAndRender(ctx)
}

// preview shows image files inline; any other type clears the preview.
func (a *App) preview(ctx context.Context, rec models.FileRecord) {
	if !rec.IsImage() {
		a.Preview.Clear()
		return
	}
	path, err := a.Preview.Show(ctx, rec)
	if err != nil {
		return
	}
	a.View.RenderPreview(path, rec.DisplayName)
}

// notice maps an operation error to display text: the server's message when
// it provided one, the operation fallback otherwise.
func notice(err error, fallback string) string {
	var se *api.StatusError
	if errors.As(err, &se) {
		return se.Notice(fallback)
	}
	return fallback
}
