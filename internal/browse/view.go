// Package browse is the interactive terminal frontend: a command loop over
// the file collection with the three feedback panels the core writes to.
package browse

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/util/sizes"
)

// View renders the collection and holds the three panel texts. It satisfies
// the feedback interfaces of the session, state, and transfer packages.
// Thread-safe; background fetches write panels from their own goroutines.
type View struct {
	mu     sync.Mutex
	out    io.Writer
	auth   string
	list   string
	upload string
}

// NewView creates a View writing to out. A nil out means stdout.
func NewView(out io.Writer) *View {
	if out == nil {
		out = os.Stdout
	}
	return &View{out: out}
}

// SetAuthFeedback sets the auth panel text.
func (v *View) SetAuthFeedback(msg string) {
	v.mu.Lock()
	v.auth = msg
	v.mu.Unlock()
}

// SetListFeedback sets the list panel text.
func (v *View) SetListFeedback(msg string) {
	v.mu.Lock()
	v.list = msg
	v.mu.Unlock()
}

// SetUploadFeedback sets the upload panel text.
func (v *View) SetUploadFeedback(msg string) {
	v.mu.Lock()
	v.upload = msg
	v.mu.Unlock()
}

// AuthFeedback returns the auth panel text.
func (v *View) AuthFeedback() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.auth
}

// ListFeedback returns the list panel text.
func (v *View) ListFeedback() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list
}

// UploadFeedback returns the upload panel text.
func (v *View) UploadFeedback() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.upload
}

// Printf writes a line to the view's output.
func (v *View) Printf(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format+"\n", args...)
}

// RenderStatus prints the auth line: identity when logged in, the standing
// login hint otherwise.
func (v *View) RenderStatus(active bool, subject string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if active {
		if subject != "" {
			fmt.Fprintf(v.out, "Authenticated as %s\n", subject)
		} else {
			fmt.Fprintln(v.out, "Authenticated")
		}
	} else {
		fmt.Fprintln(v.out, "Not logged in")
	}
	if v.auth != "" {
		fmt.Fprintln(v.out, v.auth)
	}
}

// RenderPage prints the current page as a table followed by the page
// indicator and the list panel.
func (v *View) RenderPage(items []models.FileRecord, thumbs map[string]string, indicator string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(items) > 0 {
		table := tablewriter.NewWriter(v.out)
		table.SetHeader([]string{"#", "Thumb", "Name", "Size", "Type", "Created"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for i, item := range items {
			thumb := shorten(thumbs[item.ID], 30)
			if thumb == "" {
				thumb = "FILE"
			}
			contentType := item.ContentType
			if contentType == "" {
				contentType = "Unknown"
			}
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				thumb,
				item.DisplayName,
				sizes.Human(item.Size),
				contentType,
				item.CreatedAt.Local().Format(time.DateTime),
			})
		}
		table.Render()
	}

	fmt.Fprintln(v.out, indicator)
	if v.list != "" {
		fmt.Fprintln(v.out, v.list)
	}
	if v.upload != "" {
		fmt.Fprintln(v.out, v.upload)
	}
}

// RenderPreview prints the active preview location, or nothing when cleared.
func (v *View) RenderPreview(path, label string) {
	if path == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if label != "" {
		fmt.Fprintf(v.out, "Preview of %s: %s\n", label, path)
	} else {
		fmt.Fprintf(v.out, "Preview: %s\n", path)
	}
}

// shorten truncates long thumbnail paths for table cells.
func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
