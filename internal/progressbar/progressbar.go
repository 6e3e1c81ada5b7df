package progressbar

import (
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
)

const (
	refreshRate = 200 * time.Millisecond
	barWidth    = 80
	template    = `{{counters . }} {{bar . | green }} {{percent .}} {{speed . "%s/s"}}`
)

// ProgressBar wraps pb.ProgressBar.
type ProgressBar struct {
	*pb.ProgressBar
}

// New creates a byte-counting bar writing to out.
// The bar stays static unless out is a terminal; a nil out hides it.
func New(size int64, out io.Writer) (*ProgressBar, error) {
	bar := &ProgressBar{pb.New64(size)}

	bar.Set(pb.Bytes, true)

	if out == nil {
		out = io.Discard
	}

	bar.SetWriter(out)

	if isTerminal(out) {
		bar.SetTemplateString(template)
		bar.SetRefreshRate(refreshRate)
	} else {
		Hide(bar)
	}

	bar.SetWidth(barWidth)

	if err := bar.Err(); err != nil {
		return nil, err
	}

	return bar, nil
}

// Hide stops the bar from drawing anything.
func Hide(bar *ProgressBar) {
	bar.Set(pb.Static, true)
	bar.SetWriter(io.Discard)
}

// Update adds n bytes to the bar.
func (b *ProgressBar) Update(n int64) {
	b.Add64(n)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}

	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
