package viewer

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// ErrUnsupportedPlatform is returned when no opener is known for the OS
var ErrUnsupportedPlatform = errors.New("no browser opener for this platform")

// BrowserOpener opens reports with the platform's default handler
type BrowserOpener struct {
	log  log.Logger
	goos string
	run  func(name string, args ...string) error
}

// NewBrowserOpener creates an opener for the running platform
func NewBrowserOpener(logger log.Logger) *BrowserOpener {
	if logger == nil {
		logger = log.Root()
	}
	return &BrowserOpener{
		log:  logger,
		goos: runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Command returns the program and arguments used to open target
func (b *BrowserOpener) Command(target string) (string, []string, error) {
	switch b.goos {
	case "darwin":
		return "open", []string{target}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, b.goos)
	}
}

// Open opens a URL, or a file path resolved to an absolute path
func (b *BrowserOpener) Open(target string) error {
	if !isURL(target) {
		abs, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", target, err)
		}
		target = abs
	}

	name, args, err := b.Command(target)
	if err != nil {
		return err
	}

	b.log.Info("Opening report", "target", target)
	if err := b.run(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "file://")
}
