// Package browser opens n8n editor links in the user's browser.
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/carmatch/flowadmin/internal/flows"
)

var ErrUnsafeURL = errors.New("only absolute http(s) urls can be opened")

// Opener launches a browser. The zero value uses the current platform.
type Opener struct {
	GOOS string
	// BrowserEnv overrides $BROWSER.
	BrowserEnv string
	Start      func(name string, args ...string) error
}

func startCommand(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open validates u like an editor link before launching anything, so a
// backend supplied value can never run a non-web handler.
func (o Opener) Open(u string) error {
	safe := flows.EditorURL(u)
	if safe == "" {
		return fmt.Errorf("%w: %q", ErrUnsafeURL, strings.TrimSpace(u))
	}
	goos := o.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	env := o.BrowserEnv
	if env == "" {
		env = os.Getenv("BROWSER")
	}
	start := o.Start
	if start == nil {
		start = startCommand
	}

	switch goos {
	case "darwin":
		return start("open", safe)
	case "windows":
		return first(start, [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", safe},
			{"cmd", "/c", "start", "", safe},
		})
	}
	var candidates [][]string
	for _, part := range strings.Split(env, ":") {
		argv := strings.Fields(part)
		if len(argv) == 0 {
			continue
		}
		if strings.Contains(part, "%s") {
			argv = strings.Fields(strings.ReplaceAll(part, "%s", safe))
		} else {
			argv = append(argv, safe)
		}
		candidates = append(candidates, argv)
	}
	candidates = append(candidates, []string{"xdg-open", safe})
	return first(start, candidates)
}

func first(start func(string, ...string) error, candidates [][]string) error {
	var errs []error
	for _, argv := range candidates {
		err := start(argv[0], argv[1:]...)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("open browser failed: %w", errors.Join(errs...))
}

// Open uses the default Opener.
func Open(u string) error { return Opener{}.Open(u) }
