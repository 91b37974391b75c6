package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/example/deeptrust/internal/orchestrator"
	"github.com/example/deeptrust/internal/relayclient"
	"github.com/example/deeptrust/internal/render"
)

var (
	relayURL   string
	relayKey   string
	jsonOutput bool
	timeout    time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze an image file or a public image URL",
	Long: `Analyze sends one image to the relay and prints the verdict.

TARGET can be:
  - A local image file: ./photo.jpg
  - A public http(s) URL: https://example.com/photo.png

Examples:
  deeptrust analyze ./photo.jpg
  deeptrust analyze https://example.com/photo.png --json
  deeptrust analyze ./photo.jpg --relay http://relay.internal:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&relayURL, "relay", "http://localhost:8080", "Base URL of the relay")
	analyzeCmd.Flags().StringVar(&relayKey, "api-key", os.Getenv("DEEPTRUST_RELAY_KEY"), "Bearer token sent to the relay")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the raw result as JSON")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits for the relay)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stderr := cmd.ErrOrStderr()
	orch := orchestrator.New(relayclient.New(relayURL, relayKey, nil), stderrNotifier(stderr), nil)

	p := newProgress(stderr)
	orch.OnChange(p.update)
	defer p.stop()

	state, err := selectTarget(ctx, orch, args[0])
	p.stop()
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state.Result)
	}
	return render.WriteText(cmd.OutOrStdout(), render.Render(*state.Result))
}

// selectTarget routes http(s) targets to the URL path and everything else
// to the file path.
func selectTarget(ctx context.Context, orch *orchestrator.Orchestrator, target string) (orchestrator.State, error) {
	if isRemote(target) {
		return orch.SelectURL(ctx, target)
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return orchestrator.State{}, fmt.Errorf("file not found: %s", target)
		}
		return orchestrator.State{}, err
	}
	defer f.Close()

	return orch.SelectFile(ctx, f, contentTypeFor(target))
}

func isRemote(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// contentTypeFor guesses from the extension; an empty result lets the
// acquisition step sniff the bytes.
func contentTypeFor(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}

func stderrNotifier(w io.Writer) orchestrator.Notifier {
	red := color.New(color.FgRed, color.Bold)
	return orchestrator.NotifierFunc(func(title, message string) {
		_, _ = red.Fprintf(w, "%s: ", title)
		fmt.Fprintln(w, message)
	})
}

// progress shows a spinner while a cycle is analyzing. It stays silent when
// w is not a terminal.
type progress struct {
	spin *spinner.Spinner
}

func newProgress(w io.Writer) *progress {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Analyzing image..."
	return &progress{spin: s}
}

func (p *progress) update(s orchestrator.State) {
	if p.spin == nil {
		return
	}
	if s.Phase == orchestrator.PhaseAnalyzing {
		p.spin.Start()
		return
	}
	p.spin.Stop()
}

func (p *progress) stop() {
	if p.spin != nil {
		p.spin.Stop()
	}
}
