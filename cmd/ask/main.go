package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/m4xw311/ask/agent"
	"github.com/m4xw311/ask/agent/terminal"
	"github.com/m4xw311/ask/clipboard"
	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/llm"
	"github.com/m4xw311/ask/logging"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	imageFlag := flag.BoolP("image", "i", false, "Attach an image from the clipboard to the message")
	clearFlag := flag.BoolP("clear", "c", false, "Clear the current session before doing anything else")
	clearAllFlag := flag.BoolP("clear-all", "C", false, "Clear every persisted session")
	lastFlag := flag.BoolP("last", "l", false, "Print the last message of the current session")
	listFlag := flag.BoolP("list", "o", false, "List persisted sessions with a short preview")
	recursiveFlag := flag.BoolP("recursive", "r", false, "Agent mode: let the model call tools until it is done")
	plainFlag := flag.BoolP("plain", "p", false, "Plain mode: no system prompt, tools never offered")
	sessionFlag := flag.StringP("session", "s", "", "Session name (defaults to one per parent process)")
	providerFlag := flag.String("provider", "", "Provider entry from the config to use")
	interactiveFlag := flag.BoolP("interactive", "I", false, "Stay in an interactive prompt loop")
	confirmFlag := flag.Bool("confirm", false, "Ask before executing each tool call")
	verbosityFlag := flag.String("tool-verbosity", "info", "Tool reporting: 'none', 'info', or 'all'")
	traceFlag := flag.Bool("trace", false, "Enable execution tracing to troubleshoot issues")
	flag.Parse()

	logging.Init(os.Stderr, *traceFlag)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		return exitCode(err)
	}

	store := session.NewStore(cfg.SessionDir, cfg.TranscriptName)
	sessionID := *sessionFlag
	if sessionID == "" {
		sessionID = session.DefaultID()
	}

	input := assembleInput(flag.Args())

	// Housekeeping flags dispatch before any provider work.
	if *clearAllFlag {
		n, err := store.ClearAll()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing sessions: %+v\n", err)
			return exitCode(err)
		}
		fmt.Printf("Cleared %d session(s)\n", n)
		return 0
	}
	if *clearFlag {
		if err := store.Clear(sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing session '%s': %+v\n", sessionID, err)
			return exitCode(err)
		}
		if input == "" {
			return 0
		}
	}
	if *listFlag {
		return listSessions(store)
	}
	if *lastFlag {
		return printLastMessage(store, sessionID)
	}

	provider, err := cfg.ActiveProvider(*providerFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		return exitCode(err)
	}

	sess, err := store.Load(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading session '%s': %+v\n", sessionID, err)
		return exitCode(err)
	}
	if sess.Model == "" {
		sess.Model = provider.Model
	}

	var imageURL string
	if *imageFlag {
		imageURL, err = clipboard.CaptureImage(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error capturing clipboard image: %+v\n", err)
			return exitCode(err)
		}
	}

	// With nothing to say, show the transcript instead.
	if input == "" && imageURL == "" && !*interactiveFlag {
		return viewTranscript(cfg, sess)
	}

	if len(sess.Messages) == 0 && !*plainFlag && cfg.SystemPrompt != "" {
		sess.Append(session.Message{Role: systemRole(provider), Content: cfg.SystemPrompt})
	}

	mode := agent.ModePlain
	if *recursiveFlag {
		mode = agent.ModeAgent
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", provider.Client, err)
		return exitCode(err)
	}

	var registry *tools.Registry
	if mode == agent.ModeAgent {
		registry, err = tools.NewRegistry(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing tools: %+v\n", err)
			return exitCode(err)
		}
		defer registry.Close()
	}

	a := agent.New(cfg, sess, store, client, registry, mode)
	a.Verbosity = agent.ToolVerbosity(*verbosityFlag)

	term := terminal.New(a, *confirmFlag)
	if *interactiveFlag {
		err = term.Run(ctx, input)
	} else {
		err = term.Once(ctx, input, imageURL)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		return exitCode(err)
	}
	return 0
}

// assembleInput joins the positional arguments and appends anything piped
// in on stdin.
func assembleInput(args []string) string {
	input := strings.TrimSpace(strings.Join(args, " "))

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		piped, err := io.ReadAll(os.Stdin)
		if err == nil && len(piped) > 0 {
			if input != "" {
				input += "\n\n"
			}
			input += strings.TrimSpace(string(piped))
		}
	}
	return input
}

// systemRole picks the role the startup prompt travels under. Gemini and
// the OpenAI reasoning models reject a system turn, so it becomes a user
// turn there.
func systemRole(provider *config.Provider) string {
	if provider.Client == config.ClientGemini {
		return session.RoleUser
	}
	if strings.HasPrefix(provider.Model, "o1") || strings.HasPrefix(provider.Model, "o3") {
		return session.RoleUser
	}
	return session.RoleSystem
}

func listSessions(store *session.Store) int {
	summaries, err := store.Summaries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing sessions: %+v\n", err)
		return exitCode(err)
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions found")
		return 0
	}
	bold := color.New(color.Bold)
	for _, s := range summaries {
		bold.Printf("%s", s.ID)
		if s.Model != "" {
			fmt.Printf(" (%s)", s.Model)
		}
		fmt.Printf(": %s\n", s.Preview)
	}
	return 0
}

func printLastMessage(store *session.Store, sessionID string) int {
	sess, err := store.Load(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading session '%s': %+v\n", sessionID, err)
		return exitCode(err)
	}
	last := sess.Last()
	if last == nil {
		fmt.Fprintln(os.Stderr, "Session is empty")
		return 1
	}
	fmt.Println(last.Content)
	return 0
}

// viewTranscript renders the session and hands it to the configured pager.
func viewTranscript(cfg *config.Config, sess *session.Session) int {
	if len(sess.Messages) == 0 {
		fmt.Fprintln(os.Stderr, "Session is empty; pass a prompt to start one")
		return 1
	}

	path := filepath.Join(os.TempDir(), "ask_view-"+sess.ID+".md")
	if err := os.WriteFile(path, []byte(terminal.RenderTranscript(sess)), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing transcript view: %+v\n", err)
		return 1
	}
	defer os.Remove(path)

	cmd := exec.Command("sh", "-c", cfg.Editor+" "+path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running '%s': %+v\n", cfg.Editor, err)
		return 1
	}
	return 0
}

// exitCode maps the error taxonomy onto distinct process exit codes.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindConfig:
		return 2
	case errors.KindTransport:
		return 3
	case errors.KindAdapter:
		return 4
	case errors.KindTool:
		return 5
	case errors.KindStore:
		return 6
	}
	return 1
}
