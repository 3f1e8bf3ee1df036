// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/collab"
	"github.com/jeranaias/livechat-tui/internal/config"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/scroll"
	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/transcript"
)

// replViewportLines is the pretend viewport height of the line client.
const replViewportLines = 24

// ErrLoopStopped is returned when a command arrives after shutdown.
var ErrLoopStopped = errors.New("session loop stopped")

func newREPLCommand(e *env) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Chat in line mode, without taking over the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), e, model.ID(chatID))
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Chat to open (default: most recent)")
	return cmd
}

func runREPL(ctx context.Context, e *env, chatID model.ID) error {
	a, err := openApp(ctx, e)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := schedule.NewChanLoop()
	go loop.Run(ctx)

	r := newREPL(loop, a.local, sessionOptions(e.cfg, a.metrics, e.logger.Named("session")),
		e.cfg.Scroll.LineHeight, os.Stdout)
	r.onOpen = a.setActive
	defer r.Close()

	if err := r.Start(ctx, a.local, chatID); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	historyFile := replHistoryPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line, historyFile, e.logger)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C aborts, Ctrl+D is EOF; both end the session
			fmt.Println()
			return nil
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		quit, err := r.Handle(input)
		if err != nil {
			r.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func replHistoryPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "repl_history")
}

func saveHistory(line *liner.State, path string, logger *zap.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		logger.Debug("repl_history_failed", zap.Error(err))
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// LINE CLIENT
// =============================================================================

// repl drives a session controller from typed lines. The controller runs on
// a ChanLoop; every call from the prompt goroutine goes through Sync.
type repl struct {
	loop    *schedule.ChanLoop
	store   *session.Store
	ctrl    *session.Controller
	surface *scroll.MemorySurface
	lh      int
	onOpen  func(model.ID)

	mu      sync.Mutex
	out     io.Writer
	chats   []model.Chat
	printed map[string]bool
	typing  string

	unsubscribe func()
}

func newREPL(loop *schedule.ChanLoop, svc collab.Collaborator, opts session.Options, lineHeight int, out io.Writer) *repl {
	if lineHeight <= 0 {
		lineHeight = 20
	}
	r := &repl{
		loop:    loop,
		store:   session.NewStore(opts.UserID),
		surface: scroll.NewMemorySurface(0, replViewportLines*lineHeight),
		lh:      lineHeight,
		out:     out,
		printed: make(map[string]bool),
	}
	opts.OnEvent = r.onEvent
	r.ctrl = session.NewController(loop, r.store, svc, r.surface, session.RenderFunc(r.render), opts)
	return r
}

// Start lists chats, subscribes to push events and opens chatID, or the most
// recent chat when chatID is empty.
func (r *repl) Start(ctx context.Context, svc interface {
	collab.Directory
	collab.Publisher
}, chatID model.ID) error {
	chats, err := svc.Chats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		return fmt.Errorf("no chats; run 'livechat seed' first")
	}
	r.chats = chats
	if chatID.IsZero() {
		chatID = chats[0].ID
	}

	r.unsubscribe = svc.Subscribe(func(ev collab.Event) {
		r.loop.Post(func() { r.ctrl.Receive(ev) })
	})
	return r.sync(func() {
		for _, c := range chats {
			r.store.PutChat(c)
		}
		r.open(chatID)
	})
}

// Close shuts the controller down on its loop.
func (r *repl) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.loop.Sync(r.ctrl.Shutdown)
	r.loop.Wait()
}

func (r *repl) sync(fn func()) error {
	if !r.loop.Sync(fn) {
		return ErrLoopStopped
	}
	return nil
}

// call runs fn on the loop and returns its error.
func (r *repl) call(fn func() error) error {
	var err error
	if syncErr := r.sync(func() { err = fn() }); syncErr != nil {
		return syncErr
	}
	return err
}

// open runs on the loop.
func (r *repl) open(chatID model.ID) {
	r.mu.Lock()
	clear(r.printed)
	r.typing = ""
	r.mu.Unlock()

	chat, _ := r.store.Chat(chatID)
	title := chat.Title
	if title == "" {
		title = chatID.String()
	}
	r.printf("── %s ──\n", title)
	r.ctrl.Open(chatID)
	if r.onOpen != nil {
		r.onOpen(chatID)
	}
}

// Handle runs one input line. It reports whether the user asked to quit.
func (r *repl) Handle(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, r.call(func() error {
			_, err := r.ctrl.Send(line)
			return err
		})
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.printf("%s\n", replHelp)
		return false, nil
	case "/chats":
		r.listChats()
		return false, nil
	case "/open":
		if arg == "" {
			return false, fmt.Errorf("usage: /open <chat-id>")
		}
		return false, r.sync(func() { r.open(model.ID(arg)) })
	case "/more":
		return false, r.sync(func() {
			if !r.ctrl.LoadOlder() {
				r.printf("(no older messages)\n")
			}
		})
	case "/bottom":
		return false, r.sync(r.ctrl.JumpToBottom)
	case "/reply":
		if arg == "" {
			return false, fmt.Errorf("usage: /reply <message-id>")
		}
		return false, r.call(func() error { return r.ctrl.SetReplyTo(model.ID(arg)) })
	case "/noreply":
		return false, r.sync(r.ctrl.ClearReply)
	case "/retry":
		return false, r.call(func() error { return r.ctrl.Retry(model.ID(arg)) })
	case "/discard":
		return false, r.call(func() error { return r.ctrl.Discard(model.ID(arg)) })
	case "/file":
		return false, r.upload(arg)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
}

const replHelp = `/chats            list chats
/open <id>        switch chat
/more             load older messages
/bottom           jump to the newest message
/reply <id>       reply to a message; /noreply cancels
/file <path>      send a file
/retry <id>       resend a failed message; /discard <id> drops it
/quit             leave`

func (r *repl) upload(path string) error {
	if path == "" {
		return fmt.Errorf("usage: /file <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	kind := model.KindFile
	if strings.HasPrefix(mimeType, "image/") {
		kind = model.KindImage
	}
	return r.call(func() error {
		_, err := r.ctrl.Upload(model.File{Name: name, MIMEType: mimeType, Data: data}, kind)
		return err
	})
}

func (r *repl) listChats() {
	var b strings.Builder
	active := model.ID("")
	_ = r.sync(func() { active = r.ctrl.Chat() })
	for _, c := range r.chats {
		mark := " "
		if c.ID.Equal(active) {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %-12s %s\n", mark, c.ID, c.Title)
	}
	r.printf("%s", b.String())
}

// =============================================================================
// RENDERING
// =============================================================================

// render prints nodes not shown yet. Placeholders print once delivered.
// It runs on the loop.
func (r *repl) render(s session.State) {
	r.surface.Height = len(s.Nodes) * r.lh
	r.surface.Top = min(r.surface.Top, r.surface.Metrics().MaxScrollTop())

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range s.Nodes {
		key := node.Key()
		if node.Kind == transcript.NodeMessage {
			switch {
			case node.Message.Pending:
				continue
			case node.Message.Failed:
				key = "failed:" + key
			}
		}
		if r.printed[key] {
			continue
		}
		r.printed[key] = true
		fmt.Fprintln(r.out, formatNode(s.Chat, node))
	}

	typing := ""
	if len(s.PeersTyping) > 0 {
		typing = strings.Join(s.PeersTyping, ", ")
	}
	if typing != r.typing {
		r.typing = typing
		if typing != "" {
			fmt.Fprintf(r.out, "  … %s typing\n", typing)
		}
	}
}

func (r *repl) onEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventPageFailed, session.EventSendFailed, session.EventUploadFailed:
		r.printf("! %s: %v\n", ev.Kind, ev.Err)
	}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// formatNode renders one transcript node as a single line.
func formatNode(chat model.Chat, node transcript.Node) string {
	if node.Kind == transcript.NodeSeparator {
		return "── " + node.Label + " ──"
	}
	msg := node.Message
	var b strings.Builder
	if msg.CreatedAt.Valid() {
		b.WriteString("[" + msg.CreatedAt.Format("15:04") + "] ")
	}
	b.WriteString(chat.SenderName(msg.SenderID))
	if msg.FromModerator || chat.IsModerator(msg.SenderID) {
		b.WriteString(" (mod)")
	}
	b.WriteString(": ")
	if node.ReplyPreview != nil {
		b.WriteString("↪ \"" + node.ReplyPreview.Preview(30) + "\" ")
	} else if node.ReplyMissing {
		b.WriteString("↪ (not loaded) ")
	}
	b.WriteString(msg.Preview(500))
	b.WriteString("  #" + msg.ID.String())
	if msg.Failed {
		b.WriteString("  ✗ not sent, /retry " + msg.ID.String())
	}
	return b.String()
}
