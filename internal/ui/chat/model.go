// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/collab"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/transcript"
	"github.com/jeranaias/livechat-tui/internal/ui/styles"
)

const (
	// uploadCommand starts a composer line that attaches a file.
	uploadCommand = "/file"

	// directoryTimeout bounds the initial chat listing.
	directoryTimeout = 10 * time.Second

	headerHeight = 1
	footerHeight = 5 // indicator line + bordered input + status bar
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat view to its collaborators.
type Options struct {
	Loop      schedule.Loop
	Store     *session.Store
	Service   collab.Collaborator
	Directory collab.Directory

	// Publisher delivers push events. Nil means no live updates.
	Publisher collab.Publisher

	// Session configures the controller. OnEvent is overwritten.
	Session session.Options

	Theme       *styles.Theme
	Keys        KeyMap
	LineHeight  int
	ShowAvatars bool

	// OnActiveChat runs on every chat switch, including to no chat.
	OnActiveChat func(model.ID)

	Logger *zap.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen: a chat list beside the
// live transcript of the active chat, with a composer underneath.
type Model struct {
	opts   Options
	theme  *styles.Theme
	keys   KeyMap
	logger *zap.Logger

	store *session.Store
	ctrl  *session.Controller
	view  *transcriptView
	log   *eventLog

	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	showHelp bool

	chatOrder []model.ID
	notice    notice
	life      *lifecycle

	width  int
	height int
}

// New builds the chat model and its session controller.
func New(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = session.NewStore(opts.Session.UserID)
	}
	if opts.Session.UserID.IsZero() {
		opts.Session.UserID = opts.Store.UserID()
	}

	log := &eventLog{}
	view := newTranscriptView(opts.Theme, opts.LineHeight, opts.ShowAvatars)
	view.renderer.userID = opts.Session.UserID
	if opts.Session.Location != nil {
		view.renderer.loc = opts.Session.Location
	}

	sessOpts := opts.Session
	sessOpts.OnEvent = log.record
	if sessOpts.Logger == nil {
		sessOpts.Logger = opts.Logger.Named("session")
	}
	ctrl := session.NewController(opts.Loop, opts.Store, opts.Service, view, view, sessOpts)

	input := textinput.New()
	input.Placeholder = "Write a message…"
	input.Prompt = opts.Theme.InputPrompt.Render("> ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = opts.Theme.LoadingHint

	m := Model{
		opts:    opts,
		theme:   opts.Theme,
		keys:    opts.Keys,
		logger:  opts.Logger,
		store:   opts.Store,
		ctrl:    ctrl,
		view:    view,
		log:     log,
		input:   input,
		spinner: sp,
		help:    help.New(),
		life:    &lifecycle{},
	}
	if opts.Publisher != nil {
		loop := opts.Loop
		m.life.unsubscribe = opts.Publisher.Subscribe(func(ev collab.Event) {
			loop.Post(func() { ctrl.Receive(ev) })
		})
	}
	return m
}

// Controller returns the session controller.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadChats(), textinput.Blink, m.spinner.Tick)
}

func (m Model) loadChats() tea.Cmd {
	dir := m.opts.Directory
	if dir == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
		defer cancel()
		chats, err := dir.Chats(ctx)
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

// lifecycle is shared by every copy of a Model.
type lifecycle struct {
	unsubscribe func()
	closed      bool
}

// Shutdown stops live updates and releases the controller. Later calls do
// nothing.
func (m Model) Shutdown() {
	if m.life.closed {
		return
	}
	m.life.closed = true
	if m.life.unsubscribe != nil {
		m.life.unsubscribe()
	}
	m.ctrl.Shutdown()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case schedule.RunMsg:
		msg.Run()
		m.syncNotice()
		return m, nil

	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case chatsLoadedMsg:
		return m.handleChatsLoaded(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.view.HandleMouse(msg) {
			m.ctrl.OnScroll()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	column := m.width - m.chatListWidth()
	m.input.Width = max(column-8, 10)
	m.help.Width = column
	m.view.SetSize(column, m.height-headerHeight-footerHeight)
	return m, nil
}

// chatListWidth returns the columns taken by the chat list, border included.
func (m Model) chatListWidth() int {
	switch m.theme.GetLayoutMode() {
	case styles.LayoutNarrow:
		return 0
	case styles.LayoutMedium:
		return 22 + 2
	default:
		return 28 + 2
	}
}

func (m Model) handleChatsLoaded(msg chatsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("chat_list_failed", zap.Error(msg.err))
		m.notice = notice{text: "couldn't list chats: " + msg.err.Error(), isErr: true}
		return m, nil
	}
	m.chatOrder = m.chatOrder[:0]
	for _, chat := range msg.chats {
		m.store.PutChat(chat)
		m.chatOrder = append(m.chatOrder, chat.ID)
	}
	m.logger.Debug("chat_list_loaded", zap.Int("chats", len(msg.chats)))
	if m.ctrl.Chat().IsZero() && len(m.chatOrder) > 0 {
		m.openChat(m.chatOrder[0])
	}
	return m, nil
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.notice = notice{text: "config not reloaded: " + msg.Err.Error(), isErr: true}
		return m, nil
	}
	cfg := msg.Config
	loc := cfg.Location()
	m.view.renderer.loc = loc
	m.view.renderer.reset()
	m.view.SetShowAvatars(cfg.UI.ShowAvatars)
	m.ctrl.SetDisplay(cfg.UI.Locale, loc)
	m.notice = notice{text: "configuration reloaded"}
	m.logger.Info("config_reloaded", zap.String("locale", cfg.UI.Locale), zap.String("timezone", loc.String()))
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.cycleChat(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevChat):
		m.cycleChat(-1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.view.ScrollLines(-1)
		m.ctrl.OnScroll()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.view.ScrollLines(1)
		m.ctrl.OnScroll()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.view.Page(-1)
		m.ctrl.OnScroll()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.view.Page(1)
		m.ctrl.OnScroll()
		return m, nil

	case key.Matches(msg, m.keys.LoadOlder):
		if !m.ctrl.LoadOlder() {
			m.notice = notice{text: "no older messages"}
		}
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.ctrl.JumpToBottom()
		return m, nil

	case key.Matches(msg, m.keys.Reply):
		m.replyToLast()
		return m, nil

	case key.Matches(msg, m.keys.CancelReply):
		if m.ctrl.State().ReplyTo != nil {
			m.ctrl.ClearReply()
		}
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		m.settleFailed(m.ctrl.Retry)
		return m, nil

	case key.Matches(msg, m.keys.Discard):
		m.settleFailed(m.ctrl.Discard)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		switch {
		case !strings.HasPrefix(value, uploadCommand):
			m.ctrl.Keystroke(value)
		case !strings.HasPrefix(before, uploadCommand):
			// Commands are not messages; end any typing burst now
			m.ctrl.Keystroke("")
		}
	}
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m *Model) openChat(chatID model.ID) {
	m.input.Reset()
	m.notice = notice{}
	m.log.failed = ""
	m.ctrl.Open(chatID)
	if m.opts.OnActiveChat != nil {
		m.opts.OnActiveChat(chatID)
	}
	open := 0
	for _, s := range m.store.Chats() {
		if s.Open {
			open++
		}
	}
	m.opts.Session.Metrics.OpenChats(open)
}

func (m *Model) cycleChat(step int) {
	if len(m.chatOrder) == 0 {
		return
	}
	idx := 0
	for i, id := range m.chatOrder {
		if id.Equal(m.ctrl.Chat()) {
			idx = (i + step + len(m.chatOrder)) % len(m.chatOrder)
			break
		}
	}
	m.openChat(m.chatOrder[idx])
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return *m, nil
	}

	var err error
	if path, ok := strings.CutPrefix(text, uploadCommand); ok && (path == "" || path[0] == ' ') {
		err = m.upload(strings.TrimSpace(path))
	} else {
		_, err = m.ctrl.Send(text)
	}
	if err != nil {
		m.notice = notice{text: err.Error(), isErr: true}
		return *m, nil
	}
	m.input.Reset()
	m.notice = notice{}
	return *m, nil
}

func (m *Model) upload(path string) error {
	if path == "" {
		return fmt.Errorf("usage: %s <path>", uploadCommand)
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
	_, err = m.ctrl.Upload(model.File{Name: name, MIMEType: mimeType, Data: data}, kind)
	return err
}

// replyToLast targets the newest delivered message from someone else.
func (m *Model) replyToLast() {
	nodes := m.ctrl.State().Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Kind != transcript.NodeMessage || n.Message.ID.IsTemp() {
			continue
		}
		if n.Message.SenderID.Equal(m.opts.Session.UserID) {
			continue
		}
		if err := m.ctrl.SetReplyTo(n.Message.ID); err != nil {
			m.notice = notice{text: err.Error(), isErr: true}
		}
		return
	}
	m.notice = notice{text: "nothing to reply to"}
}

// settleFailed applies fn to the most recent failed placeholder.
func (m *Model) settleFailed(fn func(model.ID) error) {
	id := m.log.failed
	if id.IsZero() {
		nodes := m.ctrl.State().Nodes
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i].Kind == transcript.NodeMessage && nodes[i].Message.Failed {
				id = nodes[i].Message.ID
				break
			}
		}
	}
	if id.IsZero() {
		m.notice = notice{text: "no failed message"}
		return
	}
	if err := fn(id); err != nil {
		m.notice = notice{text: err.Error(), isErr: true}
		return
	}
	m.log.failed = ""
	m.notice = notice{}
}

// syncNotice copies the latest controller event into the status bar.
func (m *Model) syncNotice() {
	if m.log.latest != (notice{}) {
		m.notice = m.log.latest
		m.log.latest = notice{}
	}
}
