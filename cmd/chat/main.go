// Command chat is a line-oriented terminal client. It drives the same
// session store, composer and thread controller the rest of the module
// exposes, streaming each reply to stdout as it plays back.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/ai"
	"github.com/rgs-labs/rgsai/internal/chat"
	"github.com/rgs-labs/rgsai/internal/composer"
	"github.com/rgs-labs/rgsai/internal/config"
	"github.com/rgs-labs/rgsai/internal/store"
	"github.com/rgs-labs/rgsai/internal/store/gormkv"
	"github.com/rgs-labs/rgsai/internal/store/rediskv"
	"github.com/rgs-labs/rgsai/internal/store/relay"
	"github.com/rgs-labs/rgsai/internal/thread"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openKV(cfg)
	if err != nil {
		logger.Fatal("open store backend failed", zap.Error(err))
	}
	st := store.New(kv, logger)

	if cfg.RabbitURL != "" {
		rl, err := relay.Connect(cfg.RabbitURL, cfg.RabbitExchange, uuid.NewString(), st.Bus(), logger)
		if err != nil {
			logger.Warn("change relay unavailable, running standalone", zap.Error(err))
		} else {
			defer rl.Close()
		}
	}

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		logger.Fatal("provider setup failed", zap.Error(err))
	}

	list, err := thread.NewList(ctx, st, "", logger, nil)
	if err != nil {
		logger.Fatal("session list failed", zap.Error(err))
	}
	defer list.Close()

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		provider: provider,
		list:     list,
		composer: composer.New(nil, nil, logger),
	}
	if err := a.openSession(ctx, list.ActiveID()); err != nil {
		logger.Fatal("open session failed", zap.Error(err))
	}
	defer a.closeSession()

	a.loop(ctx)
}

func openKV(cfg config.Config) (store.KV, error) {
	switch cfg.StoreDriver {
	case "", "sqlite", "mysql":
		return gormkv.Open(cfg.StoreDriver, cfg.DBDSN)
	case "redis":
		return rediskv.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func buildProvider(ctx context.Context, cfg config.Config) (ai.Provider, error) {
	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New(ai.ErrMsgKeyNotSet)
		}
		return ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, model)
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	reg.Register("remote", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewRemoteProvider(cfg.ChatAPIURL), nil
	})

	model := cfg.GeminiModel
	if cfg.AIProvider == "ollama" {
		model = cfg.OllamaModel
	}
	return reg.Get(ctx, cfg.AIProvider, model)
}

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	provider ai.Provider
	list     *thread.List
	composer *composer.Composer

	ctl     *thread.Controller
	printed int
}

// openSession swaps the active controller; any previous one is torn down
// first so its preview references are released.
func (a *app) openSession(ctx context.Context, id string) error {
	a.closeSession()

	ctl, err := thread.Open(ctx, a.store, a.provider, id,
		thread.WithLogger(a.logger),
		thread.WithTokenDelay(a.cfg.StreamDelay),
		thread.WithOnStream(a.printStream),
	)
	if err != nil {
		return err
	}
	a.ctl = ctl
	a.list.Select(ctl.SessionID())

	for _, m := range ctl.Messages() {
		a.printMessage(m)
	}
	return nil
}

func (a *app) closeSession() {
	if a.ctl != nil {
		a.ctl.Close()
		a.ctl = nil
	}
}

func (a *app) printStream(text string) {
	if len(text) > a.printed {
		fmt.Print(text[a.printed:])
		a.printed = len(text)
	}
}

func (a *app) printMessage(m chat.Message) {
	label := "you"
	if m.Role == chat.RoleAssistant {
		label = "ai"
	}
	if m.File != nil {
		fmt.Printf("%s> [%s] %s\n", label, m.File.Name, m.Content)
		return
	}
	fmt.Printf("%s> %s\n", label, m.Content)
}

func (a *app) loop(ctx context.Context) {
	fmt.Println("rgsai chat. Type /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if strings.HasPrefix(line, "/") {
			if quit := a.command(ctx, line); quit {
				return
			}
			continue
		}
		if strings.TrimSpace(line) == "" && a.composer.State() != composer.StateFileAttached {
			continue
		}
		a.send(ctx, line)
	}
}

func (a *app) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		fmt.Println(`/new                start a fresh session
/list               show sessions, newest first
/open <n>           switch to session n from /list
/rename <n> <name>  retitle session n
/delete <n>         delete session n
/archive <n>        archive session n
/attach <path>      stage a file for the next message
/detach             drop the staged file
/quit               exit`)

	case "/new":
		if err := a.openSession(ctx, ""); err != nil {
			fmt.Println("error:", err)
		}

	case "/list":
		if err := a.list.Focus(ctx); err != nil {
			fmt.Println("error:", err)
			return false
		}
		sessions := a.list.Sessions()
		if len(sessions) == 0 {
			fmt.Println("no sessions yet")
			return false
		}
		for i, s := range sessions {
			marker := " "
			if s.ID == a.list.ActiveID() {
				marker = "*"
			}
			fmt.Printf("%s %2d  %-40s  %d messages\n", marker, i+1, s.Title, s.MessageCount)
		}

	case "/open":
		s, ok := a.pick(args)
		if !ok {
			return false
		}
		if err := a.openSession(ctx, s.ID); err != nil {
			fmt.Println("error:", err)
		}

	case "/rename":
		s, ok := a.pick(args)
		if !ok {
			return false
		}
		title := strings.Join(args[1:], " ")
		if err := a.list.Rename(ctx, s.ID, title); err != nil {
			fmt.Println("error:", err)
		}

	case "/delete", "/archive":
		s, ok := a.pick(args)
		if !ok {
			return false
		}
		op := a.list.Delete
		if cmd == "/archive" {
			op = a.list.Archive
		}
		if err := op(ctx, s.ID); err != nil {
			fmt.Println("error:", err)
			return false
		}
		if a.ctl != nil && a.ctl.SessionID() == s.ID {
			if err := a.openSession(ctx, a.list.ActiveID()); err != nil {
				fmt.Println("error:", err)
			}
		}

	case "/attach":
		if len(args) == 0 {
			fmt.Println("usage: /attach <path>")
			return false
		}
		path := strings.Join(args, " ")
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		name := filepath.Base(path)
		if err := a.composer.AttachFile(name, ai.InferMIMEType(name, ""), data); err != nil {
			fmt.Println(a.composer.Err())
			return false
		}
		fmt.Printf("attached %s (%d bytes)\n", name, len(data))

	case "/detach":
		a.composer.RemoveFile()

	case "/quit", "/exit":
		return true

	default:
		fmt.Println("unknown command, try /help")
	}
	return false
}

// pick resolves a 1-based index from the last /list into a session.
func (a *app) pick(args []string) (chat.Session, bool) {
	if len(args) == 0 {
		fmt.Println("which session? run /list first")
		return chat.Session{}, false
	}
	n, err := strconv.Atoi(args[0])
	sessions := a.list.Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		fmt.Println("no such session, run /list")
		return chat.Session{}, false
	}
	return sessions[n-1], true
}

func (a *app) send(ctx context.Context, text string) {
	a.composer.SetText(text)
	out, ok := a.composer.Submit()
	if !ok {
		return
	}

	a.composer.SetDisabled(true)
	defer a.composer.SetDisabled(false)

	fmt.Print("ai> ")
	a.printed = 0
	if err := a.ctl.Send(ctx, out); err != nil {
		fmt.Println("\nerror:", err)
		return
	}

	// A failed collaborator call skips playback and lands the fallback
	// reply directly in the log; print whatever the stream did not.
	msgs := a.ctl.Messages()
	if n := len(msgs); n > 0 && msgs[n-1].Role == chat.RoleAssistant {
		a.printStream(msgs[n-1].Content)
	}
	fmt.Println()
}
