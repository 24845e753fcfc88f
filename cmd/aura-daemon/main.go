package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"aura/internal/assistant"
	"aura/internal/audio"
	"aura/internal/chat"
	"aura/internal/config"
	"aura/internal/intent"
	"aura/internal/ipc"
	"aura/internal/listen"
	"aura/internal/mail"
	"aura/internal/notify"
	"aura/internal/proxy"
	"aura/internal/store"
	"aura/internal/stt"
	"aura/internal/tts"
	"aura/internal/wiki"
	"aura/pkg/audioconv"
	"aura/pkg/feed"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// speaker adapts the TTS engine to the loop's Notifier.
type speaker struct {
	engine *tts.Engine
}

func (s *speaker) Say(text string) {
	if err := s.engine.Say(text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

// feedEvents forwards loop activity to websocket subscribers.
type feedEvents struct {
	srv *feed.Server
}

func (e *feedEvents) Status(state assistant.State) {
	e.srv.Emit(feed.Event{Kind: feed.KindStatus, Status: state.String()})
}

func (e *feedEvents) Turn(who, text string) {
	e.srv.Emit(feed.Event{Kind: feed.KindTurn, Speaker: who, Text: text})
}

// browserOpener opens URLs on the operator's desktop.
type browserOpener struct{}

func (browserOpener) Open(url string) error { return browser.OpenURL(url) }

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Error("Failed to open store", "dir", cfg.DataDir, "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded store", "dir", cfg.DataDir)

	engine := tts.NewEngine(
		st.Preference("voice_gender", "male"),
		st.Preference("voice_speed", "1.0"),
	)

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: "en"})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	httpClient := http.DefaultClient
	if cfg.ProxyAddr != "" {
		httpClient, err = proxy.NewSocksClient(cfg.ProxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.ProxyAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy", "addr", cfg.ProxyAddr)
	}

	disp := &intent.Dispatcher{
		Summarizer: wiki.NewClient(nil, ""),
		Opener:     browserOpener{},
		Chatter:    chat.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, httpClient),
		Contacts:   cfg.ContactMap(),
		MaxRetries: cfg.EmailMaxRetries,
	}
	if cfg.SMTPHost != "" {
		disp.Mailer = mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	} else {
		log.Warn("SMTP not configured, email commands will fail")
	}

	feedSrv := feed.NewServer()
	mux := http.NewServeMux()
	mux.Handle("/feed", feedSrv)
	httpSrv := &http.Server{Addr: cfg.FeedAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Feed server failed", "err", err)
		}
	}()

	log.Debug("Loaded feed", "addr", cfg.FeedAddr)

	runner := assistant.NewRunner(st, disp,
		&listen.Mic{Rec: rec, STT: whisper},
		&speaker{engine: engine},
		&feedEvents{srv: feedSrv},
		assistant.Config{
			WakeWord:      strings.ToLower(st.Preference("wake_word", "Hey Assistant")),
			WakeWindow:    cfg.WakeWindow,
			CommandWindow: cfg.CommandWindow,
		})

	ctl, err := ipc.StartServer(cfg.SocketPath, func(req ipc.Request) ipc.Response {
		return handle(req, runner, st, whisper, cfg)
	})
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.SocketPath, "err", err)
		os.Exit(1)
	}
	defer ctl.Close()

	runner.Start()
	log.Info("Boot up - successful", "socket", cfg.SocketPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down")
	runner.Stop()
	feedSrv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

func handle(req ipc.Request, runner *assistant.Runner, st *store.Store, whisper *stt.Transcriber, cfg *config.Config) ipc.Response {
	log.Debug("Control request", "cmd", req.Cmd)

	switch req.Cmd {
	case ipc.CmdStart:
		runner.Start()
		return ipc.Response{Status: runner.State().String()}

	case ipc.CmdStop:
		runner.Stop()
		return ipc.Response{Status: runner.State().String()}

	case ipc.CmdStatus:
		return ipc.Response{Status: runner.State().String()}

	case ipc.CmdTrigger:
		if !runner.Running() {
			return ipc.Fail(fmt.Errorf("assistant is not running"))
		}
		if cfg.EarconPath != "" {
			if err := notify.Chime(cfg.EarconPath); err != nil {
				log.Warn("Failed to play earcon", "err", err)
			}
		}
		notify.Banner("Listening...")
		runner.Trigger()
		return ipc.Response{Status: runner.State().String()}

	case ipc.CmdSimulate:
		if req.Text == "" {
			return ipc.Fail(fmt.Errorf("simulate needs command text"))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res := runner.Simulate(ctx, req.Text)
		return ipc.Response{Reply: res.Reply}

	case ipc.CmdSimulateAudio:
		if req.Text == "" {
			return ipc.Fail(fmt.Errorf("simulate-audio needs a file path"))
		}
		reply, err := simulateAudio(runner, whisper, req.Text)
		if err != nil {
			return ipc.Fail(err)
		}
		return ipc.Response{Reply: reply}

	case ipc.CmdHistory:
		limit := req.Limit
		if limit <= 0 {
			limit = -1
		}
		return ipc.Response{Messages: st.History(limit)}

	case ipc.CmdStats:
		return ipc.Response{Stats: st.CommandStats(req.Days)}

	case ipc.CmdPrefGet:
		if req.Key == "" {
			return ipc.Fail(fmt.Errorf("pref-get needs a key"))
		}
		return ipc.Response{Value: st.Preference(req.Key, "")}

	case ipc.CmdPrefSet:
		if req.Key == "" {
			return ipc.Fail(fmt.Errorf("pref-set needs a key"))
		}
		if err := st.SetPreference(req.Key, req.Value); err != nil {
			return ipc.Fail(err)
		}
		// Wake word and voice settings are resolved at boot; a change
		// lands on the next daemon start.
		return ipc.Response{Value: req.Value}

	default:
		log.Warn("Unknown command", "cmd", req.Cmd)
		return ipc.Fail(fmt.Errorf("unknown command %q", req.Cmd))
	}
}

func simulateAudio(runner *assistant.Runner, whisper *stt.Transcriber, path string) (string, error) {
	pcm, err := audioconv.Decode(path)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	text, err := whisper.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no speech recognized in %s", path)
	}

	log.Info("Transcribed", "file", path, "text", text)
	res := runner.Simulate(ctx, text)
	return res.Reply, nil
}
