package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/go-mclib/pingapi/pkg/animation"
	"github.com/go-mclib/pingapi/pkg/config"
	"github.com/go-mclib/pingapi/pkg/listeners"
	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/server"
	"github.com/go-mclib/pingapi/pkg/status"
)

// App wires the status server, its listeners and the console together.
type App struct {
	Config    config.Config
	Logger    *log.Logger
	Server    *server.Server
	Registry  *ping.Registry
	Scheduler *animation.Scheduler

	Static   *listeners.Static
	Pong     *listeners.PongBlocker
	Animator *listeners.Animator
	players  *listeners.Players
	notifier *listeners.Notifier

	icon  reply.Icon
	redis *redis.Client
	nats  *nats.Conn

	mu   sync.Mutex
	stop context.CancelFunc
}

func NewApp(cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  ping.NewRegistry(),
		Scheduler: animation.NewScheduler(),
		Static:    &listeners.Static{},
		Pong:      listeners.NewPongBlocker(cfg.CancelPong),
	}

	if cfg.Status.FaviconPath != "" {
		icon, err := reply.LoadIcon(cfg.Status.FaviconPath)
		if err != nil {
			return nil, fmt.Errorf("favicon %s: %w", cfg.Status.FaviconPath, err)
		}
		a.icon = icon
	}

	anim := cfg.Animation
	a.Animator = listeners.NewAnimator(a.Scheduler, anim.Steps, anim.PeriodTicks, anim.MOTDFrames, anim.ProtocolFrames)
	a.Animator.SetEnabled(anim.Enabled)

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.players = &listeners.Players{
			Store:      listeners.NewRedisStore(a.redis, cfg.Redis.OnlineKey, cfg.Redis.SampleKey),
			SampleSize: cfg.Redis.SampleSize,
			Timeout:    cfg.Redis.Timeout,
		}
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("pingapi-server"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect nats %s: %w", cfg.NATS.URL, err)
		}
		a.nats = nc
		a.notifier = listeners.NewNotifier(nc, cfg.NATS.Subject, logger)
	}

	// Editors first, then the animator so frames start from the edited reply,
	// then the notifier so it reports the final decision.
	if a.players != nil {
		a.Registry.Register(a.players)
	}
	a.Registry.Register(a.Static)
	a.Registry.Register(a.Pong)
	a.Registry.Register(a.Animator)
	if a.notifier != nil {
		a.Registry.Register(a.notifier)
	}

	a.Server = server.New(cfg.ListenAddr, a.Registry, a.status)
	a.Server.ReadTimeout = cfg.ReadTimeout
	a.Server.WriteTimeout = cfg.WriteTimeout
	a.SetLogger(logger)
	return a, nil
}

// SetLogger points every component at l.
func (a *App) SetLogger(l *log.Logger) {
	a.Logger = l
	a.Scheduler.Logger = l
	a.Animator.Logger = l
	if a.Server != nil {
		a.Server.Logger = l
	}
	if a.players != nil {
		a.players.Logger = l
	}
	if a.notifier != nil {
		a.notifier.Logger = l
	}
}

// status builds the configured response for a handshake.
func (a *App) status(hs status.Handshake) *reply.Reply {
	st := a.Config.Status
	r := reply.New(nil)
	r.SetMOTD(reply.TranslateColorCodes('&', st.MOTD))
	r.SetOnlinePlayers(st.OnlinePlayers)
	r.SetMaxPlayers(st.MaxPlayers)
	protocol := st.Protocol
	if protocol == 0 {
		protocol = int(hs.ProtocolVersion)
	}
	r.SetProtocolVersion(protocol)
	r.SetProtocolName(st.VersionName)
	r.SetPlayerSample(st.Sample)
	r.SetIcon(a.icon)
	return r
}

// Run serves until ctx is done or Shutdown is called.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.stop = cancel
	a.mu.Unlock()
	defer cancel()
	defer a.Scheduler.StopAll()

	err := a.Server.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the redis and nats connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Printf("close redis: %v", err)
		}
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.Logger.Printf("drain nats: %v", err)
			a.nats.Close()
		}
	}
}

func (a *App) Title() string {
	return fmt.Sprintf("PingAPI - %s", a.Config.ListenAddr)
}

func (a *App) MaxLogLines() int { return a.Config.MaxLogLines }

func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		a.stop()
	}
}

func (a *App) Execute(line string) (string, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/motd":
		if arg == "" {
			return "", errors.New("usage: /motd <text>")
		}
		a.Static.SetMOTD(arg)
		return "motd set", nil

	case "/max":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return "", errors.New("usage: /max <n>")
		}
		a.Static.SetMaxPlayers(n)
		return fmt.Sprintf("max players set to %d", n), nil

	case "/animate":
		switch arg {
		case "on":
			a.Animator.SetEnabled(true)
		case "off":
			a.Animator.SetEnabled(false)
			a.Scheduler.StopAll()
		default:
			return "", errors.New("usage: /animate on|off")
		}
		return "animation " + arg, nil

	case "/pong":
		switch arg {
		case "block":
			a.Pong.SetEnabled(true)
		case "allow":
			a.Pong.SetEnabled(false)
		default:
			return "", errors.New("usage: /pong block|allow")
		}
		return "pong " + arg, nil

	case "/reset":
		a.Static.Reset()
		return "overrides cleared", nil

	case "/stats":
		st := a.Server.Stats()
		return fmt.Sprintf("active=%d served=%d rejected=%d animations=%d",
			st.Active, st.Served, st.Rejected, a.Scheduler.Running()), nil

	case "/stop":
		a.Shutdown()
		return "stopping", nil
	}
	return "", fmt.Errorf("unknown command %q", name)
}
