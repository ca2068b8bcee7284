package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vpgclub/clubbot/internal/bot"
	"github.com/vpgclub/clubbot/internal/capability"
	"github.com/vpgclub/clubbot/internal/config"
	"github.com/vpgclub/clubbot/internal/dependencies/clock"
	"github.com/vpgclub/clubbot/internal/dialog"
	"github.com/vpgclub/clubbot/internal/platform"
	"github.com/vpgclub/clubbot/internal/services/evaluation"
	"github.com/vpgclub/clubbot/internal/services/memberlog"
	"github.com/vpgclub/clubbot/internal/services/onboarding"
	"github.com/vpgclub/clubbot/internal/services/registration"
	"github.com/vpgclub/clubbot/internal/services/streams"
	"github.com/vpgclub/clubbot/internal/services/ticket"
	"github.com/vpgclub/clubbot/internal/session"
	"github.com/vpgclub/clubbot/internal/storage"
	filestorage "github.com/vpgclub/clubbot/internal/storage/file"
	"github.com/vpgclub/clubbot/internal/storage/memory"
	redisstorage "github.com/vpgclub/clubbot/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage
	Clock   clock.Clock

	Dispatcher *dialog.Dispatcher
	Engine     *dialog.Engine
	Registry   *session.Registry
	Guard      *session.InflightGuard

	Onboarding   *onboarding.Manager
	Memberlog    *memberlog.Logger
	Registration *registration.Manager
	Tickets      *ticket.Manager
	Evaluations  *evaluation.Manager
	Streams      *streams.Notifier

	Bot *bot.Bot
}

// New wires the application from configuration and an already-constructed
// platform client.
func New(cfg *config.Config, client platform.Client, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	caps := newCapabilities(cfg.Roles)

	dispatcher := dialog.NewDispatcher(client, logger)
	engine := dialog.NewEngine(client, dispatcher, logger)
	if cfg.Timing.DialogStepTimeout > 0 {
		engine.SetStepTimeout(cfg.Timing.DialogStepTimeout)
	}
	registry := session.NewRegistry(client)
	guard := session.NewInflightGuard()

	onboardingMgr := onboarding.NewManager(client, store, caps, onboarding.Config{
		RulesChannel:        cfg.Channels.Rules,
		RegistrationChannel: cfg.Channels.Registration,
	}, logger)

	helpChannel := cfg.Channels.Help
	if helpChannel == "" {
		helpChannel = cfg.Channels.TicketCreation
	}
	memberLog := memberlog.NewLogger(client, clk, memberlog.Config{
		ArrivalsChannel:   cfg.Channels.Arrivals,
		DeparturesChannel: cfg.Channels.Departures,
		RulesChannel:      cfg.Channels.Rules,
		RegChannel:        cfg.Channels.Registration,
		HelpChannel:       helpChannel,
		ServerName:        cfg.ServerName,
	}, logger)

	registrationMgr := registration.NewManager(client, store, engine, registry, caps, clk, registration.Config{
		Channel:             cfg.Channels.Registration,
		PresentationChannel: cfg.Channels.Presentation,
		PurgeDelay:          cfg.Timing.PurgeDelay,
	}, logger)

	ticketMgr := ticket.NewManager(client, registry, guard, caps, clk, ticket.Config{
		CreationChannel: cfg.Channels.TicketCreation,
		Category:        cfg.Channels.TicketCategory,
		LogChannel:      cfg.Channels.TicketLog,
		GraceDelay:      cfg.Timing.TicketGraceDelay,
	}, logger)

	evaluationMgr := evaluation.NewManager(client, registry, guard, caps, clk, evaluation.Config{
		Category:   cfg.Channels.EvaluationCategory,
		GraceDelay: cfg.Timing.EvalGraceDelay,
	}, logger)

	streamNotifier := streams.NewNotifier(client, caps, clk, streams.Config{
		AnnounceChannel: cfg.Channels.StreamAnnounce,
		PingRole:        cfg.Roles.StreamPing,
	}, logger)

	b := bot.New(client, dispatcher, bot.Services{
		Onboarding:   onboardingMgr,
		Memberlog:    memberLog,
		Registration: registrationMgr,
		Tickets:      ticketMgr,
		Evaluations:  evaluationMgr,
		Streams:      streamNotifier,
	}, logger)

	return &App{
		Storage:      store,
		Clock:        clk,
		Dispatcher:   dispatcher,
		Engine:       engine,
		Registry:     registry,
		Guard:        guard,
		Onboarding:   onboardingMgr,
		Memberlog:    memberLog,
		Registration: registrationMgr,
		Tickets:      ticketMgr,
		Evaluations:  evaluationMgr,
		Streams:      streamNotifier,
		Bot:          b,
	}, nil
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeFile, "":
		return filestorage.New(cfg.DataDir)
	case StorageTypeRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("storage.redis_url required when storage.type is redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return redisstorage.New(redisCfg)
	default:
		return nil, fmt.Errorf("invalid storage.type %q: must be memory, file or redis", cfg.Type)
	}
}

func newCapabilities(roles config.Roles) *capability.Set {
	caps := capability.NewSet()
	caps.Grant(capability.Admin, roles.Admin)
	caps.Grant(capability.Staff, roles.Staff...)
	caps.Grant(capability.Staff, roles.Admin)
	caps.Grant(capability.Verified, roles.Verified)
	caps.Grant(capability.Newcomer, roles.Newcomer)
	caps.Grant(capability.OnTrial, roles.OnTrial)
	caps.Grant(capability.FullMember, roles.FullMember)
	caps.Grant(capability.Streamer, roles.Streamer)
	return caps
}
