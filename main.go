package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"extmedia/internal/adapter/playerctl"
	"extmedia/internal/bridge"
	"extmedia/internal/emp"
	"extmedia/internal/store"
)

var (
	colorFlag  string
	playerFlag string
	bridgeFlag string
	debugFlag  bool
)

func init() {
	flag.StringVar(&colorFlag, "color", "", "Set the desired color (name or hex)")
	flag.StringVar(&colorFlag, "c", "", "Set the desired color (shorthand)")
	flag.StringVar(&playerFlag, "player", "", "Preferred media player (e.g. spotify, Music)")
	flag.StringVar(&bridgeFlag, "bridge", "", "Serve the directive bridge on this address")
	flag.BoolVar(&debugFlag, "debug", false, "Log at debug level")
}

func main() {
	flag.Parse()
	initConfig()

	cfg := config.Get()
	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Errorw("exit", "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the agent to its collaborators and serves until the console quits
func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *store.DB
	if cfg.Store.Path != "" {
		var err error
		if db, err = store.Open(cfg.Store.Path); err != nil {
			return err
		}
		defer db.Close()
	}

	var srv *bridge.Server
	if cfg.Bridge.Enabled {
		srv = bridge.NewServer()
	}

	focus := &desktopFocus{}
	agent := emp.New(agentConfig(cfg, db, srv, focus))
	focus.setListener(agent)
	if srv != nil {
		srv.SetHandler(agent)
	}

	watcher := newStateWatcher()
	if err := agent.AddObserver("console", watcher); err != nil {
		return err
	}

	var poller *playerctl.Poller
	if cfg.Player.Enabled {
		var err error
		if poller, err = startPlayer(ctx, cfg, agent, db); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Bridge.Addr)
		})
	}
	if poller != nil {
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	m := newModel(agent, watcher)
	m.ducker = focus.duck
	if srv != nil {
		m.clients = srv.Clients
	}
	quit, cancel := context.WithCancel(gctx)
	g.Go(func() error {
		defer cancel()
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(quit)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	// Quitting the console stops everything else
	g.Go(func() error {
		<-quit.Done()
		stop()
		return nil
	})

	err := g.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if serr := agent.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}

func agentConfig(cfg Config, db *store.DB, srv *bridge.Server, focus emp.FocusManager) emp.Config {
	c := emp.Config{
		AgentID:      cfg.Agent.ID,
		FocusManager: focus,
	}
	if db != nil {
		c.Store = db
	}
	if srv != nil {
		c.MessageSender = srv
		c.ExceptionSender = srv
		c.ContextManager = srv
	}
	return c
}

// startPlayer registers the desktop player, reports it for authorization,
// replays stored authorizations and puts it in focus
func startPlayer(ctx context.Context, cfg Config, agent *emp.Agent, db *store.DB) (*playerctl.Poller, error) {
	ctl := playerctl.NewController(cfg.Player.Name)
	id := cfg.Player.ID

	if err := agent.RegisterAdapter(id, playerctl.NewAdapter(id, ctl)); err != nil {
		return nil, err
	}
	if err := agent.ReportDiscoveredPlayers([]emp.DiscoveredPlayer{{
		LocalPlayerID:    id,
		SPIVersion:       emp.SPIVersion,
		ValidationMethod: "NONE",
	}}); err != nil {
		return nil, err
	}
	if db != nil {
		if err := db.Restore(ctx, agent); err != nil {
			return nil, err
		}
	}
	if err := agent.SetPlayerInFocus(id); err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.Timing.DataFetchMs) * time.Millisecond
	return playerctl.NewPoller(id, ctl, agent, interval), nil
}
