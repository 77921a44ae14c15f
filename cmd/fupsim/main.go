// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command fupsim runs a logic network simulation and serves its HTTP API.
//
// Usage:
//
//	fupsim [-config path] [-addr :3100] [-project plant.yaml] [-db fupsim.db] [-watch] [-tick 200ms]
//
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/db47h/fupsim"
	"github.com/db47h/fupsim/internal/config"
	"github.com/db47h/fupsim/internal/hub"
	"github.com/db47h/fupsim/internal/project"
	"github.com/db47h/fupsim/internal/server"
	"github.com/db47h/fupsim/internal/store/sqlite"
	"github.com/db47h/fupsim/internal/watcher"
	"github.com/pkg/errors"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file path")
		addr    = flag.String("addr", "", "HTTP listen address (overrides config)")
		prj     = flag.String("project", "", "project file (overrides config)")
		dbPath  = flag.String("db", "", "SQLite database for variable snapshots (overrides config)")
		watch   = flag.Bool("watch", false, "reload the project file when it changes")
		tick    = flag.Duration("tick", 0, "tick period (overrides config)")
	)
	flag.Parse()

	l := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	cfg, path, err := loadConfig(*cfgPath)
	if err != nil {
		l.Fatal(err)
	}
	if path != "" {
		l.Printf("config loaded from %s", path)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *prj != "" {
		cfg.Project = *prj
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *watch {
		cfg.Watch = true
	}
	if *tick > 0 {
		cfg.Tick = config.Duration(*tick)
	}

	if err = run(cfg, l); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(cfg *config.Config, l *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New(l)
	go h.Run(ctx)

	sim := fupsim.NewSim(time.Duration(cfg.Tick),
		fupsim.WithLogger(l),
		fupsim.WithPresets(cfg.Presets),
		fupsim.WithObserver(h.Observe))

	if cfg.Project != "" {
		f, err := project.Load(cfg.Project)
		if err != nil {
			return err
		}
		if err = f.Apply(sim); err != nil {
			return errors.Wrap(err, cfg.Project)
		}
		l.Printf("project %s loaded: %d networks", cfg.Project, len(sim.Networks()))
	}

	var repo *sqlite.Repository
	if cfg.Database != "" {
		var err error
		if repo, err = sqlite.New(cfg.Database); err != nil {
			return err
		}
		defer repo.Close()
		vs, err := repo.LoadVariables(ctx)
		if err != nil {
			return err
		}
		if err = sqlite.Restore(sim, vs); err != nil {
			return err
		}
		l.Printf("%d variables restored from %s", len(vs), cfg.Database)
	}

	if cfg.Watch && cfg.Project != "" {
		w, err := watcher.New(cfg.Project, func() { reload(ctx, sim, h, cfg.Project, l) }, l)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Printf("watcher: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(sim, h, l),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		l.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			l.Printf("HTTP server: %v", err)
			stop()
		}
	}()

	err := sim.Run(ctx)

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		l.Printf("HTTP server shutdown: %v", serr)
	}
	// the loop is stopped, the simulation can be accessed directly.
	if repo != nil {
		if serr := repo.SaveVariables(sctx, sim.Variables()); serr != nil {
			l.Printf("save variables: %v", serr)
		} else {
			l.Printf("variables saved to %s", cfg.Database)
		}
	}
	return err
}

// reload applies the project file at path to sim. A file that cannot be
// applied is rejected and the running networks are kept.
//
func reload(ctx context.Context, sim *fupsim.Sim, h *hub.Hub, path string, l *log.Logger) {
	f, err := project.Load(path)
	if err != nil {
		l.Printf("reload rejected: %v", err)
		return
	}
	err = sim.Do(ctx, func(s *fupsim.Sim) error {
		if err := f.Apply(s); err != nil {
			return err
		}
		h.Broadcast(hub.TypeReload, s.Variables())
		return nil
	})
	if err != nil {
		l.Printf("reload rejected: %v", err)
		return
	}
	l.Printf("project %s reloaded", path)
}
