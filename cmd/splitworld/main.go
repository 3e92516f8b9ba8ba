// Command splitworld runs the simulation headless, optionally sharing it with
// a second instance on the local network and streaming it to spectators.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gekko3d/splitworld"
	"github.com/gekko3d/splitworld/logging"
	"github.com/gekko3d/splitworld/viewer"
)

func main() {
	flag.Parse()

	log := logging.NewDefaultLogger("splitworld", *debugFlag)
	if err := run(log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log *logging.DefaultLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := splitworld.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = splitworld.LoadConfig(*configFlag); err != nil {
			return err
		}
	}

	b := splitworld.NewBuilder().WithConfig(cfg).WithLogger(log)
	if *workersFlag > 0 {
		b.WithThreads(*workersFlag)
	}
	if *presetFlag != "" {
		b.UseModule(splitworld.PresetModule{Path: *presetFlag})
	} else {
		b.UseModule(splitworld.SceneModule{Boxes: *boxesFlag, Triangles: *trianglesFlag, Blobby: *blobbyFlag})
	}
	sim := b.Build()

	switch *roleFlag {
	case "standalone":
	case "host":
		sim.CreateSession()
	case "worker":
		sim.JoinSession()
	default:
		return errors.New("unknown role " + *roleFlag)
	}

	if *configFlag != "" {
		if err := splitworld.WatchConfig(ctx, *configFlag, log.WithPrefix("config"), sim.ApplyConfig); err != nil {
			log.Warnf("config changes will not be picked up: %v", err)
		}
	}

	if *viewerFlag != "" {
		srv := viewer.NewServer(sim, log.WithPrefix("viewer"))
		go srv.Run(ctx)

		httpSrv := &http.Server{Addr: *viewerFlag, Handler: srv.Handler()}
		go func() {
			log.Infof("spectators on ws://%s/ws", *viewerFlag)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("viewer: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
	}

	err := sim.Run(ctx)
	log.Infof("stopped after %d ticks", sim.Time().Ticks())
	return err
}
