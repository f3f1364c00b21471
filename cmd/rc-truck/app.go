package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cyrilix/robocar-truck/pkg/controls"
	"github.com/cyrilix/robocar-truck/pkg/dashboard"
	"github.com/cyrilix/robocar-truck/pkg/events"
	"github.com/cyrilix/robocar-truck/pkg/gateway"
	"github.com/cyrilix/robocar-truck/pkg/recorder"
	"github.com/cyrilix/robocar-truck/pkg/truck"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const plotSize = 800

type recordOutput struct {
	db   string
	json string
	png  string
}

func newApp() *app {
	return &app{stopped: make(chan struct{})}
}

// app groups the parts of the service, optional ones are nil.
type app struct {
	sim        *truck.Simulation
	controller *controls.Controller
	gateway    *gateway.Gateway
	publisher  *events.StatePublisher
	dashboard  *dashboard.Server
	recorder   *recorder.Recorder
	output     recordOutput

	stopOnce sync.Once
	stopped  chan struct{}
}

func (a *app) Start() error {
	if a.publisher != nil {
		a.publisher.Start()
	}

	var g errgroup.Group
	run := func(start func() error) {
		g.Go(func() error {
			if err := start(); err != nil {
				a.Stop()
				return err
			}
			return nil
		})
	}
	if a.gateway != nil {
		run(a.gateway.Start)
	}
	if a.dashboard != nil {
		run(a.dashboard.Start)
	}
	run(a.sim.Start)

	err := g.Wait()
	// recorded path is written by Stop
	<-a.stopped
	return err
}

func (a *app) Stop() {
	a.stopOnce.Do(func() {
		defer close(a.stopped)
		a.controller.Stop()
		a.sim.Stop()
		if a.gateway != nil {
			a.gateway.Stop()
		}
		if a.dashboard != nil {
			a.dashboard.Stop()
		}
		if a.publisher != nil {
			a.publisher.Stop()
		}
		if a.recorder != nil {
			a.recorder.StopRecording()
			if err := a.saveRecord(a.recorder.Path()); err != nil {
				zap.S().Errorf("unable to save recorded path: %v", err)
			}
		}
	})
}

func (a *app) saveRecord(p recorder.Path) error {
	if len(p.Samples) == 0 {
		zap.S().Warnf("nothing recorded for path %q", p.Name)
		return nil
	}

	if a.output.json != "" {
		if err := writeFile(a.output.json, p.WriteJSON); err != nil {
			return err
		}
	}
	if a.output.png != "" {
		err := writeFile(a.output.png, func(w io.Writer) error { return recorder.WritePNG(w, p, plotSize) })
		if err != nil {
			return err
		}
	}
	if a.output.db != "" {
		store, err := recorder.NewStore(a.output.db)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				zap.S().Warnf("unable to close path store: %v", err)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create %v: %w", name, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to close %v: %w", name, err)
	}
	zap.S().Infof("%v written", name)
	return nil
}
