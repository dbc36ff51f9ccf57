// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package launcher runs the bot and the keepalive server side by side and
// stops both as soon as either of them ends.
package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediabot/mediabot/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Service is a long-running unit of work.
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

type funcService struct {
	name string
	fn   func(ctx context.Context) error
}

func (f funcService) Name() string                  { return f.name }
func (f funcService) Run(ctx context.Context) error { return f.fn(ctx) }

// Func adapts fn to a Service.
func Func(name string, fn func(ctx context.Context) error) Service {
	return funcService{name: name, fn: fn}
}

// Supervisor runs services concurrently.
type Supervisor struct{}

// Run starts every service and waits for all of them. The first service to
// return, with or without an error, cancels the others. The result is the
// first error other than context.Canceled, or nil.
func (Supervisor) Run(ctx context.Context, services ...Service) error {
	if len(services) == 0 {
		return nil
	}
	log := logging.With("launcher")

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	for _, svc := range services {
		g.Go(func() error {
			log.Info("starting", "service", svc.Name())
			err := svc.Run(runCtx)
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("service failed", "service", svc.Name(), "err", err)
				return fmt.Errorf("%s: %w", svc.Name(), err)
			}
			log.Info("stopped", "service", svc.Name())
			return nil
		})
	}
	return g.Wait()
}
