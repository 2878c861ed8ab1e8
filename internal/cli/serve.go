package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitpact/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address. Overrides server.addr."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	opts := server.Options{Addr: c.Addr, Today: ctx.today}
	if ctx.Config != nil {
		if opts.Addr == "" {
			opts.Addr = ctx.Config.Server.Addr
		}
		opts.RequestTimeout = ctx.Config.Server.RequestTimeout
		opts.RolloverAttempts = ctx.Config.Rollover.MaxAttempts
		opts.RolloverDelay = ctx.Config.Rollover.RetryDelay
	}

	srv := server.New(ctx.Engine, opts)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.printf("Serving habitpact API on %s\n", opts.Addr)
	return srv.Start(sigCtx)
}
