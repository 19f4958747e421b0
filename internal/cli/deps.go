package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"loci/internal/app"
	"loci/internal/credential"
	"loci/internal/rest"
	"loci/internal/session"
	"loci/internal/transport"
	"loci/internal/tui"
)

// deps is the per-invocation dependency bundle commands build from the
// resolved configuration.
type deps struct {
	cfg   app.Config
	log   app.Logger
	creds credential.Store
	api   *rest.Client

	stopMetrics context.CancelFunc
}

func buildDeps() *deps {
	cfg := app.FromViper(viper.GetViper())
	log := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	creds := credential.Store{}

	d := &deps{
		cfg:   cfg,
		log:   log,
		creds: creds,
		api:   rest.NewClient(log, cfg.APIBaseURL, creds),
	}

	if cfg.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		d.stopMetrics = cancel
		go func() {
			if err := app.ServeMetrics(ctx, log, cfg.MetricsAddr); err != nil {
				log.Error("metrics.listener", "err", err)
			}
		}()
	}

	return d
}

func (d *deps) close() {
	if d.stopMetrics != nil {
		d.stopMetrics()
	}
}

func (d *deps) newTransport() *transport.Handle {
	return transport.NewHandle(d.log, d.creds, transport.Options{
		SocketURL:    d.cfg.SocketURL,
		DialTimeout:  d.cfg.DialTimeout,
		WriteTimeout: d.cfg.WriteTimeout,
	})
}

// requireUser resolves the authenticated account, translating a missing or
// rejected credential into a login hint.
func (d *deps) requireUser(ctx context.Context) (rest.User, error) {
	me, err := d.api.Me(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrNoToken) || errors.Is(err, rest.ErrUnauthenticated) {
			return rest.User{}, fmt.Errorf("not logged in; run `loci login`")
		}
		return rest.User{}, err
	}
	return me, nil
}

// runScreens alternates between chat screens: the first screen runs until
// the user exits or taps a private-message alert, which opens the sender's
// chat next.
func (d *deps) runScreens(ctx context.Context, me rest.User, first func(tr session.Transport, reg *session.Registry) (string, error)) error {
	handle := d.newTransport()
	defer handle.Disconnect()

	tr := session.WrapHandle(handle)
	reg := session.NewRegistry(d.log, tr)

	next, err := first(tr, reg)
	for err == nil && next != "" {
		next, err = tui.NewPrivateScreen(d.log, tr, reg, next, me).Run(ctx)
	}
	return err
}
