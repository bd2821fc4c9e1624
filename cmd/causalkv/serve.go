package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluesky-social/causalkv/internal/group"
	"github.com/bluesky-social/causalkv/keypath"
	"github.com/bluesky-social/causalkv/kvstore"
	"github.com/bluesky-social/causalkv/replication"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	cli "github.com/urfave/cli/v2"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve reads, writes and replication over HTTP",
	Flags: []cli.Flag{
		cacheSizeFlag,
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":4700",
			EnvVars: []string{"CAUSALKV_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":4701",
			EnvVars: []string{"CAUSALKV_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.Default().With("system", "server")

		shutdownTracing, err := configOTEL(cctx.Context, "causalkv")
		if err != nil {
			return err
		}
		defer shutdownTracing()

		e, err := openEnv(cctx)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Close(ctx); err != nil {
				logger.Error("failed to close store", "err", err)
			}
		}()

		srv := NewServer(e.db, logger)

		// first one to return stops the rest
		g := group.New(group.WithContext(cctx.Context))
		g.Add(func(ctx context.Context) error {
			return srv.Run(ctx, cctx.String("bind"))
		})
		g.Add(func(ctx context.Context) error {
			return runMetrics(ctx, cctx.String("metrics-listen"))
		})
		g.Add(func(ctx context.Context) error {
			exitSignals := make(chan os.Signal, 1)
			signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(exitSignals)
			select {
			case sig := <-exitSignals:
				logger.Info("received OS exit signal", "signal", sig)
			case <-ctx.Done():
			}
			return nil
		})
		return g.Wait()
	},
}

type Server struct {
	db     *kvstore.DB
	echo   *echo.Echo
	logger *slog.Logger
}

func NewServer(db *kvstore.DB, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))

	srv := &Server{db: db, echo: e, logger: logger}
	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/kv/:key", srv.HandleGet)
	e.PUT("/kv/:key", srv.HandlePut)
	e.GET("/list", srv.HandleList)
	e.GET("/replicate", srv.HandleReplicate)
	return srv
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// Run serves until ctx is canceled.
func (srv *Server) Run(ctx context.Context, bind string) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.echo.Shutdown(sctx); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
	}()

	srv.logger.Info("starting server", "bind", bind)
	if err := srv.echo.Start(bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runMetrics(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpd := &http.Server{Addr: listen, Handler: mux}

	go func() {
		<-ctx.Done()
		httpd.Close()
	}()
	if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	if !srv.db.Readable() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "closed"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"writable": srv.db.Writable(),
	})
}

func (srv *Server) HandleGet(c echo.Context) error {
	nodes, err := srv.db.Get(c.Request().Context(), c.Param("key"))
	if errors.Is(err, kvstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "key not found")
	}
	if err != nil {
		return err
	}

	out := make([]nodeOut, len(nodes))
	for i, n := range nodes {
		out[i] = nodeOut{Key: n.Key, Value: string(n.Value), Feed: n.Feed, Seq: n.Seq}
	}
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) HandlePut(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	err = srv.db.Put(c.Request().Context(), c.Param("key"), body)
	if errors.Is(err, kvstore.ErrNoWritableLog) {
		return echo.NewHTTPError(http.StatusForbidden, "store has no local writer")
	}
	if errors.Is(err, kvstore.ErrKeyTooLong) || errors.Is(err, kvstore.ErrValueTooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleList(c echo.Context) error {
	prefix, err := keypath.ParsePrefix(c.QueryParam("prefix"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	nodes, err := srv.db.List(c.Request().Context(), prefix)
	if err != nil {
		return err
	}

	out := make([]nodeOut, len(nodes))
	for i, n := range nodes {
		out[i] = nodeOut{Key: n.Key, Value: string(n.Value), Feed: n.Feed, Seq: n.Seq}
	}
	return c.JSON(http.StatusOK, out)
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (srv *Server) HandleReplicate(c echo.Context) error {
	ctx := c.Request().Context()

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	remote := ws.RemoteAddr().String()
	srv.logger.Info("replication connected", "remote", remote)

	s, err := srv.db.Replicate(ctx, replication.Options{Logger: srv.logger.With("remote", remote)})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := replication.Pump(ctx, ws, s); err != nil {
		srv.logger.Warn("replication failed", "remote", remote, "err", err)
		return nil
	}
	srv.logger.Info("replication finished", "remote", remote)
	return nil
}
