package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/helper"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/relloyd/cdsync/stats"
	"github.com/robfig/cron/v3"
)

// SyncService runs syncs and reports the table stats of the current or last run.
type SyncService interface {
	SyncRunner
	Stats() []stats.Stats
}

type WebServerConfig struct {
	Addr     net.IP `errorTxt:"address" mandatory:"no"`
	Port     int    `errorTxt:"port" mandatory:"yes"`
	Schedule string `errorTxt:"cron schedule" mandatory:"no"` // standard 5 field cron expression.
}

// Server serves the sync HTTP API and runs at most one sync at a time.
type Server struct {
	log      logger.Logger
	svc      SyncService
	ctx      context.Context // parent of every run started by the server.
	cancel   context.CancelFunc
	chanStop chan string
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	trigger  string
	started  time.Time
	latest   *pipeline.Summary
}

// NewServer returns a Server that launches runs on svc.
func NewServer(log logger.Logger, svc SyncService) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{log: log, svc: svc, ctx: ctx, cancel: cancel, chanStop: make(chan string, 1)}
}

// Handler returns the router of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(s.log))
	r.Path("/sync").Methods(http.MethodPost).HandlerFunc(GetHandlerSyncLaunch(s.log, s))
	r.Path("/runs/latest").Methods(http.MethodGet).HandlerFunc(GetHandlerLatestRun(s.log, s))
	r.Path("/runs/latest/stats").Methods(http.MethodGet).HandlerFunc(GetHandlerLatestRunStats(s.log, s))
	r.Path("/stop").Methods(http.MethodPost).HandlerFunc(GetHandlerStopServer(s.log, s.chanStop))
	return r
}

// Launch starts a sync in the background unless one is already running.
// It returns false when busy.
func (s *Server) Launch(trigger string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.ctx.Err() != nil {
		return false
	}
	s.running = true
	s.trigger = trigger
	s.started = time.Now()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("sync launched by ", trigger)
		sum := s.svc.Run(s.ctx)
		s.mu.Lock()
		s.running = false
		s.latest = sum
		s.mu.Unlock()
	}()
	return true
}

// ServerState describes what the server is doing.
type ServerState struct {
	Running bool
	Trigger string
	Started time.Time
	Latest  *pipeline.Summary
}

// State returns a snapshot of the run state.
func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServerState{Running: s.running, Trigger: s.trigger, Started: s.started, Latest: s.latest}
}

// Stop cancels any running sync and waits up to timeout for it to return.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.Errorf("sync still running after %v", timeout)
	}
}

// RunWebServer serves the sync API until SIGINT, SIGTERM or POST /stop.
func RunWebServer(log logger.Logger, svc SyncService, web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	s := NewServer(log, svc)
	var c *cron.Cron
	if web.Schedule != "" {
		var err error
		if c, err = s.schedule(web.Schedule); err != nil {
			return err
		}
		c.Start()
	}
	srv := s.runServer(web)
	return s.waitForServer(srv, c)
}

// schedule returns a cron scheduler that launches a sync per tick of expr.
func (s *Server) schedule(expr string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if !s.Launch("schedule") {
			s.log.Warn("scheduled sync skipped: a sync is already running")
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cron schedule %q", expr)
	}
	s.log.Info("syncs scheduled with ", expr)
	return c, nil
}

func (s *Server) runServer(web *WebServerConfig) *http.Server {
	addr := ""
	if web.Addr != nil {
		addr = web.Addr.String()
	}
	srv := &http.Server{
		Addr:         net.JoinHostPort(addr, fmt.Sprint(web.Port)),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      s.Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				s.log.Info(err)
			} else {
				s.log.Error(err)
				s.chanStop <- "listen failed"
			}
		}
	}()
	s.log.Info("Listening on http://", srv.Addr)
	return srv
}

func (s *Server) waitForServer(srv *http.Server, c *cron.Cron) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(chanOS)
	select {
	case <-s.chanStop:
	case <-chanOS:
	}
	s.log.Info("Shutting down web server...")
	if c != nil {
		<-c.Stop().Done()
	}
	wait := time.Second * constants.DefaultShutdownTimeoutSecond
	if err := s.Stop(wait); err != nil {
		s.log.Warn(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	return srv.Shutdown(ctx)
}
