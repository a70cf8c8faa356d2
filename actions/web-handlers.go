package actions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/relloyd/cdsync/stats"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		return nil, fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
	Message      string            `json:"message,omitempty"`
}

type ResponseLatestRun struct {
	Status  WebServerResponse `json:"status"`
	Running bool              `json:"running"`
	Trigger string            `json:"trigger,omitempty"`
	Started *time.Time        `json:"started,omitempty"`
	Run     *pipeline.Summary `json:"run,omitempty"`
}

type ResponseRunStats struct {
	Status  WebServerResponse `json:"status"`
	Running bool              `json:"running"`
	Tables  []stats.Stats     `json:"tables"`
}

// launcher is the part of Server used by the sync handlers.
type launcher interface {
	Launch(trigger string) bool
	State() ServerState
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending.
		}
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay, Message: "shutting down"})
	}
}

func GetHandlerSyncLaunch(log logger.Logger, l launcher) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Launch("http") {
			log.Info("HTTP request to launch a sync while one is running")
			respond(log, w, http.StatusConflict, ResponseSimple{ServerStatus: Error, Message: "a sync is already running"})
			return
		}
		respond(log, w, http.StatusAccepted, ResponseSimple{ServerStatus: Okay, Message: "sync launched"})
	}
}

func GetHandlerLatestRun(log logger.Logger, l launcher) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		st := l.State()
		if st.Latest == nil && !st.Running {
			respond(log, w, http.StatusNotFound, ResponseSimple{ServerStatus: Error, Message: "no sync has run yet"})
			return
		}
		resp := ResponseLatestRun{Status: Okay, Running: st.Running, Run: st.Latest}
		if st.Running {
			resp.Trigger = st.Trigger
			resp.Started = &st.Started
		}
		respond(log, w, http.StatusOK, resp)
	}
}

func GetHandlerLatestRunStats(log logger.Logger, s *Server) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		st := s.State()
		respond(log, w, http.StatusOK, ResponseRunStats{Status: Okay, Running: st.Running, Tables: s.svc.Stats()})
	}
}

func respond(log logger.Logger, w http.ResponseWriter, code int, i interface{}) {
	b, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error("error marshalling response: ", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(b); err != nil {
		log.Error("error writing response: ", err)
	}
}
