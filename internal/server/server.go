// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package server implements the fupsim HTTP API.
//
// All simulation accesses go through Sim.Do, so the simulation loop must be
// running for the API to answer.
//
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/db47h/fupsim"
	"github.com/db47h/fupsim/internal/hub"
	"github.com/db47h/fupsim/internal/project"
	"github.com/pkg/errors"
)

// Server serves the HTTP API of a simulation.
//
type Server struct {
	sim *fupsim.Sim
	hub *hub.Hub
	log *log.Logger
	mux *http.ServeMux
}

// New returns a new Server. h may be nil, in which case no events are sent
// and /events is not served.
//
func New(s *fupsim.Sim, h *hub.Hub, l *log.Logger) *Server {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	srv := &Server{sim: s, hub: h, log: l, mux: http.NewServeMux()}
	srv.mux.HandleFunc("GET /api/status", srv.status)
	srv.mux.HandleFunc("GET /api/variables", srv.listVariables)
	srv.mux.HandleFunc("POST /api/variables", srv.createVariable)
	srv.mux.HandleFunc("PUT /api/variables/{name}", srv.editVariable)
	srv.mux.HandleFunc("DELETE /api/variables/{name}", srv.deleteVariable)
	srv.mux.HandleFunc("PUT /api/variables/{name}/value", srv.setValue)
	srv.mux.HandleFunc("POST /api/variables/{name}/toggle", srv.toggle)
	srv.mux.HandleFunc("GET /api/project", srv.getProject)
	srv.mux.HandleFunc("PUT /api/project", srv.putProject)
	if h != nil {
		srv.mux.Handle("GET /events", h)
	}
	return srv
}

// ServeHTTP implements http.Handler.
//
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, fupsim.ErrUnknownVariable), errors.Is(err, fupsim.ErrUnknownEntity):
		code = http.StatusNotFound
	case errors.Is(err, fupsim.ErrDuplicateName):
		code = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	s.log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	writeJSON(w, code, errorResponse{err.Error()})
}

func (s *Server) decode(r *http.Request, v interface{}) error {
	d := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	d.DisallowUnknownFields()
	return errors.Wrap(d.Decode(v), "decode request")
}

// variablesChanged notifies clients of the new variable list. It must be
// called from the simulation loop.
//
func (s *Server) variablesChanged(sim *fupsim.Sim) {
	if s.hub != nil {
		s.hub.Broadcast(hub.TypeVariables, sim.Variables())
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Frame())
}

func (s *Server) listVariables(w http.ResponseWriter, r *http.Request) {
	var kinds []fupsim.VarKind
	for _, k := range r.URL.Query()["kind"] {
		vk, err := fupsim.ParseVarKind(k)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		kinds = append(kinds, vk)
	}
	var vs []fupsim.Variable
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		vs = sim.Variables(kinds...)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) createVariable(w http.ResponseWriter, r *http.Request) {
	var v fupsim.Variable
	if err := s.decode(r, &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		if err := sim.CreateVariable(v.Name, v.Kind, v.Value); err != nil {
			return err
		}
		s.variablesChanged(sim)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) editVariable(w http.ResponseWriter, r *http.Request) {
	var v fupsim.Variable
	if err := s.decode(r, &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := r.PathValue("name")
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		if err := sim.EditVariable(name, v); err != nil {
			return err
		}
		s.variablesChanged(sim)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVariable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		if err := sim.DeleteVariable(name); err != nil {
			return err
		}
		s.variablesChanged(sim)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setValue sets the value of an input variable: {"value": true}.
//
func (s *Server) setValue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value bool `json:"value"`
	}
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.updateInput(w, r, func(bool) bool { return req.Value })
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.updateInput(w, r, func(v bool) bool { return !v })
}

func (s *Server) updateInput(w http.ResponseWriter, r *http.Request, f func(bool) bool) {
	name := r.PathValue("name")
	var v fupsim.Variable
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		if err := sim.SetInputVariableValue(name, f(sim.VariableValue(name))); err != nil {
			return err
		}
		v, _ = sim.Store().Get(name)
		s.variablesChanged(sim)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	err := s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		return project.Encode(&b, sim)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = b.WriteTo(w)
}

func (s *Server) putProject(w http.ResponseWriter, r *http.Request) {
	f, err := project.Decode(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.sim.Do(r.Context(), func(sim *fupsim.Sim) error {
		if err := f.Apply(sim); err != nil {
			return err
		}
		if s.hub != nil {
			s.hub.Broadcast(hub.TypeReload, sim.Variables())
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
