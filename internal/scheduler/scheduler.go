/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler implements the Module Scheduler: it registers the
// console's asynchronous modules (DMX, Audio, MIDI, SMPTE, DJ, Push2),
// initializes them fail-fast, runs each on its own goroutine, and
// aggregates their Event/Status/Error output onto one channel the control
// loop drains each tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumentrack/console/internal/consoleerr"
)

// ModuleID is the closed set of module identifiers the scheduler manages.
type ModuleID string

const (
	ModuleDMX   ModuleID = "dmx"
	ModuleAudio ModuleID = "audio"
	ModuleMIDI  ModuleID = "midi"
	ModuleSMPTE ModuleID = "smpte"
	ModuleDJ    ModuleID = "dj"
	ModulePush2 ModuleID = "push2"
)

// MessageKind distinguishes the three kinds of output a module can emit.
type MessageKind int

const (
	KindEvent MessageKind = iota
	KindStatus
	KindError
)

// Message is what a module posts to the scheduler's aggregating channel.
type Message struct {
	Module  ModuleID
	Kind    MessageKind
	Name    string
	Payload any
	Err     error
}

// Command is sent from the control loop to a single named module.
type Command struct {
	Name    string
	Payload any
}

// Module is the interface every scheduled module implements.
type Module interface {
	ID() ModuleID
	Initialize(ctx context.Context) error
	Run(ctx context.Context, commands <-chan Command, events chan<- Message)
	Shutdown(ctx context.Context) error
	Status() string
}

type moduleHandle struct {
	module   Module
	commands chan Command
	done     chan struct{}
	optional bool
}

// Scheduler owns the registered modules and their lifecycle.
type Scheduler struct {
	mu      sync.Mutex
	modules []*moduleHandle
	byID    map[ModuleID]*moduleHandle

	events chan Message

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler with an aggregating event channel of the given
// buffer size.
func New(eventBuffer int) *Scheduler {
	if eventBuffer <= 0 {
		eventBuffer = 256
	}
	return &Scheduler{
		byID:   make(map[ModuleID]*moduleHandle),
		events: make(chan Message, eventBuffer),
	}
}

// Register adds a module. optional modules that fail Initialize only log
// (via a KindError message); required modules abort startup.
func (s *Scheduler) Register(m Module, optional bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &moduleHandle{
		module:   m,
		commands: make(chan Command, 32),
		done:     make(chan struct{}),
		optional: optional,
	}
	s.modules = append(s.modules, h)
	s.byID[m.ID()] = h
}

// Events returns the aggregating receiver the control loop drains.
func (s *Scheduler) Events() <-chan Message {
	return s.events
}

// Start initializes every registered module in registration order,
// failing fast on the first required module that errors, then starts
// each module's Run loop on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	modules := append([]*moduleHandle(nil), s.modules...)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, h := range modules {
		if err := h.module.Initialize(runCtx); err != nil {
			if h.optional {
				s.events <- Message{Module: h.module.ID(), Kind: KindError, Err: fmt.Errorf("initialize %s: %w", h.module.ID(), err)}
				continue
			}
			cancel()
			return fmt.Errorf("initialize %s: %w: %w", h.module.ID(), err, consoleerr.ErrModuleInitError)
		}
	}

	for _, h := range modules {
		s.wg.Add(1)
		go func(h *moduleHandle) {
			defer s.wg.Done()
			defer close(h.done)
			h.module.Run(runCtx, h.commands, s.events)
		}(h)
	}

	return nil
}

// SendTo dispatches a single command to the named module. Returns
// consoleerr.ErrNotFound if no such module is registered.
func (s *Scheduler) SendTo(id ModuleID, cmd Command) error {
	s.mu.Lock()
	h, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("module %s: %w", id, consoleerr.ErrNotFound)
	}
	select {
	case h.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("module %s command queue full: %w", id, consoleerr.ErrBusyResource)
	}
}

// Status returns the current status string for every registered module.
func (s *Scheduler) Status() map[ModuleID]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ModuleID]string, len(s.modules))
	for _, h := range s.modules {
		out[h.module.ID()] = h.module.Status()
	}
	return out
}

// Shutdown signals every module, waits up to timeout for all Run loops to
// return, and gives up on stragglers (their goroutines are abandoned; the
// process is expected to exit shortly after).
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	modules := append([]*moduleHandle(nil), s.modules...)
	s.mu.Unlock()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	for _, h := range modules {
		if err := h.module.Shutdown(shutdownCtx); err != nil {
			s.events <- Message{Module: h.module.ID(), Kind: KindError, Err: fmt.Errorf("shutdown %s: %w: %w", h.module.ID(), err, consoleerr.ErrModuleShutdownError)}
		}
	}

	if s.cancel != nil {
		s.cancel()
	}

	doneAll := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(doneAll)
	}()

	select {
	case <-doneAll:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("module shutdown timed out after %s: %w", timeout, consoleerr.ErrModuleShutdownError)
	}
}
