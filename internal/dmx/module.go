/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dmx

import (
	"context"
	"fmt"

	"github.com/lumentrack/console/internal/scheduler"
)

// Module adapts a Renderer to the scheduler.Module interface: the Art-Net
// socket is acquired in Initialize and released in Shutdown, per §9's
// module resource lifecycle. The control loop composes frames directly
// against the Renderer (Core.DMX); this module only owns the socket
// lifecycle and transmit goroutine.
type Module struct {
	renderer *Renderer
}

func NewModule(r *Renderer) *Module {
	return &Module{renderer: r}
}

func (m *Module) ID() scheduler.ModuleID { return scheduler.ModuleDMX }

func (m *Module) Initialize(ctx context.Context) error {
	return m.renderer.Start()
}

func (m *Module) Run(ctx context.Context, commands <-chan scheduler.Command, events chan<- scheduler.Message) {
	<-ctx.Done()
}

func (m *Module) Shutdown(ctx context.Context) error {
	m.renderer.Stop()
	return nil
}

func (m *Module) Status() string {
	return fmt.Sprintf("transmit_rate_hz=%d", m.renderer.CurrentRate())
}
