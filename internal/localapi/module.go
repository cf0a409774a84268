package localapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventMissionUpdated is emitted to the window when a bot changes a mission.
const EventMissionUpdated = "mission:updated"

// Module is the Wails-bound owner of the loopback server.
type Module struct {
	ctx     context.Context
	handler http.Handler
	addr    string
	token   string
	server  *Server
}

// NewModule constructs the module but does not start the listener.
// Call Startup(ctx) from the OnStartup hook.
func NewModule(handler http.Handler, port int, token string) *Module {
	return &Module{
		handler: handler,
		addr:    fmt.Sprintf("127.0.0.1:%d", port),
		token:   token,
	}
}

// Startup stores the Wails context and starts the listener.
func (m *Module) Startup(ctx context.Context) error {
	m.ctx = ctx
	m.server = New(m.handler, m.addr, m.token, func(player string) {
		runtime.EventsEmit(m.ctx, EventMissionUpdated, player)
	})
	return m.server.Start()
}

// Shutdown stops the listener.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Info is what a bot needs to connect.
type Info struct {
	URL          string `json:"url"`
	TokenEnabled bool   `json:"tokenEnabled"`
	Running      bool   `json:"running"`
}

// Info returns the loopback base URL and whether a token is required.
func (m *Module) Info() Info {
	addr := m.addr
	if m.server != nil {
		addr = m.server.Addr()
	}
	u := url.URL{Scheme: "http", Host: addr, Path: "/api/v1"}
	return Info{URL: u.String(), TokenEnabled: m.token != "", Running: m.server != nil}
}
