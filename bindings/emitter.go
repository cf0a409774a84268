package bindings

import (
	"context"

	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// RuntimeEmitter sends events through the Wails runtime. The context must
// be the one Wails passed to OnStartup.
type RuntimeEmitter struct{}

func (RuntimeEmitter) Emit(ctx context.Context, name string, data ...interface{}) {
	wruntime.EventsEmit(ctx, name, data...)
}
