package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/galactic-survival/bindings"
	"github.com/MJE43/galactic-survival/internal/app"
	"github.com/MJE43/galactic-survival/internal/config"
	"github.com/MJE43/galactic-survival/internal/localapi"
)

const (
	appConfigDirName = "galactic-survival"
	gameDBName       = "galactic.db"
	repoURL          = "https://github.com/MJE43/galactic-survival"
)

var (
	appCtx   context.Context
	appCtxMu sync.RWMutex
)

// buildWindowsOptions configures Windows-specific application settings
func buildWindowsOptions() *windows.Options {
	return &windows.Options{
		BackdropType: windows.Mica,
		Theme:        windows.Dark,

		CustomTheme: &windows.ThemeSettings{
			// Matches the page background
			DarkModeTitleBar:  windows.RGB(11, 16, 32),
			DarkModeTitleText: windows.RGB(226, 232, 240),
			DarkModeBorder:    windows.RGB(30, 41, 59),
		},

		WebviewIsTransparent: false,
		WindowIsTranslucent:  false,
		IsZoomControlEnabled: false,
		ZoomFactor:           1.0,
		WindowClassName:      "GalacticSurvivalWindow",

		OnSuspend: func() {
			log.Println("Windows entering low power mode")
		},
		OnResume: func() {
			log.Println("Windows resuming from low power mode")
		},
	}
}

// buildMacOptions configures macOS-specific application settings
func buildMacOptions() *mac.Options {
	return &mac.Options{
		TitleBar: &mac.TitleBar{
			TitlebarAppearsTransparent: true,
			HideTitle:                  false,
			FullSizeContent:            false,
			HideToolbarSeparator:       true,
		},
		Appearance: mac.NSAppearanceNameDarkAqua,
		About: &mac.AboutInfo{
			Title: "Galactic Survival",
			Message: "Mine, rest, travel and trade your way across the galaxy.\n\n" +
				"Missions are stored locally in " + gameDBName + ".",
		},
	}
}

// buildLinuxOptions configures Linux-specific application settings
func buildLinuxOptions() *linux.Options {
	return &linux.Options{
		WindowIsTranslucent: false,
		WebviewGpuPolicy:    linux.WebviewGpuPolicyOnDemand,
		ProgramName:         "galactic-survival",
	}
}

func main() {
	log.Printf("Starting Galactic Survival (Go %s)...", runtime.Version())

	cfg, err := desktopConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	game, err := app.Open(context.Background(), cfg, app.Options{})
	if err != nil {
		log.Fatalf("open game: %v", err)
	}
	desktop := bindings.New(game, bindings.RuntimeEmitter{})
	routes := game.Server().Routes()
	bots := localapi.NewModule(routes, cfg.LocalAPIPort, cfg.LocalAPIToken)

	startup := func(ctx context.Context) {
		desktop.Startup(ctx)
		setAppContext(ctx)

		if cfg.LocalAPIPort == 0 {
			return
		}
		if err := bots.Startup(ctx); err != nil {
			log.Printf("local API failed to start: %v", err)
		} else {
			info := bots.Info()
			log.Printf("Local API ready at %s (token enabled: %v)", info.URL, info.TokenEnabled)
		}
	}

	beforeClose := func(ctx context.Context) (prevent bool) {
		desktop.Shutdown()
		if err := bots.Shutdown(ctx); err != nil {
			log.Printf("local API shutdown error: %v", err)
		}
		setAppContext(nil)
		log.Println("Application is closing")
		return false
	}

	if err := wails.Run(&options.App{
		Title:            "Galactic Survival",
		Width:            1100,
		Height:           780,
		MinWidth:         800,
		MinHeight:        600,
		WindowStartState: options.Normal,
		BackgroundColour: &options.RGBA{R: 11, G: 16, B: 32, A: 255},

		// The game page is server-rendered; every request goes to the router.
		AssetServer: &assetserver.Options{
			Handler: routes,
		},

		OnStartup:     startup,
		OnBeforeClose: beforeClose,
		OnShutdown: func(ctx context.Context) {
			if err := game.Close(); err != nil {
				log.Printf("close game: %v", err)
			}
			log.Println("Application shutdown complete")
		},

		Menu: buildAppMenu(),
		Bind: []interface{}{desktop, bots},

		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		EnableDefaultContextMenu: false,

		ErrorFormatter: func(err error) any {
			if err == nil {
				return nil
			}
			return err.Error()
		},

		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "5b7f0c2e-31d4-4a8e-9c55-galactic-survival",
			OnSecondInstanceLaunch: func(data options.SecondInstanceData) {
				log.Printf("Second instance launch prevented. Args: %v", data.Args)
			},
		},

		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     false,
			DisableWebViewDrop: true,
		},

		Windows: buildWindowsOptions(),
		Mac:     buildMacOptions(),
		Linux:   buildLinuxOptions(),
	}); err != nil {
		log.Printf("Error running Wails app: %v", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	log.Println("Application exited normally")
}

// desktopConfig reads the environment and keeps the SQLite files in the
// user's data directory unless a path was given explicitly.
func desktopConfig() (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	base := appDataDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		log.Printf("appdata mkdir failed: %v; using working directory", err)
		base = "."
	}
	if _, ok := os.LookupEnv("GALACTIC_SQLITE_PATH"); !ok {
		cfg.SQLitePath = filepath.Join(base, gameDBName)
	}
	if _, ok := os.LookupEnv("GALACTIC_JOURNAL_PATH"); !ok {
		cfg.JournalPath = filepath.Join(base, "galactic-journal.db")
	}
	return cfg, cfg.Validate()
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}

func buildAppMenu() *menu.Menu {
	rootMenu := menu.NewMenu()

	if runtime.GOOS == "darwin" {
		if appMenu := menu.AppMenu(); appMenu != nil {
			rootMenu.Append(appMenu)
		}
	}

	fileMenu := menu.NewMenu()
	fileMenu.AddText("Open Data Directory", keys.CmdOrCtrl("o"), func(_ *menu.CallbackData) {
		withAppContext(func(ctx context.Context) {
			openPathInExplorer(ctx, appDataDir())
		})
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		withAppContext(func(ctx context.Context) {
			wruntime.Quit(ctx)
		})
	})
	rootMenu.Append(menu.SubMenu("File", fileMenu))

	viewMenu := menu.NewMenu()
	viewMenu.AddText("Reload", keys.CmdOrCtrl("r"), func(_ *menu.CallbackData) {
		withAppContext(func(ctx context.Context) {
			wruntime.WindowReloadApp(ctx)
		})
	})
	viewMenu.AddText("Toggle Fullscreen", keys.Combo("f", keys.CmdOrCtrlKey, keys.ShiftKey), func(_ *menu.CallbackData) {
		withAppContext(func(ctx context.Context) {
			toggleFullscreen(ctx)
		})
	})
	rootMenu.Append(menu.SubMenu("View", viewMenu))

	helpMenu := menu.NewMenu()
	helpMenu.AddText("Project Repository", nil, func(_ *menu.CallbackData) {
		withAppContext(func(ctx context.Context) {
			wruntime.BrowserOpenURL(ctx, repoURL)
		})
	})
	rootMenu.Append(menu.SubMenu("Help", helpMenu))

	return rootMenu
}

func openPathInExplorer(ctx context.Context, path string) {
	if path == "" {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Printf("resolve path %s failed: %v", path, err)
		abs = path
	}
	wruntime.BrowserOpenURL(ctx, fileURI(abs))
}

func fileURI(path string) string {
	clean := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(clean) > 0 && clean[0] != '/' {
		clean = "/" + clean
	}
	u := url.URL{Scheme: "file", Path: clean}
	return u.String()
}

func toggleFullscreen(ctx context.Context) {
	if wruntime.WindowIsFullscreen(ctx) {
		wruntime.WindowUnfullscreen(ctx)
		return
	}
	wruntime.WindowFullscreen(ctx)
}

func setAppContext(ctx context.Context) {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()
	appCtx = ctx
}

func withAppContext(action func(context.Context)) {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()
	if ctx == nil {
		log.Println("application context not initialised; ignoring menu action")
		return
	}
	action(ctx)
}
