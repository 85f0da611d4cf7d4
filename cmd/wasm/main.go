//go:build js && wasm

package main

import (
	"context"
	"errors"
	"log/slog"
	"syscall/js"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/datasource"
	"github.com/MeKo-Tech/lochistory/internal/leaflet"
	"github.com/MeKo-Tech/lochistory/internal/route"
	"github.com/MeKo-Tech/lochistory/internal/timing"
	"github.com/MeKo-Tech/lochistory/internal/view"
)

// domPage writes the list layer into an element.
type domPage struct {
	el js.Value
}

func (p domPage) SetHTML(html string) {
	p.el.Set("innerHTML", html)
}

func (p domPage) AppendHTML(html string) {
	p.el.Set("innerHTML", p.el.Get("innerHTML").String()+html)
}

// browserHistory pushes fragments without firing hashchange.
type browserHistory struct{}

func (browserHistory) Push(fragment string) {
	js.Global().Get("history").Call("pushState", js.Null(), "", fragment)
}

// currentHash returns the normalized fragment, writing it back to the
// address bar when it differs.
func currentHash() string {
	fragment, rewrite := route.Rewrite(js.Global().Get("location").Get("hash").String())
	if rewrite {
		js.Global().Get("history").Call("replaceState", js.Null(), "", fragment)
	}
	return fragment
}

func main() {
	logger := slog.Default()
	doc := js.Global().Get("document")

	d, err := view.NewDispatcher(view.Config{
		Querier: datasource.New(datasource.Config{
			BaseURL: js.Global().Get("location").Get("origin").String(),
			Logger:  logger,
		}),
		NewMap: func() (view.Map, error) {
			return leaflet.New(leaflet.Config{ContainerID: "map", Logger: logger})
		},
		Page:     domPage{el: doc.Call("getElementById", "app")},
		History:  browserHistory{},
		Location: time.Local,
		Locale:   js.Global().Get("navigator").Get("language").String(),
		Debounce: timing.DefaultDelay,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to start viewer", "error", err)
		return
	}

	// Begin runs inside the event callback; the fetch must not block it.
	navigate := js.FuncOf(func(this js.Value, args []js.Value) any {
		nav, err := d.Begin(currentHash())
		if err != nil {
			logger.Error("Failed to open view", "error", err)
			return nil
		}
		go func() {
			if err := nav.Load(context.Background()); err != nil && !errors.Is(err, view.ErrStale) {
				logger.Error("Failed to load view", "route", nav.Route.Kind.String(), "error", err)
			}
		}()
		return nil
	})

	js.Global().Call("addEventListener", "hashchange", navigate)
	js.Global().Call("addEventListener", "load", navigate)
	if doc.Get("readyState").String() == "complete" {
		navigate.Invoke()
	}

	select {}
}
