package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// wailsClipboard adapts the Wails runtime clipboard to the SystemClipboard
// port. Payloads ride on the text clipboard under the private format
// identifier; the manager never touches foreign text.
type wailsClipboard struct {
	app *App
}

func (c *wailsClipboard) SetText(text string) error {
	return wailsRuntime.ClipboardSetText(c.app.ctx, text)
}

func (c *wailsClipboard) GetText() (string, error) {
	return wailsRuntime.ClipboardGetText(c.app.ctx)
}
