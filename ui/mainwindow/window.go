// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"strings"

	"hwr-pad/internal/app"
	"hwr-pad/internal/config"
	"hwr-pad/internal/surface"
	"hwr-pad/internal/version"
	"hwr-pad/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app        fyne.App
	cfg        *config.Config
	controller *app.Controller

	canvas   *canvas.DrawingCanvas
	result   binding.String
	textArea *widget.Entry

	undoBtn      *widget.Button
	clearBtn     *widget.Button
	clearTextBtn *widget.Button
	copyBtn      *widget.Button

	// Menu items that need state tracking
	mainMenu  *fyne.MainMenu
	undoItem  *fyne.MenuItem
	clearItem *fyne.MenuItem
}

// New creates the main window around an existing controller and the surface
// it drives.
func New(fyneApp fyne.App, cfg *config.Config, ctrl *app.Controller, s *surface.Surface) *MainWindow {
	win := fyneApp.NewWindow(cfg.Window.Title)

	mw := &MainWindow{
		Window:     win,
		app:        fyneApp,
		cfg:        cfg,
		controller: ctrl,
		result:     binding.NewString(),
	}
	_ = mw.result.Set(ctrl.Result())

	mw.canvas = canvas.NewDrawingCanvas(s, ctrl, cfg.Canvas.Width, cfg.Canvas.Height)

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()

	mw.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	// Drawing area
	mw.undoBtn = widget.NewButton("Undo", mw.onUndo)
	mw.clearBtn = widget.NewButton("Clear", mw.onClear)
	mw.clearBtn.Importance = widget.DangerImportance

	drawArea := container.NewVBox(
		widget.NewLabelWithStyle("Draw below:", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewCenter(mw.canvas),
		container.NewCenter(container.NewHBox(mw.undoBtn, mw.clearBtn)),
	)

	// Recognition result
	resultLabel := widget.NewLabelWithData(mw.result)
	resultLabel.Alignment = fyne.TextAlignCenter
	resultLabel.TextStyle = fyne.TextStyle{Bold: true}
	resultCard := widget.NewCard("Recognition Results", "", resultLabel)

	// Accumulated text
	mw.textArea = widget.NewMultiLineEntry()
	mw.textArea.Wrapping = fyne.TextWrapWord
	mw.textArea.SetMinRowsVisible(4)
	mw.textArea.SetText(mw.controller.Text())
	mw.textArea.OnChanged = func(text string) {
		if text != mw.controller.Text() {
			mw.controller.SetText(text)
		}
	}

	mw.clearTextBtn = widget.NewButton("Clear Text", mw.onClearText)
	mw.copyBtn = widget.NewButton("Copy All", mw.onCopyAll)
	mw.copyBtn.Importance = widget.HighImportance

	textCard := widget.NewCard("Final Text", "", container.NewBorder(
		nil, // top
		container.NewHBox(layout.NewSpacer(), mw.clearTextBtn, mw.copyBtn), // bottom
		nil,         // left
		nil,         // right
		mw.textArea, // center
	))

	content := container.NewBorder(
		container.NewVBox(drawArea, resultCard), // top
		nil,      // bottom
		nil,      // left
		nil,      // right
		textCard, // center
	)

	mw.SetContent(container.NewPadded(content))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	quitItem := fyne.NewMenuItem("Quit", func() { mw.app.Quit() })
	quitItem.IsQuit = true
	fileMenu := fyne.NewMenu("File", quitItem)

	mw.undoItem = fyne.NewMenuItem("Undo", mw.onUndo)
	mw.undoItem.Shortcut = undoShortcut
	mw.clearItem = fyne.NewMenuItem("Clear Canvas", mw.onClear)
	mw.clearItem.Shortcut = clearShortcut
	editMenu := fyne.NewMenu("Edit",
		mw.undoItem,
		mw.clearItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy All", mw.onCopyAll),
		fyne.NewMenuItem("Clear Text", mw.onClearText),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.mainMenu = fyne.NewMainMenu(fileMenu, editMenu, helpMenu)
	mw.SetMainMenu(mw.mainMenu)
}

var (
	undoShortcut  = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}
	clearShortcut = &desktop.CustomShortcut{KeyName: fyne.KeyL, Modifier: fyne.KeyModifierControl}
)

// setupShortcuts binds Ctrl+Z and Ctrl+L on the window canvas.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().AddShortcut(undoShortcut, func(fyne.Shortcut) { mw.onUndo() })
	mw.Canvas().AddShortcut(clearShortcut, func(fyne.Shortcut) { mw.onClear() })
}

// setupEventHandlers registers for controller events.
func (mw *MainWindow) setupEventHandlers() {
	mw.controller.On(app.EventResultChanged, func(data interface{}) {
		if msg, ok := data.(string); ok {
			_ = mw.result.Set(msg)
		}
	})

	mw.controller.On(app.EventTextChanged, func(data interface{}) {
		if text, ok := data.(string); ok && text != mw.textArea.Text {
			mw.textArea.SetText(text)
		}
	})

	mw.controller.On(app.EventSurfaceChanged, func(data interface{}) {
		mw.canvas.Refresh()
	})

	mw.controller.On(app.EventStateChanged, func(data interface{}) {
		if state, ok := data.(app.State); ok {
			mw.setBusy(state == app.StateRecognizing)
		}
	})
}

// setBusy disables drawing and canvas actions while a recognition runs.
func (mw *MainWindow) setBusy(busy bool) {
	for _, w := range []fyne.Disableable{mw.canvas, mw.undoBtn, mw.clearBtn} {
		if busy {
			w.Disable()
		} else {
			w.Enable()
		}
	}
	mw.undoItem.Disabled = busy
	mw.clearItem.Disabled = busy
	mw.mainMenu.Refresh()
}

func (mw *MainWindow) onUndo() {
	mw.controller.Undo()
}

func (mw *MainWindow) onClear() {
	mw.controller.Clear()
}

func (mw *MainWindow) onClearText() {
	mw.controller.ClearText()
}

func (mw *MainWindow) onCopyAll() {
	// A nil fyne.Clipboard must stay a nil interface.
	var cb app.Clipboard
	if c := mw.Clipboard(); c != nil {
		cb = c
	}

	if err := mw.controller.CopyText(cb); err != nil {
		dialog.ShowError(fmt.Errorf("could not copy text: %w", err), mw.Window)
		return
	}
	dialog.ShowInformation("Copied", "Text copied to clipboard.", mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		fmt.Sprintf("%s %s\n\n"+
			"Draw a character on the canvas to have it recognized\n"+
			"and appended to the text below.\n\n"+
			"Languages: %s",
			mw.cfg.Window.Title, version.String(), strings.Join(mw.cfg.Model.Languages, ", ")),
		mw.Window)
}
