// Package main provides the entry point for the handwriting recognition pad.
package main

import (
	"log"

	"hwr-pad/internal/app"
	"hwr-pad/internal/config"
	"hwr-pad/internal/ocr"
	"hwr-pad/internal/preprocess"
	"hwr-pad/internal/surface"
	"hwr-pad/internal/version"
	"hwr-pad/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "io.github.hwrpad"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	path := config.DefaultPath()
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Starting %s %s (config %s)", cfg.Window.Title, version.String(), path)

	// The model is loaded once and shared for the life of the process.
	rec, err := ocr.NewRecognizer(cfg.Model)
	if err != nil {
		log.Fatalf("Failed to initialize recognition model: %v", err)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Printf("Failed to close recognition model: %v", err)
		}
	}()

	s := surface.New(surfaceStyle(cfg.Canvas))
	ctrl := app.NewController(s, preprocess.New(cfg.Preprocess.Padding), rec)
	defer ctrl.Close()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.HandwritingTheme{})

	win := mainwindow.New(fyneApp, cfg, ctrl, s)
	win.CenterOnScreen()
	win.ShowAndRun()

	log.Println("Shutting down")
}

func surfaceStyle(c config.CanvasConfig) surface.Style {
	bg, stroke, guide := c.Colors()
	return surface.Style{
		Background:     bg,
		Stroke:         stroke,
		StrokeWidth:    c.StrokeWidth,
		Guideline:      guide,
		GuidelineWidth: c.GuidelineWidth,
	}
}
