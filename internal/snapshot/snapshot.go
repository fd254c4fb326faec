package snapshot

import (
	"context"
	"strings"
	"time"
)

// Fallback geometry used when the page cannot report its own.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultPixelRatio     = 1
	unknown               = "Unknown"
)

// Position is an element's bounding box; X/Y are the center point.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// Element describes an interactive node.
type Element struct {
	TagName     string   `json:"tagName"`
	ID          string   `json:"id"`
	ClassName   string   `json:"className"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Value       string   `json:"value"`
	Placeholder string   `json:"placeholder"`
	Href        string   `json:"href"`
	AriaLabel   string   `json:"ariaLabel"`
	Text        string   `json:"text"`
	IsVisible   bool     `json:"isVisible"`
	Position    Position `json:"position"`
}

type Form struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Action   string    `json:"action"`
	Method   string    `json:"method"`
	Elements []Element `json:"elements"`
}

// DOMData is the structured part of a capture.
type DOMData struct {
	Title               string    `json:"title"`
	URL                 string    `json:"url"`
	InteractiveElements []Element `json:"interactiveElements"`
	Forms               []Form    `json:"forms"`
	VisibleText         string    `json:"visibleText"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Window struct {
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	ScrollX          float64 `json:"scrollX"`
	ScrollY          float64 `json:"scrollY"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

type PageInfo struct {
	Viewport  Size   `json:"viewport"`
	Window    Window `json:"window"`
	Timestamp int64  `json:"timestamp"`
}

// Metadata is persisted next to every screenshot.
type Metadata struct {
	PageInfo  PageInfo `json:"page_info"`
	DOM       DOMData  `json:"dom_data"`
	Timestamp int64    `json:"timestamp"`
}

// Observation references one captured page state. It is a value: once
// produced it is never mutated.
type Observation struct {
	ImagePath string
	Meta      *Metadata
}

// IsZero reports whether the observation carries no capture at all.
func (o Observation) IsZero() bool {
	return o.ImagePath == "" && o.Meta == nil
}

// MetadataPath is the sibling metadata file of the screenshot.
func (o Observation) MetadataPath() string {
	return MetadataPath(o.ImagePath)
}

// MetadataPath maps an image path to its metadata file.
func MetadataPath(imagePath string) string {
	if strings.HasSuffix(imagePath, ".png") {
		return strings.TrimSuffix(imagePath, ".png") + ".json"
	}
	return imagePath + ".json"
}

func DefaultViewport() Size {
	return Size{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
}

func DefaultWindow() Window {
	return Window{
		Width:            DefaultViewportWidth,
		Height:           DefaultViewportHeight,
		DevicePixelRatio: DefaultPixelRatio,
	}
}

func DefaultPageInfo(now time.Time) PageInfo {
	return PageInfo{Viewport: DefaultViewport(), Window: DefaultWindow(), Timestamp: now.Unix()}
}

func DefaultDOM() DOMData {
	return DOMData{Title: unknown, URL: unknown}
}

// DefaultMetadata is what a capture reports when nothing but the image is available.
func DefaultMetadata(now time.Time) *Metadata {
	return &Metadata{PageInfo: DefaultPageInfo(now), DOM: DefaultDOM(), Timestamp: now.Unix()}
}

// WithDeadline shortens context to avoid long capture waits.
func WithDeadline(ctx context.Context, dur time.Duration) (context.Context, context.CancelFunc) {
	if dur <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, dur)
}
