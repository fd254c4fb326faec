package snapshot

import (
	"fmt"
	"strings"
)

// Limits bounds how much of a page is rendered into a reasoning request.
type Limits struct {
	Elements     int
	Forms        int
	FormElements int
	ElementText  int
	FormText     int
}

func DefaultLimits() Limits {
	return Limits{
		Elements:     20,
		Forms:        10,
		FormElements: 5,
		ElementText:  30,
		FormText:     20,
	}
}

// Describe renders page geometry, interactive elements and forms.
func Describe(m Metadata, lim Limits) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page Information:\nTitle: %s\nURL: %s\n", orUnknown(m.DOM.Title), orUnknown(m.DOM.URL))
	fmt.Fprintf(&b, "Viewport Size: %sx%s\n", dim(m.PageInfo.Viewport.Width), dim(m.PageInfo.Viewport.Height))
	w := m.PageInfo.Window
	fmt.Fprintf(&b, "Window Size: %sx%s\n", dim(w.Width), dim(w.Height))
	fmt.Fprintf(&b, "Scroll Position: (%g, %g)\n", w.ScrollX, w.ScrollY)
	fmt.Fprintf(&b, "Device Pixel Ratio: %s\n", dim(w.DevicePixelRatio))
	b.WriteString(RenderElements(m.DOM.InteractiveElements, lim))
	b.WriteString(RenderForms(m.DOM.Forms, lim))
	return b.String()
}

// RenderElements lists at most lim.Elements entries followed by a marker
// naming how many were left out.
func RenderElements(els []Element, lim Limits) string {
	if len(els) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nInteractive Elements:\n")
	for i, el := range head(els, lim.Elements) {
		fmt.Fprintf(&b, "%d. %s", i+1, el.TagName)
		if el.Type != "" {
			fmt.Fprintf(&b, " type=%q", el.Type)
		}
		if el.ID != "" {
			fmt.Fprintf(&b, " id=%q", el.ID)
		}
		if el.Text != "" {
			fmt.Fprintf(&b, " text=%q", Truncate(el.Text, lim.ElementText))
		}
		fmt.Fprintf(&b, " at position (%d, %d), size %dx%d\n",
			int(el.Position.X), int(el.Position.Y), int(el.Position.Width), int(el.Position.Height))
	}
	if n := len(els) - lim.Elements; lim.Elements > 0 && n > 0 {
		fmt.Fprintf(&b, "... and %d more elements\n", n)
	}
	return b.String()
}

// RenderForms lists forms with at most lim.FormElements children each.
func RenderForms(forms []Form, lim Limits) string {
	if len(forms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nForms:\n")
	for i, f := range head(forms, lim.Forms) {
		fmt.Fprintf(&b, "%d. Form", i+1)
		if f.ID != "" {
			fmt.Fprintf(&b, " id=%q", f.ID)
		}
		if f.Name != "" {
			fmt.Fprintf(&b, " name=%q", f.Name)
		}
		fmt.Fprintf(&b, " with %d elements:\n", len(f.Elements))
		for j, el := range head(f.Elements, lim.FormElements) {
			fmt.Fprintf(&b, "   %d. %s", j+1, el.TagName)
			if el.Type != "" {
				fmt.Fprintf(&b, " type=%q", el.Type)
			}
			if el.Name != "" {
				fmt.Fprintf(&b, " name=%q", el.Name)
			}
			if el.Text != "" {
				fmt.Fprintf(&b, " text=%q", Truncate(el.Text, lim.FormText))
			}
			fmt.Fprintf(&b, " at (%d, %d)\n", int(el.Position.X), int(el.Position.Y))
		}
		if n := len(f.Elements) - lim.FormElements; lim.FormElements > 0 && n > 0 {
			fmt.Fprintf(&b, "   ... and %d more elements\n", n)
		}
		b.WriteString("\n")
	}
	if n := len(forms) - lim.Forms; lim.Forms > 0 && n > 0 {
		fmt.Fprintf(&b, "... and %d more forms\n", n)
	}
	return b.String()
}

// Truncate cuts s to max runes and appends an ellipsis when it did.
// A non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// head returns the first n items; n <= 0 means no cap.
func head[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

func dim(v float64) string {
	if v == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%g", v)
}
