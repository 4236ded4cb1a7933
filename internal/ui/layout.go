// Package ui declares the controls the browser page renders.
package ui

import "fmt"

const (
	PageTitle = "decimation-dashboard"

	ResolutionMin  = 0.1
	ResolutionMax  = 1.0
	ResolutionStep = 0.1
	// DefaultResolution is the startup value and the reset_resolution target
	DefaultResolution = 0.5

	ActionResetCamera     = "reset_camera"
	ActionResetResolution = "reset_resolution"
)

// Slider binds a range input to a state value
type Slider struct {
	State string  `json:"state"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Value float64 `json:"value"`
}

// Button triggers a named action
type Button struct {
	Action string `json:"action"`
	Icon   string `json:"icon"`
	Label  string `json:"label"`
}

// Layout is the toolbar declaration served at /api/layout
type Layout struct {
	PageTitle string   `json:"pageTitle"`
	Title     string   `json:"title"`
	Slider    Slider   `json:"slider"`
	Buttons   []Button `json:"buttons"`
}

// New builds the toolbar for a base mesh with nPoints points
func New(nPoints int, resolution float64) Layout {
	return Layout{
		PageTitle: PageTitle,
		Title:     Title(nPoints),
		Slider: Slider{
			State: "resolution",
			Min:   ResolutionMin,
			Max:   ResolutionMax,
			Step:  ResolutionStep,
			Value: resolution,
		},
		Buttons: []Button{
			{Action: ActionResetCamera, Icon: "mdi-crop-free", Label: "Reset camera"},
			{Action: ActionResetResolution, Icon: "mdi-undo", Label: "Reset resolution"},
		},
	}
}

func Title(nPoints int) string {
	return fmt.Sprintf("n points = %d", nPoints)
}

// InRange reports whether r is a value the slider can produce
func InRange(r float64) bool {
	const eps = 1e-9
	return r >= ResolutionMin-eps && r <= ResolutionMax+eps
}

// Clamp pins r to the slider range so values InRange tolerates just past
// either end land on the end itself
func Clamp(r float64) float64 {
	return min(max(r, ResolutionMin), ResolutionMax)
}
