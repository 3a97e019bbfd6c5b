package render

const (
	DefaultRouteColor = "#3388ff"

	customerColor         = "#ff5555"
	customerSelectedColor = "#ff0000"

	selectedZIndex = 1000
)

// AgentStyle is the pulsing dot drawn for an agent in its route colour.
func AgentStyle(routeColor string, selected bool) MarkerStyle {
	if routeColor == "" {
		routeColor = DefaultRouteColor
	}
	if selected {
		return MarkerStyle{
			Shape:       "agent-selected",
			Color:       routeColor,
			Size:        28,
			BorderWidth: 3,
			Pulse:       true,
			ZIndex:      selectedZIndex,
			Selected:    true,
			Opacity:     1,
		}
	}
	return MarkerStyle{
		Shape:       "agent",
		Color:       routeColor,
		Size:        20,
		BorderWidth: 2,
		Pulse:       true,
		Opacity:     1,
	}
}

func CustomerStyle(selected bool) MarkerStyle {
	if selected {
		return MarkerStyle{
			Shape:       "customer",
			Color:       customerSelectedColor,
			Size:        16,
			BorderWidth: 3,
			Pulse:       true,
			ZIndex:      selectedZIndex,
			Selected:    true,
			Opacity:     1,
		}
	}
	return MarkerStyle{
		Shape:       "customer",
		Color:       customerColor,
		Size:        12,
		BorderWidth: 2,
		Opacity:     1,
	}
}

// RouteLineStyle is the dashed line used both for routed paths and straight fallbacks.
func RouteLineStyle(color string) LineStyle {
	return LineStyle{Color: color, Weight: 4, Opacity: 0.7, DashArray: "10, 10"}
}
