package emp

// CapabilityConfiguration describes one interface the agent implements.
type CapabilityConfiguration struct {
	Type       string   `json:"type"`
	Interface  string   `json:"interface"`
	Version    string   `json:"version"`
	Directives []string `json:"directives,omitempty"`
}

func newCapabilityConfigurations() []CapabilityConfiguration {
	return []CapabilityConfiguration{
		{
			Type:       "AlexaInterface",
			Interface:  Namespace,
			Version:    "1.1",
			Directives: []string{"Login", "Logout", "Play", "AuthorizeDiscoveredPlayers"},
		},
		{Type: "AlexaInterface", Interface: PlaybackStateName.Namespace, Version: "1.0"},
		{
			Type:       "AlexaInterface",
			Interface:  playbackController,
			Version:    "1.0",
			Directives: []string{"Play", "Pause", "Stop", "Next", "Previous", "StartOver", "FastForward", "Rewind"},
		},
		{
			Type:       "AlexaInterface",
			Interface:  playlistController,
			Version:    "1.0",
			Directives: []string{"EnableRepeatOne", "EnableRepeat", "DisableRepeat", "EnableShuffle", "DisableShuffle"},
		},
		{
			Type:       "AlexaInterface",
			Interface:  seekController,
			Version:    "1.0",
			Directives: []string{"SetSeekPosition", "AdjustSeekPosition"},
		},
		{
			Type:       "AlexaInterface",
			Interface:  favoritesController,
			Version:    "1.0",
			Directives: []string{"Favorite", "Unfavorite"},
		},
	}
}

// CapabilityConfigurations returns the static capability descriptors
// published at startup.
func (a *Agent) CapabilityConfigurations() []CapabilityConfiguration {
	out := make([]CapabilityConfiguration, len(a.caps))
	for i, c := range a.caps {
		c.Directives = append([]string(nil), c.Directives...)
		out[i] = c
	}
	return out
}
