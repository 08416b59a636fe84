package completion

import "fmt"

// Profile is a named chat-completion tuning profile. Temperature is kept low
// in both profiles so answers stay focused and reproducible; the profiles
// differ in how much context they send and how long an answer they allow.
type Profile struct {
	Name            string
	Temperature     float64
	MaxOutputTokens int
	// MaxInputChars is the character budget for the outgoing message list.
	// Older history is trimmed first to stay under it.
	MaxInputChars int
}

// Quality favors thorough answers with the larger context window.
var Quality = Profile{
	Name:            "quality",
	Temperature:     0.2,
	MaxOutputTokens: 1024,
	MaxInputChars:   12000,
}

// Fast trades context and answer length for latency and cost.
var Fast = Profile{
	Name:            "fast",
	Temperature:     0.2,
	MaxOutputTokens: 512,
	MaxInputChars:   8000,
}

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "quality", "":
		return Quality, nil
	case "fast":
		return Fast, nil
	}
	return Profile{}, fmt.Errorf("unknown completion profile: %q", name)
}
