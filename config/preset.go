package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Preset describes a prepared lesson: main topic, expert topics, the class
// list and phase durations. It is loaded from a TOML file such as:
//
//	main_topic = "Ecosystems"
//	expert_minutes = 20
//	students = ["Ann", "Bob", "Cid", "Dan"]
//
//	[[topics]]
//	title = "Forests"
//	material_url = "https://example.org/forests.pdf"
type Preset struct {
	MainTopic        string
	Topics           []PresetTopic
	Students         []string
	ExpertDuration   time.Duration
	TeachingDuration time.Duration
	Seed             uint64
}

// PresetTopic is one expert topic of a preset.
type PresetTopic struct {
	Title               string `toml:"title"`
	MaterialURL         string `toml:"material_url"`
	MaterialDescription string `toml:"material_description"`
}

type presetFile struct {
	MainTopic       string        `toml:"main_topic"`
	Topics          []PresetTopic `toml:"topics"`
	Students        []string      `toml:"students"`
	StudentsText    string        `toml:"students_text"`
	ExpertMinutes   int           `toml:"expert_minutes"`
	TeachingMinutes int           `toml:"teaching_minutes"`
	Seed            int64         `toml:"seed"`
}

// LoadPreset reads a preset file. Keys absent from the file keep the values
// from session; durations default to the session configuration.
func LoadPreset(path string, session SessionConfig) (*Preset, error) {
	p := &Preset{
		ExpertDuration:   session.ExpertDuration,
		TeachingDuration: session.TeachingDuration,
		Seed:             session.Seed,
	}

	var raw presetFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load preset: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load preset: unknown keys %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("main_topic") {
		p.MainTopic = strings.TrimSpace(raw.MainTopic)
	}

	if meta.IsDefined("topics") {
		for i, t := range raw.Topics {
			t.Title = strings.TrimSpace(t.Title)
			if t.Title == "" {
				return nil, fmt.Errorf("load preset: topics[%d]: title is required", i)
			}
			t.MaterialURL = strings.TrimSpace(t.MaterialURL)
			p.Topics = append(p.Topics, t)
		}
	}

	if meta.IsDefined("students") {
		p.Students = normalizeNames(raw.Students)
	}
	if meta.IsDefined("students_text") {
		p.Students = append(p.Students, splitNames(raw.StudentsText)...)
	}

	if meta.IsDefined("expert_minutes") {
		if raw.ExpertMinutes < MinPhaseMinutes || raw.ExpertMinutes > MaxPhaseMinutes {
			return nil, fmt.Errorf("load preset: expert_minutes must be %d-%d", MinPhaseMinutes, MaxPhaseMinutes)
		}
		p.ExpertDuration = time.Duration(raw.ExpertMinutes) * time.Minute
	}

	if meta.IsDefined("teaching_minutes") {
		if raw.TeachingMinutes < MinPhaseMinutes || raw.TeachingMinutes > MaxPhaseMinutes {
			return nil, fmt.Errorf("load preset: teaching_minutes must be %d-%d", MinPhaseMinutes, MaxPhaseMinutes)
		}
		p.TeachingDuration = time.Duration(raw.TeachingMinutes) * time.Minute
	}

	if meta.IsDefined("seed") {
		if raw.Seed < 0 {
			return nil, fmt.Errorf("load preset: seed must not be negative")
		}
		p.Seed = uint64(raw.Seed)
	}

	return p, nil
}

// TopicTitles returns the titles in preset order.
func (p *Preset) TopicTitles() []string {
	out := make([]string, len(p.Topics))
	for i, t := range p.Topics {
		out[i] = t.Title
	}
	return out
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		if v := strings.TrimSpace(name); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitNames splits a pasted class list on commas and newlines.
func splitNames(text string) []string {
	return normalizeNames(strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}))
}
