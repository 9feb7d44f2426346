package campaign

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"loreline/internal/segment"
)

//go:embed default_campaign.toml
var defaultProfile []byte

// Meta describes the campaign as a whole.
type Meta struct {
	Number int    `toml:"number" json:"number"`
	Name   string `toml:"name" json:"name"`
	World  string `toml:"world" json:"world"`
	DM     string `toml:"dm" json:"dm"`
	System string `toml:"system" json:"system"`
}

// CastMember pairs a player with the character they portray.
type CastMember struct {
	Player    string `toml:"player" json:"player"`
	Character string `toml:"character" json:"character"`
	Race      string `toml:"race" json:"race"`
	Class     string `toml:"class" json:"class"`
}

// Episode carries the per-episode descriptors that are not part of the transcript.
type Episode struct {
	Number int    `toml:"number"`
	Title  string `toml:"title"`
	URL    string `toml:"url"`
}

// Speakers holds the alias table used to canonicalize speaker labels.
type Speakers struct {
	Aliases        map[string]string `toml:"aliases"`
	Composite      []string          `toml:"composite"`
	CompositeLabel string            `toml:"composite_label"`
}

// Profile is the read-only campaign configuration injected into the
// extractor and assembler.
type Profile struct {
	Narrator string       `toml:"narrator"`
	Campaign Meta         `toml:"campaign"`
	Cast     []CastMember `toml:"cast"`
	Episodes []Episode    `toml:"episodes"`
	Speakers Speakers     `toml:"speakers"`
}

// Default returns the built-in profile.
func Default() (*Profile, error) {
	return Parse(defaultProfile)
}

// Load reads a profile from path, falling back to the built-in profile when
// path is empty.
func Load(path string) (*Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign profile: %w", err)
	}
	profile, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("campaign profile %s: %w", path, err)
	}
	return profile, nil
}

// Parse decodes and validates a TOML profile.
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&profile); err != nil {
		return nil, fmt.Errorf("parse campaign profile: %w", err)
	}
	profile.normalize()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *Profile) normalize() {
	p.Narrator = strings.TrimSpace(p.Narrator)
	p.Speakers.CompositeLabel = strings.TrimSpace(p.Speakers.CompositeLabel)
	if p.Speakers.CompositeLabel == "" {
		p.Speakers.CompositeLabel = "Multiple"
	}
	if p.Speakers.Aliases == nil {
		p.Speakers.Aliases = map[string]string{}
	}
}

// Validate ensures the profile is usable and that speaker normalization is
// idempotent: no canonical label may itself be an alias for something else.
func (p *Profile) Validate() error {
	if p.Narrator == "" {
		return errors.New("campaign profile: narrator must be set")
	}
	if strings.TrimSpace(p.Campaign.Name) == "" {
		return errors.New("campaign profile: campaign.name must be set")
	}
	seen := make(map[int]struct{}, len(p.Episodes))
	for _, ep := range p.Episodes {
		if ep.Number <= 0 {
			return fmt.Errorf("campaign profile: episode number must be positive, got %d", ep.Number)
		}
		if _, dup := seen[ep.Number]; dup {
			return fmt.Errorf("campaign profile: episode %d listed twice", ep.Number)
		}
		seen[ep.Number] = struct{}{}
	}
	var chained []string
	for raw, canonical := range p.Speakers.Aliases {
		if next, ok := p.Speakers.Aliases[canonical]; ok && next != canonical {
			chained = append(chained, fmt.Sprintf("%q -> %q -> %q", raw, canonical, next))
		}
	}
	if next, ok := p.Speakers.Aliases[p.Speakers.CompositeLabel]; ok && next != p.Speakers.CompositeLabel {
		chained = append(chained, fmt.Sprintf("%q -> %q", p.Speakers.CompositeLabel, next))
	}
	if len(chained) > 0 {
		sort.Strings(chained)
		return fmt.Errorf("campaign profile: speaker aliases chain into other aliases: %s", strings.Join(chained, "; "))
	}
	return nil
}

// EpisodeTitle returns the configured title, or "Episode N" when unknown.
func (p *Profile) EpisodeTitle(number int) string {
	if ep, ok := p.episode(number); ok && strings.TrimSpace(ep.Title) != "" {
		return ep.Title
	}
	return fmt.Sprintf("Episode %d", number)
}

// EpisodeURL returns the external source reference, or "" when unknown.
func (p *Profile) EpisodeURL(number int) string {
	if ep, ok := p.episode(number); ok {
		return ep.URL
	}
	return ""
}

func (p *Profile) episode(number int) (Episode, bool) {
	for _, ep := range p.Episodes {
		if ep.Number == number {
			return ep, true
		}
	}
	return Episode{}, false
}

// Roster renders the cast line used in prompts, e.g.
// "CAST: Brennan Lee Mulligan (DM), Laura Bailey (Thimble), ...".
func (p *Profile) Roster() string {
	parts := make([]string, 0, len(p.Cast)+1)
	if dm := strings.TrimSpace(p.Campaign.DM); dm != "" {
		parts = append(parts, dm+" (DM)")
	}
	for _, member := range p.Cast {
		parts = append(parts, fmt.Sprintf("%s (%s)", member.Player, member.Character))
	}
	return "CAST: " + strings.Join(parts, ", ")
}

// AliasTable returns the speaker lookup consumed by segment.NormalizeSpeakers.
func (p *Profile) AliasTable() segment.AliasTable {
	return segment.AliasTable{
		Aliases:        p.Speakers.Aliases,
		Composite:      p.Speakers.Composite,
		CompositeLabel: p.Speakers.CompositeLabel,
	}
}
