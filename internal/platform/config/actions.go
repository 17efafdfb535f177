package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

// Report configures an optional lead post with a count of features from Overpass.
type Report struct {
	OverpassQuery string `yaml:"overpassQuery"`
	PostTemplate  string `yaml:"postTemplate"`
	BBox          string `yaml:"bbox"`
}

// Action is one configured digest.
type Action struct {
	Name                string   `yaml:"name"`
	ShowTopContributors bool     `yaml:"showTopContributors"`
	ShowTopThemes       bool     `yaml:"showTopThemes"`
	ContentWarning      string   `yaml:"contentWarning"`
	PoiName             string   `yaml:"poiName"`
	PoisName            string   `yaml:"poisName"`
	NumberOfDays        *int     `yaml:"numberOfDays"`
	ThemeWhitelist      []string `yaml:"themeWhitelist"`
	ShowThankYou        *bool    `yaml:"showThankYou"`
	NoisyTheme          string   `yaml:"noisyTheme"`
	Visibility          string   `yaml:"visibility"`
	Report              *Report  `yaml:"report"`
}

// ActionsFile is the YAML document listing every digest action.
type ActionsFile struct {
	Actions []Action `yaml:"actions"`
	// ThemeBonus overrides entries of the default image theme bonus table.
	ThemeBonus map[string]int `yaml:"themeBonus"`
}

// LoadActions reads and decodes the actions file. Individual actions are not validated
// here so that one broken action does not prevent the others from running.
func LoadActions(path string) (*ActionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading actions file %s: %w", coreerrors.ErrConfig, path, err)
	}

	return ParseActions(data)
}

// ParseActions decodes an actions document.
func ParseActions(data []byte) (*ActionsFile, error) {
	var file ActionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decoding actions: %w", coreerrors.ErrConfig, err)
	}

	for i := range file.Actions {
		if file.Actions[i].Name == "" {
			file.Actions[i].Name = fmt.Sprintf("action-%d", i+1)
		}
	}

	return &file, nil
}

// Find returns the action with the given name.
func (f *ActionsFile) Find(name string) (Action, bool) {
	for _, a := range f.Actions {
		if a.Name == name {
			return a, true
		}
	}

	return Action{}, false
}

// Validate checks the settings that would otherwise fail late in the run.
func (a Action) Validate() error {
	if a.NumberOfDays != nil && *a.NumberOfDays < 1 {
		return fmt.Errorf("%w: action %s: numberOfDays must be at least 1, got %d", coreerrors.ErrConfig, a.Name, *a.NumberOfDays)
	}

	switch domain.Visibility(a.Visibility) {
	case "", domain.VisibilityPublic, domain.VisibilityUnlisted, domain.VisibilityPrivate:
	case domain.VisibilityDirect:
		return fmt.Errorf("%w: action %s: digests cannot be direct messages", coreerrors.ErrConfig, a.Name)
	default:
		return fmt.Errorf("%w: action %s: unknown visibility %q", coreerrors.ErrConfig, a.Name, a.Visibility)
	}

	if a.Report != nil && (strings.TrimSpace(a.Report.OverpassQuery) == "") != (strings.TrimSpace(a.Report.PostTemplate) == "") {
		return fmt.Errorf("%w: action %s: report needs both overpassQuery and postTemplate", coreerrors.ErrConfig, a.Name)
	}

	return nil
}

// Days returns the length of the reporting window, one day when unset.
func (a Action) Days() int {
	if a.NumberOfDays == nil {
		return 1
	}

	return *a.NumberOfDays
}

// ThankYou reports whether the closing thank-you line is shown. Defaults to true.
func (a Action) ThankYou() bool {
	return a.ShowThankYou == nil || *a.ShowThankYou
}

// PostVisibility returns the visibility of the published posts, public when unset.
func (a Action) PostVisibility() domain.Visibility {
	if a.Visibility == "" {
		return domain.VisibilityPublic
	}

	return domain.Visibility(a.Visibility)
}
