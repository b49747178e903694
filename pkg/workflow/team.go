package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"planbuilder/pkg/envelope"
)

// ErrNoTeam is returned when a reply carries no usable <team> block.
var ErrNoTeam = errors.New("no team structure in reply")

// Team maps each role to its details, in the order the model listed them.
type Team struct {
	Roles *orderedmap.OrderedMap[string, *orderedmap.OrderedMap[string, any]]
}

// ParseTeam reads the JSON object inside the <team> tags of text.
func ParseTeam(text string) (*Team, error) {
	body, ok := envelope.ExtractTag(text, "team")
	if !ok {
		return nil, ErrNoTeam
	}
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("%w: team block is not valid JSON", ErrNoTeam)
	}
	roles := orderedmap.New[string, *orderedmap.OrderedMap[string, any]]()
	if err := json.Unmarshal([]byte(body), roles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTeam, err)
	}
	if roles.Len() == 0 {
		return nil, fmt.Errorf("%w: empty object", ErrNoTeam)
	}
	return &Team{Roles: roles}, nil
}

// RoleNames returns the roles in order.
func (t *Team) RoleNames() []string {
	names := make([]string, 0, t.Roles.Len())
	for pair := t.Roles.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Markdown renders the team as numbered role sections with bulleted details.
func (t *Team) Markdown() string {
	var sb strings.Builder
	sb.WriteString("## Team Structure\n\n")
	i := 1
	for pair := t.Roles.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(&sb, "### %d. %s\n", i, pair.Key)
		if pair.Value != nil {
			for detail := pair.Value.Oldest(); detail != nil; detail = detail.Next() {
				fmt.Fprintf(&sb, "- **%s:** %v\n", detail.Key, detail.Value)
			}
		}
		sb.WriteString("\n")
		i++
	}
	return sb.String()
}

// String renders the team as compact JSON, the form passed to later prompts.
func (t *Team) String() string {
	data, err := json.Marshal(t.Roles)
	if err != nil {
		return t.Markdown()
	}
	return string(data)
}

// MarshalJSON keeps role order.
func (t *Team) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Roles) //nolint:wrapcheck // transparent encoding
}

// MarshalYAML keeps role order.
func (t *Team) MarshalYAML() (any, error) {
	return t.Roles, nil
}
