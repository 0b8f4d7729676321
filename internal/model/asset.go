package model

import (
	"regexp"
	"strings"
)

var (
	characterInputPattern = regexp.MustCompile(`^(.*?)\s*(@[A-Za-z0-9_]+)$`)
	characterIDPattern    = regexp.MustCompile(`^@[A-Za-z0-9_]+$`)
)

// ParseCharacter splits "Name @id" into its parts. Input without a trailing @id is
// taken as a bare name.
func ParseCharacter(input string) Character {
	if m := characterInputPattern.FindStringSubmatch(input); m != nil {
		return Character{Name: strings.TrimSpace(m[1]), ID: m[2]}
	}
	return Character{Name: strings.TrimSpace(input)}
}

func ValidCharacterID(id string) bool {
	return characterIDPattern.MatchString(id)
}

// Display renders the character the way it is shown and removed in tag inputs.
func (c Character) Display() string {
	if c.ID != "" {
		return c.Name + " " + c.ID
	}
	return c.Name
}

// AddCharacter parses input and appends it unless a character with the same name
// already exists. Names compare case-sensitively.
func (a *Asset) AddCharacter(input string) bool {
	c := ParseCharacter(input)
	if c.Name == "" {
		return false
	}
	for _, existing := range a.Characters {
		if existing.Name == c.Name {
			return false
		}
	}
	a.Characters = append(a.Characters, c)
	return true
}

// RemoveCharacter drops every character whose display string equals display.
func (a *Asset) RemoveCharacter(display string) bool {
	kept := make([]Character, 0, len(a.Characters))
	for _, c := range a.Characters {
		if c.Display() != display {
			kept = append(kept, c)
		}
	}
	removed := len(kept) != len(a.Characters)
	a.Characters = kept
	return removed
}

func (a *Asset) AddProp(prop string) bool {
	if prop == "" {
		return false
	}
	for _, p := range a.Props {
		if p == prop {
			return false
		}
	}
	a.Props = append(a.Props, prop)
	return true
}

func (a *Asset) RemoveProp(prop string) bool {
	kept := make([]string, 0, len(a.Props))
	for _, p := range a.Props {
		if p != prop {
			kept = append(kept, p)
		}
	}
	removed := len(kept) != len(a.Props)
	a.Props = kept
	return removed
}

// CharacterDisplays returns the display strings in insertion order.
func (a Asset) CharacterDisplays() []string {
	out := make([]string, 0, len(a.Characters))
	for _, c := range a.Characters {
		out = append(out, c.Display())
	}
	return out
}
