package model

import "strings"

// SegmentPatch is the PATCH /segments/{id} body. Absent fields keep their value; an
// empty director_intent or image_url clears it.
type SegmentPatch struct {
	PromptText      *string     `json:"prompt_text,omitempty"`
	DirectorIntent  *string     `json:"director_intent,omitempty"`
	ImageURL        *string     `json:"image_url,omitempty"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	Resolution      *Resolution `json:"resolution,omitempty"`
	IsPro           *bool       `json:"is_pro,omitempty"`
	Asset           *Asset      `json:"asset,omitempty"`
}

// Patch returns a patch carrying every editable field of s.
func (s Segment) Patch() SegmentPatch {
	p := SegmentPatch{
		PromptText:      &s.PromptText,
		DurationSeconds: &s.DurationSeconds,
		Resolution:      &s.Resolution,
		IsPro:           &s.IsPro,
		Asset:           s.Asset,
	}
	empty := ""
	p.DirectorIntent = &empty
	if s.DirectorIntent != nil {
		p.DirectorIntent = s.DirectorIntent
	}
	p.ImageURL = &empty
	if s.ImageURL != nil {
		p.ImageURL = s.ImageURL
	}
	return p
}

func (p SegmentPatch) Apply(s Segment) Segment {
	if p.PromptText != nil {
		s.PromptText = *p.PromptText
	}
	if p.DirectorIntent != nil {
		s.DirectorIntent = nilIfBlank(*p.DirectorIntent)
	}
	if p.ImageURL != nil {
		s.ImageURL = nilIfBlank(*p.ImageURL)
	}
	if p.DurationSeconds != nil {
		s.DurationSeconds = *p.DurationSeconds
	}
	if p.Resolution != nil {
		s.Resolution = *p.Resolution
	}
	if p.IsPro != nil {
		s.IsPro = *p.IsPro
	}
	if p.Asset != nil {
		a := *p.Asset
		s.Asset = &a
	}
	return s
}

func nilIfBlank(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// AuthToken is the response of POST /auth/token.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Toggle is the body of the admin enable/disable endpoints.
type Toggle struct {
	Enabled bool `json:"enabled"`
}
