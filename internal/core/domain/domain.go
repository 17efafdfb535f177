// Package domain holds the value types shared by the digest core and its collaborators.
package domain

import "strings"

// Counters holds the per-action counts carried by one changeset.
type Counters struct {
	Create    int
	Move      int
	Delete    int
	Answer    int
	AddImage  int
	AIDetect  int
	LinkImage int
}

// Total returns the sum of all counters.
func (c Counters) Total() int {
	return c.Create + c.Move + c.Delete + c.Answer + c.AddImage + c.AIDetect + c.LinkImage
}

// Add returns the element-wise sum of c and other.
func (c Counters) Add(other Counters) Counters {
	return Counters{
		Create:    c.Create + other.Create,
		Move:      c.Move + other.Move,
		Delete:    c.Delete + other.Delete,
		Answer:    c.Answer + other.Answer,
		AddImage:  c.AddImage + other.AddImage,
		AIDetect:  c.AIDetect + other.AIDetect,
		LinkImage: c.LinkImage + other.LinkImage,
	}
}

// ActivityRecord is one crowd-sourced edit event (a changeset) made with a thematic map.
type ActivityRecord struct {
	ID              int64
	ContributorID   string
	ContributorName string
	Theme           string
	Counters        Counters
	ImageURLs       []string
}

// IsCustomTheme reports whether the record was made with an unofficial theme loaded by URL.
func (r ActivityRecord) IsCustomTheme() bool {
	return strings.HasPrefix(r.Theme, "http://") || strings.HasPrefix(r.Theme, "https://")
}

// ImageCandidate is an image URL attached by a contributor, eligible for the thread.
type ImageCandidate struct {
	URL             string
	ContributorID   string
	ContributorName string
	Theme           string
	ChangesetID     int64
}

// Visibility of a published message.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// Message is one post of a thread before publication.
type Message struct {
	Lines          []string
	MediaIDs       []string
	ReplyTo        string
	ContentWarning string
	Visibility     Visibility
}

// Text joins the message lines.
func (m Message) Text() string {
	return strings.Join(m.Lines, "\n")
}

// PostOptions are the publication options of a single post.
type PostOptions struct {
	ReplyTo        string
	MediaIDs       []string
	ContentWarning string
	Visibility     Visibility
}

// Options converts the message into publication options.
func (m Message) Options() PostOptions {
	return PostOptions{
		ReplyTo:        m.ReplyTo,
		MediaIDs:       m.MediaIDs,
		ContentWarning: m.ContentWarning,
		Visibility:     m.Visibility,
	}
}

// PublishedMessage is the result of a successful publication.
type PublishedMessage struct {
	ID  string
	URL string
}

// OptOut describes how a contributor wishes to appear in digests.
type OptOut struct {
	// SuppressAll removes the contributor from every listing.
	SuppressAll bool
	// SuppressMention lists the contributor by display name instead of a mention.
	SuppressMention bool
}

// Attribution is the author and license of an uploaded image.
type Attribution struct {
	Author      string
	License     string
	DownloadURL string
}

// FediverseAccount is the public profile of a Mastodon account.
type FediverseAccount struct {
	Acct string
	// Note is the biography as published, usually HTML.
	Note string
	// Fields holds the profile metadata, keyed by field name.
	Fields map[string]string
}
