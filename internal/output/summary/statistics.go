// Package summary turns groups of activity records into human-readable statistics.
package summary

import (
	"strconv"
	"strings"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

// Default nouns for point-like actions.
const (
	DefaultPoiName  = "point"
	DefaultPoisName = "points"
)

// Nouns names the objects created, moved and deleted by contributors.
type Nouns struct {
	Singular string
	Plural   string
}

// DefaultNouns returns the "point"/"points" nouns.
func DefaultNouns() Nouns {
	return Nouns{Singular: DefaultPoiName, Plural: DefaultPoisName}
}

// WithDefaults fills empty nouns from DefaultNouns.
func (n Nouns) WithDefaults() Nouns {
	if n.Singular == "" {
		n.Singular = DefaultPoiName
	}

	if n.Plural == "" {
		n.Plural = DefaultPoisName
	}

	return n
}

// Statistics aggregates the counters of a group of records.
type Statistics struct {
	domain.Counters
	Total       int
	SummaryText string
}

type clause struct {
	verb     string
	singular string
	plural   string
	suffix   string
}

func (c clause) render(count int) string {
	var sb strings.Builder

	sb.WriteString(c.verb)
	sb.WriteString(" ")

	if count == 1 {
		sb.WriteString(withArticle(c.singular))
	} else {
		sb.WriteString(strconv.Itoa(count))
		sb.WriteString(" ")
		sb.WriteString(c.plural)
	}

	if c.suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(c.suffix)
	}

	return sb.String()
}

// StatsFor sums the counters of records and phrases the non-zero ones in a fixed order:
// create, answer, add image, move, delete, AI detection, link image.
func StatsFor(records []domain.ActivityRecord, nouns Nouns) Statistics {
	nouns = nouns.WithDefaults()

	var totals domain.Counters
	for _, r := range records {
		totals = totals.Add(r.Counters)
	}

	kinds := []struct {
		count int
		clause
	}{
		{totals.Create, clause{verb: "added", singular: nouns.Singular, plural: nouns.Plural}},
		{totals.Answer, clause{verb: "answered", singular: "question", plural: "questions"}},
		{totals.AddImage, clause{verb: "uploaded", singular: "image", plural: "images"}},
		{totals.Move, clause{verb: "moved", singular: nouns.Singular, plural: nouns.Plural}},
		{totals.Delete, clause{verb: "deleted", singular: nouns.Singular, plural: nouns.Plural}},
		{totals.AIDetect, clause{verb: "detected", singular: "plant species", plural: "plant species", suffix: "with plantnet.org"}},
		{totals.LinkImage, clause{verb: "linked", singular: "image", plural: "images"}},
	}

	clauses := make([]string, 0, len(kinds))

	for _, k := range kinds {
		if k.count == 0 {
			continue
		}

		clauses = append(clauses, k.render(k.count))
	}

	return Statistics{
		Counters:    totals,
		Total:       totals.Total(),
		SummaryText: CommasAnd(clauses),
	}
}

// CommasAnd joins items with commas and a single final "and".
//
//	CommasAnd([]string{"A", "B", "C"}) // "A, B and C"
func CommasAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}

	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func withArticle(noun string) string {
	if noun == "" {
		return noun
	}

	if strings.ContainsRune("aeiouAEIOU", rune(noun[0])) {
		return "an " + noun
	}

	return "a " + noun
}

func plural(count int, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}

	return pluralForm
}
