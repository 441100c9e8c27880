package experiment

import (
	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/pkg/identity"
)

// Query is one natural-language probe scoped to an activity type. The
// identifier is derived from the text, so the same query always carries the
// same UUID across runs.
type Query struct {
	ID   string
	Text string
	Kind activity.Kind
}

// queryTemplates holds per-kind probe texts keyed to each collector's
// vocabulary tables.
var queryTemplates = map[activity.Kind][]string{
	activity.Location: {
		"Find files I accessed while at Home",
		"What did I work on at the Office",
		"Show activity from the Coffee Shop",
	},
	activity.Music: {
		"What was I doing while listening to Radiohead",
		"Show my Miles Davis listening history",
		"Files from when Daft Punk was playing",
	},
	activity.Task: {
		"Show my recent VSCode sessions",
		"What did I have open in Chrome",
		"Documents edited in Figma",
	},
	activity.Media: {
		"Photos I took on my iPhone",
		"Screenshots from my MacBook Pro",
		"Videos captured on my Pixel",
	},
	activity.Storage: {
		"Find the pdf files I downloaded",
		"Show docx files I modified",
		"Spreadsheets in xlsx format",
	},
	activity.Collaboration: {
		"Messages in #eng about the launch",
		"Zoom meetings from last week",
		"Slack threads I was part of",
	},
}

// GenerateQueries builds up to perKind probes for each activity type in the
// group, in group order.
func GenerateQueries(group []activity.Kind, perKind int) []Query {
	var queries []Query
	for _, kind := range group {
		templates := queryTemplates[kind]
		for i, text := range templates {
			if i >= perKind {
				break
			}
			queries = append(queries, Query{
				ID:   identity.Derive("query:" + text),
				Text: text,
				Kind: kind,
			})
		}
	}
	return queries
}
