package plex

import "time"

// showType is the Plex metadata type for TV shows.
const showType = "2"

// Show is a TV series entry in a Plex library section.
type Show struct {
	RatingKey string
	Title     string
	AddedAt   time.Time
	Labels    []string
}

// Filter narrows a show search. Zero values disable the constraint.
type Filter struct {
	// Title is a case-insensitive substring match performed by Plex.
	Title string
	// AddedSince keeps only shows added at or after this instant.
	AddedSince time.Time
}

// Section is a Plex library section.
type Section struct {
	Key   string
	Title string
	Type  string
}

type tag struct {
	Tag string `json:"tag"`
}

type metadata struct {
	RatingKey string `json:"ratingKey"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	AddedAt   int64  `json:"addedAt"`
	Label     []tag  `json:"Label"`
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type mediaContainer struct {
	MediaContainer struct {
		Size              int         `json:"size"`
		MachineIdentifier string      `json:"machineIdentifier"`
		Version           string      `json:"version"`
		Metadata          []metadata  `json:"Metadata"`
		Directory         []directory `json:"Directory"`
	} `json:"MediaContainer"`
}

func (m metadata) show() Show {
	s := Show{
		RatingKey: m.RatingKey,
		Title:     m.Title,
		Labels:    make([]string, 0, len(m.Label)),
	}
	if m.AddedAt > 0 {
		s.AddedAt = time.Unix(m.AddedAt, 0)
	}
	for _, l := range m.Label {
		s.Labels = append(s.Labels, l.Tag)
	}
	return s
}
