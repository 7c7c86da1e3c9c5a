package models

import "time"

// Snapshot is a serializable picture of a timeline
type Snapshot struct {
	Tracks       []Track       `json:"tracks" yaml:"tracks"`
	Clips        []Clip        `json:"clips" yaml:"clips"`
	Compositions []Composition `json:"compositions" yaml:"compositions"`
	Groups       []Group       `json:"groups,omitempty" yaml:"groups,omitempty"`
	Duration     int           `json:"duration" yaml:"duration"` // in frames
}

// Track is one lane of the timeline, listed bottom to top
type Track struct {
	ID       int `json:"id" yaml:"id"`
	Position int `json:"position" yaml:"position"`
}

// Clip is a cut of a source placed on a track
type Clip struct {
	ID       int    `json:"id" yaml:"id"`
	SourceID string `json:"sourceId" yaml:"source_id"`
	TrackID  int    `json:"trackId" yaml:"track_id"` // -1 when not placed
	Position int    `json:"position" yaml:"position"`
	In       int    `json:"in" yaml:"in"`
	Playtime int    `json:"playtime" yaml:"playtime"`
}

// Composition blends its track with ATrack
type Composition struct {
	ID       int    `json:"id" yaml:"id"`
	Kind     string `json:"kind" yaml:"kind"`
	TrackID  int    `json:"trackId" yaml:"track_id"`
	ATrack   int    `json:"aTrack" yaml:"a_track"`
	Position int    `json:"position" yaml:"position"`
	Playtime int    `json:"playtime" yaml:"playtime"`
}

// Group is an internal node of the group forest
type Group struct {
	ID       int   `json:"id" yaml:"id"`
	Children []int `json:"children" yaml:"children"`
}

// Project is a saved timeline
type Project struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	FPS       float64   `json:"fps" yaml:"fps"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
	Duration  int       `json:"duration" yaml:"duration"`
	Tracks    int       `json:"tracks" yaml:"tracks"`
	Clips     int       `json:"clips" yaml:"clips"`
}

// Source is a media file available to the timeline
type Source struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Artist   string `json:"artist" yaml:"artist"`
	Album    string `json:"album" yaml:"album"`
	Format   string `json:"format" yaml:"format"`
	Length   int    `json:"length" yaml:"length"` // in frames
	FilePath string `json:"-" yaml:"-"`
	FileSize int64  `json:"fileSize" yaml:"fileSize"`
}
