package leaderboardservice

import "time"

// Weights are the points awarded per approved item of each kind.
type Weights struct {
	Article int
	Photo   int
	Proof   int
}

// Row is one leaderboard line.
type Row struct {
	Rank          int     `json:"rank"`
	TeamID        int64   `json:"team_id"`
	TeamName      string  `json:"team_name"`
	RouteCode     *string `json:"route_code,omitempty"`
	ArticlePoints int     `json:"article_points"`
	PhotoPoints   int     `json:"photo_points"`
	ProofPoints   int     `json:"proof_points"`
	ApprovedTotal int     `json:"approved_total"`
	TotalPoints   int     `json:"total_points"`
}

// ProgressRow is one line of the route race: how far a team got and how long
// it has been running. ElapsedSeconds is nil until the team starts.
type ProgressRow struct {
	Position       int        `json:"position"`
	TeamID         int64      `json:"team_id"`
	TeamName       string     `json:"team_name"`
	RouteCode      *string    `json:"route_code,omitempty"`
	TasksDone      int        `json:"tasks_done"`
	TotalTasks     int        `json:"total_tasks"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	ElapsedSeconds *int64     `json:"elapsed_seconds"`
}

// ChartPalette holds the colors used for rendered charts.
type ChartPalette struct {
	Background string
	Bar        string
	Text       string
}

// DefaultPalette is used when the caller passes a zero palette.
var DefaultPalette = ChartPalette{
	Background: "#14213d",
	Bar:        "#fca311",
	Text:       "#e5e5e5",
}
