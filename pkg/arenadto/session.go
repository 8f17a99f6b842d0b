package arenadto

// SquareStyle is one entry of the highlight map.
type SquareStyle struct {
	Square string `json:"square"`
	Style  string `json:"style"`
}

type SessionState struct {
	ID          string        `json:"id"`
	State       string        `json:"state"`
	FEN         string        `json:"fen"`
	SideToMove  string        `json:"side_to_move"`
	IsOver      bool          `json:"is_over"`
	Result      string        `json:"result,omitempty"`
	Method      string        `json:"method,omitempty"`
	Winner      string        `json:"winner,omitempty"`
	InCheck     bool          `json:"in_check"`
	Thinking    bool          `json:"thinking"`
	SkillLevel  int           `json:"skill_level"`
	Generation  uint64        `json:"generation"`
	LastMove    string        `json:"last_move,omitempty"`
	Highlights  []SquareStyle `json:"highlights"`
	Header      string        `json:"header"`
	Turn        string        `json:"turn"`
	Banner      string        `json:"banner,omitempty"`
	BannerAlert bool          `json:"banner_alert,omitempty"`
	Failure     string        `json:"failure,omitempty"`
}

type LevelsResponse struct {
	Min     int   `json:"min"`
	Max     int   `json:"max"`
	Default int   `json:"default"`
	Levels  []int `json:"levels"`
}
