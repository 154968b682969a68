package model

// YearAchievements lists a year's achievements and the roll numbers of its toppers.
type YearAchievements struct {
	Achievements   []string `json:"achievements"`
	TopperRollList []string `json:"topperRollList"`
}

func (a YearAchievements) Normalize() YearAchievements {
	return YearAchievements{
		Achievements:   nonNil(a.Achievements),
		TopperRollList: nonNil(a.TopperRollList),
	}
}

// Validate is a no-op: entries are free text.
func (a YearAchievements) Validate(func(any) error) error { return nil }

// Achievements is the achievements singleton.
type Achievements = Document[YearAchievements]
