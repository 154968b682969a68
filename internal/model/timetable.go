package model

// ClassSlot is one scheduled class in a day.
type ClassSlot struct {
	Subject   string `json:"subject" binding:"required,max=200"`
	StartTime string `json:"startTime" binding:"required,max=20"`
	EndTime   string `json:"endTime" binding:"required,max=20"`
	Faculty   string `json:"faculty" binding:"max=200"`
}

// DaySchedule is the timetable of one year, Monday to Friday.
type DaySchedule struct {
	Monday    []ClassSlot `json:"monday"`
	Tuesday   []ClassSlot `json:"tuesday"`
	Wednesday []ClassSlot `json:"wednesday"`
	Thursday  []ClassSlot `json:"thursday"`
	Friday    []ClassSlot `json:"friday"`
}

func (d DaySchedule) days() [][]ClassSlot {
	return [][]ClassSlot{d.Monday, d.Tuesday, d.Wednesday, d.Thursday, d.Friday}
}

func (d DaySchedule) Normalize() DaySchedule {
	return DaySchedule{
		Monday:    nonNil(d.Monday),
		Tuesday:   nonNil(d.Tuesday),
		Wednesday: nonNil(d.Wednesday),
		Thursday:  nonNil(d.Thursday),
		Friday:    nonNil(d.Friday),
	}
}

func (d DaySchedule) Validate(check func(any) error) error {
	for _, slots := range d.days() {
		if err := validateEach(slots, check); err != nil {
			return err
		}
	}
	return nil
}

// Timetable is the timetable singleton.
type Timetable = Document[DaySchedule]

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
