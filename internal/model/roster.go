package model

// RosterEntry is one student in a year's roster.
type RosterEntry struct {
	RollNo    string `json:"rollNo" binding:"required,max=50"`
	Name      string `json:"name" binding:"required,max=200"`
	StudentID string `json:"studentId" binding:"required,max=50"`
}

// Roster is the list of students of one year.
type Roster []RosterEntry

func (r Roster) Normalize() Roster { return nonNil(r) }

func (r Roster) Validate(check func(any) error) error {
	return validateEach(r, check)
}

// Students is the student roster singleton.
type Students = Document[Roster]
