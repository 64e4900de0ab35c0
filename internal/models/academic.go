package models

import "time"

// AcademicSession is a school year such as "2025/2026". At most one row is current.
type AcademicSession struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Session           string     `json:"session" gorm:"not null;size:200;uniqueIndex"`
	IsCurrentSession  bool       `json:"is_current_session" gorm:"default:false;index"`
	NextSessionBegins *time.Time `json:"next_session_begins"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Semester belongs to a session. At most one row is current.
type Semester struct {
	ID                 uint             `json:"id" gorm:"primaryKey"`
	Semester           SemesterName     `json:"semester" gorm:"not null;size:10"`
	IsCurrentSemester  bool             `json:"is_current_semester" gorm:"default:false;index"`
	SessionID          *uint            `json:"session_id" gorm:"index"`
	NextSemesterBegins *time.Time       `json:"next_semester_begins"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Session            *AcademicSession `json:"session,omitempty" gorm:"foreignKey:SessionID"`
}

func (AcademicSession) TableName() string {
	return "academic_sessions"
}

func (Semester) TableName() string {
	return "semesters"
}
