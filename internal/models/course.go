package models

import (
	"time"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelProfessional CourseLevel = "Professional"
)

type SemesterName string

const (
	SemesterFirst  SemesterName = "First"
	SemesterSecond SemesterName = "Second"
	SemesterThird  SemesterName = "Third"
)

// Program groups courses; owned by the course catalogue, read-only here.
type Program struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Title   string `json:"title" gorm:"not null;size:150;uniqueIndex"`
	Summary string `json:"summary" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course carries the metadata the AI prompt builder embeds.
type Course struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	Slug       string       `json:"slug" gorm:"size:255;uniqueIndex"`
	Title      string       `json:"title" gorm:"not null;size:200"`
	Code       string       `json:"code" gorm:"not null;size:200;uniqueIndex"`
	Credit     int          `json:"credit" gorm:"default:0"`
	Summary    string       `json:"summary" gorm:"type:text"`
	ProgramID  uint         `json:"program_id" gorm:"index"`
	Level      CourseLevel  `json:"level" gorm:"size:25"`
	Year       int          `json:"year" gorm:"default:1"`
	Semester   SemesterName `json:"semester" gorm:"size:200"`
	IsElective bool         `json:"is_elective" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Program *Program `json:"program,omitempty" gorm:"foreignKey:ProgramID"`
}

// CourseAllocation maps a lecturer to the courses they teach and may mark.
type CourseAllocation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	LecturerID string    `json:"lecturer_id" gorm:"not null;uniqueIndex;size:255"`
	Courses    []Course  `json:"courses" gorm:"many2many:course_allocation_courses"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Program) TableName() string {
	return "programs"
}

func (Course) TableName() string {
	return "courses"
}

func (CourseAllocation) TableName() string {
	return "course_allocations"
}
