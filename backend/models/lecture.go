package models

import "gorm.io/gorm"

type Lecture struct {
	gorm.Model
	Matiere     string `gorm:"index;not null"` // subject, e.g. "Cardiologie"
	Title       string `gorm:"not null"`       // cours
	Description string
	Niveau      string `gorm:"index"`
	Semestre    string
	Questions   []Question
}

type UserLectureProgress struct {
	gorm.Model
	UserID            uint `gorm:"index;not null"`
	LectureID         uint `gorm:"index;not null"`
	QuestionsAnswered int
	CorrectAnswers    int
	Score             float64
	LastAccessed      string
}
