package models

import "gorm.io/gorm"

const (
	QuestionQCM     = "qcm"
	QuestionQROC    = "qroc"
	QuestionCasQCM  = "cas_qcm"
	QuestionCasQROC = "cas_qroc"
)

type Question struct {
	gorm.Model
	LectureID  uint   `gorm:"index;not null"`
	Type       string `gorm:"index;not null"` // qcm, qroc, cas_qcm, cas_qroc
	Source     string // exam session, e.g. "Externat 2019"
	Number     int    // question number within the source
	CaseNumber int    // clinical-case sheets only
	CaseText   string
	Text       string `gorm:"not null"`

	// QCM fields
	OptionA        string
	OptionB        string
	OptionC        string
	OptionD        string
	OptionE        string
	CorrectAnswers string // comma-separated letters, e.g. "A,C"

	// QROC field
	Answer string // reponse

	Rappel       string // course reminder shown with the correction
	Explanation  string
	ExplanationA string
	ExplanationB string
	ExplanationC string
	ExplanationD string
	ExplanationE string

	ImageURL string
	Niveau   string
	Semestre string
}

// IsQCM reports whether the question belongs to the multiple-choice family.
func (q Question) IsQCM() bool {
	return q.Type == QuestionQCM || q.Type == QuestionCasQCM
}

// Option returns the option text for a letter A-E, empty when out of range.
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	case "E":
		return q.OptionE
	}
	return ""
}
