package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHeader(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Matière", HeaderMatiere},
		{"MAT", HeaderMatiere},
		{"Spécialité", HeaderMatiere},
		{"Cours", HeaderCours},
		{"Chapitre", HeaderCours},
		{"N° Question", HeaderQuestionNum},
		{"numero de question", HeaderQuestionNum},
		{"Question", HeaderQuestionText},
		{"Texte de la question", HeaderQuestionText},
		{"texte question", HeaderQuestionText},
		{"Cas N°", HeaderCasNum},
		{"cas", HeaderCasNum},
		{"Texte du cas", HeaderCaseText},
		{"Énoncé du cas", HeaderCaseText},
		{"Réponse", HeaderReponse},
		{"rep", HeaderReponse},
		{"Option A", HeaderOptionA},
		{"option a)", HeaderOptionA},
		{"Proposition E", HeaderOptionE},
		{"Explication", HeaderExplication},
		{"Justification", HeaderExplication},
		{"Explication C", HeaderExplicationC},
		{"explication_b", HeaderExplicationB},
		{"Rappel du cours", HeaderRappel},
		{"Source", HeaderSource},
		{"Session", HeaderSource},
		{"Image", HeaderImage},
		{"Niveau", HeaderNiveau},
		{"Semestre", HeaderSemestre},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalHeader(tc.raw))
		})
	}
}

func TestCanonicalHeaderSpecificBeforeGeneral(t *testing.T) {
	// "explication a" must not be captured by the bare "explication" rule,
	// and "texte du cas" must not be captured by the "cas n" rule.
	assert.Equal(t, HeaderExplicationA, CanonicalHeader("Explication A"))
	assert.Equal(t, HeaderExplication, CanonicalHeader("Explication"))
	assert.Equal(t, HeaderCaseText, CanonicalHeader("Texte du cas"))
	assert.Equal(t, HeaderCasNum, CanonicalHeader("Cas n"))
}

func TestCanonicalHeaderUnknownKeptVerbatim(t *testing.T) {
	assert.Equal(t, "Colonne bizarre", CanonicalHeader("  Colonne bizarre "))
}

func TestSheetKind(t *testing.T) {
	assert.Equal(t, "qcm", SheetKind("QCM"))
	assert.Equal(t, "qcm", SheetKind("Feuille1"))
	assert.Equal(t, "qroc", SheetKind("QROC"))
	assert.Equal(t, "cas_qcm", SheetKind("Cas cliniques QCM"))
	assert.Equal(t, "cas_qroc", SheetKind("cas-qroc"))
}
