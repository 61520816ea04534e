package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qcmSheet(rows ...map[string]string) Sheet {
	sheet := Sheet{Name: "QCM", Kind: "qcm"}
	for i, cells := range rows {
		sheet.Rows = append(sheet.Rows, Row{Number: i + 2, Cells: cells})
	}
	return sheet
}

func baseQCMRow() map[string]string {
	return map[string]string{
		HeaderMatiere:      "Cardiologie",
		HeaderCours:        "Insuffisance cardiaque",
		HeaderQuestionText: "Quel est le traitement de premiere intention ?",
		HeaderOptionA:      "IEC",
		HeaderOptionB:      "Beta-bloquant",
		HeaderReponse:      "A",
		HeaderExplication:  "Les IEC reduisent la mortalite.",
	}
}

func TestParseAnswerLetters(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"A", []string{"A"}},
		{"a, c", []string{"A", "C"}},
		{"A;B", []string{"A", "B"}},
		{"ABD", []string{"A", "B", "D"}},
		{"1,3", []string{"A", "C"}},
		{"a et c", []string{"A", "C"}},
		{"B et E", []string{"B", "E"}},
		{"E", []string{"E"}},
		{"aucune", nil},
		{"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseAnswerLetters(tc.raw))
		})
	}
}

func TestClassifyGoodQCMRow(t *testing.T) {
	result := Classify([]Sheet{qcmSheet(baseQCMRow())})

	require.Len(t, result.Good, 1)
	assert.Empty(t, result.Bad)

	good := result.Good[0]
	assert.Equal(t, "Cardiologie", good.Matiere)
	assert.Equal(t, "Insuffisance cardiaque", good.Cours)
	assert.Equal(t, "qcm", good.Question.Type)
	assert.Equal(t, "A", good.Question.CorrectAnswers)
	assert.Equal(t, 2, good.Number)
}

func TestClassifyQCMRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
		reason string
	}{
		{"missing matiere", func(r map[string]string) { delete(r, HeaderMatiere) }, "matiere manquante"},
		{"missing cours", func(r map[string]string) { delete(r, HeaderCours) }, "cours manquant"},
		{"missing text", func(r map[string]string) { delete(r, HeaderQuestionText) }, "texte de la question manquant"},
		{"no options", func(r map[string]string) {
			delete(r, HeaderOptionA)
			delete(r, HeaderOptionB)
		}, "aucune option renseignee"},
		{"unreadable answer", func(r map[string]string) { r[HeaderReponse] = "aucune idee" }, "reponse manquante ou illisible"},
		{"answer without option", func(r map[string]string) { r[HeaderReponse] = "C" }, "reponse C sans option correspondante"},
		{"no explanation", func(r map[string]string) { delete(r, HeaderExplication) }, "explication manquante"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := baseQCMRow()
			tc.mutate(row)
			result := Classify([]Sheet{qcmSheet(row)})

			assert.Empty(t, result.Good)
			require.Len(t, result.Bad, 1)
			assert.Equal(t, tc.reason, result.Bad[0].Reason)
		})
	}
}

func TestClassifyPerOptionExplanationAccepted(t *testing.T) {
	row := baseQCMRow()
	delete(row, HeaderExplication)
	row[HeaderExplicationA] = "Correct car premiere intention."

	result := Classify([]Sheet{qcmSheet(row)})
	assert.Len(t, result.Good, 1)
	assert.Empty(t, result.Bad)
}

func TestClassifyQROC(t *testing.T) {
	sheet := Sheet{Name: "QROC", Kind: "qroc", Rows: []Row{
		{Number: 2, Cells: map[string]string{
			HeaderMatiere:      "Nephrologie",
			HeaderCours:        "IRA",
			HeaderQuestionText: "Citez deux causes d'IRA fonctionnelle.",
			HeaderReponse:      "Deshydratation, hypovolemie",
			HeaderRappel:       "L'IRA fonctionnelle est reversible.",
		}},
		{Number: 3, Cells: map[string]string{
			HeaderMatiere:      "Nephrologie",
			HeaderCours:        "IRA",
			HeaderQuestionText: "Definir l'oligurie.",
			HeaderReponse:      "Diurese < 500 mL/24h",
		}},
	}}

	result := Classify([]Sheet{sheet})

	require.Len(t, result.Good, 1)
	assert.Equal(t, "Deshydratation, hypovolemie", result.Good[0].Question.Answer)
	require.Len(t, result.Bad, 1)
	assert.Equal(t, "explication manquante", result.Bad[0].Reason)
}

func TestClassifyClinicalCaseNeedsCaseText(t *testing.T) {
	row := baseQCMRow()
	sheet := Sheet{Name: "Cas QCM", Kind: "cas_qcm", Rows: []Row{{Number: 2, Cells: row}}}

	result := Classify([]Sheet{sheet})
	require.Len(t, result.Bad, 1)
	assert.Equal(t, "texte du cas manquant", result.Bad[0].Reason)

	row[HeaderCaseText] = "Patient de 60 ans, dyspnee d'effort."
	result = Classify([]Sheet{sheet})
	require.Len(t, result.Good, 1)
	assert.Equal(t, "cas_qcm", result.Good[0].Question.Type)
}

func TestClassifyDuplicatesFirstWins(t *testing.T) {
	first := baseQCMRow()
	second := baseQCMRow()
	// Case and spacing differences must still collide.
	second[HeaderQuestionText] = "  QUEL est le traitement   de premiere intention ?"

	result := Classify([]Sheet{qcmSheet(first, second)})

	require.Len(t, result.Good, 1)
	assert.Equal(t, 2, result.Good[0].Number)
	require.Len(t, result.Bad, 1)
	assert.Equal(t, "ligne dupliquee dans le fichier", result.Bad[0].Reason)
	assert.Equal(t, 3, result.Bad[0].Number)
}

func TestClassifyDifferentAnswersAreNotDuplicates(t *testing.T) {
	first := baseQCMRow()
	second := baseQCMRow()
	second[HeaderReponse] = "B"

	result := Classify([]Sheet{qcmSheet(first, second)})
	assert.Len(t, result.Good, 2)
	assert.Empty(t, result.Bad)
}

func TestClassifyIsDeterministic(t *testing.T) {
	sheets := []Sheet{qcmSheet(baseQCMRow(), baseQCMRow())}

	first := Classify(sheets)
	second := Classify(sheets)
	assert.Equal(t, first, second)
}

func TestClassifySheetSummaries(t *testing.T) {
	bad := baseQCMRow()
	delete(bad, HeaderMatiere)

	result := Classify([]Sheet{qcmSheet(baseQCMRow(), bad)})

	require.Len(t, result.Sheets, 1)
	assert.Equal(t, "QCM", result.Sheets[0].Name)
	assert.Equal(t, 1, result.Sheets[0].Good)
	assert.Equal(t, 1, result.Sheets[0].Bad)
}
