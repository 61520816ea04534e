package importer

import (
	"fmt"
	"strconv"
	"strings"

	"carabin/backend/models"
)

// GoodRow is a row that passed every check, with its structured question.
type GoodRow struct {
	Sheet    string
	Number   int
	Matiere  string
	Cours    string
	Question models.Question
}

// BadRow is a rejected row with the reason and the original cells, so it
// can be exported for correction and re-upload.
type BadRow struct {
	Sheet  string
	Number int
	Reason string
	Cells  map[string]string
}

// SheetSummary counts the outcome per worksheet.
type SheetSummary struct {
	Name string
	Kind string
	Good int
	Bad  int
}

// Result of classifying a whole workbook.
type Result struct {
	Good   []GoodRow
	Bad    []BadRow
	Sheets []SheetSummary
}

var answerLetters = []string{"A", "B", "C", "D", "E"}

// ParseAnswerLetters extracts correct-answer letters A-E from a reponse
// cell. Accepts separators and French conjunctions ("A", "a,c", "A;B",
// "AB", "a et c") as well as digits 1-5. Tokens carrying anything else
// ("aucune", "vrai") are ignored entirely.
func ParseAnswerLetters(raw string) []string {
	seen := make(map[string]bool)
	var letters []string
	tokens := strings.FieldsFunc(strings.ToUpper(raw), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, token := range tokens {
		if token == "ET" || token == "OU" {
			continue
		}
		if !answerToken(token) {
			continue
		}
		for _, r := range token {
			letter := string(r)
			if r >= '1' && r <= '5' {
				letter = string(rune('A' + r - '1'))
			}
			if !seen[letter] {
				seen[letter] = true
				letters = append(letters, letter)
			}
		}
	}
	return letters
}

// answerToken reports whether every rune of the token denotes an option.
func answerToken(token string) bool {
	for _, r := range token {
		if !(r >= 'A' && r <= 'E' || r >= '1' && r <= '5') {
			return false
		}
	}
	return true
}

// Classify runs the row checks over every sheet of a workbook. Rows are
// processed in order; the first occurrence of a duplicate key wins and the
// later ones are flagged. Classification is deterministic: the same file
// always yields the same result.
func Classify(sheets []Sheet) *Result {
	result := &Result{}
	seen := make(map[string]bool)

	for _, sheet := range sheets {
		summary := SheetSummary{Name: sheet.Name, Kind: sheet.Kind}
		for _, row := range sheet.Rows {
			good, reason := classifyRow(sheet, row)
			if reason == "" {
				key := dedupKey(good)
				if seen[key] {
					reason = "ligne dupliquee dans le fichier"
				} else {
					seen[key] = true
				}
			}

			if reason != "" {
				summary.Bad++
				result.Bad = append(result.Bad, BadRow{
					Sheet:  sheet.Name,
					Number: row.Number,
					Reason: reason,
					Cells:  row.Cells,
				})
				continue
			}
			summary.Good++
			result.Good = append(result.Good, good)
		}
		result.Sheets = append(result.Sheets, summary)
	}
	return result
}

// classifyRow validates one row against the sheet-kind rules and builds the
// structured question. An empty reason means the row is good.
func classifyRow(sheet Sheet, row Row) (GoodRow, string) {
	matiere := row.Get(HeaderMatiere)
	cours := row.Get(HeaderCours)
	if matiere == "" {
		return GoodRow{}, "matiere manquante"
	}
	if cours == "" {
		return GoodRow{}, "cours manquant"
	}

	isCase := sheet.Kind == models.QuestionCasQCM || sheet.Kind == models.QuestionCasQROC
	text := row.Get(HeaderQuestionText)
	caseText := row.Get(HeaderCaseText)
	if text == "" {
		// Clinical-case sheets may carry the enonce in the case column only.
		if !isCase || caseText == "" {
			return GoodRow{}, "texte de la question manquant"
		}
		text = caseText
	}
	if isCase && caseText == "" {
		return GoodRow{}, "texte du cas manquant"
	}

	q := models.Question{
		Type:     sheet.Kind,
		Source:   row.Get(HeaderSource),
		CaseText: caseText,
		Text:     text,
		Rappel:   row.Get(HeaderRappel),
		ImageURL: row.Get(HeaderImage),
		Niveau:   row.Get(HeaderNiveau),
		Semestre: row.Get(HeaderSemestre),

		Explanation:  row.Get(HeaderExplication),
		ExplanationA: row.Get(HeaderExplicationA),
		ExplanationB: row.Get(HeaderExplicationB),
		ExplanationC: row.Get(HeaderExplicationC),
		ExplanationD: row.Get(HeaderExplicationD),
		ExplanationE: row.Get(HeaderExplicationE),
	}
	q.Number, _ = strconv.Atoi(row.Get(HeaderQuestionNum))
	q.CaseNumber, _ = strconv.Atoi(row.Get(HeaderCasNum))

	switch sheet.Kind {
	case models.QuestionQCM, models.QuestionCasQCM:
		q.OptionA = row.Get(HeaderOptionA)
		q.OptionB = row.Get(HeaderOptionB)
		q.OptionC = row.Get(HeaderOptionC)
		q.OptionD = row.Get(HeaderOptionD)
		q.OptionE = row.Get(HeaderOptionE)

		if !hasAnyOption(q) {
			return GoodRow{}, "aucune option renseignee"
		}
		letters := ParseAnswerLetters(row.Get(HeaderReponse))
		if len(letters) == 0 {
			return GoodRow{}, "reponse manquante ou illisible"
		}
		for _, letter := range letters {
			if q.Option(letter) == "" {
				return GoodRow{}, fmt.Sprintf("reponse %s sans option correspondante", letter)
			}
		}
		q.CorrectAnswers = strings.Join(letters, ",")

		if !hasAnyExplanation(q) {
			return GoodRow{}, "explication manquante"
		}

	case models.QuestionQROC, models.QuestionCasQROC:
		answer := row.Get(HeaderReponse)
		if answer == "" {
			return GoodRow{}, "reponse manquante"
		}
		q.Answer = answer
		if q.Explanation == "" && q.Rappel == "" {
			return GoodRow{}, "explication manquante"
		}
	}

	return GoodRow{
		Sheet:    sheet.Name,
		Number:   row.Number,
		Matiere:  matiere,
		Cours:    cours,
		Question: q,
	}, ""
}

func hasAnyOption(q models.Question) bool {
	for _, letter := range answerLetters {
		if q.Option(letter) != "" {
			return true
		}
	}
	return false
}

func hasAnyExplanation(q models.Question) bool {
	return q.Explanation != "" || q.ExplanationA != "" || q.ExplanationB != "" ||
		q.ExplanationC != "" || q.ExplanationD != "" || q.ExplanationE != ""
}

// dedupKey builds the composite duplicate-detection key for a good row.
func dedupKey(g GoodRow) string {
	answer := g.Question.CorrectAnswers
	if answer == "" {
		answer = g.Question.Answer
	}
	parts := []string{g.Matiere, g.Cours, g.Question.Type, g.Question.CaseText, g.Question.Text, answer}
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(strings.ToLower(p)), " ")
	}
	return strings.Join(parts, "|")
}
