package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"carabin/backend/models"

	"github.com/xuri/excelize/v2"
)

var kindSheetNames = map[string]string{
	models.QuestionQCM:     "QCM",
	models.QuestionQROC:    "QROC",
	models.QuestionCasQCM:  "Cas QCM",
	models.QuestionCasQROC: "Cas QROC",
}

var kindOrder = []string{
	models.QuestionQCM, models.QuestionQROC, models.QuestionCasQCM, models.QuestionCasQROC,
}

// WriteWorkbook serializes good rows back into a canonical workbook, one
// sheet per question type.
func WriteWorkbook(good []GoodRow) (*excelize.File, error) {
	f := excelize.NewFile()
	first := true

	for _, kind := range kindOrder {
		var rows []GoodRow
		for _, g := range good {
			if g.Question.Type == kind {
				rows = append(rows, g)
			}
		}
		if len(rows) == 0 {
			continue
		}

		name := kindSheetNames[kind]
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, err
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		header := make([]interface{}, len(CanonicalHeaders))
		for i, h := range CanonicalHeaders {
			header[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, err
		}
		for i, g := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, err
			}
			row := canonicalRow(g)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, err
			}
		}
	}

	if first {
		return nil, fmt.Errorf("no rows to export")
	}
	return f, nil
}

// canonicalRow flattens a good row into CanonicalHeaders order.
func canonicalRow(g GoodRow) []interface{} {
	q := g.Question
	reponse := q.Answer
	if q.IsQCM() {
		reponse = q.CorrectAnswers
	}
	byHeader := map[string]string{
		HeaderMatiere:      g.Matiere,
		HeaderCours:        g.Cours,
		HeaderQuestionNum:  numOrEmpty(q.Number),
		HeaderCasNum:       numOrEmpty(q.CaseNumber),
		HeaderSource:       q.Source,
		HeaderCaseText:     q.CaseText,
		HeaderQuestionText: q.Text,
		HeaderReponse:      reponse,
		HeaderOptionA:      q.OptionA,
		HeaderOptionB:      q.OptionB,
		HeaderOptionC:      q.OptionC,
		HeaderOptionD:      q.OptionD,
		HeaderOptionE:      q.OptionE,
		HeaderRappel:       q.Rappel,
		HeaderExplication:  q.Explanation,
		HeaderExplicationA: q.ExplanationA,
		HeaderExplicationB: q.ExplanationB,
		HeaderExplicationC: q.ExplanationC,
		HeaderExplicationD: q.ExplanationD,
		HeaderExplicationE: q.ExplanationE,
		HeaderImage:        q.ImageURL,
		HeaderNiveau:       q.Niveau,
		HeaderSemestre:     q.Semestre,
	}

	row := make([]interface{}, len(CanonicalHeaders))
	for i, h := range CanonicalHeaders {
		row[i] = byHeader[h]
	}
	return row
}

func numOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// BadRowsWorkbook exports rejected rows grouped by their original sheet,
// original cells first and the rejection reason in a trailing "erreur"
// column, ready for correction and re-upload.
func BadRowsWorkbook(result *Result) (*excelize.File, error) {
	if len(result.Bad) == 0 {
		return nil, fmt.Errorf("no rejected rows to export")
	}

	bySheet := make(map[string][]BadRow)
	var sheetNames []string
	for _, b := range result.Bad {
		if _, ok := bySheet[b.Sheet]; !ok {
			sheetNames = append(sheetNames, b.Sheet)
		}
		bySheet[b.Sheet] = append(bySheet[b.Sheet], b)
	}

	f := excelize.NewFile()
	for i, name := range sheetNames {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		headers := presentHeaders(bySheet[name])
		headerRow := make([]interface{}, 0, len(headers)+1)
		for _, h := range headers {
			headerRow = append(headerRow, h)
		}
		headerRow = append(headerRow, "erreur")
		if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
			return nil, err
		}

		for j, b := range bySheet[name] {
			row := make([]interface{}, 0, len(headers)+1)
			for _, h := range headers {
				row = append(row, b.Cells[h])
			}
			row = append(row, b.Reason)
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// presentHeaders orders the columns of a bad-rows sheet: canonical headers
// first, then any unrecognized column that survived canonicalization.
func presentHeaders(rows []BadRow) []string {
	present := make(map[string]bool)
	for _, b := range rows {
		for h := range b.Cells {
			present[h] = true
		}
	}

	var headers []string
	for _, h := range CanonicalHeaders {
		if present[h] {
			headers = append(headers, h)
			delete(present, h)
		}
	}
	var extras []string
	for h := range present {
		extras = append(extras, h)
	}
	sort.Strings(extras)
	return append(headers, extras...)
}

// TextReport renders a human-readable classification summary.
func TextReport(result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rapport de validation\n")
	fmt.Fprintf(&b, "=====================\n\n")
	fmt.Fprintf(&b, "Lignes valides : %d\n", len(result.Good))
	fmt.Fprintf(&b, "Lignes rejetees: %d\n\n", len(result.Bad))

	for _, s := range result.Sheets {
		fmt.Fprintf(&b, "Feuille %q (%s): %d valides, %d rejetees\n", s.Name, s.Kind, s.Good, s.Bad)
	}

	if len(result.Bad) > 0 {
		reasons := make(map[string]int)
		var order []string
		for _, bad := range result.Bad {
			if reasons[bad.Reason] == 0 {
				order = append(order, bad.Reason)
			}
			reasons[bad.Reason]++
		}
		sort.Slice(order, func(i, j int) bool {
			if reasons[order[i]] != reasons[order[j]] {
				return reasons[order[i]] > reasons[order[j]]
			}
			return order[i] < order[j]
		})

		fmt.Fprintf(&b, "\nMotifs de rejet:\n")
		for _, reason := range order {
			fmt.Fprintf(&b, "  %4d  %s\n", reasons[reason], reason)
		}

		fmt.Fprintf(&b, "\nDetail:\n")
		for _, bad := range result.Bad {
			fmt.Fprintf(&b, "  %s ligne %d: %s\n", bad.Sheet, bad.Number, bad.Reason)
		}
	}
	return b.String()
}
