package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildUpload writes an in-memory xlsx the way a maintainer would hand
// it in: raw French headers, one QCM sheet and one QROC sheet.
func buildUpload(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "QCM"))
	qcmRows := [][]interface{}{
		{"Matière", "Cours", "Question", "Option A", "Option B", "Réponse", "Explication"},
		{"Cardiologie", "HTA", "Quel seuil definit l'HTA ?", "140/90", "160/100", "A", "Seuil de consultation."},
		{"Cardiologie", "HTA", "Ligne sans reponse", "Oui", "Non", "", "Explication."},
	}
	for i, row := range qcmRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("QCM", cell, &row))
	}

	_, err := f.NewSheet("QROC")
	require.NoError(t, err)
	qrocRows := [][]interface{}{
		{"Matière", "Cours", "Question", "Réponse", "Rappel"},
		{"Pneumologie", "Asthme", "Citer un signe de gravite.", "Silence auscultatoire", "Signes d'alarme."},
	}
	for i, row := range qrocRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("QROC", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadClassifyExportRoundTrip(t *testing.T) {
	sheets, err := ReadWorkbook("upload.xlsx", buildUpload(t))
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "qcm", sheets[0].Kind)
	assert.Equal(t, "qroc", sheets[1].Kind)

	result := Classify(sheets)
	require.Len(t, result.Good, 2)
	require.Len(t, result.Bad, 1)

	out, err := WriteWorkbook(result.Good)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"QCM", "QROC"}, out.GetSheetList())

	// Re-reading the export classifies clean: the canonical headers must
	// survive their own canonicalization.
	buf, err := out.WriteToBuffer()
	require.NoError(t, err)
	again, err := ReadWorkbook("export.xlsx", buf)
	require.NoError(t, err)
	reclassified := Classify(again)
	assert.Len(t, reclassified.Good, 2)
	assert.Empty(t, reclassified.Bad)
}

func TestWriteWorkbookEmpty(t *testing.T) {
	_, err := WriteWorkbook(nil)
	assert.Error(t, err)
}

func TestBadRowsWorkbook(t *testing.T) {
	sheets, err := ReadWorkbook("upload.xlsx", buildUpload(t))
	require.NoError(t, err)
	result := Classify(sheets)
	require.Len(t, result.Bad, 1)

	f, err := BadRowsWorkbook(result)
	require.NoError(t, err)
	assert.Equal(t, []string{"QCM"}, f.GetSheetList())

	rows, err := f.GetRows("QCM")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "erreur", rows[0][len(rows[0])-1])
	assert.Equal(t, "reponse manquante ou illisible", rows[1][len(rows[1])-1])
}

func TestBadRowsWorkbookEmpty(t *testing.T) {
	_, err := BadRowsWorkbook(&Result{})
	assert.Error(t, err)
}

func TestTextReport(t *testing.T) {
	sheets, err := ReadWorkbook("upload.xlsx", buildUpload(t))
	require.NoError(t, err)
	report := TextReport(Classify(sheets))

	assert.Contains(t, report, "Lignes valides : 2")
	assert.Contains(t, report, "Lignes rejetees: 1")
	assert.Contains(t, report, `Feuille "QCM" (qcm): 1 valides, 1 rejetees`)
	assert.Contains(t, report, "reponse manquante ou illisible")
	assert.Contains(t, report, "QCM ligne 3")
}

func TestReadWorkbookCSV(t *testing.T) {
	csv := strings.NewReader("Matière,Cours,Question,Réponse,Rappel\n" +
		"Anatomie,Membre superieur,Citer les os du carpe.,Scaphoide...,Huit os.\n")

	sheets, err := ReadWorkbook("qroc banque.csv", csv)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "qroc", sheets[0].Kind)
	assert.Equal(t, "qroc banque", sheets[0].Name)

	result := Classify(sheets)
	assert.Len(t, result.Good, 1)
	assert.Empty(t, result.Bad)
}

func TestReadWorkbookUnsupportedExtension(t *testing.T) {
	_, err := ReadWorkbook("notes.txt", strings.NewReader("hello"))
	assert.Error(t, err)
}
