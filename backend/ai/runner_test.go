package ai

import (
	"testing"

	"carabin/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdicts(t *testing.T) {
	verdicts, err := parseVerdicts(`[{"id": 3, "ok": false, "correct_answers": "B", "note": "option A fausse"}]`)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, uint(3), verdicts[0].ID)
	assert.False(t, verdicts[0].OK)
	assert.Equal(t, "B", verdicts[0].CorrectAnswers)
}

func TestParseVerdictsStripsCodeFences(t *testing.T) {
	content := "```json\n[{\"id\": 1, \"ok\": true}]\n```"
	verdicts, err := parseVerdicts(content)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.True(t, verdicts[0].OK)

	verdicts, err = parseVerdicts("```\n[]\n```")
	require.NoError(t, err)
	assert.Empty(t, verdicts)
}

func TestParseVerdictsRejectsProse(t *testing.T) {
	_, err := parseVerdicts("Je ne peux pas repondre.")
	assert.Error(t, err)
}

func TestBatchPrompt(t *testing.T) {
	batch := []models.Question{
		{
			Type:           models.QuestionQCM,
			Text:           "Quel est le germe le plus frequent ?",
			OptionA:        "E. coli",
			OptionB:        "S. aureus",
			CorrectAnswers: "A",
		},
		{
			Type:     models.QuestionCasQROC,
			CaseText: "Femme de 25 ans, brulures mictionnelles.",
			Text:     "Quel examen demandez-vous ?",
			Answer:   "ECBU",
		},
	}
	batch[0].ID = 7
	batch[1].ID = 8

	prompt := batchPrompt(batch)
	assert.Contains(t, prompt, "id=7 type=qcm")
	assert.Contains(t, prompt, "A) E. coli")
	assert.Contains(t, prompt, "reponse actuelle: A")
	assert.Contains(t, prompt, "id=8 type=cas_qroc")
	assert.Contains(t, prompt, "cas: Femme de 25 ans, brulures mictionnelles.")
	assert.Contains(t, prompt, "reponse actuelle: ECBU")
	assert.NotContains(t, prompt, "C) ")
}
