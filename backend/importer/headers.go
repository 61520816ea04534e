package importer

import "strings"

// Canonical column names of the question-bank spreadsheet format. Files in
// the wild spell these in many ways ("Matière", "mat", "Option A)", "Réponse",
// "N° question", ...); CanonicalHeader maps any spelling onto this set.
const (
	HeaderMatiere      = "matiere"
	HeaderCours        = "cours"
	HeaderQuestionNum  = "question n"
	HeaderCasNum       = "cas n"
	HeaderSource       = "source"
	HeaderCaseText     = "texte du cas"
	HeaderQuestionText = "texte de la question"
	HeaderReponse      = "reponse"
	HeaderOptionA      = "option a"
	HeaderOptionB      = "option b"
	HeaderOptionC      = "option c"
	HeaderOptionD      = "option d"
	HeaderOptionE      = "option e"
	HeaderRappel       = "rappel"
	HeaderExplication  = "explication"
	HeaderExplicationA = "explication a"
	HeaderExplicationB = "explication b"
	HeaderExplicationC = "explication c"
	HeaderExplicationD = "explication d"
	HeaderExplicationE = "explication e"
	HeaderImage        = "image"
	HeaderNiveau       = "niveau"
	HeaderSemestre     = "semestre"
)

// CanonicalHeaders lists every canonical column in export order.
var CanonicalHeaders = []string{
	HeaderMatiere, HeaderCours, HeaderQuestionNum, HeaderCasNum, HeaderSource,
	HeaderCaseText, HeaderQuestionText, HeaderReponse,
	HeaderOptionA, HeaderOptionB, HeaderOptionC, HeaderOptionD, HeaderOptionE,
	HeaderRappel, HeaderExplication,
	HeaderExplicationA, HeaderExplicationB, HeaderExplicationC, HeaderExplicationD, HeaderExplicationE,
	HeaderImage, HeaderNiveau, HeaderSemestre,
}

var accentReplacer = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "ä", "a",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"û", "u", "ù", "u", "ü", "u",
	"ç", "c",
	"°", " ",
)

// normalizeHeader lowercases, strips French accents and collapses spacing
// and punctuation so keyword matching sees a stable form.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = accentReplacer.Replace(h)
	for _, cut := range []string{"(", ")", ":", ".", "_", "-", "/"} {
		h = strings.ReplaceAll(h, cut, " ")
	}
	return strings.Join(strings.Fields(h), " ")
}

// trailingLetter returns the option letter a-e a header ends with, if any.
func trailingLetter(h string) (string, bool) {
	fields := strings.Fields(h)
	if len(fields) == 0 {
		return "", false
	}
	last := fields[len(fields)-1]
	if len(last) == 1 && last >= "a" && last <= "e" {
		return last, true
	}
	return "", false
}

func hasNumberMarker(h string) bool {
	for _, marker := range []string{" n", "n ", "num", "numero", "no "} {
		if strings.Contains(h, marker) {
			return true
		}
	}
	return strings.HasSuffix(h, "n")
}

// CanonicalHeader maps a raw column header to its canonical name. Rules are
// evaluated most specific first ("explication a" before "explication",
// "texte du cas" before "cas n") so an ambiguous header cannot be captured
// by a broader rule that happens to match earlier. Unrecognized headers are
// returned trimmed so they stay visible in reports.
func CanonicalHeader(raw string) string {
	h := normalizeHeader(raw)
	if h == "" {
		return strings.TrimSpace(raw)
	}

	switch {
	case strings.Contains(h, "texte") && strings.Contains(h, "cas"),
		strings.Contains(h, "enonce") && strings.Contains(h, "cas"):
		return HeaderCaseText

	case strings.Contains(h, "explication"), strings.Contains(h, "justification"):
		if letter, ok := trailingLetter(h); ok {
			return "explication " + letter
		}
		return HeaderExplication

	case strings.Contains(h, "option"), strings.Contains(h, "proposition"):
		if letter, ok := trailingLetter(h); ok {
			return "option " + letter
		}
		return strings.TrimSpace(raw)

	case strings.Contains(h, "question"):
		if hasNumberMarker(strings.ReplaceAll(h, "question", " ")) {
			return HeaderQuestionNum
		}
		return HeaderQuestionText

	case strings.Contains(h, "cas"):
		return HeaderCasNum

	case strings.Contains(h, "matiere"), strings.Contains(h, "specialite"),
		strings.Contains(h, "discipline"), h == "mat":
		return HeaderMatiere

	case strings.Contains(h, "rappel"):
		// Before the cours rule: "rappel du cours" is a rappel column.
		return HeaderRappel

	case strings.Contains(h, "cours"), strings.Contains(h, "chapitre"):
		return HeaderCours

	case strings.Contains(h, "reponse"), h == "rep":
		return HeaderReponse

	case strings.Contains(h, "source"), strings.Contains(h, "session"):
		return HeaderSource

	case strings.Contains(h, "image"), strings.Contains(h, "illustration"):
		return HeaderImage

	case strings.Contains(h, "niveau"):
		return HeaderNiveau

	case strings.Contains(h, "semestre"):
		return HeaderSemestre
	}

	return strings.TrimSpace(raw)
}
