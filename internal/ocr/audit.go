package ocr

import (
	"fmt"
	"strings"
	"unicode"
)

// AuditResult reports whether the text printed on a generated certificate
// can be read back.
type AuditResult struct {
	Path       string  `json:"path"`
	ExpectedID string  `json:"expected_id"`
	IDFound    bool    `json:"id_found"`
	TitleFound bool    `json:"title_found"`
	Words      int     `json:"words"`
	Confidence float64 `json:"mean_confidence"`
	Text       string  `json:"text"`
}

// Readable reports whether both the ID and the title were recovered.
func (a *AuditResult) Readable() bool { return a.IDFound && a.TitleFound }

// AuditSample reads the image at path and checks that expectedID and title
// appear in the recognized text. Matching ignores case, whitespace and
// punctuation other than the hyphen, so "FAKE - 0007" matches "FAKE-0007".
func AuditSample(path, expectedID, title, language string) (*AuditResult, error) {
	if expectedID == "" {
		return nil, fmt.Errorf("expected certificate ID is required")
	}
	res, err := ExtractText(path, language)
	if err != nil {
		return nil, err
	}

	text := normalize(res.FullText)
	audit := &AuditResult{
		Path:       path,
		ExpectedID: expectedID,
		IDFound:    strings.Contains(text, normalize(expectedID)),
		TitleFound: title == "" || strings.Contains(text, normalize(title)),
		Words:      len(res.Regions),
		Confidence: res.MeanConfidence(),
		Text:       res.FullText,
	}
	return audit, nil
}

// normalize upper-cases s and keeps only letters, digits and hyphens.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
		case r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
