package synth

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

var (
	names        = []string{"John Doe", "Jane Smith", "Alice Johnson", "Bob Williams", "Carol Brown"}
	courses      = []string{"Web Development", "Data Science", "Machine Learning", "Cloud Computing", "Cybersecurity"}
	institutions = []string{"Tech University", "Digital Academy", "Innovation Institute", "Learning Center", "Education Hub"}
)

// Content is the text drawn onto one certificate.
type Content struct {
	CertificateID string
	Lines         []string
}

// fakeTemplate is the fixed text of the non-authentic classes; the person
// and ID carry the sample number.
type fakeTemplate struct {
	person, course, institution, idPrefix, date string
}

var fakeTemplates = map[dataset.Class]fakeTemplate{
	dataset.Forged:     {"Fake Person", "Fake Course", "Fake Institution", "FAKE", "Invalid Date"},
	dataset.Tampered:   {"Modified Name", "Edited Course", "Changed Institution", "EDIT", "January 15, 2024"},
	dataset.Screenshot: {"Screenshot User", "Screenshot Course", "Screenshot Institution", "SCREEN", "January 15, 2024"},
}

// ContentFor synthesizes the certificate text for sample number seq of class.
//
// Authentic certificates pick a name, course and institution at random from
// fixed pools; the other classes use a fixed fake-data template.
func ContentFor(class dataset.Class, seq int, rng *rand.Rand) Content {
	var person, course, institution, id, date string
	if tpl, ok := fakeTemplates[class]; ok {
		person = fmt.Sprintf("%s %d", tpl.person, seq)
		course = tpl.course
		institution = tpl.institution
		id = CertificateID(class, seq)
		date = tpl.date
	} else {
		person = names[rng.IntN(len(names))]
		course = courses[rng.IntN(len(courses))]
		institution = institutions[rng.IntN(len(institutions))]
		id = CertificateID(class, seq)
		date = "January 15, 2024"
	}

	return Content{
		CertificateID: id,
		Lines: []string{
			"This certifies that",
			"",
			person,
			"",
			"has successfully completed",
			"",
			course,
			"",
			"at " + institution,
			"",
			"Certificate ID: " + id,
			"Date: " + date,
		},
	}
}

// CertificateID returns the ID printed on sample number seq of class.
func CertificateID(class dataset.Class, seq int) string {
	if tpl, ok := fakeTemplates[class]; ok {
		return fmt.Sprintf("%s-%04d", tpl.idPrefix, seq)
	}
	return fmt.Sprintf("CERT-2024-%04d", seq)
}

// ParseSampleName splits a generated file name such as "fake_0007.jpg" into
// its prefix and sequence number.
func ParseSampleName(name string) (prefix string, seq int, err error) {
	stem, ok := strings.CutSuffix(name, ".jpg")
	if !ok {
		return "", 0, fmt.Errorf("sample name %q does not end in .jpg", name)
	}
	i := strings.LastIndexByte(stem, '_')
	if i <= 0 {
		return "", 0, fmt.Errorf("sample name %q has no prefix", name)
	}
	seq, err = strconv.Atoi(stem[i+1:])
	if err != nil || seq < 0 {
		return "", 0, fmt.Errorf("sample name %q has no sequence number", name)
	}
	return stem[:i], seq, nil
}
