package syllabus

import (
	"encoding/json"
	"regexp"
	"strings"

	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

// Syllabus is the validated, canonical form of one extraction response.
type Syllabus struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Chapters    []Chapter `json:"chapters"`
}

// Chapter keeps its topics in received order: topics denote syllabus
// presentation order, not alphabetic order.
type Chapter struct {
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}

// payload mirrors the two-field record the oracle is asked to produce.
// Pointer fields distinguish "absent" from "empty".
type payload struct {
	Description *string          `json:"syllabusDescription"`
	Chapters    *[]chapterRecord `json:"chapters"`
}

type chapterRecord struct {
	Name   *string   `json:"chapterName"`
	Topics *[]string `json:"topics"`
}

// enumeration marker: a digit sequence followed by a period and whitespace,
// or a bullet glyph followed by whitespace.
var topicMarker = regexp.MustCompile(`^(?:\d+\.\s+|[-*\x{2022}\x{2023}\x{25E6}]\s+)`)

// Normalize validates and canonicalizes sanitized extraction text into a
// Syllabus. The subject name is always the caller-supplied one, never a name
// the oracle proposed. Structural problems fail fast with MALFORMED_PAYLOAD;
// there is no partial recovery.
func Normalize(raw, subjectName string) (*Syllabus, error) {
	text := Sanitize(raw)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrMalformedPayload, "extraction response is empty")
	}

	// Unknown fields are tolerated: the oracle may volunteer a subject name,
	// which the caller-supplied name overrides below.
	dec := json.NewDecoder(strings.NewReader(text))

	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedPayload.Code, appErrors.ErrMalformedPayload.Status, "extraction response is not a valid syllabus record")
	}
	// Explanatory prose around the object is unsupported; a partial match is
	// worse than an explicit failure.
	if dec.More() {
		return nil, appErrors.Clone(appErrors.ErrMalformedPayload, "extraction response contains trailing content")
	}
	if p.Description == nil || p.Chapters == nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedPayload, "extraction response is missing required fields")
	}

	out := &Syllabus{
		Name:        subjectName,
		Description: strings.TrimSpace(*p.Description),
		Chapters:    make([]Chapter, 0, len(*p.Chapters)),
	}
	for _, ch := range *p.Chapters {
		if ch.Name == nil || ch.Topics == nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedPayload, "chapter record is missing required fields")
		}
		chapter := Chapter{Name: strings.TrimSpace(*ch.Name), Topics: make([]string, 0, len(*ch.Topics))}
		for _, topic := range *ch.Topics {
			cleaned := CanonicalizeTopic(topic)
			if cleaned == "" {
				continue
			}
			chapter.Topics = append(chapter.Topics, cleaned)
		}
		// A chapter heading may legitimately have no topics yet.
		out.Chapters = append(out.Chapters, chapter)
	}
	return out, nil
}

// CanonicalizeTopic strips a leading enumeration marker and trims the
// remainder. Returns "" for topics that carry no content.
func CanonicalizeTopic(topic string) string {
	cleaned := strings.TrimSpace(topic)
	cleaned = topicMarker.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
