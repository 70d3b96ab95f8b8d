package resume

import (
	"encoding/json"
	"strings"
)

// ShareText is the blurb offered alongside a share link. It reads whatever
// JSON the client shared and tolerates missing fields.
func ShareText(resumeData json.RawMessage) string {
	var doc struct {
		PersonalInfo struct {
			Name string `json:"name"`
		} `json:"personalInfo"`
		Education  json.RawMessage   `json:"education"`
		Experience []json.RawMessage `json:"experience"`
	}
	// Fields of the wrong shape stay empty.
	_ = json.Unmarshal(resumeData, &doc)

	name := strings.TrimSpace(doc.PersonalInfo.Name)
	if name == "" {
		name = "A candidate"
	}

	var edu struct {
		University string `json:"university"`
	}
	_ = json.Unmarshal(doc.Education, &edu)

	var position string
	if len(doc.Experience) > 0 {
		var first struct {
			Position string `json:"position"`
		}
		_ = json.Unmarshal(doc.Experience[0], &first)
		position = strings.TrimSpace(first.Position)
	}

	var b strings.Builder
	b.WriteString(name + "'s résumé")
	if u := strings.TrimSpace(edu.University); u != "" {
		b.WriteString("\nGraduated from " + u)
	}
	if position != "" {
		b.WriteString("\nMost recent position: " + position)
	}
	b.WriteString("\n\nOpen the link to view the full résumé.")
	return b.String()
}
