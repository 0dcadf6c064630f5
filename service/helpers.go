package service

import (
	"fmt"
	"strings"

	"agrigate/core"
)

// maxReportedEntities caps how many entities are listed in the
// formatted analysis text.
const maxReportedEntities = 10

// FormatAnalysisResults renders sentiment and entity findings as a
// short English summary suitable for translation.
func FormatAnalysisResults(sentiment *core.SentimentResult, entities *core.EntityResult) string {
	var parts []string

	if sentiment != nil && sentiment.Overall != "" {
		parts = append(parts, fmt.Sprintf("Sentiment: %s", sentiment.Overall))
	}

	if entities != nil && len(entities.Entities) > 0 {
		listed := entities.Entities
		if len(listed) > maxReportedEntities {
			listed = listed[:maxReportedEntities]
		}
		var described []string
		for _, entity := range listed {
			if entity.Word == "" {
				continue
			}
			entityType := entity.Type
			if entityType == "" {
				entityType = "unknown"
			}
			described = append(described, fmt.Sprintf("%s (%s)", entity.Word, entityType))
		}
		if len(described) > 0 {
			parts = append(parts, fmt.Sprintf("Entities found: %s", strings.Join(described, ", ")))
		}
	}

	if len(parts) == 0 {
		return "Analysis completed. No significant patterns detected."
	}
	return strings.Join(parts, ". ") + "."
}
