package engine

import (
	"strings"

	"wyckoff_watcher/internal/models"
)

// markerAliases maps the spellings engines actually produce onto the fixed
// finding vocabulary. Matching is case-insensitive with separators folded.
var markerAliases = map[string]models.Finding{
	"spring":             models.FindingSpring,
	"upthrust":           models.FindingUpthrust,
	"ut":                 models.FindingUpthrust,
	"lastpointofsupport": models.FindingLastPointOfSupport,
	"lps":                models.FindingLastPointOfSupport,
	"signofstrength":     models.FindingSignOfStrength,
	"sos":                models.FindingSignOfStrength,
	"signofweakness":     models.FindingSignOfWeakness,
	"sow":                models.FindingSignOfWeakness,
	"accumulation":       models.FindingAccumulation,
	"distribution":       models.FindingDistribution,
}

// NormalizeFindings maps free-form engine markers onto the fixed
// vocabulary, dropping whatever cannot be mapped and deduplicating while
// preserving order. An output with zero mappable markers is not an error:
// narrative-only results are still useful.
func NormalizeFindings(raw []string) []models.Finding {
	var out []models.Finding
	seen := make(map[models.Finding]bool)

	for _, marker := range raw {
		f, ok := markerAliases[foldMarker(marker)]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// foldMarker lowercases and strips spaces, hyphens and underscores so
// "Last Point of Support", "last-point-of-support" and "LPS" all resolve.
func foldMarker(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '_', '(', ')':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
