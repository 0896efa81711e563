// Package devicerisk scores inventory devices from their type and the
// organisation's declared risk tags, and optionally pulls an agent-reported
// score from a Wazuh manager.
package devicerisk

import (
	"sort"
	"strings"
)

// Level is the qualitative band of a device risk score
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

const (
	minScore = 0
	maxScore = 100

	defaultDeviceType = "other"
)

var baseScores = map[string]int{
	"server":      40,
	"workstation": 30,
	"laptop":      35,
	"mobile":      35,
	"iot":         45,
	"network":     40,
	"virtual":     30,
	"cloud":       35,
	"other":       25,
}

// free-form spellings seen in imported inventories
var typeAliases = map[string]string{
	"desktop":         "workstation",
	"pc":              "workstation",
	"notebook":        "laptop",
	"phone":           "mobile",
	"smartphone":      "mobile",
	"tablet":          "mobile",
	"router":          "network",
	"switch":          "network",
	"firewall":        "network",
	"access-point":    "network",
	"vm":              "virtual",
	"virtual-machine": "virtual",
	"container":       "virtual",
	"cloud-instance":  "cloud",
	"printer":         "iot",
	"camera":          "iot",
}

var tagWeights = map[string]int{
	"legacy-systems":     15,
	"remote-workforce":   10,
	"no-mfa":             20,
	"public-facing":      15,
	"flat-network":       12,
	"byod":               10,
	"unpatched":          18,
	"third-party-access": 8,
	"shadow-it":          8,
	"regulated-data":     10,
}

// NormalizeTag lower-cases a tag and joins words with dashes
func NormalizeTag(tag string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(tag, "_", " "))), "-")
}

// NormalizeDeviceType maps a device type onto one of the scored types.
// Unknown types become "other".
func NormalizeDeviceType(deviceType string) string {
	t := NormalizeTag(deviceType)
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	if _, ok := baseScores[t]; ok {
		return t
	}
	return defaultDeviceType
}

// NormalizeTags normalises, de-duplicates and sorts a tag list
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		n := NormalizeTag(tag)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CalculateDeviceRiskScore returns a 0-100 score: the base score of the device
// type plus the weight of each known organisation risk tag.
func CalculateDeviceRiskScore(orgRiskTags []string, deviceType string) int {
	score := baseScores[NormalizeDeviceType(deviceType)]
	for _, tag := range NormalizeTags(orgRiskTags) {
		score += tagWeights[tag]
	}
	return clampScore(score)
}

// RiskLevelFromScore bands a score: 80+ Critical, 60+ High, 40+ Medium.
func RiskLevelFromScore(score int) Level {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// KnownTags lists the weighted risk tags in name order
func KnownTags() []string {
	tags := make([]string, 0, len(tagWeights))
	for tag := range tagWeights {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// DeviceTypes lists the scored device types in name order
func DeviceTypes() []string {
	types := make([]string, 0, len(baseScores))
	for t := range baseScores {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
