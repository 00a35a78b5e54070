package service

import (
	"context"
	"strings"
)

// DefaultUrgencyScore is used whenever no diagnosis is available
const DefaultUrgencyScore = 5.0

// Diagnosis is the output of a symptom analysis
type Diagnosis struct {
	Text            string   `json:"diagnosis"`
	UrgencyScore    float64  `json:"urgency_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Diagnoser turns free-text symptoms into a preliminary diagnosis and urgency score
type Diagnoser interface {
	Diagnose(ctx context.Context, symptoms, toothID, history string) Diagnosis
}

type diagnosisRule struct {
	keywords        []string
	text            string
	urgency         float64
	recommendations []string
}

// Rules are checked in order; the first match wins
var diagnosisRules = []diagnosisRule{
	{
		keywords:        []string{"severe pain", "excruciating", "unbearable"},
		text:            "Severe dental pain - possible acute pulpitis or abscess",
		urgency:         9.0,
		recommendations: []string{"Immediate dental attention required", "Pain management needed"},
	},
	{
		keywords:        []string{"sharp pain", "shooting pain"},
		text:            "Sharp dental pain - possible nerve involvement",
		urgency:         7.5,
		recommendations: []string{"Urgent dental appointment", "Avoid hot/cold foods"},
	},
	{
		keywords:        []string{"toothache", "tooth pain"},
		text:            "Dental pain - possible caries or sensitivity",
		urgency:         6.0,
		recommendations: []string{"Schedule dental appointment", "Use pain relief if needed"},
	},
	{
		keywords:        []string{"sensitivity", "sensitive"},
		text:            "Tooth sensitivity - possible enamel erosion or exposed dentin",
		urgency:         4.0,
		recommendations: []string{"Use desensitizing toothpaste", "Avoid acidic foods"},
	},
	{
		keywords:        []string{"bleeding"},
		text:            "Gum bleeding - possible gingivitis or periodontitis",
		urgency:         5.5,
		recommendations: []string{"Improve oral hygiene", "Professional cleaning needed"},
	},
	{
		keywords:        []string{"swelling", "swollen"},
		text:            "Dental swelling - possible infection or abscess",
		urgency:         8.0,
		recommendations: []string{"Urgent dental attention", "Possible antibiotic treatment needed"},
	},
}

// RuleBasedDiagnoser matches symptom keywords against a fixed rule table
type RuleBasedDiagnoser struct{}

func NewRuleBasedDiagnoser() Diagnoser {
	return RuleBasedDiagnoser{}
}

func (RuleBasedDiagnoser) Diagnose(_ context.Context, symptoms, _, _ string) Diagnosis {
	text := strings.ToLower(symptoms)

	for _, rule := range diagnosisRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return Diagnosis{
					Text:            rule.text,
					UrgencyScore:    rule.urgency,
					Recommendations: rule.recommendations,
				}
			}
		}
	}

	return Diagnosis{
		Text:         "General dental consultation recommended",
		UrgencyScore: DefaultUrgencyScore,
	}
}
