package rag

import (
	"strings"

	"github.com/readmate/readmate/internal/vectorstore"
)

type RejectionReason string

const (
	RejectionNone              RejectionReason = ""
	RejectionNoRelevantContent RejectionReason = "no_relevant_content"
	RejectionMarginalRelevance RejectionReason = "marginal_relevance"
)

// GroundedContext is the filtered evidence set handed to the composer.
// Every chunk in Chunks cleared the relevance threshold; when none did,
// Chunks is empty and IsGrounded is false.
type GroundedContext struct {
	Chunks          []vectorstore.Match
	IsGrounded      bool
	RejectionReason RejectionReason
	TopScore        float32
}

type ValidatorConfig struct {
	MinRelevance float32
	// Margin widens the rejection band for open-ended questions whose top
	// score only barely clears the threshold. Zero disables the heuristic.
	Margin float32
}

// Validator is the sole gate between retrieval and generation: no prompt is
// ever built for a question whose evidence failed this check.
type Validator struct {
	cfg ValidatorConfig
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) Validate(res *RetrievalResult, question string) *GroundedContext {
	var kept []vectorstore.Match
	for _, m := range res.Matches {
		if m.Score >= v.cfg.MinRelevance {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return &GroundedContext{IsGrounded: false, RejectionReason: RejectionNoRelevantContent}
	}
	top := kept[0].Score
	if v.cfg.Margin > 0 && top < v.cfg.MinRelevance+v.cfg.Margin && isOpenEnded(question) {
		return &GroundedContext{IsGrounded: false, RejectionReason: RejectionMarginalRelevance, TopScore: top}
	}
	return &GroundedContext{Chunks: kept, IsGrounded: true, TopScore: top}
}

var openEndedMarkers = []string{
	"what do you think",
	"in your opinion",
	"do you believe",
	"how do you feel",
	"would you say",
	"personally",
}

func isOpenEnded(question string) bool {
	q := strings.ToLower(question)
	for _, marker := range openEndedMarkers {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}
