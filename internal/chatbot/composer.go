package chatbot

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/serenity-health/risk-api/pkg/logging"
)

// crisisProbabilityThreshold flags a crisis whenever the Suicidal class
// probability exceeds it, even when another label won. Deliberately lower
// than the decision engine's confidence gate: crisis flagging is more
// sensitive than general confidence gating, and the two constants are
// independent policy knobs.
const crisisProbabilityThreshold = 0.3

// followUpConfidenceThreshold triggers an exploratory follow-up prompt when
// the predicted label's own probability falls below it.
const followUpConfidenceThreshold = 0.5

// empathyTurnThreshold is the prior-turn count beyond which distressed users
// get an empathy acknowledgment prefix.
const empathyTurnThreshold = 2

// Label buckets the composer selects responses for.
const (
	LabelAnxiety    = "Anxiety"
	LabelDepression = "Depression"
	LabelSuicidal   = "Suicidal"
	LabelNormal     = "Normal"
)

// CrisisResources is the static hotline reference payload attached to crisis
// replies. Loaded once, never mutated.
type CrisisResources struct {
	Hotlines []string `json:"hotlines"`
}

// DefaultCrisisResources returns the built-in crisis support resources.
func DefaultCrisisResources() *CrisisResources {
	return &CrisisResources{
		Hotlines: []string{
			"National Suicide Prevention Lifeline: 988 or 1-800-273-8255",
			"Crisis Text Line: Text HOME to 741741",
			"International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/",
		},
	}
}

// Reply is a composed user-facing response.
type Reply struct {
	Text                     string
	CrisisDetected           bool
	RequiresProfessionalHelp bool
	CrisisResources          *CrisisResources
}

// Composer maps a prediction to a human-facing reply. Variant selection
// within a label bucket uses the injected randomness source so tests can pin
// deterministic output.
type Composer struct {
	logger    *logging.Logger
	resources *CrisisResources
	templates map[string][]string
	empathy   []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewComposer creates a composer. rng may be nil, in which case an unseeded
// source is used.
func NewComposer(rng *rand.Rand, logger *logging.Logger) *Composer {
	if logger == nil {
		logger = logging.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Composer{
		logger:    logger,
		resources: DefaultCrisisResources(),
		rng:       rng,
		templates: map[string][]string{
			LabelAnxiety: {
				"I notice you might be feeling anxious. That's completely valid. Would you like to try a breathing exercise or talk about what's on your mind?",
				"It sounds like you're experiencing some anxiety. Remember, these feelings are temporary. Would you like some coping strategies?",
				"I understand you're feeling anxious right now. Let's work through this together. What would help you most - a grounding technique or just talking?",
			},
			LabelDepression: {
				"I hear that you're going through a difficult time. Your feelings are valid, and I'm here to support you. Would you like to talk about what's been weighing on you?",
				"It sounds like things have been really tough lately. Please know that you're not alone. Would you like to explore some gentle activities that might help?",
				"Thank you for sharing how you're feeling. Depression can be overwhelming, but there are ways to manage it. Would you like to talk more or learn about resources?",
			},
			LabelSuicidal: {
				"I'm very concerned about what you've shared. Please know that help is available right now. Would you like me to connect you with a crisis helpline?",
				"Your safety is the top priority. Please reach out to a crisis helpline immediately or call emergency services. I'm here, but professional help is crucial right now.",
				"I'm worried about you. If you're having thoughts of harming yourself, please contact a crisis helpline or go to the nearest emergency room. Would you like crisis resources?",
			},
			LabelNormal: {
				"Thank you for sharing with me. How are you feeling today?",
				"I'm here to listen and support you. What would you like to talk about?",
				"That's great to hear. Is there anything specific you'd like to explore or discuss?",
			},
		},
		empathy: []string{
			"I've been listening, and ",
			"Thank you for continuing to share. ",
			"I appreciate you opening up. ",
		},
	}
}

// pick selects a random element; the lock keeps the rand source safe under
// concurrent requests.
func (c *Composer) pick(options []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.rng.Intn(len(options))]
}

// Compose builds the reply for a predicted label, its probability
// distribution, and the number of prior conversation turns.
func (c *Composer) Compose(label string, probabilities map[string]float64, priorTurns int) *Reply {
	templates, ok := c.templates[label]
	if !ok {
		templates = c.templates[LabelNormal]
	}
	text := c.pick(templates)

	// Returning users in distress get an empathy acknowledgment first. The
	// base response is folded to lowercase so it reads as a continuation of
	// the acknowledgment.
	if priorTurns > empathyTurnThreshold && isDistressLabel(label) {
		text = c.pick(c.empathy) + strings.ToLower(text)
	}

	// Low own-label probability: hedge with an exploratory follow-up.
	if probabilities[label] < followUpConfidenceThreshold && label != LabelNormal {
		text += " I want to understand better - can you tell me more?"
	}

	crisis := label == LabelSuicidal || probabilities[LabelSuicidal] > crisisProbabilityThreshold

	reply := &Reply{
		Text:                     text,
		CrisisDetected:           crisis,
		RequiresProfessionalHelp: crisis || label == LabelSuicidal || label == LabelDepression,
	}
	if crisis {
		reply.CrisisResources = c.resources
	}

	c.logger.Info("composed response", "prediction", label, "crisis_detected", crisis)
	return reply
}

// Fallback returns the safe degraded reply used when prediction fails.
// Safety flags were still evaluated upstream; crisisSuspected carries that
// signal so a failed prediction never suppresses crisis resources.
func (c *Composer) Fallback(crisisSuspected bool) *Reply {
	reply := &Reply{
		Text:                     "I'm having trouble processing that right now. Could you try rephrasing?",
		CrisisDetected:           crisisSuspected,
		RequiresProfessionalHelp: crisisSuspected,
	}
	if crisisSuspected {
		reply.Text = "I'm having trouble processing that right now, but your safety matters most. If you're in distress, please reach out to a crisis helpline."
		reply.CrisisResources = c.resources
	}
	return reply
}

// Greeting returns the initial greeting message.
func (c *Composer) Greeting() string {
	return "Hello! I'm here to support you. How are you feeling today?"
}

// Resources returns the static crisis resource payload.
func (c *Composer) Resources() *CrisisResources {
	return c.resources
}

func isDistressLabel(label string) bool {
	return label == LabelAnxiety || label == LabelDepression || label == LabelSuicidal
}
