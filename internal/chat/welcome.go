package chat

import (
	"math/rand"

	"github.com/arcoai/arcochat/internal/provider"
)

const welcomeText = "Hi! I'm Professor Arco, your violin study companion. " +
	"Ask me anything about technique, repertoire, or practice habits."

var sampleQuestionPool = []string{
	"How do I develop a relaxed vibrato?",
	"What should I practice to improve my intonation?",
	"How do I keep my bow straight?",
	"Which etudes help with spiccato?",
	"How much should I practice scales each day?",
	"What is a good warm-up routine?",
	"How do I memorize a piece reliably?",
	"When should I start learning shifting?",
	"How do I stop my left hand from tensing up?",
	"What repertoire suits an intermediate player?",
	"How do I practice double stops without squeezing?",
	"How can I make my tone less scratchy?",
}

// WelcomeMessage builds the assistant greeting that opens every fresh
// session, carrying n randomly chosen sample questions (0 disables them).
func WelcomeMessage(n int) Message {
	return Message{
		Role:            provider.RoleAssistant,
		Content:         welcomeText,
		SampleQuestions: randomQuestions(n),
	}
}

func randomQuestions(n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(sampleQuestionPool) {
		n = len(sampleQuestionPool)
	}
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(sampleQuestionPool))[:n] {
		out = append(out, sampleQuestionPool[i])
	}
	return out
}
