package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"profsync/internal/domain"
)

func buildClassificationPrompt(message string) string {
	return strings.Join([]string{
		"You are an intelligent assistant for ProfSync, specializing in professors. Your task is to classify the message:",
		"Message: \"" + message + "\"",
		"Determine whether the message is related to professors (e.g., ratings, reviews, professor inquiries) or if it is a casual conversation.",
		"",
		"Please return one of the following classifications (just text):",
		"1. " + string(domain.ProfessorSpecific),
		"2. " + string(domain.CasualConversation),
	}, "\n")
}

func buildCasualPrompt(message string) string {
	return fmt.Sprintf(
		"You are a friendly assistant of ProfSync that is similar to Rate My Professor. Here is the user's message: \"%s\". Respond accordingly.",
		message,
	)
}

func buildSummaryPrompt(results, message string) string {
	return fmt.Sprintf(
		"You're a friendly assistant of ProfSync that is similar to Rate My Professor and these are the matched results from Pinecone: %s\n"+
			"Can you please formulate the response for user based on the following message %s",
		results,
		message,
	)
}

// FlattenMatches renders search results as the plain-text block the summary
// prompt expects, one blank-line separated record per match.
func FlattenMatches(matches []domain.SearchMatch) string {
	var b strings.Builder
	b.WriteString("Returned Results from Pinecone: ")
	for _, m := range matches {
		fmt.Fprintf(&b, "\nProfessor: %s\nReview: %s\nSubject: %s\nStars: %s\n\n",
			m.ID, m.Review, m.Subject, strconv.FormatFloat(m.Stars, 'f', -1, 64))
	}
	return b.String()
}
