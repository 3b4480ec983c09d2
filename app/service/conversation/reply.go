package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"govassist/app/service/catalog"
	"govassist/app/service/classifier"
	"govassist/app/service/lexicon"
)

const (
	menuFollowUp    = "menu"
	clarifyFollowUp = "clarify"

	generalDepartment = "general"
)

const (
	safeReply = "Sorry, something went wrong on our side. Please try again, or call 311 to reach a city representative."

	emergencyReply = "If this is an emergency or anyone is in danger, call 911 right now. " +
		"Once everyone is safe, you can reach the police non-emergency line at 311 to file a report."

	deEscalationReply = "It looks like I'm not giving you what you need, and I'm sorry about that. " +
		"You can talk to a city representative by calling 311 (Monday to Friday, 7am to 7pm) " +
		"or start a live chat at /contact/chat. You can also try describing your request in different words."

	notUnderstoodReply = "I'm not sure I understood. Could you tell me a bit more, for example which " +
		"service you need, like paying a bill, a permit, or a license?"

	stillConfusedReply = "I'm still having trouble understanding. Let's try a different way."

	menuQuestion = "Which of these areas can I help you with?"
)

func unintelligibleReply(reason classifier.Reason) string {
	switch reason {
	case classifier.ReasonEmpty:
		return "It looks like your message was empty. What can I help you with today?"
	case classifier.ReasonRepetition:
		return "I couldn't make out a question there. Could you describe what you need in a sentence?"
	default:
		return "Sorry, I couldn't understand that. Could you rephrase it, for example \"how do I pay my water bill\"?"
	}
}

// buildMenu lists the departments by number. Choosing one answers with its description
// and contact details.
func buildMenu(cat *catalog.Catalog) *lexicon.FollowUp {
	menu := &lexicon.FollowUp{
		Question: menuQuestion,
	}

	for _, dep := range cat.Departments {
		if dep.ID == generalDepartment {
			continue
		}

		menu.Options = append(menu.Options, lexicon.Option{
			Key:    strconv.Itoa(len(menu.Options) + 1),
			Label:  dep.Name,
			Value:  dep.ID,
			Answer: departmentAnswer(dep, cat.ServicesOf(dep.ID)),
		})
	}

	return menu
}

func departmentAnswer(dep *catalog.Department, services []*catalog.Service) string {
	var builder strings.Builder

	builder.WriteString(dep.Name + ": " + dep.Description)
	builder.WriteString(" Start at " + dep.URL + ".")

	for _, page := range dep.SubPages {
		builder.WriteString(fmt.Sprintf("\n- %s: %s", page.Title, page.URL))
	}

	if len(services) > 0 {
		names := make([]string, 0, len(services))
		for _, svc := range services {
			names = append(names, svc.Name)
		}
		builder.WriteString("\nServices: " + strings.Join(names, ", "))
	}

	if dep.Contact.Phone != "" {
		builder.WriteString("\nPhone: " + dep.Contact.Phone)
		if dep.Contact.Hours != "" {
			builder.WriteString(" (" + dep.Contact.Hours + ")")
		}
	}

	return builder.String()
}

// clarifyQuestion offers the competing intents as numbered options.
func clarifyQuestion(choices []*lexicon.Intent) *lexicon.FollowUp {
	titles := make([]string, 0, len(choices))
	options := make([]lexicon.Option, 0, len(choices))

	for i, intent := range choices {
		titles = append(titles, strings.ToLower(intent.Title))
		options = append(options, lexicon.Option{
			Key:    strconv.Itoa(i + 1),
			Label:  intent.Title,
			Value:  intent.Name,
			Answer: intent.Answer,
		})
	}

	return &lexicon.FollowUp{
		Question: "Did you mean " + joinOr(titles) + "?",
		Options:  options,
	}
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
	}
}

func formatFollowUp(followUp *lexicon.FollowUp) string {
	var builder strings.Builder

	builder.WriteString(followUp.Question)
	for _, option := range followUp.Options {
		builder.WriteString(fmt.Sprintf("\n%s. %s", option.Key, option.Label))
	}
	builder.WriteString("\nReply with a number.")

	return builder.String()
}
