package llm

import (
	"fmt"
	"strings"
)

const classifyPromptTemplate = `You are an intent classifier for a Polish food ordering voice assistant.
The user speaks Polish. Classify the message into exactly one of the allowed intents.

Allowed intents:
%s

Intent hints:
- find_nearby: looking for restaurants or food nearby ("gdzie zjem", "szukam pizzerii")
- menu_request: asking for a menu ("co macie", "pokaż menu")
- create_order: ordering a concrete dish ("poproszę pad thai", "wezmę dwie pizze")
- confirm_order: agreeing to a summarized order ("tak", "potwierdzam")
- cancel_order: refusing or abandoning ("nie", "anuluj")
- select_restaurant: picking one place from a presented list ("ta pierwsza", "wybieram Aroma")
- show_more_options: asking for more results ("pokaż więcej")
- recommend: asking what is worth eating ("co polecasz")
- help: asking what the assistant can do

Return ONLY valid JSON:
{
  "intent": "one of the allowed intents or unknown",
  "confidence": 0.0-0.75,
  "dish": "mentioned dish or empty string",
  "city": "mentioned Polish city or empty string"
}

Rules:
- Never invent an intent that is not in the allowed list.
- confidence must not exceed 0.75.
- dish and city are copied from the message, not guessed.

User message: %s`

func classifyPrompt(text string, allowed []string) string {
	return fmt.Sprintf(classifyPromptTemplate, strings.Join(allowed, ", "), text)
}

const stylizePromptTemplate = `Przeredaguj poniższą odpowiedź asystenta zamawiania jedzenia tak,
aby brzmiała naturalnie w mowie. Zasady:
- zachowaj WSZYSTKIE liczby, ceny i nazwy dań dokładnie takie same,
- nie dodawaj nowych informacji ani pytań,
- maksymalnie dwa zdania dłużej niż oryginał,
- odpowiedz wyłącznie przeredagowanym tekstem, bez komentarza.

Odpowiedź: %s`

func stylizePrompt(reply string) string {
	return fmt.Sprintf(stylizePromptTemplate, reply)
}
